package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"arxiv-scout/config"
	"arxiv-scout/providers"
	"arxiv-scout/retry"
)

// maxRecords ist das harte Limit pro Query: mehr Einträge werden weder
// angefragt noch übernommen, egal was der Feed meldet.
const maxRecords = 100

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Fetcher implementiert das Provider-Interface für die arXiv-API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	Client *http.Client
	Retry  retry.Config
}

// NewFetcher erstellt einen neuen arXiv-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		Client: httpClient,
		Retry:  retry.DefaultConfig(),
	}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "arxiv"
}

// Fetch führt die Suche auf arXiv aus. Transport-Fehler und 5xx-Antworten
// werden über den Backoff-Executor wiederholt; nach Ausschöpfen aller
// Versuche wird ErrUpstreamUnavailable gemeldet.
func (f *Fetcher) Fetch(ctx context.Context, criteria providers.SearchCriteria, maxResults int) (*providers.Feed, error) {
	expr := buildExpression(criteria)
	if expr == "" {
		return nil, fmt.Errorf("empty search expression")
	}

	if maxResults <= 0 {
		maxResults = f.Config.ArxivMaxResults
	}
	if maxResults > maxRecords {
		maxResults = maxRecords
	}

	searchURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		f.Config.ArxivBaseURL, expr, maxResults)

	log := f.Logger.With(zap.String("expression", expr))
	log.Info("Querying arXiv API", zap.Int("max_results", maxResults))

	feed, err := retry.Do(ctx, f.Retry, log, func(ctx context.Context) (*providers.Feed, error) {
		return f.fetchOnce(ctx, searchURL)
	})
	if err != nil {
		log.Error("arXiv fetch failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", providers.ErrUpstreamUnavailable, err)
	}

	log.Info("arXiv fetch completed",
		zap.Int("records", len(feed.Records)),
		zap.Int("total_results", feed.TotalResults))
	return feed, nil
}

// fetchOnce führt genau einen Abruf aus. 4xx-Antworten und Parse-Fehler
// werden als permanent markiert, damit der Executor sie nicht wiederholt.
func (f *Fetcher) fetchOnce(ctx context.Context, searchURL string) (*providers.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Permanent(fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode))
	}

	var doc atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, retry.Permanent(fmt.Errorf("parsing arXiv response: %w", err))
	}

	return mapFeed(&doc, resp.StatusCode), nil
}

// mapFeed konvertiert das Atom-Dokument in unser normalisiertes Feed-Modell.
func mapFeed(doc *atomFeed, statusCode int) *providers.Feed {
	total, err := strconv.Atoi(strings.TrimSpace(doc.TotalResults))
	if err != nil || total < 0 {
		total = 0
	}
	if total > maxRecords {
		total = maxRecords
	}

	entries := doc.Entries
	if len(entries) > maxRecords {
		entries = entries[:maxRecords]
	}

	records := make([]providers.Record, 0, len(entries))
	for _, entry := range entries {
		var names []string
		for _, a := range entry.Authors {
			names = append(names, strings.TrimSpace(a.Name))
		}
		records = append(records, providers.Record{
			Author:  strings.Join(names, ", "),
			Title:   strings.TrimSpace(entry.Title),
			Journal: strings.TrimSpace(entry.JournalRef),
		})
	}

	return &providers.Feed{
		QueryTitle:   strings.TrimSpace(doc.Title),
		StatusCode:   statusCode,
		TotalResults: total,
		Records:      records,
	}
}

// buildExpression baut den search_query-Parameter aus den gesetzten
// Feldern: feldpräfixiert, Leerzeichen durch "+" ersetzt, per "+AND+"
// verknüpft. Nicht gesetzte Felder tragen nichts bei.
func buildExpression(c providers.SearchCriteria) string {
	var parts []string

	if c.Author != "" {
		parts = append(parts, "au:"+strings.Join(strings.Fields(c.Author), "+"))
	}
	if c.Title != "" {
		parts = append(parts, "ti:"+strings.Join(strings.Fields(c.Title), "+"))
	}
	if c.Journal != "" {
		parts = append(parts, "jr:"+strings.Join(strings.Fields(c.Journal), "+"))
	}

	return strings.Join(parts, "+AND+")
}
