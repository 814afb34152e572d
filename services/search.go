package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"arxiv-scout/config"
	"arxiv-scout/models"
	"arxiv-scout/pagination"
	"arxiv-scout/providers"
	"arxiv-scout/retry"
	"arxiv-scout/store"
)

// ErrMissingCriteria wird gemeldet, wenn weder Autor noch Titel noch
// Journal gesetzt sind. Solche Anfragen scheitern vor jedem externen
// Aufruf; es wird nichts persistiert.
var ErrMissingCriteria = errors.New("at least one of author, title or journal must be provided")

// SearchParams sind die Eingaben einer Submit-Anfrage.
type SearchParams struct {
	Author     string `json:"author"`
	Title      string `json:"title"`
	Journal    string `json:"journal"`
	MaxResults int    `json:"max_results"`
}

// SubmitOutcome ist das Ergebnis einer erfolgreichen Submit-Anfrage.
type SubmitOutcome struct {
	QueryID    uint `json:"query_id"`
	NumResults int  `json:"num_results"`
}

// QueryView ist die Anzeige-Form eines Query-Eintrags.
type QueryView struct {
	Query      string    `json:"query"`
	Timestamp  time.Time `json:"timestamp"`
	Status     int       `json:"status"`
	NumResults int       `json:"num_results"`
}

// ResultView ist die Anzeige-Form eines einzelnen Treffers.
type ResultView struct {
	Author  string `json:"author"`
	Title   string `json:"title"`
	Journal string `json:"journal"`
}

// Page ist eine paginierte Antwort, Total bereits auf 100 gedeckelt.
type Page[T any] struct {
	Total        int64 `json:"total"`
	Page         int   `json:"page"`
	ItemsPerPage int   `json:"items_per_page"`
	Items        []T   `json:"items"`
}

// SearchService orchestriert den Schreibpfad (validieren, abrufen,
// persistieren) und die beiden Lesepfade. Wiederholt selbst nichts;
// Retries passieren ausschließlich im Backoff-Executor.
type SearchService struct {
	Config   *config.Config
	Store    *store.Store
	Provider providers.Provider
	Logger   *zap.Logger

	// ReadRetry gilt für Lese-Queries, die mit Schreib-Transaktionen
	// konkurrieren können. Tests setzen hier kurze Wartezeiten.
	ReadRetry retry.Config
}

// NewSearchService erstellt eine neue Instanz des SearchService.
func NewSearchService(cfg *config.Config, st *store.Store, provider providers.Provider, logger *zap.Logger) *SearchService {
	return &SearchService{
		Config:    cfg,
		Store:     st,
		Provider:  provider,
		Logger:    logger,
		ReadRetry: retry.DefaultConfig(),
	}
}

// Submit validiert die Kriterien, ruft den Feed ab und persistiert
// Query und Ergebnisse atomar. NumResults entspricht der Anzahl
// tatsächlich gespeicherter Ergebnisse (höchstens 100).
func (s *SearchService) Submit(ctx context.Context, params SearchParams) (*SubmitOutcome, error) {
	criteria := providers.SearchCriteria{
		Author:  params.Author,
		Title:   params.Title,
		Journal: params.Journal,
	}
	if criteria.IsEmpty() {
		return nil, ErrMissingCriteria
	}

	feed, err := s.Provider.Fetch(ctx, criteria, params.MaxResults)
	if err != nil {
		return nil, err
	}

	results := make([]models.ArxivResult, 0, len(feed.Records))
	for _, rec := range feed.Records {
		results = append(results, models.ArxivResult{
			Author:  rec.Author,
			Title:   rec.Title,
			Journal: rec.Journal,
		})
	}

	query := models.ArxivQuery{
		Query:      feed.QueryTitle,
		Timestamp:  time.Now().UTC(),
		Status:     feed.StatusCode,
		NumResults: len(results),
	}

	if err := s.Store.SaveQueryWithResults(ctx, &query, results); err != nil {
		return nil, err
	}

	s.Logger.Info("Stored query",
		zap.Uint("query_id", query.ID),
		zap.Int("num_results", query.NumResults),
		zap.String("provider", s.Provider.Name()))

	return &SubmitOutcome{QueryID: query.ID, NumResults: query.NumResults}, nil
}

// ListQueries liefert die Query-Historie ab start (optional bis end),
// neueste zuerst, als Seite mit fester Größe.
func (s *SearchService) ListQueries(ctx context.Context, start time.Time, end *time.Time, page int) (*Page[QueryView], error) {
	skip, take, _, err := pagination.Window(0, page)
	if err != nil {
		return nil, err
	}

	queries, total, err := s.Store.ListQueries(ctx, start, end, skip, take)
	if err != nil {
		return nil, err
	}

	_, _, displayed, _ := pagination.Window(total, page)

	items := make([]QueryView, 0, len(queries))
	for _, q := range queries {
		items = append(items, QueryView{
			Query:      q.Query,
			Timestamp:  q.Timestamp,
			Status:     q.Status,
			NumResults: q.NumResults,
		})
	}

	return &Page[QueryView]{
		Total:        displayed,
		Page:         page,
		ItemsPerPage: pagination.PageSize,
		Items:        items,
	}, nil
}

// ListResults liefert eine Seite der Ergebnisse der zuletzt angelegten
// Query, absteigend nach ID. Existiert noch keine Query, kommt eine
// leere Seite mit Total 0 zurück. Beide Lese-Queries laufen durch den
// Backoff-Executor, weil sie mit laufenden Schreib-Transaktionen
// konkurrieren können.
func (s *SearchService) ListResults(ctx context.Context, page int) (*Page[ResultView], error) {
	skip, take, _, err := pagination.Window(0, page)
	if err != nil {
		return nil, err
	}

	latest, err := retry.Do(ctx, s.ReadRetry, s.Logger, func(ctx context.Context) (*models.ArxivQuery, error) {
		return s.Store.LatestQuery(ctx)
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return &Page[ResultView]{
			Total:        0,
			Page:         page,
			ItemsPerPage: pagination.PageSize,
			Items:        []ResultView{},
		}, nil
	}

	type resultWindow struct {
		items []models.ArxivResult
		total int64
	}
	window, err := retry.Do(ctx, s.ReadRetry, s.Logger, func(ctx context.Context) (resultWindow, error) {
		items, total, err := s.Store.ListResultsFor(ctx, latest.ID, skip, take)
		return resultWindow{items: items, total: total}, err
	})
	if err != nil {
		return nil, err
	}

	_, _, displayed, _ := pagination.Window(window.total, page)

	items := make([]ResultView, 0, len(window.items))
	for _, r := range window.items {
		items = append(items, ResultView{
			Author:  r.Author,
			Title:   r.Title,
			Journal: r.Journal,
		})
	}

	return &Page[ResultView]{
		Total:        displayed,
		Page:         page,
		ItemsPerPage: pagination.PageSize,
		Items:        items,
	}, nil
}
