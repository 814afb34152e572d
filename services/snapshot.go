package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"arxiv-scout/config"
	"arxiv-scout/models"
	"arxiv-scout/pagination"
	"arxiv-scout/storage"
	"arxiv-scout/store"
)

// SnapshotService exportiert die Query-Historie der letzten 24 Stunden
// als gzip-komprimiertes JSON nach S3. Der Export liest nur; die
// eigentliche Retention (Löschen alter Daten) bleibt außerhalb des Kerns.
type SnapshotService struct {
	Config *config.Config
	Store  *store.Store
	S3     *s3.Client
	Logger *zap.Logger
}

// NewSnapshotService erstellt eine neue Instanz des SnapshotService.
func NewSnapshotService(cfg *config.Config, st *store.Store, s3Client *s3.Client, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{Config: cfg, Store: st, S3: s3Client, Logger: logger}
}

type snapshotEntry struct {
	Query   models.ArxivQuery    `json:"query"`
	Results []models.ArxivResult `json:"results"`
}

// Run führt einen Export aus und gibt die Anzahl exportierter Queries
// zurück. Ohne neue Queries wird kein Objekt hochgeladen.
func (s *SnapshotService) Run(ctx context.Context) (int, error) {
	since := time.Now().UTC().Add(-24 * time.Hour)

	queries, err := s.Store.QueriesSince(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(queries) == 0 {
		s.Logger.Info("No queries in snapshot window, skipping upload")
		return 0, nil
	}

	entries := make([]snapshotEntry, 0, len(queries))
	for _, q := range queries {
		// Eine Query besitzt nie mehr als 100 Ergebnisse, das Fenster
		// deckt also immer alle ab.
		results, _, err := s.Store.ListResultsFor(ctx, q.ID, 0, pagination.MaxTotal)
		if err != nil {
			return 0, err
		}
		entries = append(entries, snapshotEntry{Query: q, Results: results})
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(entries); err != nil {
		return 0, fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("compressing snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/queries-%s.json.gz", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	link, err := storage.UploadFile(ctx, s.S3, s.Config.S3Bucket, key, buf.Bytes(), s.Config)
	if err != nil {
		return 0, fmt.Errorf("uploading snapshot: %w", err)
	}

	s.Logger.Info("Snapshot uploaded",
		zap.String("s3_link", link),
		zap.Int("queries", len(entries)))
	return len(entries), nil
}
