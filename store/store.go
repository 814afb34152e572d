// Package store ist die einzige Schicht mit Datenbank-Zugriff.
// Alle Schreibvorgänge sind append-only; eine Query und ihre Ergebnisse
// werden immer gemeinsam in einer Transaktion geschrieben.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"arxiv-scout/models"
)

// ErrStorage kapselt jeden Fehler der Datenbank-Schicht. Aufrufer dürfen
// bei diesem Fehler keinen Teilerfolg annehmen.
var ErrStorage = errors.New("storage error")

// Store bündelt die Persistenz-Operationen über eine injizierte,
// gepoolte Datenbank-Verbindung. Kein globaler Zustand.
type Store struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// New erstellt einen neuen Store.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

// SaveQueryWithResults schreibt eine Query und ihre Ergebnisse als eine
// Transaktion: entweder sind Query und alle Ergebnisse sichtbar, oder
// nichts davon. Die QueryID der Ergebnisse wird hier gesetzt.
func (s *Store) SaveQueryWithResults(ctx context.Context, query *models.ArxivQuery, results []models.ArxivResult) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(query).Error; err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		for i := range results {
			results[i].QueryID = query.ID
		}
		return tx.CreateInBatches(results, 100).Error
	})
	if err != nil {
		s.Logger.Error("Failed to persist query with results", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// ListQueries liefert Queries mit Timestamp >= start (und optional
// <= end), neueste zuerst, als Fenster [offset, offset+limit) plus die
// echte Trefferzahl. Die Anzeige-Deckelung übernimmt der Aufrufer.
func (s *Store) ListQueries(ctx context.Context, start time.Time, end *time.Time, offset, limit int) ([]models.ArxivQuery, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.ArxivQuery{}).Where("timestamp >= ?", start)
	if end != nil {
		q = q.Where("timestamp <= ?", *end)
	}
	// Session, damit Count und Find dieselbe Bedingungskette sauber
	// wiederverwenden können.
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		s.Logger.Error("Database query for query count failed", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var items []models.ArxivQuery
	if err := q.Order("timestamp desc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		s.Logger.Error("Database query for queries failed", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return items, total, nil
}

// QueriesSince liefert alle Queries ab dem gegebenen Zeitpunkt,
// aufsteigend nach ID und ohne Fenster. Wird vom Snapshot-Export genutzt.
func (s *Store) QueriesSince(ctx context.Context, since time.Time) ([]models.ArxivQuery, error) {
	var items []models.ArxivQuery
	err := s.DB.WithContext(ctx).
		Where("timestamp >= ?", since).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		s.Logger.Error("Database query for snapshot queries failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return items, nil
}

// LatestQuery liefert die Query mit der höchsten ID oder (nil, nil),
// wenn noch keine Query existiert.
func (s *Store) LatestQuery(ctx context.Context) (*models.ArxivQuery, error) {
	var query models.ArxivQuery
	err := s.DB.WithContext(ctx).Order("id desc").First(&query).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.Logger.Error("Database query for latest query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &query, nil
}

// ListResultsFor liefert die Ergebnisse einer Query, absteigend nach ID,
// als Fenster [offset, offset+limit) plus die echte Trefferzahl.
func (s *Store) ListResultsFor(ctx context.Context, queryID uint, offset, limit int) ([]models.ArxivResult, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.ArxivResult{}).Where("query_id = ?", queryID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		s.Logger.Error("Database query for result count failed", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var items []models.ArxivResult
	if err := q.Order("id desc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		s.Logger.Error("Database query for results failed", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return items, total, nil
}
