package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"arxiv-scout/models"
)

// newTestStore öffnet eine frische In-Memory-Datenbank pro Test. Der
// Store geht nur über die dialekt-neutrale GORM-API, daher reicht
// SQLite als Ersatz für PostgreSQL.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ArxivQuery{}, &models.ArxivResult{}))
	return New(db, zap.NewNop())
}

func saveQuery(t *testing.T, s *Store, label string, ts time.Time, numResults int) *models.ArxivQuery {
	t.Helper()
	results := make([]models.ArxivResult, numResults)
	for i := range results {
		results[i] = models.ArxivResult{
			Author:  fmt.Sprintf("Author %d", i),
			Title:   fmt.Sprintf("Title %d", i),
			Journal: "",
		}
	}
	q := &models.ArxivQuery{Query: label, Timestamp: ts, Status: 200, NumResults: numResults}
	require.NoError(t, s.SaveQueryWithResults(context.Background(), q, results))
	return q
}

func TestSaveQueryWithResults(t *testing.T) {
	s := newTestStore(t)

	q := saveQuery(t, s, "ArXiv Query: au:einstein", time.Now().UTC(), 3)
	assert.NotZero(t, q.ID)

	items, total, err := s.ListResultsFor(context.Background(), q.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 3)
	for _, r := range items {
		assert.Equal(t, q.ID, r.QueryID)
	}
}

func TestSaveQueryWithoutResults(t *testing.T) {
	s := newTestStore(t)

	q := saveQuery(t, s, "empty", time.Now().UTC(), 0)

	_, total, err := s.ListResultsFor(context.Background(), q.ID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSaveRollsBackOnResultFailure(t *testing.T) {
	s := newTestStore(t)

	first := saveQuery(t, s, "first", time.Now().UTC(), 1)

	// Ergebnis mit kollidierender Primär-ID erzwingt einen Fehler
	// mitten im Batch; die Query darf danach nicht sichtbar sein.
	firstResults, _, err := s.ListResultsFor(context.Background(), first.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, firstResults, 1)

	bad := []models.ArxivResult{
		{Author: "ok", Title: "ok"},
		{ID: firstResults[0].ID, Author: "dup", Title: "dup"},
	}
	q := &models.ArxivQuery{Query: "doomed", Timestamp: time.Now().UTC(), Status: 200, NumResults: 2}
	err = s.SaveQueryWithResults(context.Background(), q, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)

	// Keine verwaiste Query: latest ist weiterhin die erste.
	latest, err := s.LatestQuery(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, first.ID, latest.ID)

	var count int64
	require.NoError(t, s.DB.Model(&models.ArxivQuery{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLatestQueryEmptyStore(t *testing.T) {
	s := newTestStore(t)

	latest, err := s.LatestQuery(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestLatestQueryHighestID(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().UTC()
	saveQuery(t, s, "one", now, 0)
	saveQuery(t, s, "two", now.Add(-time.Hour), 0) // älterer Timestamp, höhere ID
	third := saveQuery(t, s, "three", now.Add(-2*time.Hour), 0)

	latest, err := s.LatestQuery(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, third.ID, latest.ID)
	assert.Equal(t, "three", latest.Query)
}

func TestListQueriesTimeRangeAndOrder(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	saveQuery(t, s, "old", base.Add(-48*time.Hour), 0)
	saveQuery(t, s, "middle", base.Add(-24*time.Hour), 0)
	saveQuery(t, s, "new", base, 0)

	items, total, err := s.ListQueries(context.Background(), base.Add(-30*time.Hour), nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	// Neueste zuerst.
	assert.Equal(t, "new", items[0].Query)
	assert.Equal(t, "middle", items[1].Query)

	// Obere Grenze ist inklusiv.
	end := base.Add(-24 * time.Hour)
	items, total, err = s.ListQueries(context.Background(), base.Add(-72*time.Hour), &end, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, "middle", items[0].Query)
	assert.Equal(t, "old", items[1].Query)
}

func TestListQueriesWindow(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		saveQuery(t, s, fmt.Sprintf("q%02d", i), base.Add(time.Duration(i)*time.Minute), 0)
	}

	items, total, err := s.ListQueries(context.Background(), base, nil, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	require.Len(t, items, 5)
	// Seite 1 beginnt beim elft-neuesten Eintrag.
	assert.Equal(t, "q04", items[0].Query)
}

func TestListResultsForOrderAndWindow(t *testing.T) {
	s := newTestStore(t)

	q := saveQuery(t, s, "windowed", time.Now().UTC(), 12)

	items, total, err := s.ListResultsFor(context.Background(), q.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, items, 10)
	// Absteigend nach ID.
	for i := 1; i < len(items); i++ {
		assert.Greater(t, items[i-1].ID, items[i].ID)
	}

	rest, _, err := s.ListResultsFor(context.Background(), q.ID, 10, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestListResultsForScopedToQuery(t *testing.T) {
	s := newTestStore(t)

	q1 := saveQuery(t, s, "first", time.Now().UTC(), 2)
	q2 := saveQuery(t, s, "second", time.Now().UTC(), 3)

	_, total1, err := s.ListResultsFor(context.Background(), q1.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total1)

	_, total2, err := s.ListResultsFor(context.Background(), q2.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total2)
}

func TestQueriesSince(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().UTC()
	saveQuery(t, s, "ancient", now.Add(-48*time.Hour), 0)
	saveQuery(t, s, "recent-a", now.Add(-2*time.Hour), 0)
	saveQuery(t, s, "recent-b", now.Add(-1*time.Hour), 0)

	items, err := s.QueriesSince(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Aufsteigend nach ID, ohne Fenster.
	assert.Equal(t, "recent-a", items[0].Query)
	assert.Equal(t, "recent-b", items[1].Query)
}
