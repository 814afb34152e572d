package providers

import (
	"context"
	"errors"
)

// ErrUpstreamUnavailable wird gemeldet, wenn der externe Feed auch nach
// allen Wiederholungsversuchen nicht erreichbar oder nicht lesbar ist.
var ErrUpstreamUnavailable = errors.New("upstream feed unavailable")

// SearchCriteria bündelt die Suchfelder einer Anfrage. Mindestens eines
// der Felder muss gesetzt sein.
type SearchCriteria struct {
	Author  string
	Title   string
	Journal string
}

// IsEmpty meldet, ob kein einziges Suchfeld gesetzt ist.
func (c SearchCriteria) IsEmpty() bool {
	return c.Author == "" && c.Title == "" && c.Journal == ""
}

// Record ist ein einzelner, normalisierter Treffer aus dem Feed.
type Record struct {
	Author  string
	Title   string
	Journal string
}

// Feed ist das normalisierte Ergebnis eines Abrufs.
type Feed struct {
	// QueryTitle ist der Titel aus dem Feed-Envelope, kann leer sein.
	QueryTitle string
	// StatusCode ist der HTTP-Status der Upstream-Antwort.
	StatusCode int
	// TotalResults ist die vom Feed gemeldete Trefferzahl, auf 100 gedeckelt.
	TotalResults int
	// Records enthält höchstens die ersten 100 Einträge.
	Records []Record
}

// Provider ist das Interface, das jeder Feed-Provider implementieren muss.
type Provider interface {
	// Fetch führt eine Suche aus und gibt das normalisierte Feed-Ergebnis
	// zurück. Es wird nichts persistiert.
	Fetch(ctx context.Context, criteria SearchCriteria, maxResults int) (*Feed, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "arxiv").
	Name() string
}
