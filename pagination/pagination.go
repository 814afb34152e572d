// Package pagination rechnet Seitennummern in deterministische
// Datenbank-Fenster um. Die Seitengröße ist fix, damit die maximale
// Antwortgröße begrenzt bleibt.
package pagination

import "errors"

const (
	// PageSize ist fest und nicht vom Aufrufer wählbar.
	PageSize = 10
	// MaxPages begrenzt den Index auf die Seiten 0–9.
	MaxPages = 10
	// MaxTotal deckelt die angezeigte Gesamtzahl; mehr als 100 Treffer
	// sind damit nie erreichbar.
	MaxTotal = 100
)

// ErrInvalidPage signalisiert eine Seitennummer außerhalb von [0,9].
var ErrInvalidPage = errors.New("page must be in range 0-9")

// Window liefert zu einer Gesamtzahl und Seitennummer das Fenster
// (skip, take) sowie die gedeckelte Gesamtzahl für die Anzeige.
func Window(total int64, page int) (skip, take int, displayedTotal int64, err error) {
	if page < 0 || page >= MaxPages {
		return 0, 0, 0, ErrInvalidPage
	}

	displayedTotal = total
	if displayedTotal > MaxTotal {
		displayedTotal = MaxTotal
	}

	return page * PageSize, PageSize, displayedTotal, nil
}
