package models

import (
	"time"
)

// ArxivQuery repräsentiert eine ausgeführte arXiv-Suche samt Metadaten.
// Einträge werden nach dem Anlegen nie mehr verändert (append-only).
type ArxivQuery struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Normalisierter Titel aus dem Feed-Envelope, kann leer sein.
	Query string `json:"query" gorm:"index"`

	// Zeitpunkt der Persistierung, nicht des Abrufs.
	Timestamp time.Time `json:"timestamp" gorm:"index;not null"`

	// HTTP-Status der arXiv-Antwort.
	Status int `json:"status"`

	// Anzahl gespeicherter Ergebnisse, hart auf 100 gedeckelt,
	// auch wenn arXiv mehr Treffer meldet.
	NumResults int `json:"num_results"`

	// Deklariert nur den Constraint (cascade delete); gelesen wird
	// ausschließlich über explizite Queries im Store.
	Results []ArxivResult `json:"-" gorm:"foreignKey:QueryID;constraint:OnDelete:CASCADE"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (ArxivQuery) TableName() string {
	return "arxiv_queries"
}
