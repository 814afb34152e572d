package models

// ArxivResult ist ein einzelner bibliografischer Treffer einer Query.
// Ergebnisse hängen immer an genau einer Query (cascade delete) und
// werden zusammen mit ihr in einer Transaktion geschrieben.
type ArxivResult struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Explizite Fremdschlüssel-Spalte, kein Lazy Loading über Relationen.
	QueryID uint `json:"query_id" gorm:"index;not null"`

	// Autorenliste als Anzeige-String, mit ", " verbunden.
	Author string `json:"author"`
	Title  string `json:"title"`
	// Journal-Referenz, leerer String falls nicht vorhanden (nie NULL).
	Journal string `json:"journal" gorm:"not null;default:''"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (ArxivResult) TableName() string {
	return "arxiv_results"
}
