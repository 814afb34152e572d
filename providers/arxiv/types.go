package arxiv

// Atom-Strukturen der arXiv-API. Die Namespaces stammen aus dem
// OpenSearch-Standard bzw. dem arXiv-eigenen Atom-Schema.
type atomFeed struct {
	Title        string      `xml:"title"`
	TotalResults string      `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title      string       `xml:"title"`
	Authors    []atomAuthor `xml:"author"`
	JournalRef string       `xml:"http://arxiv.org/schemas/atom journal_ref"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}
