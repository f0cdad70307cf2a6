package ingest

// Document is one scraped page handed to the indexing pipeline. Markdown
// is the authoritative text; HTML (if the scraper captured it) is never
// indexed.
type Document struct {
	URL         string
	ResolvedURL string
	Title       string
	Description string
	Markdown    string
	StatusCode  int
	Language    string
	Country     string
	IsMobile    bool
}
