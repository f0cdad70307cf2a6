package scraper

import (
	"context"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/ingest"
)

// Fake is an in-memory Scraper for tests: returns a canned document per
// URL, or a TransientRemote error if FailNext is set.
type Fake struct {
	Documents map[string]ingest.Document
	FailNext  bool
}

// NewFake constructs a Fake with no canned documents.
func NewFake() *Fake {
	return &Fake{Documents: make(map[string]ingest.Document)}
}

func (f *Fake) Scrape(ctx context.Context, url string) (ingest.Document, error) {
	if f.FailNext {
		f.FailNext = false
		return ingest.Document{}, apperr.New(apperr.KindTransientRemote, "fake scrape failure")
	}
	doc, ok := f.Documents[url]
	if !ok {
		return ingest.Document{URL: url, Markdown: "fake scraped content for " + url}, nil
	}
	return doc, nil
}
