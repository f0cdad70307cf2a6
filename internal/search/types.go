// Package search dispatches queries to the semantic and/or keyword
// backends and fuses their rankings with Reciprocal Rank Fusion.
package search

import (
	"github.com/jmagar/pulse-sub007/internal/bm25"
	"github.com/jmagar/pulse-sub007/internal/embedder"
	"github.com/jmagar/pulse-sub007/internal/vectorindex"
)

// Mode selects which backend(s) a query is routed to.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
	ModeBM25     Mode = "bm25" // alias of ModeKeyword
	ModeHybrid   Mode = "hybrid"
)

// Filter is an AND of equality predicates over a fixed key set, applied
// by each backend before fusion. The semantic backend applies all four
// keys; the keyword (BM25) backend applies Domain, Language and Country
// only, so IsMobile does not filter keyword results.
type Filter struct {
	Domain   string
	Language string
	Country  string
	IsMobile *bool
}

func (f Filter) vectorFilter() vectorindex.Filter {
	return vectorindex.Filter{Domain: f.Domain, Language: f.Language, Country: f.Country, IsMobile: f.IsMobile}
}

func (f Filter) bm25Filter() map[string]string {
	m := map[string]string{}
	if f.Domain != "" {
		m["domain"] = f.Domain
	}
	if f.Language != "" {
		m["language"] = f.Language
	}
	if f.Country != "" {
		m["country"] = f.Country
	}
	return m
}

// Result is one ranked search hit returned to the HTTP surface.
type Result struct {
	URL         string         `json:"url"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Text        string         `json:"text"`
	Score       float64        `json:"score"`
	Metadata    map[string]any `json:"metadata"`
}

// Deps are the collaborators a query is dispatched against.
type Deps struct {
	Embedder    embedder.Embedder
	VectorIndex vectorindex.Index
	BM25        *bm25.Engine
	RRFK        int
}
