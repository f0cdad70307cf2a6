// Package ingest orchestrates the indexing pipeline: clean, chunk, embed,
// and dual-index a document into the vector store and BM25 engine.
package ingest

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/bm25"
	"github.com/jmagar/pulse-sub007/internal/canonical"
	"github.com/jmagar/pulse-sub007/internal/chunker"
	"github.com/jmagar/pulse-sub007/internal/embedder"
	"github.com/jmagar/pulse-sub007/internal/logging"
	"github.com/jmagar/pulse-sub007/internal/vectorindex"
)

// Result is the structured outcome of indexing one document.
type Result struct {
	Success       bool
	URL           string
	ChunksIndexed int
	TotalTokens   int
	Error         string
	// ErrorType is the apperr.Kind string of the failure, e.g.
	// "InvalidInput" or "TransientRemote"; empty when Success is true.
	ErrorType string

	// PhaseTimings records how long each ordered step took; useful for
	// logging and tests, not part of the caller-facing contract.
	PhaseTimings map[string]time.Duration
}

// Deps are the service-pool collaborators the pipeline needs. VectorDim
// drives the dimension-mismatch check in step 4.
type Deps struct {
	ChunkerConfig chunker.Config
	Embedder      embedder.Embedder
	VectorIndex   vectorindex.Index
	BM25          *bm25.Engine
	VectorDim     int
}

func fail(url, msg string, kind apperr.Kind, timings map[string]time.Duration) Result {
	return Result{Success: false, URL: url, Error: msg, ErrorType: kind.String(), PhaseTimings: timings}
}

// failFrom derives the error kind from err when it's (or wraps) an
// *apperr.Error, defaulting to KindInternal otherwise.
func failFrom(url, msg string, err error, timings map[string]time.Duration) Result {
	return fail(url, msg, apperr.KindOf(err), timings)
}

// Index runs the ordered pipeline described in the indexing-pipeline
// contract: clean -> extract domain/canonical_url -> chunk -> embed ->
// vector upsert -> BM25 upsert (non-fatal). Each step's error shape and
// the exact step order are load-bearing; do not reorder.
func Index(ctx context.Context, doc Document, deps Deps) Result {
	timings := make(map[string]time.Duration)
	start := time.Now()

	cleaned := clean(doc.Markdown)
	timings["clean"] = time.Since(start)
	if cleaned == "" {
		return fail(doc.URL, "no content after cleaning", apperr.KindInvalidInput, timings)
	}

	t := time.Now()
	domain := extractDomain(doc.URL)
	canonicalURL, err := canonical.Canonicalize(doc.URL)
	if err != nil {
		canonicalURL = doc.URL
	}
	timings["canonicalize"] = time.Since(t)

	meta := chunker.Meta{
		URL:          doc.URL,
		CanonicalURL: canonicalURL,
		Domain:       domain,
		Title:        doc.Title,
		Description:  doc.Description,
		Language:     doc.Language,
		Country:      doc.Country,
		IsMobile:     doc.IsMobile,
	}

	t = time.Now()
	chunks := chunker.Chunk(cleaned, meta, deps.ChunkerConfig)
	timings["chunk"] = time.Since(t)
	if len(chunks) == 0 {
		return fail(doc.URL, "no chunks generated", apperr.KindInvalidInput, timings)
	}

	texts := make([]string, len(chunks))
	totalTokens := 0
	for i, c := range chunks {
		texts[i] = c.Text
		totalTokens += c.TokenCount
	}

	t = time.Now()
	vectors, err := deps.Embedder.EmbedBatch(ctx, texts)
	timings["embed"] = time.Since(t)
	if err != nil {
		return failFrom(doc.URL, "embedding failed: "+err.Error(), err, timings)
	}
	for _, v := range vectors {
		if deps.VectorDim > 0 && len(v) != deps.VectorDim {
			return fail(doc.URL, "dimension mismatch", apperr.KindPermanentRemote, timings)
		}
	}

	points := make([]vectorindex.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorindex.Point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"text":          c.Text,
				"url":           c.Meta.URL,
				"canonical_url": c.Meta.CanonicalURL,
				"domain":        c.Meta.Domain,
				"title":         c.Meta.Title,
				"description":   c.Meta.Description,
				"language":      c.Meta.Language,
				"country":       c.Meta.Country,
				"is_mobile":     c.Meta.IsMobile,
				"chunk_index":   c.ChunkIndex,
			},
		}
	}

	t = time.Now()
	if err := deps.VectorIndex.Upsert(ctx, points); err != nil {
		timings["vector_upsert"] = time.Since(t)
		return failFrom(doc.URL, "vector upsert failed: "+err.Error(), err, timings)
	}
	timings["vector_upsert"] = time.Since(t)

	t = time.Now()
	bm25Meta := map[string]string{
		"url":           doc.URL,
		"canonical_url": canonicalURL,
		"domain":        domain,
		"title":         doc.Title,
		"description":   doc.Description,
		"language":      doc.Language,
		"country":       doc.Country,
	}
	if err := deps.BM25.IndexDocument(ctx, cleaned, bm25Meta); err != nil {
		timings["bm25_upsert"] = time.Since(t)
		logging.Log.WithError(err).WithField("url", doc.URL).Warn("ingest: bm25 index failed, continuing with vector-only index")
	} else {
		timings["bm25_upsert"] = time.Since(t)
	}

	return Result{
		Success:       true,
		URL:           doc.URL,
		ChunksIndexed: len(chunks),
		TotalTokens:   totalTokens,
		PhaseTimings:  timings,
	}
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
