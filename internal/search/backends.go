package search

import (
	"context"

	"github.com/jmagar/pulse-sub007/internal/bm25"
	"github.com/jmagar/pulse-sub007/internal/logging"
)

// rankedEntry is one backend's hit, re-keyed to its document identity for
// fusion: canonical_url if present, else url, else the backend's raw id.
type rankedEntry struct {
	id      string
	payload map[string]any
	text    string
	score   float64
}

func identityOf(payload map[string]any, fallback string) string {
	if v, ok := payload["canonical_url"].(string); ok && v != "" {
		return v
	}
	if v, ok := payload["url"].(string); ok && v != "" {
		return v
	}
	return fallback
}

// semanticSearch embeds the query and searches the vector index. Any
// failure (embed or vector-search) degrades to an empty result set rather
// than propagating an error, so callers always have something to fuse.
func semanticSearch(ctx context.Context, query string, limit int, filter Filter, deps Deps) []rankedEntry {
	if deps.Embedder == nil || deps.VectorIndex == nil {
		return nil
	}
	vec, err := deps.Embedder.EmbedSingle(ctx, query)
	if err != nil {
		logging.Log.WithError(err).Warn("search: query embedding failed, degrading to empty semantic results")
		return nil
	}
	hits, err := deps.VectorIndex.Search(ctx, vec, limit, filter.vectorFilter())
	if err != nil {
		logging.Log.WithError(err).Warn("search: vector search failed, degrading to empty semantic results")
		return nil
	}
	out := make([]rankedEntry, len(hits))
	for i, h := range hits {
		text, _ := h.Payload["text"].(string)
		out[i] = rankedEntry{id: identityOf(h.Payload, h.ID), payload: h.Payload, text: text, score: h.Score}
	}
	return out
}

// keywordSearch tokenizes the query and scores it against the BM25
// engine. A LockTimeout or any other failure degrades to empty.
func keywordSearch(ctx context.Context, query string, limit int, filter Filter, deps Deps) []rankedEntry {
	if deps.BM25 == nil {
		return nil
	}
	tokens := bm25.Tokenize(query)
	results, err := deps.BM25.Search(ctx, tokens, limit, filter.bm25Filter())
	if err != nil {
		logging.Log.WithError(err).Warn("search: bm25 search failed, degrading to empty keyword results")
		return nil
	}
	out := make([]rankedEntry, len(results))
	for i, r := range results {
		payload := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload["text"] = r.RawText
		out[i] = rankedEntry{id: identityOf(payload, r.Metadata["url"]), payload: payload, text: r.RawText, score: r.Score}
	}
	return out
}
