package search

import "sort"

// fuseRRF merges ranked lists by Reciprocal Rank Fusion: for each list,
// each result at 1-based rank r contributes 1/(rrfK+r) to its document's
// summed score. The first list to mention a document identity supplies
// its payload. Output is deterministic: ties break by identity.
func fuseRRF(rrfK int, lists ...[]rankedEntry) []Result {
	type fused struct {
		id      string
		payload map[string]any
		text    string
		score   float64
	}
	order := make([]string, 0)
	byID := make(map[string]*fused)

	for _, list := range lists {
		for rank, entry := range list {
			f, ok := byID[entry.id]
			if !ok {
				f = &fused{id: entry.id, payload: entry.payload, text: entry.text}
				byID[entry.id] = f
				order = append(order, entry.id)
			}
			f.score += 1.0 / float64(rrfK+rank+1)
		}
	}

	out := make([]Result, 0, len(order))
	for _, id := range order {
		f := byID[id]
		out = append(out, resultFrom(f.id, f.payload, f.text, f.score))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// directResults converts a single backend's ranked entries straight to
// Results, preserving its native score (cosine similarity or BM25 score)
// rather than rewriting it through RRF; used for the pure semantic and
// keyword modes, which never fuse.
func directResults(entries []rankedEntry) []Result {
	out := make([]Result, len(entries))
	for i, e := range entries {
		out[i] = resultFrom(e.id, e.payload, e.text, e.score)
	}
	return out
}

func resultFrom(id string, payload map[string]any, text string, score float64) Result {
	url, _ := payload["canonical_url"].(string)
	if url == "" {
		url, _ = payload["url"].(string)
	}
	if url == "" {
		url = id
	}
	title, _ := payload["title"].(string)
	description, _ := payload["description"].(string)
	return Result{
		URL:         url,
		Title:       title,
		Description: description,
		Text:        text,
		Score:       score,
		Metadata:    payload,
	}
}
