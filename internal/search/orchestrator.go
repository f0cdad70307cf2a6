package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jmagar/pulse-sub007/internal/apperr"
)

// Search dispatches query according to mode. Hybrid mode fans out
// semantic and keyword search concurrently with independent error
// isolation: one branch failing never cancels or drops the other.
func Search(ctx context.Context, query string, mode Mode, limit int, filter Filter, deps Deps) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	switch mode {
	case ModeSemantic:
		entries := semanticSearch(ctx, query, limit, filter, deps)
		return capResults(directResults(entries), limit), nil
	case ModeKeyword, ModeBM25:
		entries := keywordSearch(ctx, query, limit, filter, deps)
		return capResults(directResults(entries), limit), nil
	case ModeHybrid:
		return hybridSearch(ctx, query, limit, filter, deps)
	default:
		return nil, apperr.New(apperr.KindInvalidInput, "unknown search mode")
	}
}

func rrfK(deps Deps) int {
	if deps.RRFK > 0 {
		return deps.RRFK
	}
	return 60
}

func hybridSearch(ctx context.Context, query string, limit int, filter Filter, deps Deps) ([]Result, error) {
	fanoutLimit := 2 * limit

	var semantic, keyword []rankedEntry
	g := new(errgroup.Group)
	g.Go(func() error {
		semantic = semanticSearch(ctx, query, fanoutLimit, filter, deps)
		return nil
	})
	g.Go(func() error {
		keyword = keywordSearch(ctx, query, fanoutLimit, filter, deps)
		return nil
	})
	_ = g.Wait() // both branches self-isolate their own errors; never returns non-nil

	fused := fuseRRF(rrfK(deps), semantic, keyword)
	return capResults(fused, limit), nil
}

func capResults(results []Result, limit int) []Result {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
