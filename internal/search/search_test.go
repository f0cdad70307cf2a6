package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/pulse-sub007/internal/bm25"
	"github.com/jmagar/pulse-sub007/internal/chunker"
	"github.com/jmagar/pulse-sub007/internal/embedder"
	"github.com/jmagar/pulse-sub007/internal/ingest"
	"github.com/jmagar/pulse-sub007/internal/vectorindex"
)

func newSearchDeps(t *testing.T) Deps {
	t.Helper()
	engine, err := bm25.New(filepath.Join(t.TempDir(), "idx.bm25"), bm25.DefaultParams())
	require.NoError(t, err)
	return Deps{
		Embedder:    embedder.NewFake(8),
		VectorIndex: vectorindex.NewFake(),
		BM25:        engine,
		RRFK:        60,
	}
}

func index(t *testing.T, deps Deps, docURL, text string) {
	t.Helper()
	ideps := ingest.Deps{
		ChunkerConfig: chunker.DefaultConfig(),
		Embedder:      deps.Embedder,
		VectorIndex:   deps.VectorIndex,
		BM25:          deps.BM25,
		VectorDim:     8,
	}
	res := ingest.Index(context.Background(), ingest.Document{URL: docURL, Markdown: text}, ideps)
	require.True(t, res.Success, res.Error)
}

func TestHybridSearch_FusesAndRanksByRRF(t *testing.T) {
	deps := newSearchDeps(t)
	index(t, deps, "https://example.com/a", "apple pear banana")
	index(t, deps, "https://example.com/b", "apple cherry mango")

	results, err := Search(context.Background(), "apple pear", ModeHybrid, 2, Filter{}, deps)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "https://example.com/a", results[0].URL)
}

func TestSearch_CanonicalDedup(t *testing.T) {
	deps := newSearchDeps(t)
	index(t, deps, "https://example.com/x?utm_source=z", "hello world")

	results, err := Search(context.Background(), "hello", ModeHybrid, 10, Filter{}, deps)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/x", results[0].URL)
}

func TestSearch_UnknownModeIsInvalidInput(t *testing.T) {
	deps := newSearchDeps(t)
	_, err := Search(context.Background(), "q", Mode("nonsense"), 10, Filter{}, deps)
	assert.Error(t, err)
}

func TestSearch_DegradesToKeywordOnlyWhenEmbedderMissing(t *testing.T) {
	deps := newSearchDeps(t)
	index(t, deps, "https://example.com/a", "hello world")
	deps.Embedder = nil // semantic branch has nothing to embed with

	results, err := Search(context.Background(), "hello", ModeHybrid, 10, Filter{}, deps)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/a", results[0].URL)
}
