package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/pulse-sub007/internal/bm25"
	"github.com/jmagar/pulse-sub007/internal/chunker"
	"github.com/jmagar/pulse-sub007/internal/embedder"
	"github.com/jmagar/pulse-sub007/internal/vectorindex"
)

func newDeps(t *testing.T) Deps {
	t.Helper()
	engine, err := bm25.New(filepath.Join(t.TempDir(), "idx.bm25"), bm25.DefaultParams())
	require.NoError(t, err)
	return Deps{
		ChunkerConfig: chunker.DefaultConfig(),
		Embedder:      embedder.NewFake(8),
		VectorIndex:   vectorindex.NewFake(),
		BM25:          engine,
		VectorDim:     8,
	}
}

func TestIndex_HappyPath(t *testing.T) {
	doc := Document{URL: "https://example.com/a", Markdown: "# Test\nHello world."}
	res := Index(context.Background(), doc, newDeps(t))
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ChunksIndexed)
	assert.Greater(t, res.TotalTokens, 0)
}

func TestIndex_EmptyMarkdownFails(t *testing.T) {
	doc := Document{URL: "https://example.com/a", Markdown: "   \n\t "}
	res := Index(context.Background(), doc, newDeps(t))
	assert.False(t, res.Success)
	assert.Equal(t, "no content after cleaning", res.Error)
}

func TestIndex_DimensionMismatchFails(t *testing.T) {
	deps := newDeps(t)
	deps.Embedder = embedder.NewFake(4) // mismatched vs VectorDim:8
	doc := Document{URL: "https://example.com/a", Markdown: "hello world"}
	res := Index(context.Background(), doc, deps)
	assert.False(t, res.Success)
	assert.Equal(t, "dimension mismatch", res.Error)
}
