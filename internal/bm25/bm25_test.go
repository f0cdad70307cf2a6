package bm25

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.bm25")
	e, err := New(path, DefaultParams())
	require.NoError(t, err)
	return e
}

func TestEngine_IndexAndSearch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.IndexDocument(ctx, "apple pear banana", map[string]string{"url": "https://example.com/a"}))
	require.NoError(t, e.IndexDocument(ctx, "apple cherry mango", map[string]string{"url": "https://example.com/b"}))

	assert.Equal(t, 2, e.Count())

	results, err := e.Search(ctx, []string{"apple", "pear"}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://example.com/a", results[0].Metadata["url"])
}

func TestEngine_SearchAppliesMetadataFilter(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.IndexDocument(ctx, "alpha beta", map[string]string{"domain": "one.com"}))
	require.NoError(t, e.IndexDocument(ctx, "alpha gamma", map[string]string{"domain": "two.com"}))

	results, err := e.Search(ctx, []string{"alpha"}, 10, map[string]string{"domain": "two.com"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "two.com", results[0].Metadata["domain"])
}

func TestEngine_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bm25")
	ctx := context.Background()

	e1, err := New(path, DefaultParams())
	require.NoError(t, err)
	require.NoError(t, e1.IndexDocument(ctx, "durable content", map[string]string{"url": "x"}))

	e2, err := New(path, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, e2.Count())
}

func TestEngine_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bm25")
	require.NoError(t, writeGarbage(path))

	e, err := New(path, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 0, e.Count())
}

func writeGarbage(path string) error {
	return os.WriteFile(path, []byte("not a valid gob stream"), 0o644)
}
