package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_SearchOrdersByScoreDescending(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: map[string]any{"domain": "example.com"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Payload: map[string]any{"domain": "example.com"}},
	}))

	hits, err := f.Search(ctx, []float32{1, 0, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
}

func TestFake_SearchAppliesDomainFilter(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: map[string]any{"domain": "one.com"}},
		{ID: "b", Vector: []float32{1, 0}, Payload: map[string]any{"domain": "two.com"}},
	}))

	hits, err := f.Search(ctx, []float32{1, 0}, 10, Filter{Domain: "two.com"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)
}

func TestFake_Count(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	n, err := f.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, f.Upsert(ctx, []Point{{ID: "a", Vector: []float32{1}, Payload: nil}}))
	n, err = f.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFake_HealthCheckReflectsDown(t *testing.T) {
	f := NewFake()
	assert.True(t, f.HealthCheck(context.Background()))
	f.Down = true
	assert.False(t, f.HealthCheck(context.Background()))
}
