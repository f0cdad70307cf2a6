package metadatadb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_InsertGetUpdateLifecycle(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	id, err := f.InsertChangeEvent(ctx, ChangeEvent{WatchID: "w1", WatchURL: "https://e.com/q", DetectedAt: time.Now()})
	require.NoError(t, err)

	e, err := f.GetChangeEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "queued", e.RescrapeStatus)

	require.NoError(t, f.UpdateChangeEvent(ctx, id, func(e *ChangeEvent) {
		e.RescrapeStatus = "in_progress"
	}))
	e, err = f.GetChangeEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", e.RescrapeStatus)

	now := time.Now()
	require.NoError(t, f.UpdateChangeEvent(ctx, id, func(e *ChangeEvent) {
		e.RescrapeStatus = "completed"
		e.IndexedAt = &now
	}))
	e, err = f.GetChangeEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "completed", e.RescrapeStatus)
	require.NotNil(t, e.IndexedAt)
}

func TestFake_GetMissingReturnsNotFound(t *testing.T) {
	f := NewFake()
	_, err := f.GetChangeEvent(context.Background(), 999)
	assert.Error(t, err)
}
