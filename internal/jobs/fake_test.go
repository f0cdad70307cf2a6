package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_EnqueueAndDrainFinishes(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	jobID, err := f.Enqueue(ctx, "index_document", map[string]string{"url": "https://example.com/a"}, time.Minute)
	require.NoError(t, err)

	status, err := f.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusQueued), status["status"])

	handlers := map[string]Handler{
		"index_document": func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]any{"success": true}, nil
		},
	}
	n := f.Drain(ctx, handlers)
	assert.Equal(t, 1, n)

	status, err = f.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusFinished), status["status"])
}

func TestFake_DrainMarksFailedOnHandlerError(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	jobID, err := f.Enqueue(ctx, "rescrape_changed_url", 42, time.Minute)
	require.NoError(t, err)

	handlers := map[string]Handler{
		"rescrape_changed_url": func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, assertError{}
		},
	}
	f.Drain(ctx, handlers)

	status, err := f.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusFailed), status["status"])
}

type assertError struct{}

func (assertError) Error() string { return "scrape failed" }

func TestFake_UnknownJobIDIsNotFound(t *testing.T) {
	f := NewFake()
	_, err := f.Status(context.Background(), "nonexistent")
	assert.Error(t, err)
}
