package webhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/pulse-sub007/internal/jobs"
)

func TestHandleFirecrawl_PageEventEnqueuesPerDocument(t *testing.T) {
	broker := jobs.NewFake()
	body, err := json.Marshal(map[string]any{
		"type": "page",
		"id":   "evt-1",
		"data": []map[string]any{
			{"url": "https://a.com", "markdown": "hello"},
			{"url": "https://b.com", "markdown": "world"},
		},
	})
	require.NoError(t, err)

	resp, err := HandleFirecrawl(context.Background(), "shh", body, sign("shh", body), broker)
	require.NoError(t, err)
	assert.Equal(t, "page", resp.EventType)
	assert.Len(t, resp.QueuedJobs, 2)
	assert.Equal(t, 0, resp.FailedDocuments)
}

func TestHandleFirecrawl_LifecycleEventAcknowledgedWithoutEnqueue(t *testing.T) {
	broker := jobs.NewFake()
	body, err := json.Marshal(map[string]any{"type": "completed", "id": "evt-2"})
	require.NoError(t, err)

	resp, err := HandleFirecrawl(context.Background(), "shh", body, sign("shh", body), broker)
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.EventType)
	assert.Empty(t, resp.QueuedJobs)
}

func TestHandleFirecrawl_UnknownEventTypeIsInvalidInput(t *testing.T) {
	broker := jobs.NewFake()
	body, err := json.Marshal(map[string]any{"type": "mystery", "id": "evt-3"})
	require.NoError(t, err)

	_, err = HandleFirecrawl(context.Background(), "shh", body, sign("shh", body), broker)
	assert.Error(t, err)
}

func TestHandleFirecrawl_BadSignatureRejectsBeforeParsing(t *testing.T) {
	broker := jobs.NewFake()
	body, err := json.Marshal(map[string]any{"type": "page", "data": []map[string]any{{"url": "https://a.com"}}})
	require.NoError(t, err)

	_, err = HandleFirecrawl(context.Background(), "shh", body, "sha256=deadbeef", broker)
	assert.Error(t, err)
	assert.Equal(t, 0, broker.Drain(context.Background(), map[string]jobs.Handler{}))
}
