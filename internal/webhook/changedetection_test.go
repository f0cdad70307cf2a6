package webhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/pulse-sub007/internal/jobs"
	"github.com/jmagar/pulse-sub007/internal/metadatadb"
)

func TestHandleChangeDetection_ValidPayloadQueuesRescrape(t *testing.T) {
	db := metadatadb.NewFake()
	broker := jobs.NewFake()
	body, err := json.Marshal(map[string]any{
		"watch_id":    "w1",
		"watch_url":   "https://e.com/q",
		"detected_at": "2026-07-30T12:00:00Z",
	})
	require.NoError(t, err)

	resp, err := HandleChangeDetection(context.Background(), "shh", body, sign("shh", body), db, broker)
	require.NoError(t, err)
	assert.Equal(t, "queued", resp.Status)
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "https://e.com/q", resp.URL)

	row, err := db.GetChangeEvent(context.Background(), resp.ChangeEventID)
	require.NoError(t, err)
	assert.Equal(t, resp.JobID, row.RescrapeJobID)
	assert.Equal(t, "queued", row.RescrapeStatus)
}

func TestHandleChangeDetection_MissingFieldsIsInvalidInput(t *testing.T) {
	db := metadatadb.NewFake()
	broker := jobs.NewFake()
	body, err := json.Marshal(map[string]any{"watch_id": "w1"})
	require.NoError(t, err)

	_, err = HandleChangeDetection(context.Background(), "shh", body, sign("shh", body), db, broker)
	assert.Error(t, err)
}

func TestHandleChangeDetection_BadSignatureRejected(t *testing.T) {
	db := metadatadb.NewFake()
	broker := jobs.NewFake()
	body, err := json.Marshal(map[string]any{
		"watch_id": "w1", "watch_url": "https://e.com/q", "detected_at": "2026-07-30T12:00:00Z",
	})
	require.NoError(t, err)

	_, err = HandleChangeDetection(context.Background(), "shh", body, sign("wrong", body), db, broker)
	assert.Error(t, err)
}
