package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_SuccessReturnsFinishedPayloadNotError(t *testing.T) {
	handler := NewHandler(newDeps(t))
	args, err := json.Marshal(handlerArgs{URL: "https://example.com/a", Markdown: "hello world"})
	require.NoError(t, err)

	result, err := handler(context.Background(), args)
	require.NoError(t, err)

	m, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, m["success"])
}

func TestHandler_IndexingFailureStillReturnsNilErrorWithFailurePayload(t *testing.T) {
	handler := NewHandler(newDeps(t))
	args, err := json.Marshal(handlerArgs{URL: "https://example.com/a", Markdown: "   "})
	require.NoError(t, err)

	result, err := handler(context.Background(), args)
	require.NoError(t, err)

	m, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, m["success"])
	assert.Equal(t, "no content after cleaning", m["error"])
	assert.Equal(t, "InvalidInput", m["error_type"])
}

func TestHandler_MalformedArgsIsInvalidInputError(t *testing.T) {
	handler := NewHandler(newDeps(t))
	_, err := handler(context.Background(), json.RawMessage(`not json`))
	assert.Error(t, err)
}
