package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_DeterministicAndDimensioned(t *testing.T) {
	f := NewFake(9)
	out, err := f.EmbedBatch(context.Background(), []string{"hello", "hello"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, out[0], out[1])
	assert.Len(t, out[0], 9)
}

func TestHTTPEmbedder_RejectsEmptyBatch(t *testing.T) {
	e := NewHTTP("http://unused", 4)
	_, err := e.EmbedBatch(context.Background(), nil)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	_, err = e.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestHTTPEmbedder_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		vectors := make([][]float32, len(req.Inputs))
		for i := range vectors {
			vectors[i] = []float32{1, 2, 3}
		}
		_ = json.NewEncoder(w).Encode(vectors)
	}))
	defer srv.Close()

	e := NewHTTP(srv.URL, 3)
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []float32{1, 2, 3}, out[0])
}

func TestHTTPEmbedder_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([][]float32{{1, 2}})
	}))
	defer srv.Close()

	e := NewHTTP(srv.URL, 3)
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	assert.True(t, apperr.Is(err, apperr.KindPermanentRemote))
}

func TestHTTPEmbedder_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := NewHTTP(srv.URL, 3)
	assert.True(t, e.HealthCheck(context.Background()))

	bad := NewHTTP("http://127.0.0.1:0", 3)
	assert.False(t, bad.HealthCheck(context.Background()))
}
