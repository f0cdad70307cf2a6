package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/pulse-sub007/internal/bm25"
	"github.com/jmagar/pulse-sub007/internal/chunker"
	"github.com/jmagar/pulse-sub007/internal/config"
	"github.com/jmagar/pulse-sub007/internal/embedder"
	"github.com/jmagar/pulse-sub007/internal/jobs"
	"github.com/jmagar/pulse-sub007/internal/metadatadb"
	"github.com/jmagar/pulse-sub007/internal/servicepool"
	"github.com/jmagar/pulse-sub007/internal/vectorindex"
)

func newTestServer(t *testing.T) (*Server, *jobs.Fake) {
	t.Helper()
	servicepool.Reset()
	t.Cleanup(servicepool.Reset)

	engine, err := bm25.New(filepath.Join(t.TempDir(), "idx.bm25"), bm25.DefaultParams())
	require.NoError(t, err)
	servicepool.Configure(func() (servicepool.Pool, error) {
		return servicepool.Pool{
			ChunkerConfig: chunker.DefaultConfig(),
			Embedder:      embedder.NewFake(8),
			VectorIndex:   vectorindex.NewFake(),
			BM25:          engine,
		}, nil
	})

	cfg := config.Config{APISecret: "this-is-a-test-bearer-token-12345", WebhookSecret: "this-is-a-test-webhook-secret-12", RRFK: 60, QdrantCollection: "bridge_chunks"}
	db := metadatadb.NewFake()
	broker := jobs.NewFake()
	return NewServer(cfg, db, broker), broker
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleFirecrawlWebhook_ValidSignatureQueuesJob(t *testing.T) {
	s, broker := newTestServer(t)
	body, err := json.Marshal(map[string]any{
		"type": "page",
		"id":   "evt-1",
		"data": []map[string]any{{"url": "https://example.com/a", "markdown": "# Test\nHello world."}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook/firecrawl", bytes.NewReader(body))
	req.Header.Set("X-Signature", sign(s.cfg.WebhookSecret, body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, len(resp["queued_jobs"].([]any)))
	assert.Equal(t, 1, broker.Drain(req.Context(), map[string]jobs.Handler{}))
}

func TestHandleFirecrawlWebhook_BadSignatureIs401(t *testing.T) {
	s, _ := newTestServer(t)
	body := []byte(`{"type":"page","data":[]}`)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook/firecrawl", bytes.NewReader(body))
	req.Header.Set("X-Signature", "sha256="+hex.EncodeToString(make([]byte, 32)))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleSearch_RequiresBearerToken(t *testing.T) {
	s, _ := newTestServer(t)
	body := []byte(`{"query":"hello","mode":"hybrid","limit":5}`)

	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleSearch_ValidTokenReturnsResults(t *testing.T) {
	s, _ := newTestServer(t)
	body := []byte(`{"query":"hello","mode":"hybrid","limit":5}`)

	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+s.cfg.APISecret)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp.Query)
}

func TestHandleStats_ReturnsCollectionName(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bridge_chunks", resp.CollectionName)
}

func TestHandleHealth_ReportsOK(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
