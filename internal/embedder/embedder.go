// Package embedder adapts the external embedding endpoint (TEI-style)
// into the narrow Embedder port the ingestion pipeline and search
// orchestrator consume.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jmagar/pulse-sub007/internal/apperr"
)

// Embedder batches text into fixed-length dense vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	HealthCheck(ctx context.Context) bool
}

// HTTPEmbedder calls a TEI-compatible embedding endpoint. The transport
// client is constructed lazily on first use so it binds to whichever
// scheduler/runtime ends up calling it.
type HTTPEmbedder struct {
	baseURL string
	dim     int
	timeout time.Duration

	once   sync.Once
	client *http.Client
}

// NewHTTP constructs an HTTPEmbedder against baseURL, expecting vectors of
// length dim.
func NewHTTP(baseURL string, dim int) *HTTPEmbedder {
	return &HTTPEmbedder{baseURL: baseURL, dim: dim, timeout: 30 * time.Second}
}

func (e *HTTPEmbedder) httpClient() *http.Client {
	e.once.Do(func() {
		e.client = &http.Client{Timeout: e.timeout}
	})
	return e.client
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// EmbedBatch embeds every text in one remote call. Empty inputs are
// rejected with InvalidInput rather than silently dropped, per the
// fail-fast policy for partially-empty batches.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "embed batch must not be empty")
	}
	for _, t := range texts {
		if t == "" {
			return nil, apperr.New(apperr.KindInvalidInput, "embed batch contains an empty input")
		}
	}

	var out [][]float32
	err := apperr.WithRetry(ctx, func(attempt int) error {
		vectors, err := e.call(ctx, texts)
		if err != nil {
			return err
		}
		out = vectors
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(out) != len(texts) {
		return nil, apperr.New(apperr.KindPermanentRemote, "embedder returned a mismatched number of vectors")
	}
	for _, v := range out {
		if len(v) != e.dim {
			return nil, apperr.New(apperr.KindPermanentRemote, "embedder returned a vector of unexpected dimension")
		}
	}
	return out, nil
}

func (e *HTTPEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient().Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientRemote, "embedder request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientRemote, "read embedder response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, apperr.New(apperr.KindTransientRemote, fmt.Sprintf("embedder returned status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.New(apperr.KindPermanentRemote, fmt.Sprintf("embedder returned status %d", resp.StatusCode))
	}

	var vectors [][]float32
	if err := json.Unmarshal(respBody, &vectors); err != nil {
		return nil, apperr.Wrap(apperr.KindPermanentRemote, "decode embedder response", err)
	}
	return vectors, nil
}

// EmbedSingle is a convenience wrapper over EmbedBatch for a single input.
func (e *HTTPEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// HealthCheck never throws: any failure (network, non-2xx) is reported as
// an unhealthy false.
func (e *HTTPEmbedder) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.httpClient().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Close releases the underlying transport's idle connections.
func (e *HTTPEmbedder) Close() error {
	e.httpClient().CloseIdleConnections()
	return nil
}
