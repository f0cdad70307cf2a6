package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/logging"
	"github.com/jmagar/pulse-sub007/internal/search"
	"github.com/jmagar/pulse-sub007/internal/servicepool"
	"github.com/jmagar/pulse-sub007/internal/webhook"
)

func (s *Server) handleFirecrawlWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	resp, err := webhook.HandleFirecrawl(r.Context(), s.cfg.WebhookSecret, body, r.Header.Get("X-Signature"), s.broker)
	if err != nil {
		logging.Log.WithError(err).Warn("httpapi: firecrawl webhook rejected")
		respondError(w, webhook.StatusForError(err), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleChangeDetectionWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	resp, err := webhook.HandleChangeDetection(r.Context(), s.cfg.WebhookSecret, body, r.Header.Get("X-Signature"), s.db, s.broker)
	if err != nil {
		logging.Log.WithError(err).Warn("httpapi: changedetection webhook rejected")
		respondError(w, webhook.StatusForError(err), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, resp)
}

type searchFilters struct {
	Domain   string `json:"domain"`
	Language string `json:"language"`
	Country  string `json:"country"`
	IsMobile *bool  `json:"isMobile"`
}

type searchRequest struct {
	Query   string        `json:"query"`
	Mode    string        `json:"mode"`
	Limit   int           `json:"limit"`
	Filters searchFilters `json:"filters"`
}

type searchResponse struct {
	Results []search.Result `json:"results"`
	Total   int             `json:"total"`
	Query   string          `json:"query"`
	Mode    string          `json:"mode"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusUnprocessableEntity, "query is required")
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 10
	}

	pool, err := servicepool.Get()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "service pool unavailable")
		return
	}

	filter := search.Filter{
		Domain:   req.Filters.Domain,
		Language: req.Filters.Language,
		Country:  req.Filters.Country,
		IsMobile: req.Filters.IsMobile,
	}

	results, err := search.Search(r.Context(), req.Query, search.Mode(req.Mode), req.Limit, filter, searchDepsFromPool(pool, s.cfg.RRFK))
	if err != nil {
		respondError(w, statusFromError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, searchResponse{
		Results: results,
		Total:   len(results),
		Query:   req.Query,
		Mode:    req.Mode,
	})
}

type statsResponse struct {
	TotalDocuments int    `json:"total_documents"`
	TotalChunks    int    `json:"total_chunks"`
	QdrantPoints   int    `json:"qdrant_points"`
	BM25Documents  int    `json:"bm25_documents"`
	CollectionName string `json:"collection_name"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	pool, err := servicepool.Get()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "service pool unavailable")
		return
	}

	qdrantPoints := 0
	if pool.VectorIndex != nil {
		if n, err := pool.VectorIndex.Count(r.Context()); err == nil {
			qdrantPoints = n
		}
	}
	bm25Docs := 0
	if pool.BM25 != nil {
		bm25Docs = pool.BM25.Count()
	}

	respondJSON(w, http.StatusOK, statsResponse{
		TotalDocuments: bm25Docs,
		TotalChunks:    qdrantPoints,
		QdrantPoints:   qdrantPoints,
		BM25Documents:  bm25Docs,
		CollectionName: s.cfg.QdrantCollection,
	})
}

type healthResponse struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{}
	status := "ok"

	pool, err := servicepool.Get()
	if err != nil {
		respondJSON(w, http.StatusOK, healthResponse{Status: "degraded", Services: map[string]string{"service_pool": "unavailable"}, Timestamp: time.Now()})
		return
	}

	if pool.Embedder != nil {
		if pool.Embedder.HealthCheck(r.Context()) {
			services["embedder"] = "ok"
		} else {
			services["embedder"] = "down"
			status = "degraded"
		}
	}
	if pool.VectorIndex != nil {
		if pool.VectorIndex.HealthCheck(r.Context()) {
			services["vector_index"] = "ok"
		} else {
			services["vector_index"] = "down"
			status = "degraded"
		}
	}

	respondJSON(w, http.StatusOK, healthResponse{Status: status, Services: services, Timestamp: time.Now()})
}

// requireBearer wraps handler with a bearer-token check against
// cfg.APISecret.
func (s *Server) requireBearer(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authz, "Bearer ")
		if !ok || token == "" || token != s.cfg.APISecret {
			respondError(w, apperr.HTTPStatus(apperr.KindAuthFailure), "missing or invalid bearer token")
			return
		}
		handler(w, r)
	}
}
