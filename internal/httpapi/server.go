// Package httpapi wires the webhook, search, stats, and health endpoints
// onto a stdlib mux. It implements no CORS, rate limiting, or timing
// middleware of its own; an outer caller wraps the handler if it needs
// those.
package httpapi

import (
	"net/http"
	"time"

	"github.com/jmagar/pulse-sub007/internal/config"
	"github.com/jmagar/pulse-sub007/internal/jobs"
	"github.com/jmagar/pulse-sub007/internal/metadatadb"
	"github.com/jmagar/pulse-sub007/internal/search"
	"github.com/jmagar/pulse-sub007/internal/servicepool"
)

// Server bundles the collaborators every handler needs.
type Server struct {
	cfg    config.Config
	db     metadatadb.DB
	broker jobs.JobBroker
	mux    *http.ServeMux
}

// NewServer builds the routed mux. Call (*Server).Handler to get the
// http.Handler to serve.
func NewServer(cfg config.Config, db metadatadb.DB, broker jobs.JobBroker) *Server {
	s := &Server{cfg: cfg, db: db, broker: broker, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/webhook/firecrawl", s.handleFirecrawlWebhook)
	s.mux.HandleFunc("POST /api/webhook/changedetection", s.handleChangeDetectionWebhook)
	s.mux.HandleFunc("POST /api/search", s.requireBearer(s.handleSearch))
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler { return s.mux }

// NewHTTPServer wraps Handler in an *http.Server with the given address.
func NewHTTPServer(addr string, cfg config.Config, db metadatadb.DB, broker jobs.JobBroker) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewServer(cfg, db, broker).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func searchDepsFromPool(pool servicepool.Pool, rrfK int) search.Deps {
	return search.Deps{
		Embedder:    pool.Embedder,
		VectorIndex: pool.VectorIndex,
		BM25:        pool.BM25,
		RRFK:        rrfK,
	}
}
