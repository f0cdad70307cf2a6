// Command server runs the HTTP surface: signed webhooks, hybrid search,
// stats, and health. Set ENABLE_WORKER=true to also run the job worker
// loop in this process, or run cmd/worker standalone instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmagar/pulse-sub007/internal/bm25"
	"github.com/jmagar/pulse-sub007/internal/chunker"
	"github.com/jmagar/pulse-sub007/internal/config"
	"github.com/jmagar/pulse-sub007/internal/embedder"
	"github.com/jmagar/pulse-sub007/internal/httpapi"
	"github.com/jmagar/pulse-sub007/internal/ingest"
	"github.com/jmagar/pulse-sub007/internal/jobs"
	"github.com/jmagar/pulse-sub007/internal/logging"
	"github.com/jmagar/pulse-sub007/internal/metadatadb"
	"github.com/jmagar/pulse-sub007/internal/rescrape"
	"github.com/jmagar/pulse-sub007/internal/scraper"
	"github.com/jmagar/pulse-sub007/internal/servicepool"
	"github.com/jmagar/pulse-sub007/internal/vectorindex"
)

func main() {
	if err := run(); err != nil {
		logging.Log.WithError(err).Fatal("server")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Configure(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := metadatadb.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect metadata db: %w", err)
	}
	defer db.Close()

	broker, err := jobs.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect job broker: %w", err)
	}

	bm25Path := "data/bm25.index"
	servicepool.Configure(func() (servicepool.Pool, error) {
		engine, err := bm25.New(bm25Path, bm25.Params{K1: cfg.BM25K1, B: cfg.BM25B})
		if err != nil {
			return servicepool.Pool{}, err
		}
		vIndex, err := vectorindex.NewQdrant(cfg.QdrantURL, cfg.QdrantCollection, cfg.VectorDim)
		if err != nil {
			return servicepool.Pool{}, err
		}
		if err := vIndex.EnsureCollection(ctx); err != nil {
			return servicepool.Pool{}, err
		}
		return servicepool.Pool{
			ChunkerConfig: chunker.Config{
				MaxChunkTokens:     cfg.MaxChunkTokens,
				ChunkOverlapTokens: cfg.ChunkOverlapTokens,
				Tokenizer:          chunker.WhitespaceTokenizer{},
			},
			Embedder:    embedder.NewHTTP(cfg.TEIURL, cfg.VectorDim),
			VectorIndex: vIndex,
			BM25:        engine,
		}, nil
	})

	if cfg.EnableWorker {
		go runWorker(ctx, cfg, db, broker)
	}

	srv := httpapi.NewHTTPServer(cfg.Addr, cfg, db, broker)

	errCh := make(chan error, 1)
	go func() {
		logging.Log.WithField("addr", cfg.Addr).Info("server: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	_ = servicepool.Close()
	logging.Log.Info("server: stopped")
	return nil
}

func runWorker(ctx context.Context, cfg config.Config, db metadatadb.DB, broker *jobs.Broker) {
	if err := servicepool.Warm(ctx); err != nil {
		logging.Log.WithError(err).Error("worker: failed to warm service pool")
		return
	}

	handlers := map[string]jobs.Handler{}
	pool, err := servicepool.Get()
	if err != nil {
		logging.Log.WithError(err).Error("worker: service pool unavailable")
		return
	}

	ingestDeps := ingest.Deps{
		ChunkerConfig: pool.ChunkerConfig,
		Embedder:      pool.Embedder,
		VectorIndex:   pool.VectorIndex,
		BM25:          pool.BM25,
		VectorDim:     cfg.VectorDim,
	}
	handlers[ingest.FunctionRef] = ingest.NewHandler(ingestDeps)
	handlers[rescrape.FunctionRef] = rescrape.NewHandler(rescrape.Deps{
		DB:      db,
		Scraper: scraper.NewHTTP(cfg.ScraperURL),
		Ingest:  ingestDeps,
	})

	if err := broker.Run(ctx, handlers); err != nil && ctx.Err() == nil {
		logging.Log.WithError(err).Error("worker: run loop exited")
	}
}
