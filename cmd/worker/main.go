// Command worker runs the job broker loop standalone, outside the HTTP
// server process. It owns process-wide signal handling itself, since the
// broker's Run loop deliberately does not.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jmagar/pulse-sub007/internal/bm25"
	"github.com/jmagar/pulse-sub007/internal/chunker"
	"github.com/jmagar/pulse-sub007/internal/config"
	"github.com/jmagar/pulse-sub007/internal/embedder"
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
		logging.Log.WithError(err).Fatal("worker")
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

	servicepool.Configure(func() (servicepool.Pool, error) {
		engine, err := bm25.New("data/bm25.index", bm25.Params{K1: cfg.BM25K1, B: cfg.BM25B})
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

	// Pre-warm before taking the first job so its cost isn't paid on the
	// hot path of the first dequeued job.
	if err := servicepool.Warm(ctx); err != nil {
		return fmt.Errorf("warm service pool: %w", err)
	}
	pool, err := servicepool.Get()
	if err != nil {
		return fmt.Errorf("service pool: %w", err)
	}
	defer servicepool.Close()

	ingestDeps := ingest.Deps{
		ChunkerConfig: pool.ChunkerConfig,
		Embedder:      pool.Embedder,
		VectorIndex:   pool.VectorIndex,
		BM25:          pool.BM25,
		VectorDim:     cfg.VectorDim,
	}

	handlers := map[string]jobs.Handler{
		ingest.FunctionRef: ingest.NewHandler(ingestDeps),
		rescrape.FunctionRef: rescrape.NewHandler(rescrape.Deps{
			DB:      db,
			Scraper: scraper.NewHTTP(cfg.ScraperURL),
			Ingest:  ingestDeps,
		}),
	}

	logging.Log.Info("worker: starting job loop")
	if err := broker.Run(ctx, handlers); err != nil && ctx.Err() == nil {
		return fmt.Errorf("job loop: %w", err)
	}
	logging.Log.Info("worker: stopped")
	return nil
}
