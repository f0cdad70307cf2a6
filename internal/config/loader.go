package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables (optionally .env).
// Use Overload so .env values override existing OS environment variables,
// letting local/repository configuration deterministically control
// behavior in development: a key present in .env wins even over a value
// already set in the shell.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		VectorDim:          1024,
		MaxChunkTokens:     256,
		ChunkOverlapTokens: 50,
		RRFK:               60,
		BM25K1:             1.5,
		BM25B:              0.75,
		LogLevel:           "info",
		Addr:               ":8080",
	}

	cfg.APISecret = strings.TrimSpace(os.Getenv("API_SECRET"))
	cfg.WebhookSecret = strings.TrimSpace(os.Getenv("WEBHOOK_SECRET"))

	cfg.RedisURL = firstNonEmpty(strings.TrimSpace(os.Getenv("REDIS_URL")), "redis://localhost:6379/0")
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.QdrantURL = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_URL")), "http://localhost:6334")
	cfg.QdrantCollection = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")), "documents")
	cfg.TEIURL = strings.TrimSpace(os.Getenv("TEI_URL"))
	cfg.ScraperURL = strings.TrimSpace(os.Getenv("SCRAPER_URL"))
	cfg.Addr = firstNonEmpty(strings.TrimSpace(os.Getenv("ADDR")), cfg.Addr)

	if v := strings.TrimSpace(os.Getenv("VECTOR_DIM")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.VectorDim = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_CHUNK_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxChunkTokens = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHUNK_OVERLAP_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ChunkOverlapTokens = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RRF_K")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RRFK = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BM25_K1")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.BM25K1 = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BM25_B")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			cfg.BM25B = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HYBRID_ALPHA")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.HybridAlpha = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("ENABLE_WORKER")); v != "" {
		b, err := strconv.ParseBool(v)
		cfg.EnableWorker = err == nil && b
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	cfg.CORSOrigins = parseCommaSeparatedList(os.Getenv("CORS_ORIGINS"))
	for _, o := range cfg.CORSOrigins {
		if o == "*" {
			logWarnWildcardCORS()
			break
		}
	}

	cfg.TestMode, _ = strconv.ParseBool(strings.TrimSpace(os.Getenv("TEST_MODE")))

	if !cfg.TestMode {
		if isWeakSecret(cfg.APISecret) {
			return Config{}, fmt.Errorf("config: API_SECRET must be set and at least 32 characters")
		}
		if isWeakSecret(cfg.WebhookSecret) {
			return Config{}, fmt.Errorf("config: WEBHOOK_SECRET must be set and at least 32 characters")
		}
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseCommaSeparatedList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// logWarnWildcardCORS is a seam so the CORS wildcard warning can be observed
// in tests without pulling the logging package into config's import graph.
var logWarnWildcardCORS = func() {
	fmt.Fprintln(os.Stderr, "config: CORS_ORIGINS includes \"*\"; all origins will be allowed")
}
