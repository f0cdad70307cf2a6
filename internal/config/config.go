// Package config holds the process-wide runtime configuration for the
// hybrid search bridge: remote endpoints, secrets, and the tunable
// parameters of chunking, fusion, and BM25 scoring.
package config

// Config is the fully resolved runtime configuration, assembled by Load.
type Config struct {
	// Secrets
	APISecret     string
	WebhookSecret string

	// Remote collaborators
	RedisURL         string
	DatabaseURL      string
	QdrantURL        string
	QdrantCollection string
	TEIURL           string
	ScraperURL       string

	// Domain tunables
	VectorDim          int
	MaxChunkTokens     int
	ChunkOverlapTokens int
	RRFK               int
	BM25K1             float64
	BM25B              float64
	HybridAlpha        float64 // retained per open-question; unused by RRF fusion

	// Operational
	EnableWorker bool
	LogLevel     string
	CORSOrigins  []string
	Addr         string

	// TestMode relaxes the weak-secret rejection; set only by test harnesses.
	TestMode bool
}

// knownWeakSecrets are placeholder values that must never be accepted for
// APISecret/WebhookSecret outside of TestMode.
var knownWeakSecrets = map[string]bool{
	"changeme":    true,
	"secret":      true,
	"password":    true,
	"test":        true,
	"development": true,
	"":            true,
}

func isWeakSecret(s string) bool {
	return len(s) < 32 || knownWeakSecrets[s]
}
