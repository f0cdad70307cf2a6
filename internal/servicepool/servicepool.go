// Package servicepool owns the process-wide, lazily initialized
// collaborators shared across every request and job: the tokenizer's
// chunking config, embedder, vector index, and BM25 engine.
package servicepool

import (
	"context"
	"sync"

	"github.com/jmagar/pulse-sub007/internal/bm25"
	"github.com/jmagar/pulse-sub007/internal/chunker"
	"github.com/jmagar/pulse-sub007/internal/embedder"
	"github.com/jmagar/pulse-sub007/internal/vectorindex"
)

// Pool holds one instance each of the expensive, shared collaborators.
// First-init is serialized via sync.Once; subsequent Get calls observe
// the finished instance without blocking on construction.
type Pool struct {
	ChunkerConfig chunker.Config
	Embedder      embedder.Embedder
	VectorIndex   vectorindex.Index
	BM25          *bm25.Engine
}

// Factory constructs the four collaborators exactly once, on first Get.
type Factory func() (Pool, error)

var (
	mu       sync.Mutex
	once     sync.Once
	instance Pool
	initErr  error
	factory  Factory
)

// Configure sets the Factory used by the first Get call. It must be
// called before the first Get in a process; a later call before the first
// Get replaces the factory, and a call after the first Get has no effect
// on the cached Pool unless Reset is called first (tests only).
func Configure(f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factory = f
}

// Get returns the shared Pool, constructing it on the first call. Safe to
// call from multiple goroutines/workers concurrently.
func Get() (Pool, error) {
	once.Do(func() {
		mu.Lock()
		f := factory
		mu.Unlock()
		if f == nil {
			initErr = errNoFactory
			return
		}
		instance, initErr = f()
	})
	return instance, initErr
}

var errNoFactory = poolError("servicepool: Configure must be called before Get")

type poolError string

func (e poolError) Error() string { return string(e) }

// Warm forces construction ahead of time and returns any construction
// error; used by worker bootstrap so the first job doesn't pay the
// tokenizer/embedder construction cost.
func Warm(ctx context.Context) error {
	_, err := Get()
	return err
}

// Close shuts down the embedder and vector index transports. Idempotent:
// safe to call multiple times.
func Close() error {
	mu.Lock()
	p := instance
	mu.Unlock()

	var firstErr error
	if closer, ok := p.Embedder.(interface{ Close() error }); ok && closer != nil {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if closer, ok := p.VectorIndex.(interface{ Close() error }); ok && closer != nil {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Reset clears the singleton state; only ever called from tests so each
// test can install its own fakes via Configure.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	instance = Pool{}
	initErr = nil
	factory = nil
}
