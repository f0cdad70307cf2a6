package servicepool

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmagar/pulse-sub007/internal/chunker"
	"github.com/jmagar/pulse-sub007/internal/embedder"
	"github.com/jmagar/pulse-sub007/internal/vectorindex"
)

func TestGet_ConstructsOnceAndCaches(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	calls := 0
	Configure(func() (Pool, error) {
		calls++
		return Pool{
			ChunkerConfig: chunker.DefaultConfig(),
			Embedder:      embedder.NewFake(8),
			VectorIndex:   vectorindex.NewFake(),
		}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Get()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestWarm_PreloadsBeforeFirstJob(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	Configure(func() (Pool, error) {
		return Pool{Embedder: embedder.NewFake(4)}, nil
	})

	require.NoError(t, Warm(context.Background()))
	p, err := Get()
	require.NoError(t, err)
	assert.NotNil(t, p.Embedder)
}

func TestGet_WithoutConfigureReturnsError(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	_, err := Get()
	assert.Error(t, err)
}
