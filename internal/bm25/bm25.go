// Package bm25 implements an in-memory Okapi BM25 inverted index over
// whole documents, persisted to a single file guarded by an inter-process
// advisory file lock.
package bm25

import (
	"bytes"
	"context"
	"encoding/gob"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/logging"
)

// Params are the Okapi BM25 tuning constants.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams matches the spec's default scoring parameters.
func DefaultParams() Params { return Params{K1: 1.5, B: 0.75} }

// Result is one scored document returned from Search.
type Result struct {
	Score    float64
	RawText  string
	Metadata map[string]string
}

// snapshot is the on-disk persisted shape: three parallel sequences,
// equal length, where tokenized[i] is derived from rawTexts[i].
type snapshot struct {
	RawTexts  []string
	Tokenized [][]string
	Metadatas []map[string]string
}

// Engine is the process-wide BM25 index. It is safe for concurrent use:
// reads take the engine's mutex for shared access to the in-memory
// snapshot; writes take it exclusively and additionally serialize across
// processes via the file lock.
type Engine struct {
	path   string
	params Params
	lock   *fileLock

	mu   sync.RWMutex
	snap snapshot

	// derived scoring structures, rebuilt on every mutation
	docFreq   map[string]int
	termFreqs []map[string]int
	avgDocLen float64

	modMu     sync.Mutex
	lastLoad  time.Time
}

// New constructs an Engine persisting to path. If the file is missing or
// corrupt, the engine starts empty; this is logged, never fatal.
func New(path string, params Params) (*Engine, error) {
	lock, err := newFileLock(path)
	if err != nil {
		return nil, err
	}
	e := &Engine{path: path, params: params, lock: lock}
	e.loadFromDisk()
	return e, nil
}

func (e *Engine) loadFromDisk() {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Log.WithError(err).Warn("bm25: failed to read index file, starting empty")
		}
		return
	}
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		logging.Log.WithError(err).Warn("bm25: corrupt index file, starting empty")
		return
	}
	e.mu.Lock()
	e.snap = snap
	e.rebuildLocked()
	e.mu.Unlock()
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Tokenize lowercases and whitespace-splits text, exactly as documents are
// tokenized on index. Callers score a query against the index with the
// same tokenization.
func Tokenize(text string) []string {
	return tokenize(text)
}

// rebuildLocked recomputes the BM25 scoring structures from e.snap.
// Callers must hold e.mu for writing.
func (e *Engine) rebuildLocked() {
	n := len(e.snap.Tokenized)
	e.termFreqs = make([]map[string]int, n)
	e.docFreq = make(map[string]int)
	totalLen := 0
	for i, toks := range e.snap.Tokenized {
		tf := make(map[string]int, len(toks))
		for _, t := range toks {
			tf[t]++
		}
		e.termFreqs[i] = tf
		for t := range tf {
			e.docFreq[t]++
		}
		totalLen += len(toks)
	}
	if n > 0 {
		e.avgDocLen = float64(totalLen) / float64(n)
	} else {
		e.avgDocLen = 0
	}
}

// persistLocked writes e.snap to disk atomically. Callers must hold e.mu
// for reading and the exclusive file lock.
func (e *Engine) persistLocked() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e.snap); err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode bm25 index", err)
	}
	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return apperr.Wrap(apperr.KindInternal, "write bm25 index", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		return apperr.Wrap(apperr.KindInternal, "replace bm25 index", err)
	}
	return nil
}

// IndexDocument appends a full document, rebuilds the scorer, and
// persists under an exclusive file lock. A LockTimeout here is the
// caller's to treat as non-fatal for the surrounding indexing call.
func (e *Engine) IndexDocument(ctx context.Context, text string, meta map[string]string) error {
	release, err := e.lock.lockExclusive(ctx)
	if err != nil {
		return err
	}
	defer release()

	e.mu.Lock()
	e.snap.RawTexts = append(e.snap.RawTexts, text)
	e.snap.Tokenized = append(e.snap.Tokenized, tokenize(text))
	e.snap.Metadatas = append(e.snap.Metadatas, meta)
	e.rebuildLocked()
	err = e.persistLocked()
	e.mu.Unlock()
	return err
}

func metadataMatches(meta, filter map[string]string) bool {
	for k, v := range filter {
		if v == "" {
			continue
		}
		if meta[k] != v {
			return false
		}
	}
	return true
}

func (e *Engine) score(queryTokens []string, docIdx int) float64 {
	n := len(e.snap.Tokenized)
	docLen := len(e.snap.Tokenized[docIdx])
	tf := e.termFreqs[docIdx]
	var score float64
	for _, term := range queryTokens {
		f := float64(tf[term])
		if f == 0 {
			continue
		}
		df := e.docFreq[term]
		idf := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		denom := f + e.params.K1*(1-e.params.B+e.params.B*float64(docLen)/maxF(e.avgDocLen, 1))
		score += idf * (f * (e.params.K1 + 1)) / denom
	}
	return score
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Search scores every document against the already-tokenized query (see
// Tokenize), applies filter, and returns the top-limit results. A stale on-disk snapshot is reloaded
// under a shared lock before scoring.
func (e *Engine) Search(ctx context.Context, queryTokens []string, limit int, filter map[string]string) ([]Result, error) {
	if err := e.reloadIfStale(ctx); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	var candidates []scored
	for i := range e.snap.Tokenized {
		if !metadataMatches(e.snap.Metadatas[i], filter) {
			continue
		}
		s := e.score(queryTokens, i)
		candidates = append(candidates, scored{idx: i, score: s})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].idx < candidates[j].idx
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{
			Score:    c.score,
			RawText:  e.snap.RawTexts[c.idx],
			Metadata: e.snap.Metadatas[c.idx],
		}
	}
	return out, nil
}

// reloadIfStale reloads the on-disk snapshot under a shared lock when the
// file's mtime has advanced since the last load, so readers observe a
// different process's writes.
func (e *Engine) reloadIfStale(ctx context.Context) error {
	info, err := os.Stat(e.path)
	if err != nil {
		return nil // nothing persisted yet; in-memory state stands
	}

	e.modMu.Lock()
	stale := info.ModTime().After(e.lastLoad)
	e.modMu.Unlock()
	if !stale {
		return nil
	}

	release, err := e.lock.lockShared(ctx)
	if err != nil {
		return err
	}
	defer release()

	data, err := os.ReadFile(e.path)
	if err != nil {
		return nil
	}
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		logging.Log.WithError(err).Warn("bm25: corrupt index file during reload, keeping in-memory state")
		return nil
	}

	e.mu.Lock()
	e.snap = snap
	e.rebuildLocked()
	e.mu.Unlock()

	e.modMu.Lock()
	e.lastLoad = time.Now()
	e.modMu.Unlock()
	return nil
}

// Count returns the number of indexed documents.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.snap.RawTexts)
}
