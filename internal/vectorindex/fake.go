package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Fake is an in-memory Index for tests: cosine-scored, no persistence.
type Fake struct {
	mu     sync.Mutex
	points map[string]Point
	Down   bool // when true, HealthCheck reports unhealthy; Upsert, Search and Count still succeed
}

// NewFake constructs an empty in-memory index.
func NewFake() *Fake {
	return &Fake{points: make(map[string]Point)}
}

func (f *Fake) EnsureCollection(ctx context.Context) error { return nil }

func (f *Fake) Upsert(ctx context.Context, points []Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range points {
		f.points[p.ID] = p
	}
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func matches(p Point, filter Filter) bool {
	if filter.Domain != "" && p.Payload["domain"] != filter.Domain {
		return false
	}
	if filter.Language != "" && p.Payload["language"] != filter.Language {
		return false
	}
	if filter.Country != "" && p.Payload["country"] != filter.Country {
		return false
	}
	if filter.IsMobile != nil {
		v, _ := p.Payload["is_mobile"].(bool)
		if v != *filter.IsMobile {
			return false
		}
	}
	return true
}

func (f *Fake) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	var hits []Hit
	for _, p := range f.points {
		if !matches(p, filter) {
			continue
		}
		hits = append(hits, Hit{ID: p.ID, Score: cosine(vector, p.Vector), Payload: p.Payload})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *Fake) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points), nil
}

func (f *Fake) HealthCheck(ctx context.Context) bool {
	return !f.Down
}
