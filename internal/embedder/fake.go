package embedder

import "context"

// Fake is a deterministic in-memory Embedder for tests. Its seed formula
// mirrors the source system's own test double: for input text, the first
// three components are len(text), len(text)%7, len(text)%3, then the
// pattern repeats to fill Dim.
type Fake struct {
	Dim     int
	Healthy bool
}

// NewFake constructs a deterministic fake embedder producing vectors of
// length dim.
func NewFake(dim int) *Fake {
	return &Fake{Dim: dim, Healthy: true}
}

func seed(text string) [3]float32 {
	n := len(text)
	return [3]float32{float32(n), float32(n % 7), float32(n % 3)}
}

func (f *Fake) vectorFor(text string) []float32 {
	s := seed(text)
	v := make([]float32, f.Dim)
	for i := range v {
		v[i] = s[i%3]
	}
	return v
}

func (f *Fake) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func (f *Fake) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return f.vectorFor(text), nil
}

func (f *Fake) HealthCheck(ctx context.Context) bool {
	return f.Healthy
}
