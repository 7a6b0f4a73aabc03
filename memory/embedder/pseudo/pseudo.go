// Package pseudo implements a deterministic, non-semantic embedder.
//
// The vector is a character-code fingerprint, not the output of a model:
// two texts with similar character statistics produce similar vectors
// regardless of meaning. Determinism (same text -> bit-identical vector)
// is the only correctness property; retrieval built on it is metadata
// filtering, never similarity search.
package pseudo

import (
	"context"
	"math"

	"github.com/shellmind/shellmind-api/memory"
)

// Embedder maps text to a fixed-length L2-normalized vector using
// character-code-driven trigonometric accumulation.
type Embedder struct {
	dims int
}

// New creates a pseudo embedder with the shared index dimension.
func New() *Embedder {
	return &Embedder{dims: memory.EmbeddingDim}
}

// Embed produces the fingerprint vector for text.
//
// For each byte at index i with code c, three positions accumulate:
//
//	vec[i % D]       += (c/255) * sin(i)
//	vec[(i+1) % D]   += (c/510) * cos(i)
//	vec[(i-1+D) % D] += (c/510) * tan(i mod 1.5)
//
// The result is divided by its Euclidean norm; all-zero accumulation
// (empty input) stays the zero vector. Non-finite accumulation falls
// back to the fixed vector sin(i) for i in [0, D).
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	d := e.dims
	vec := make([]float64, d)

	for i := 0; i < len(text); i++ {
		c := float64(text[i])
		fi := float64(i)

		vec[i%d] += (c / 255) * math.Sin(fi)
		vec[(i+1)%d] += (c / 510) * math.Cos(fi)
		vec[(i-1+d)%d] += (c / 510) * math.Tan(math.Mod(fi, 1.5))
	}

	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return e.fallback(), nil
	}

	out := make([]float32, d)
	if sum == 0 {
		return out, nil
	}

	norm := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// fallback is the fixed deterministic vector used when accumulation
// produces a non-finite value.
func (e *Embedder) fallback() []float32 {
	vec := make([]float32, e.dims)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(i)))
	}
	return vec
}

var _ memory.Embedder = (*Embedder)(nil)
