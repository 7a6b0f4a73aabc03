package pseudo

import (
	"context"
	"math"
	"testing"

	"github.com/shellmind/shellmind-api/memory"
)

func TestEmbedDimensions(t *testing.T) {
	e := New()
	if e.Dimensions() != memory.EmbeddingDim {
		t.Fatalf("dimensions = %d, want %d", e.Dimensions(), memory.EmbeddingDim)
	}

	vec, err := e.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != memory.EmbeddingDim {
		t.Fatalf("vector length = %d, want %d", len(vec), memory.EmbeddingDim)
	}
}

func TestEmbedDeterministic(t *testing.T) {
	e := New()
	ctx := context.Background()

	a, err := e.Embed(ctx, "list all files modified in the last hour")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(ctx, "list all files modified in the last hour")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("position %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEmbedNormalized(t *testing.T) {
	e := New()
	vec, err := e.Embed(context.Background(), "normalize me please")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if norm := math.Sqrt(sum); math.Abs(norm-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", norm)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	e := New()
	vec, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("position %d of empty-input vector is %v, want 0", i, v)
		}
	}
}

func TestEmbedDistinctInputsDiffer(t *testing.T) {
	e := New()
	ctx := context.Background()

	a, _ := e.Embed(ctx, "first input")
	b, _ := e.Embed(ctx, "second input")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct inputs produced identical vectors")
	}
}
