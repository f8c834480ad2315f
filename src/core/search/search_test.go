package search_test

import (
	"context"
	"math"
	"sync"

	"sprintboard/src/core/search"
)

type testDoc struct {
	id     string
	text   string
	vector []float32
	fields map[search.Field][]float32
}

func (d testDoc) DocumentID() string        { return d.id }
func (d testDoc) SearchableContent() string { return d.text }
func (d testDoc) Embedding() []float32      { return d.vector }

func (d testDoc) FieldEmbedding(field search.Field) []float32 {
	return d.fields[field]
}

// vectorAt returns a unit vector whose cosine similarity with [1, 0] is sim.
func vectorAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
	block   chan struct{}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) []float32 {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil
		}
	}
	if f.vectors == nil {
		return nil
	}
	return f.vectors[text]
}

func docs(ds ...testDoc) []search.Document {
	out := make([]search.Document, len(ds))
	for i, d := range ds {
		out[i] = d
	}
	return out
}

func ids[T search.RankedResult | search.FusedResult](results []T) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		switch v := any(r).(type) {
		case search.RankedResult:
			out = append(out, v.Document.DocumentID())
		case search.FusedResult:
			out = append(out, v.Document.DocumentID())
		}
	}
	return out
}
