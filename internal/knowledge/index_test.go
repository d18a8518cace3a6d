package knowledge

import (
	"context"
	"fmt"
	"math"
	"testing"
)

// stubEmbedder returns fixed vectors keyed by exact input text, falling back
// to a default vector for unknown inputs.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func (s *stubEmbedder) Embed(ctx context.Context, model string, input []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(input))
	for i, text := range input {
		if v, ok := s.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = s.fallback
		}
	}
	return out, nil
}

func testIndex(t *testing.T, emb Embedder) *Index {
	t.Helper()
	ix, err := NewIndex(emb, "test-embedding")
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return ix
}

func TestIndexSearchRanksByDistance(t *testing.T) {
	emb := &stubEmbedder{
		vectors:  map[string][]float32{"vacation days": {1, 0, 0}},
		fallback: []float32{0, 0, 1},
	}
	ix := testIndex(t, emb)

	docs := []Document{
		{ID: "pto", Title: "PTO Policy", Topic: "leave", Content: "vacation days accrue monthly", Source: "handbook/pto", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "sick", Title: "Sick Leave", Topic: "leave", Content: "sick days for illness", Source: "handbook/sick", Embedding: []float32{0.2, 0.9, 0}},
		{ID: "401k", Title: "Retirement", Topic: "benefits", Content: "retirement contributions match", Source: "handbook/401k", Embedding: []float32{0, 0.1, 0.9}},
	}
	if err := ix.Upsert(docs...); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := ix.Search(context.Background(), "vacation days", "", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatalf("expected hits")
	}
	if hits[0].Document.ID != "pto" {
		t.Fatalf("expected pto first, got %s", hits[0].Document.ID)
	}
	for _, h := range hits {
		if h.Distance < 0 || h.Distance > 2 {
			t.Fatalf("distance out of cosine range: %f", h.Distance)
		}
	}
	// The aligned embedding must be strictly closer than the orthogonal one.
	var ptoDist, sickDist float64 = -1, -1
	for _, h := range hits {
		switch h.Document.ID {
		case "pto":
			ptoDist = h.Distance
		case "sick":
			sickDist = h.Distance
		}
	}
	if ptoDist < 0 {
		t.Fatalf("pto missing from hits")
	}
	if sickDist >= 0 && ptoDist >= sickDist {
		t.Fatalf("expected pto distance %f < sick distance %f", ptoDist, sickDist)
	}
}

func TestIndexSearchTopicFilter(t *testing.T) {
	emb := &stubEmbedder{fallback: []float32{1, 0}}
	ix := testIndex(t, emb)

	if err := ix.Upsert(
		Document{ID: "a", Title: "Leave days", Topic: "leave", Content: "leave policy days", Embedding: []float32{1, 0}},
		Document{ID: "b", Title: "Benefit days", Topic: "benefits", Content: "benefit policy days", Embedding: []float32{1, 0}},
	); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := ix.Search(context.Background(), "policy days", "benefits", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.Document.Topic != "benefits" {
			t.Fatalf("topic filter leaked document %s (%s)", h.Document.ID, h.Document.Topic)
		}
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly the benefits document, got %d hits", len(hits))
	}
}

func TestIndexSearchClampsTopK(t *testing.T) {
	emb := &stubEmbedder{fallback: []float32{1}}
	ix := testIndex(t, emb)

	for i := 0; i < 15; i++ {
		if err := ix.Upsert(Document{
			ID:        fmt.Sprintf("doc-%d", i),
			Title:     "Policy",
			Topic:     "leave",
			Content:   "shared policy words",
			Embedding: []float32{1},
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	hits, err := ix.Search(context.Background(), "policy", "", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) > defaultTopK {
		t.Fatalf("out-of-range k must clamp to %d, got %d hits", defaultTopK, len(hits))
	}
}

func TestIndexSearchEmbedErrorPropagates(t *testing.T) {
	emb := &stubEmbedder{err: fmt.Errorf("embedding service down")}
	ix := testIndex(t, emb)
	if err := ix.Upsert(Document{ID: "a", Title: "Doc", Topic: "t", Content: "content"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if _, err := ix.Search(context.Background(), "content", "", 3); err == nil {
		t.Fatalf("expected error when the embedder fails")
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("identical vectors: expected 1.0, got %f", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors: expected 0, got %f", got)
	}
	if got := cosine([]float32{1, 0}, nil); got != 0 {
		t.Fatalf("empty vector: expected 0, got %f", got)
	}
}
