package knowledge

import (
	"context"
	"fmt"
	"testing"
)

// stubDocStore is an in-memory DocumentStore recording which embeddings were
// persisted.
type stubDocStore struct {
	docs    []Document
	saved   []string
	listErr error
	saveErr error
}

func (s *stubDocStore) ListDocuments(ctx context.Context, topic string) ([]Document, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out, nil
}

func (s *stubDocStore) SaveDocumentEmbedding(ctx context.Context, id string, embedding []float32) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, id)
	return nil
}

func TestRefresherEmbedsMissing(t *testing.T) {
	emb := &stubEmbedder{fallback: []float32{0.5, 0.5}}
	ix := testIndex(t, emb)
	store := &stubDocStore{docs: []Document{
		{ID: "a", Title: "Has vector", Topic: "t", Content: "x", Embedding: []float32{1, 0}},
		{ID: "b", Title: "Needs vector", Topic: "t", Content: "y"},
	}}

	r := &Refresher{Store: store, Index: ix, Embedder: emb, Model: "test-embedding"}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if len(store.saved) != 1 || store.saved[0] != "b" {
		t.Fatalf("expected exactly doc b embedded, got %v", store.saved)
	}
	if ix.Len() != 2 {
		t.Fatalf("expected 2 indexed documents, got %d", ix.Len())
	}
}

func TestRefresherSkipsEmbeddedDocuments(t *testing.T) {
	emb := &stubEmbedder{fallback: []float32{1, 0}}
	ix := testIndex(t, emb)
	store := &stubDocStore{docs: []Document{
		{ID: "a", Title: "PTO", Topic: "leave", Content: "accrual", Embedding: []float32{1, 0}},
		{ID: "b", Title: "Sick leave", Topic: "leave", Content: "illness", Embedding: []float32{0, 1}},
	}}

	r := &Refresher{Store: store, Index: ix, Embedder: emb, Model: "test-embedding"}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if emb.calls != 0 {
		t.Fatalf("fully embedded corpus must not hit the embedder, got %d calls", emb.calls)
	}
	if len(store.saved) != 0 {
		t.Fatalf("nothing should be re-persisted, got %v", store.saved)
	}
	if ix.Len() != 2 {
		t.Fatalf("expected 2 indexed documents, got %d", ix.Len())
	}
}

func TestRefresherBatchesEmbeddings(t *testing.T) {
	emb := &stubEmbedder{fallback: []float32{1}}
	ix := testIndex(t, emb)

	docs := make([]Document, 0, embedBatchSize+1)
	for i := 0; i <= embedBatchSize; i++ {
		docs = append(docs, Document{ID: fmt.Sprintf("doc-%d", i), Title: "Policy", Topic: "t", Content: "text"})
	}
	store := &stubDocStore{docs: docs}

	r := &Refresher{Store: store, Index: ix, Embedder: emb, Model: "test-embedding"}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if emb.calls != 2 {
		t.Fatalf("expected %d documents to embed in 2 batches, got %d calls", embedBatchSize+1, emb.calls)
	}
	if len(store.saved) != embedBatchSize+1 {
		t.Fatalf("expected every vector persisted, got %d", len(store.saved))
	}
	if ix.Len() != embedBatchSize+1 {
		t.Fatalf("expected %d indexed documents, got %d", embedBatchSize+1, ix.Len())
	}
}

func TestRefresherDegradesOnEmbedError(t *testing.T) {
	ix := testIndex(t, &stubEmbedder{fallback: []float32{1}})
	store := &stubDocStore{docs: []Document{
		{ID: "a", Title: "Doc", Topic: "t", Content: "content"},
	}}
	failing := &stubEmbedder{err: fmt.Errorf("embedding service down")}

	r := &Refresher{Store: store, Index: ix, Embedder: failing, Model: "test-embedding"}
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("embed failure must degrade to keyword-only, not fail: %v", err)
	}

	if len(store.saved) != 0 {
		t.Fatalf("no embeddings should be persisted after a failed batch, got %v", store.saved)
	}
	// The document still reaches the index for keyword retrieval.
	if ix.Len() != 1 {
		t.Fatalf("expected 1 indexed document, got %d", ix.Len())
	}
}

func TestRefresherPropagatesStoreErrors(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		ix := testIndex(t, &stubEmbedder{fallback: []float32{1}})
		store := &stubDocStore{listErr: fmt.Errorf("connection refused")}
		r := &Refresher{Store: store, Index: ix, Embedder: &stubEmbedder{fallback: []float32{1}}, Model: "test-embedding"}
		if err := r.Refresh(context.Background()); err == nil {
			t.Fatal("expected list failure to propagate")
		}
	})

	t.Run("save", func(t *testing.T) {
		emb := &stubEmbedder{fallback: []float32{1}}
		ix := testIndex(t, emb)
		store := &stubDocStore{
			docs:    []Document{{ID: "a", Title: "Doc", Topic: "t", Content: "content"}},
			saveErr: fmt.Errorf("disk full"),
		}
		r := &Refresher{Store: store, Index: ix, Embedder: emb, Model: "test-embedding"}
		if err := r.Refresh(context.Background()); err == nil {
			t.Fatal("expected save failure to propagate")
		}
	})
}
