package knowledge

import (
	"context"
	"fmt"
	"log"
)

// DocumentStore is the persistence surface the refresher needs.
type DocumentStore interface {
	ListDocuments(ctx context.Context, topic string) ([]Document, error)
	SaveDocumentEmbedding(ctx context.Context, id string, embedding []float32) error
}

// embedBatchSize bounds one embeddings request.
const embedBatchSize = 32

// Refresher synchronizes the in-memory index with the document store,
// embedding documents that do not have a vector yet.
type Refresher struct {
	Store    DocumentStore
	Index    *Index
	Embedder Embedder
	Model    string
	Logger   *log.Logger
}

// Refresh loads every document, embeds the ones missing vectors, persists
// the new vectors, and upserts everything into the index. Embedding failures
// degrade to keyword-only retrieval for the affected documents rather than
// failing the refresh.
func (r *Refresher) Refresh(ctx context.Context) error {
	docs, err := r.Store.ListDocuments(ctx, "")
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	var missing []int
	for i, doc := range docs {
		if len(doc.Embedding) == 0 {
			missing = append(missing, i)
		}
	}

	for start := 0; start < len(missing); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		texts := make([]string, 0, len(batch))
		for _, i := range batch {
			texts = append(texts, docs[i].Title+"\n"+docs[i].Content)
		}
		vecs, err := r.Embedder.Embed(ctx, r.Model, texts)
		if err != nil {
			if r.Logger != nil {
				r.Logger.Printf("embed batch failed, keeping keyword-only retrieval: %v", err)
			}
			break
		}
		for j, i := range batch {
			if j >= len(vecs) {
				break
			}
			docs[i].Embedding = vecs[j]
			if err := r.Store.SaveDocumentEmbedding(ctx, docs[i].ID, vecs[j]); err != nil {
				return fmt.Errorf("save embedding %s: %w", docs[i].ID, err)
			}
		}
	}

	if err := r.Index.Upsert(docs...); err != nil {
		return fmt.Errorf("upsert index: %w", err)
	}
	if r.Logger != nil {
		r.Logger.Printf("knowledge index refreshed: %d documents, %d newly embedded", len(docs), len(missing))
	}
	return nil
}
