package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve"
)

const (
	rrfK        = 60 // reciprocal-rank-fusion constant
	maxTopK     = 50
	defaultTopK = 10
)

// Document is one entry in the HR knowledge base.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Embedding []float32 `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Embedder produces embedding vectors, one per input text.
type Embedder interface {
	Embed(ctx context.Context, model string, input []string) ([][]float32, error)
}

// SearchHit is one retrieved document with its cosine distance to the query.
type SearchHit struct {
	Document Document
	Distance float64 // cosine distance, [0,2], lower is closer
	Score    float64 // fused retrieval score, higher is better
	Rank     int
}

// Index is an in-memory hybrid retrieval index: bleve provides BM25 keyword
// ranking, document embeddings provide vector ranking, and the two are fused
// by reciprocal rank. Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	bleve    bleve.Index
	docs     map[string]Document
	embedder Embedder
	model    string
}

// NewIndex builds an empty index. The embedder and model are used to embed
// queries at search time; documents carry their own embeddings.
func NewIndex(embedder Embedder, model string) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("bleve index: %w", err)
	}
	return &Index{
		bleve:    idx,
		docs:     make(map[string]Document),
		embedder: embedder,
		model:    model,
	}, nil
}

// Upsert adds or replaces documents in the index.
func (ix *Index) Upsert(docs ...Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" {
			return errors.New("document id required")
		}
		ix.docs[doc.ID] = doc
		if err := ix.bleve.Index(doc.ID, map[string]string{
			"title":   doc.Title,
			"topic":   doc.Topic,
			"content": doc.Content,
		}); err != nil {
			return fmt.Errorf("index %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Len reports the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search retrieves the k closest documents for the query, optionally
// restricted to a topic. Results carry cosine distances for quality scoring.
func (ix *Index) Search(ctx context.Context, query, topic string, k int) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("knowledge search: empty query")
	}
	if k < 1 || k > maxTopK {
		k = defaultTopK
	}

	bmHits, err := ix.bm25Search(query, topic, k)
	if err != nil {
		return nil, err
	}

	qvecs, err := ix.embedder.Embed(ctx, ix.model, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qvecs) == 0 {
		// Embedding provider returned nothing: fall back to BM25 only.
		return ix.withDistances(nil, bmHits, k), nil
	}
	qvec := qvecs[0]

	vecHits := ix.vectorSearch(qvec, topic, k)
	fused := fuseRRF(bmHits, vecHits, k)
	return ix.withDistances(qvec, fused, k), nil
}

func (ix *Index) bm25Search(q, topic string, k int) ([]SearchHit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	match := bleve.NewMatchQuery(q)
	var searchReq *bleve.SearchRequest
	if strings.TrimSpace(topic) != "" {
		// Term queries bypass the analyzer, so lowercase to match the
		// standard analyzer's indexed form.
		tq := bleve.NewTermQuery(strings.ToLower(topic))
		tq.SetField("topic")
		searchReq = bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(match, tq), k*3, 0, false)
	} else {
		searchReq = bleve.NewSearchRequestOptions(match, k*3, 0, false)
	}
	res, err := ix.bleve.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}

	var out []SearchHit
	for i, hit := range res.Hits {
		doc, ok := ix.docs[hit.ID]
		if !ok {
			continue
		}
		out = append(out, SearchHit{Document: doc, Score: hit.Score, Rank: i + 1})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (ix *Index) vectorSearch(qvec []float32, topic string, k int) []SearchHit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		doc   Document
		score float64
	}
	var scoreds []scored
	for _, doc := range ix.docs {
		if topic != "" && !strings.EqualFold(doc.Topic, topic) {
			continue
		}
		if len(doc.Embedding) == 0 {
			continue
		}
		scoreds = append(scoreds, scored{doc: doc, score: cosine(qvec, doc.Embedding)})
	}
	sort.Slice(scoreds, func(i, j int) bool { return scoreds[i].score > scoreds[j].score })

	var out []SearchHit
	for i, sc := range scoreds {
		out = append(out, SearchHit{Document: sc.doc, Score: sc.score, Rank: i + 1})
		if len(out) >= k {
			break
		}
	}
	return out
}

// withDistances computes cosine distances against the query vector for the
// final hit list. Hits whose document has no embedding (or when the query
// could not be embedded) get the neutral distance 1.0.
func (ix *Index) withDistances(qvec []float32, hits []SearchHit, k int) []SearchHit {
	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Rank = i + 1
		if qvec == nil || len(hits[i].Document.Embedding) == 0 {
			hits[i].Distance = 1.0
			continue
		}
		hits[i].Distance = 1.0 - cosine(qvec, hits[i].Document.Embedding)
	}
	return hits
}

func fuseRRF(a, b []SearchHit, k int) []SearchHit {
	type agg struct {
		item  SearchHit
		score float64
	}
	m := map[string]*agg{}
	add := func(list []SearchHit) {
		for _, h := range list {
			x, ok := m[h.Document.ID]
			if !ok {
				m[h.Document.ID] = &agg{item: h}
				x = m[h.Document.ID]
			}
			x.score += 1.0 / float64(rrfK+h.Rank)
		}
	}
	add(a)
	add(b)

	items := make([]*agg, 0, len(m))
	for _, v := range m {
		items = append(items, v)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].score > items[j].score })

	n := len(items)
	if n > k {
		n = k
	}
	out := make([]SearchHit, 0, n)
	for i := 0; i < n; i++ {
		hit := items[i].item
		hit.Score = items[i].score
		hit.Rank = i + 1
		out = append(out, hit)
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
