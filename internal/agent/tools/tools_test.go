package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/knowledge"
	"github.com/hrdesk-ai/hrdesk/tools/webfetch"
	"github.com/hrdesk-ai/hrdesk/tools/websearch"
)

// stubGenerator replays scripted replies; an exhausted script fails the call.
type stubGenerator struct {
	script  []string
	calls   int
	prompts []string
}

func (s *stubGenerator) GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if len(s.script) == 0 {
		return "", 0, 0, errors.New("llm unavailable")
	}
	reply := s.script[0]
	s.script = s.script[1:]
	return reply, 12, 34, nil
}

func (s *stubGenerator) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return float64(inputTokens+outputTokens) / 1000 * 0.01
}

type stubSearcher struct {
	results []websearch.Result
	err     error
	calls   int
}

func (s *stubSearcher) Discover(ctx context.Context, query string, k int, sites []string, recencyDays int) ([]websearch.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type stubFetcher struct {
	result webfetch.Result
	err    error
	calls  int
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (webfetch.Result, error) {
	s.calls++
	if s.err != nil {
		return webfetch.Result{}, s.err
	}
	return s.result, nil
}

// stubEmbedder returns the same vector for every query, so document
// distances are controlled entirely by the document embeddings.
type stubEmbedder struct {
	vector []float32
}

func (s *stubEmbedder) Embed(ctx context.Context, model string, input []string) ([][]float32, error) {
	out := make([][]float32, len(input))
	for i := range input {
		out[i] = s.vector
	}
	return out, nil
}

func testTel() *telemetry.Telemetry {
	return telemetry.NewTelemetry(config.TelemetryConfig{})
}

// buildIndex creates an in-memory index over the given documents. The query
// embeds to [1,0], so a document embedding [cos t, sin t] sits at cosine
// distance 1-cos t.
func buildIndex(t *testing.T, docs ...knowledge.Document) *knowledge.Index {
	t.Helper()
	index, err := knowledge.NewIndex(&stubEmbedder{vector: []float32{1, 0}}, "test-embed")
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if err := index.Upsert(docs...); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return index
}

func closeDoc(id, content, source string) knowledge.Document {
	// distance 0.2
	return knowledge.Document{ID: id, Title: id, Topic: "benefits", Content: content, Source: source, Embedding: []float32{0.8, 0.6}}
}

func midDoc(id, content, source string) knowledge.Document {
	// distance 0.25
	return knowledge.Document{ID: id, Title: id, Topic: "benefits", Content: content, Source: source, Embedding: []float32{0.75, 0.66143783}}
}

func nearDoc(id, content, source string) knowledge.Document {
	// distance 0.3
	return knowledge.Document{ID: id, Title: id, Topic: "benefits", Content: content, Source: source, Embedding: []float32{0.7, 0.71414284}}
}

func farDoc(id, content, source string) knowledge.Document {
	// distance ~1.0
	return knowledge.Document{ID: id, Title: id, Topic: "benefits", Content: content, Source: source, Embedding: []float32{0, 1}}
}
