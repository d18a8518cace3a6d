package tools

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hrdesk-ai/hrdesk/internal/capability"
	"github.com/hrdesk-ai/hrdesk/internal/knowledge"
)

// KnowledgeSearch retrieves handbook passages from the internal knowledge
// index and scores their quality. The isSufficient and confidence fields in
// its result drive the orchestrator's escalation to web search.
type KnowledgeSearch struct {
	index  *knowledge.Index
	logger *log.Logger
}

func NewKnowledgeSearch(index *knowledge.Index) *KnowledgeSearch {
	return &KnowledgeSearch{
		index:  index,
		logger: log.New(log.Writer(), "[TOOL:KNOWLEDGE] ", log.LstdFlags),
	}
}

func (t *KnowledgeSearch) Name() string { return capability.ToolKnowledgeSearch }

func (t *KnowledgeSearch) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	query, ok := stringInput(inputs, "query")
	if !ok {
		return nil, errors.New("knowledge_search: query is required")
	}
	topic, _ := stringInput(inputs, "topic")
	topK := intInput(inputs, "topK", 5)

	hits, err := t.index.Search(ctx, query, topic, topK)
	if err != nil {
		return nil, fmt.Errorf("knowledge_search: %w", err)
	}

	documents := make([]string, 0, len(hits))
	distances := make([]float64, 0, len(hits))
	sources := make([]string, 0, len(hits))
	for _, hit := range hits {
		documents = append(documents, hit.Document.Content)
		distances = append(distances, hit.Distance)
		sources = append(sources, hit.Document.Source)
	}

	quality := knowledge.ScoreRetrieval(distances)
	t.logger.Printf("retrieved %d documents (tier %s, confidence %.2f)", len(hits), quality.QualityTier, quality.OverallConfidence)

	return map[string]any{
		"documents":    documents,
		"distances":    distances,
		"sources":      sources,
		"isSufficient": quality.IsSufficient,
		"confidence":   quality.OverallConfidence,
		"qualityTier":  quality.QualityTier,
		"numRelevant":  quality.NumRelevant,
	}, nil
}
