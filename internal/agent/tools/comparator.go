package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
	"github.com/hrdesk-ai/hrdesk/internal/knowledge"
)

const compareTopK = 3

// PolicyCompare contrasts two policies or benefit options, grounding each
// side in handbook passages retrieved separately.
type PolicyCompare struct {
	index     *knowledge.Index
	generator Generator
	telemetry *telemetry.Telemetry
	model     string
	logger    *log.Logger
}

func NewPolicyCompare(index *knowledge.Index, gen Generator, tel *telemetry.Telemetry, model string) *PolicyCompare {
	return &PolicyCompare{
		index:     index,
		generator: gen,
		telemetry: tel,
		model:     model,
		logger:    log.New(log.Writer(), "[TOOL:COMPARE] ", log.LstdFlags),
	}
}

func (t *PolicyCompare) Name() string { return capability.ToolPolicyCompare }

type comparisonSide struct {
	name     string
	passages []string
	sources  []string
}

func (t *PolicyCompare) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	itemA, ok := stringInput(inputs, "itemA")
	if !ok {
		return nil, errors.New("policy_compare: itemA is required")
	}
	itemB, _ := stringInput(inputs, "itemB")
	topic, _ := stringInput(inputs, "topic")
	compType, _ := stringInput(inputs, "comparisonType")
	if compType == "" {
		compType = "difference"
	}

	sideA, err := t.retrieve(ctx, itemA, topic)
	if err != nil {
		return nil, fmt.Errorf("policy_compare: %w", err)
	}
	sides := []comparisonSide{sideA}
	if itemB != "" {
		sideB, err := t.retrieve(ctx, itemB, topic)
		if err != nil {
			return nil, fmt.Errorf("policy_compare: %w", err)
		}
		sides = append(sides, sideB)
	}

	var sources []string
	for _, side := range sides {
		sources = append(sources, side.sources...)
	}

	result, err := t.compareOnce(ctx, compType, sides)
	if err != nil {
		t.logger.Printf("comparison generation failed, using evidence fallback: %v", err)
		result = t.fallback(compType, sides)
	}
	result["comparisonType"] = compType
	result["sources"] = sources
	return result, nil
}

func (t *PolicyCompare) retrieve(ctx context.Context, item, topic string) (comparisonSide, error) {
	hits, err := t.index.Search(ctx, item, topic, compareTopK)
	if err != nil {
		return comparisonSide{}, err
	}
	side := comparisonSide{name: item}
	for _, hit := range hits {
		side.passages = append(side.passages, hit.Document.Content)
		side.sources = append(side.sources, hit.Document.Source)
	}
	return side, nil
}

func (t *PolicyCompare) compareOnce(ctx context.Context, compType string, sides []comparisonSide) (map[string]any, error) {
	var evidence strings.Builder
	for _, side := range sides {
		fmt.Fprintf(&evidence, "EVIDENCE FOR %q:\n", side.name)
		if len(side.passages) == 0 {
			evidence.WriteString("(no handbook passages found)\n")
		}
		for _, p := range side.passages {
			fmt.Fprintf(&evidence, "- %s\n", p)
		}
		evidence.WriteString("\n")
	}

	prompt := fmt.Sprintf(`You are comparing HR policies for an employee.

COMPARISON TYPE: %s
%s
Contrast the items using only the evidence above. If the type is
"recommendation", end with which option fits most employees and why.

OUTPUT FORMAT (JSON):
{"summary": "one paragraph comparison", "keyDifferences": ["difference 1"], "recommendation": "or empty string"}

Return ONLY strict JSON matching the format above.`, compType, evidence.String())

	response, err := generate(ctx, t.generator, t.telemetry, "tools", t.model, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Summary        string   `json:"summary"`
		KeyDifferences []string `json:"keyDifferences"`
		Recommendation string   `json:"recommendation"`
	}
	if err := decodeJSON(response, &parsed); err != nil {
		return nil, err
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return nil, errors.New("comparison summary missing")
	}
	return map[string]any{
		"summary":        parsed.Summary,
		"keyDifferences": parsed.KeyDifferences,
		"recommendation": parsed.Recommendation,
	}, nil
}

// fallback assembles a plain evidence listing when generation fails, so the
// synthesizer still has something grounded to work with.
func (t *PolicyCompare) fallback(compType string, sides []comparisonSide) map[string]any {
	names := make([]string, len(sides))
	perSide := map[string]any{}
	for i, side := range sides {
		names[i] = side.name
		perSide[side.name] = side.passages
	}
	return map[string]any{
		"summary":  fmt.Sprintf("Handbook evidence for %s is attached; automated comparison was unavailable.", strings.Join(names, " and ")),
		"evidence": perSide,
	}
}
