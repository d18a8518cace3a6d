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

const factCheckTopK = 5

// Verdicts a fact check can reach.
const (
	VerdictSupported    = "supported"
	VerdictRefuted      = "refuted"
	VerdictUnverifiable = "unverifiable"
)

// FactCheck verifies a claim against handbook evidence.
type FactCheck struct {
	index     *knowledge.Index
	generator Generator
	telemetry *telemetry.Telemetry
	model     string
	logger    *log.Logger
}

func NewFactCheck(index *knowledge.Index, gen Generator, tel *telemetry.Telemetry, model string) *FactCheck {
	return &FactCheck{
		index:     index,
		generator: gen,
		telemetry: tel,
		model:     model,
		logger:    log.New(log.Writer(), "[TOOL:FACTCHECK] ", log.LstdFlags),
	}
}

func (t *FactCheck) Name() string { return capability.ToolFactCheck }

func (t *FactCheck) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	claim, ok := stringInput(inputs, "claim")
	if !ok {
		return nil, errors.New("fact_check: claim is required")
	}
	topic, _ := stringInput(inputs, "topic")

	hits, err := t.index.Search(ctx, claim, topic, factCheckTopK)
	if err != nil {
		return nil, fmt.Errorf("fact_check: %w", err)
	}

	passages := make([]string, 0, len(hits))
	distances := make([]float64, 0, len(hits))
	sources := make([]string, 0, len(hits))
	for _, hit := range hits {
		passages = append(passages, hit.Document.Content)
		distances = append(distances, hit.Distance)
		sources = append(sources, hit.Document.Source)
	}
	quality := knowledge.ScoreRetrieval(distances)

	verdict, explanation, confidence, err := t.judge(ctx, claim, passages)
	if err != nil {
		t.logger.Printf("verdict generation failed, using retrieval heuristic: %v", err)
		verdict = VerdictUnverifiable
		explanation = "Automated verification was unavailable; the closest handbook passages are attached."
		confidence = quality.OverallConfidence * 0.5
	}

	return map[string]any{
		"claim":       claim,
		"verdict":     verdict,
		"explanation": explanation,
		"confidence":  confidence,
		"evidence":    passages,
		"sources":     sources,
	}, nil
}

func (t *FactCheck) judge(ctx context.Context, claim string, passages []string) (string, string, float64, error) {
	var evidence strings.Builder
	if len(passages) == 0 {
		evidence.WriteString("(no handbook passages found)\n")
	}
	for _, p := range passages {
		fmt.Fprintf(&evidence, "- %s\n", p)
	}

	prompt := fmt.Sprintf(`You are verifying a claim about company HR policy.

CLAIM: %s

HANDBOOK EVIDENCE:
%s
Judge the claim strictly against the evidence. Use "supported" only when the
evidence confirms it, "refuted" when the evidence contradicts it, and
"unverifiable" when the evidence does not settle it.

OUTPUT FORMAT (JSON):
{"verdict": "supported", "explanation": "why", "confidence": 0.8}

Return ONLY strict JSON matching the format above.`, claim, evidence.String())

	response, err := generate(ctx, t.generator, t.telemetry, "tools", t.model, prompt)
	if err != nil {
		return "", "", 0, err
	}

	var parsed struct {
		Verdict     string  `json:"verdict"`
		Explanation string  `json:"explanation"`
		Confidence  float64 `json:"confidence"`
	}
	if err := decodeJSON(response, &parsed); err != nil {
		return "", "", 0, err
	}
	return normalizeVerdict(parsed.Verdict), parsed.Explanation, parsed.Confidence, nil
}

func normalizeVerdict(v string) string {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case VerdictSupported:
		return VerdictSupported
	case VerdictRefuted:
		return VerdictRefuted
	default:
		return VerdictUnverifiable
	}
}
