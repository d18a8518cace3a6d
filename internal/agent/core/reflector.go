package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
)

// QualityReflector judges the evidence gathered so far and decides whether
// the run needs more information. Its escalation rule can force the next
// Decide to use web search when internal knowledge came up short.
type QualityReflector struct {
	config    *config.Config
	provider  Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewQualityReflector creates a new quality reflector.
func NewQualityReflector(cfg *config.Config, provider Provider, tel *telemetry.Telemetry) *QualityReflector {
	return &QualityReflector{
		config:    cfg,
		provider:  provider,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[REFLECTOR] ", log.LstdFlags),
	}
}

// reflectionVerdict is the parsed generic reflection reply.
type reflectionVerdict struct {
	IsSufficient bool     `json:"isSufficient"`
	Confidence   float64  `json:"confidence"`
	Gaps         []string `json:"gaps"`
}

// Reflect applies the escalation rule first; if it fires, the reflector
// forces web search for the next Decide and returns immediately. All other
// cases run one generative sufficiency judgment with a heuristic fallback.
// The terminal step always clears any stale override.
func (r *QualityReflector) Reflect(ctx context.Context, state *AgentState) {
	if r.shouldEscalate(state) {
		result := state.ToolResults[capability.ToolKnowledgeSearch]
		confidence := clamp01(floatField(result, "confidence", 0))
		state.NeedsMoreInfo = true
		state.ConfidenceScore = confidence
		state.AddTrace("reflect: internal knowledge insufficient (confidence %.2f); escalating to %s", confidence, capability.ToolWebSearch)
		state.SetForcedTool(capability.ToolWebSearch)
		r.logger.Printf("escalating to %s (confidence %.2f)", capability.ToolWebSearch, confidence)
		return
	}

	verdict, err := r.reflectOnce(ctx, state)
	if err != nil {
		// Heuristic fallback. Execute increments iterations before Reflect
		// runs, so this observes iterations >= 1 and settles for what we have.
		state.NeedsMoreInfo = state.Iterations < 1
		state.ConfidenceScore = 0.7
		state.AddTrace("reflect: fallback heuristic after error: %v", err)
		r.logger.Printf("reflection failed, using heuristic: %v", err)
	} else {
		state.NeedsMoreInfo = !verdict.IsSufficient
		state.ConfidenceScore = clamp01(verdict.Confidence)
		if len(verdict.Gaps) > 0 {
			state.AddTrace("reflect: sufficient=%t confidence=%.2f gaps: %s", verdict.IsSufficient, state.ConfidenceScore, strings.Join(verdict.Gaps, "; "))
		} else {
			state.AddTrace("reflect: sufficient=%t confidence=%.2f", verdict.IsSufficient, state.ConfidenceScore)
		}
	}

	// Second, independent safeguard against forcing the same escalation
	// twice in a row. No-op when nothing is pending.
	state.ClearForcedTool()
}

// shouldEscalate checks the special-case rule: the internal search tool just
// ran, reported insufficient results, web search has not been used this run,
// and the iteration budget still has room.
func (r *QualityReflector) shouldEscalate(state *AgentState) bool {
	last, ok := state.LastCall()
	if !ok || last.Tool != capability.ToolKnowledgeSearch {
		return false
	}
	result, ok := state.ToolResults[capability.ToolKnowledgeSearch]
	if !ok {
		return false
	}
	sufficient, ok := boolField(result, "isSufficient")
	if !ok || sufficient {
		return false
	}
	if state.ToolUsed(capability.ToolWebSearch) {
		return false
	}
	return state.Iterations < state.MaxIterations
}

func (r *QualityReflector) reflectOnce(ctx context.Context, state *AgentState) (reflectionVerdict, error) {
	serialized, err := json.Marshal(state.ToolResults)
	if err != nil {
		return reflectionVerdict{}, fmt.Errorf("failed to serialize tool results: %w", err)
	}

	prompt := fmt.Sprintf(`You are reviewing the evidence an HR assistant has gathered so far.

QUESTION: %s
COMPLETED STEPS: %d of %d
RESULTS SO FAR:
%s

Judge whether the accumulated results are enough to answer the question.

OUTPUT FORMAT (JSON):
{"isSufficient": true, "confidence": 0.8, "gaps": ["missing X"]}

Return ONLY strict JSON matching the format above.`,
		state.Query, state.CurrentStep, len(state.Plan), string(serialized))

	model := r.config.LLM.Routing.Reflection
	response, err := generateText(ctx, r.provider, r.telemetry, state, "reflection", model, prompt, nil)
	if err != nil {
		return reflectionVerdict{}, fmt.Errorf("reflection call failed: %w", err)
	}

	var verdict reflectionVerdict
	if err := decodeStrictJSON(response, &verdict); err != nil {
		return reflectionVerdict{}, fmt.Errorf("reflection response unparseable: %w", err)
	}
	return verdict, nil
}
