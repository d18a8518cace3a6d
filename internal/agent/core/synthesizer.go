package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
)

// ResponseSynthesizer produces the final answer from everything the run
// accumulated. It makes one generative call; on failure it degrades to an
// apology that embeds the error so the caller still gets a response.
type ResponseSynthesizer struct {
	config    *config.Config
	provider  Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewResponseSynthesizer creates a new response synthesizer.
func NewResponseSynthesizer(cfg *config.Config, provider Provider, tel *telemetry.Telemetry) *ResponseSynthesizer {
	return &ResponseSynthesizer{
		config:    cfg,
		provider:  provider,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[SYNTHESIZER] ", log.LstdFlags),
	}
}

// Synthesize writes the final answer and the deduplicated source list onto
// the state. Never returns an error.
func (s *ResponseSynthesizer) Synthesize(ctx context.Context, state *AgentState) {
	answer, err := s.synthesizeOnce(ctx, state)
	if err != nil {
		s.logger.Printf("synthesis failed, returning apology: %v", err)
		state.AddTrace("finish: synthesis failed: %v", err)
		answer = fmt.Sprintf("I'm sorry, I wasn't able to put together a complete answer to %q (error: %v). Please try rephrasing the question or contact HR directly.", state.Query, err)
	}
	state.FinalAnswer = answer
	state.SourcesUsed = CollectSources(state.ToolResults)
}

func (s *ResponseSynthesizer) synthesizeOnce(ctx context.Context, state *AgentState) (string, error) {
	serialized, err := json.Marshal(state.ToolResults)
	if err != nil {
		return "", fmt.Errorf("failed to serialize tool results: %w", err)
	}

	prompt := fmt.Sprintf(`You are an HR assistant answering an employee's question.

QUESTION: %s
DIFFICULTY: %s
TOOL RESULTS:
%s

REASONING TRACE:
%s

Write a clear, direct answer grounded in the tool results above. Cite the
handbook section or web source when one supports a statement. If the evidence
is thin, say so plainly rather than guessing.`,
		state.Query, orUnspecified(state.Difficulty), string(serialized), strings.Join(state.ReasoningTrace, "\n"))

	model := s.config.LLM.Routing.Synthesis
	response, err := generateText(ctx, s.provider, s.telemetry, state, "synthesis", model, prompt, map[string]interface{}{
		"temperature": 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("synthesis call failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return "", fmt.Errorf("synthesis returned an empty answer")
	}
	return response, nil
}

// CollectSources flattens every "sources" and "topK" list field found in the
// tool results into a deduplicated set of citation strings. Order is
// unspecified.
func CollectSources(results map[string]map[string]any) []string {
	seen := make(map[string]bool)
	var out []string
	for _, result := range results {
		for _, field := range []string{"sources", "topK"} {
			for _, item := range listField(result, field) {
				text := fmt.Sprintf("%v", item)
				if text == "" || seen[text] {
					continue
				}
				seen[text] = true
				out = append(out, text)
			}
		}
	}
	return out
}

// listField returns the named field as a slice when it holds one; scalar
// fields with these names are ignored.
func listField(result map[string]any, key string) []any {
	switch v := result[key].(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}
