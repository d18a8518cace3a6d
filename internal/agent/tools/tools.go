// Package tools implements the agent's capability tools: internal handbook
// retrieval, public web search, policy comparison, fact checking, and content
// planning. Every tool satisfies capability.Tool and is bound to the registry
// at startup.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/llm"
)

// Generator is the slice of the LLM provider the generative tools use.
type Generator interface {
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// generate issues one generative call and records an LLM telemetry event.
// Tool calls run outside the agent state, so usage lands in telemetry only.
func generate(ctx context.Context, gen Generator, tel *telemetry.Telemetry, operation, model, prompt string) (string, error) {
	startTime := time.Now()
	response, inputTokens, outputTokens, err := gen.GenerateWithTokens(ctx, prompt, model, nil)

	var cost float64
	if err == nil {
		cost = gen.CalculateCost(inputTokens, outputTokens, model)
	}
	if tel != nil {
		event := telemetry.LLMEvent{
			Operation:    operation,
			Model:        model,
			Duration:     time.Since(startTime),
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			Cost:         cost,
			Success:      err == nil,
		}
		if err != nil {
			event.Error = err.Error()
		}
		tel.RecordLLMEvent(ctx, event)
	}
	if err != nil {
		return "", err
	}
	return response, nil
}

// decodeJSON parses a reply that should be strict JSON, tolerating prose or
// fencing around it.
func decodeJSON(response string, v any) error {
	if err := json.Unmarshal([]byte(response), v); err == nil {
		return nil
	}
	extracted := llm.ExtractFirstJSON(response)
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	return nil
}

// stringInput reads a required or optional string input.
func stringInput(inputs map[string]any, key string) (string, bool) {
	raw, ok := inputs[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// intInput reads an integer input, tolerating the numeric types a JSON round
// trip can produce.
func intInput(inputs map[string]any, key string, fallback int) int {
	raw, ok := inputs[key]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return fallback
		}
		return int(n)
	default:
		return fallback
	}
}
