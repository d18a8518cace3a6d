package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/llm"
)

// Provider is the generative interface the agent nodes depend on. The
// concrete implementations live in internal/llm.
type Provider interface {
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// generateText issues one generative call, records an LLM telemetry event,
// and adds the spend to the run's usage counters.
func generateText(ctx context.Context, provider Provider, tel *telemetry.Telemetry, state *AgentState, operation, model, prompt string, options map[string]interface{}) (string, error) {
	startTime := time.Now()
	response, inputTokens, outputTokens, err := provider.GenerateWithTokens(ctx, prompt, model, options)

	var cost float64
	if err == nil {
		cost = provider.CalculateCost(inputTokens, outputTokens, model)
		state.AddUsage(cost, inputTokens+outputTokens)
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

// decodeStrictJSON parses a reply that should be strict JSON, tolerating
// prose or fencing around it by extracting the first balanced brace block.
func decodeStrictJSON(response string, v any) error {
	if err := json.Unmarshal([]byte(response), v); err == nil {
		return nil
	}
	extracted := llm.ExtractFirstJSON(response)
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// floatField reads a numeric field from a tool result, tolerating the types
// a JSON round trip can produce.
func floatField(result map[string]any, key string, fallback float64) float64 {
	raw, ok := result[key]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fallback
		}
		return f
	default:
		return fallback
	}
}

// boolField reads a boolean field from a tool result.
func boolField(result map[string]any, key string) (bool, bool) {
	raw, ok := result[key]
	if !ok {
		return false, false
	}
	b, ok := raw.(bool)
	return b, ok
}
