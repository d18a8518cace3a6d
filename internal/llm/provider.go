// Package llm abstracts the generative and embedding providers behind one
// interface so orchestration logic stays testable with deterministic stubs.
package llm

import (
	"context"
	"fmt"

	"github.com/hrdesk-ai/hrdesk/config"
)

// Provider is the reasoning-call interface used by the planner, the
// ambiguous branch of tool selection, generic reflection, synthesis, and the
// generative tools. Implementations must be safe for concurrent use.
type Provider interface {
	// Generate produces a completion for the prompt using the configured
	// model key.
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)

	// GenerateWithTokens is Generate plus prompt/completion token counts.
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)

	// Embed returns one embedding vector per input text.
	Embed(ctx context.Context, model string, input []string) ([][]float32, error)

	// GetAvailableModels lists the configured model keys.
	GetAvailableModels() []string

	// GetModelInfo returns metadata for a configured model key.
	GetModelInfo(model string) (ModelInfo, error)

	// CalculateCost converts token usage into dollars for a model key.
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// ModelInfo describes one configured model.
type ModelInfo struct {
	Name            string
	Provider        string
	MaxTokens       int
	CostPer1KInput  float64
	CostPer1KOutput float64
	Capabilities    []string
	Description     string
}

// NewProvider creates the configured provider implementation.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
