package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
)

// scriptedReply is one stubProvider response: either text or an error.
type scriptedReply struct {
	text string
	err  error
}

// stubProvider returns scripted replies in order and errors once the script
// is exhausted, so tests can assert exactly how many generative calls a code
// path makes.
type stubProvider struct {
	script  []scriptedReply
	calls   int
	prompts []string
}

func (s *stubProvider) GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if len(s.script) == 0 {
		return "", 0, 0, fmt.Errorf("llm unavailable")
	}
	reply := s.script[0]
	s.script = s.script[1:]
	if reply.err != nil {
		return "", 0, 0, reply.err
	}
	return reply.text, 12, 34, nil
}

func (s *stubProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return float64(inputTokens+outputTokens) / 1000.0 * 0.01
}

// stubTool is a canned capability implementation.
type stubTool struct {
	name   string
	result map[string]any
	err    error
	calls  int
	inputs []map[string]any
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	s.calls++
	s.inputs = append(s.inputs, inputs)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Agent.MaxIterations = 5
	cfg.Knowledge.DefaultTopK = 5
	cfg.LLM.Routing = config.LLMRoutingConfig{
		Planning:   "test-model",
		Selection:  "test-model",
		Reflection: "test-model",
		Synthesis:  "test-model",
		Tools:      "test-model",
		Fallback:   "test-model",
	}
	return cfg
}

func testTelemetry() *telemetry.Telemetry {
	return telemetry.NewTelemetry(config.TelemetryConfig{})
}

// newTestRegistry builds an unsigned registry over the default cards and
// binds the supplied tools.
func newTestRegistry(t *testing.T, tools ...capability.Tool) *capability.Registry {
	t.Helper()
	reg, err := capability.NewRegistry(capability.DefaultToolCards(), "", nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for _, tool := range tools {
		if err := reg.Bind(tool); err != nil {
			t.Fatalf("Bind %s: %v", tool.Name(), err)
		}
	}
	return reg
}

func newTestState(query string) *AgentState {
	return NewAgentState(query, "", "", 5)
}
