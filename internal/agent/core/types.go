package core

import (
	"fmt"
	"time"
)

// Phase identifies a state in the run pipeline.
type Phase string

const (
	PhasePlan    Phase = "PLAN"
	PhaseDecide  Phase = "DECIDE"
	PhaseExecute Phase = "EXECUTE"
	PhaseReflect Phase = "REFLECT"
	PhaseFinish  Phase = "FINISH"
)

// Query types produced by plan generation.
const (
	QuerySimpleSearch    = "simple_search"
	QueryCreation        = "creation"
	QueryComparison      = "comparison"
	QueryVerification    = "verification"
	QueryComplexAnalysis = "complex_analysis"
)

// ReasonForcedByQualityCheck marks tool calls injected by the reflector's
// escalation rule. The executor treats calls carrying this tag as
// interjections that do not consume a plan slot.
const ReasonForcedByQualityCheck = "forced-by-quality-check"

// DefaultMaxIterations bounds the Decide/Execute/Reflect loop when the
// configured value is missing or invalid.
const DefaultMaxIterations = 5

// maxPlanSteps caps generated plans; longer plans are truncated.
const maxPlanSteps = 4

// ToolCall records one Decide outcome.
type ToolCall struct {
	Tool      string         `json:"tool"`
	Input     map[string]any `json:"input"`
	Reasoning string         `json:"reasoning"`
}

// AgentState carries everything a single run accumulates. One instance per
// request; instances are never shared between runs.
type AgentState struct {
	Query      string `json:"query"`
	Topic      string `json:"topic,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`

	Plan        []string `json:"plan"`
	QueryType   string   `json:"query_type"`
	PrimaryTool string   `json:"primary_tool"`

	CurrentStep    int                       `json:"current_step"`
	CurrentTool    string                    `json:"current_tool,omitempty"`
	ToolCalls      []ToolCall                `json:"tool_calls"`
	ToolResults    map[string]map[string]any `json:"tool_results"`
	ReasoningTrace []string                  `json:"reasoning_trace"`

	Iterations    int `json:"iterations"`
	MaxIterations int `json:"max_iterations"`

	NeedsMoreInfo   bool    `json:"needs_more_info"`
	ConfidenceScore float64 `json:"confidence_score"`

	FinalAnswer string   `json:"final_answer,omitempty"`
	SourcesUsed []string `json:"sources_used,omitempty"`

	// Usage accounting across every generative call made during the run.
	Cost   float64 `json:"cost"`
	Tokens int64   `json:"tokens"`

	// Pending override set by the reflector's escalation rule. Unexported so
	// every mutation goes through SetForcedTool/ClearForcedTool.
	forceNextTool *string
}

// NewAgentState builds the per-run state.
func NewAgentState(query, topic, difficulty string, maxIterations int) *AgentState {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &AgentState{
		Query:         query,
		Topic:         topic,
		Difficulty:    difficulty,
		ToolResults:   make(map[string]map[string]any),
		MaxIterations: maxIterations,
	}
}

// ForcedTool reports the pending override, if any.
func (s *AgentState) ForcedTool() (string, bool) {
	if s.forceNextTool == nil {
		return "", false
	}
	return *s.forceNextTool, true
}

// SetForcedTool queues an override for the next Decide. Only the reflector's
// escalation rule sets this.
func (s *AgentState) SetForcedTool(name string) {
	s.forceNextTool = &name
}

// ClearForcedTool removes any pending override. Decide calls it immediately
// after consuming the override and Reflect calls it at the end of every
// generic cycle. Idempotent.
func (s *AgentState) ClearForcedTool() {
	s.forceNextTool = nil
}

// AddTrace appends an audit line to the reasoning trace.
func (s *AgentState) AddTrace(format string, args ...any) {
	s.ReasoningTrace = append(s.ReasoningTrace, fmt.Sprintf(format, args...))
}

// RecordCall appends a tool call record. The history is append-only.
func (s *AgentState) RecordCall(call ToolCall) {
	s.ToolCalls = append(s.ToolCalls, call)
	s.CurrentTool = call.Tool
}

// RecordResult stores a tool result. A repeat call for the same tool
// overwrites the earlier result so reflection and synthesis see the freshest
// evidence.
func (s *AgentState) RecordResult(tool string, result map[string]any) {
	if result == nil {
		result = map[string]any{}
	}
	s.ToolResults[tool] = result
}

// LastCall returns the most recently queued tool call.
func (s *AgentState) LastCall() (ToolCall, bool) {
	if len(s.ToolCalls) == 0 {
		return ToolCall{}, false
	}
	return s.ToolCalls[len(s.ToolCalls)-1], true
}

// PlanExhausted reports whether every plan step has been consumed.
func (s *AgentState) PlanExhausted() bool {
	return s.CurrentStep >= len(s.Plan)
}

// ToolUsed reports whether a tool has produced a result during this run.
func (s *AgentState) ToolUsed(name string) bool {
	_, ok := s.ToolResults[name]
	return ok
}

// AddUsage accumulates generative spend onto the run.
func (s *AgentState) AddUsage(cost float64, tokens int64) {
	s.Cost += cost
	s.Tokens += tokens
}

// ToolsUsed returns the distinct tool names in first-call order.
func (s *AgentState) ToolsUsed() []string {
	seen := make(map[string]bool, len(s.ToolCalls))
	out := make([]string, 0, len(s.ToolCalls))
	for _, call := range s.ToolCalls {
		if seen[call.Tool] {
			continue
		}
		seen[call.Tool] = true
		out = append(out, call.Tool)
	}
	return out
}

// RunResult is the public outcome of one question run.
type RunResult struct {
	ID             string        `json:"id"`
	Query          string        `json:"query"`
	Topic          string        `json:"topic,omitempty"`
	Answer         string        `json:"answer"`
	Sources        []string      `json:"sources"`
	ReasoningTrace []string      `json:"reasoning_trace"`
	Confidence     float64       `json:"confidence"`
	ToolsUsed      []string      `json:"tools_used"`
	QueryType      string        `json:"query_type"`
	Iterations     int           `json:"iterations"`
	ProcessingTime time.Duration `json:"processing_time"`
	CostEstimate   float64       `json:"cost_estimate"`
	TokensUsed     int64         `json:"tokens_used"`
	CreatedAt      time.Time     `json:"created_at"`
}
