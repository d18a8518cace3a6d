package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
)

// ToolExecutor invokes the most recently queued tool call and records its
// result. Failures never propagate: an unknown tool, invalid inputs, or an
// error from the tool itself all become an {error} result so the run can
// continue.
type ToolExecutor struct {
	registry  *capability.Registry
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewToolExecutor creates a new tool executor.
func NewToolExecutor(registry *capability.Registry, tel *telemetry.Telemetry) *ToolExecutor {
	return &ToolExecutor{
		registry:  registry,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[EXECUTOR] ", log.LstdFlags),
	}
}

// Execute runs the last queued call. It always increments the iteration
// counter; the step counter advances only for calls that came from the plan,
// not for quality-check interjections.
func (e *ToolExecutor) Execute(ctx context.Context, state *AgentState) {
	call, ok := state.LastCall()
	if !ok {
		return
	}
	forced := call.Reasoning == ReasonForcedByQualityCheck

	startTime := time.Now()
	result, failed := e.invoke(ctx, call)
	duration := time.Since(startTime)

	state.RecordResult(call.Tool, result)
	state.Iterations++
	if !forced {
		state.CurrentStep++
	}

	if failed {
		state.AddTrace("execute: %s failed: %v", call.Tool, result["error"])
		e.logger.Printf("tool %s failed after %v: %v", call.Tool, duration, result["error"])
	} else {
		e.logger.Printf("tool %s completed in %v", call.Tool, duration)
	}

	if e.telemetry != nil {
		event := telemetry.ToolEvent{
			Tool:      call.Tool,
			StartTime: startTime,
			EndTime:   startTime.Add(duration),
			Duration:  duration,
			Success:   !failed,
			Forced:    forced,
		}
		if failed {
			event.Error = fmt.Sprintf("%v", result["error"])
		}
		e.telemetry.RecordToolEvent(ctx, event)
	}
}

// invoke resolves and runs a tool, converting every failure into an {error}
// result. The second return reports whether the result is an error result.
func (e *ToolExecutor) invoke(ctx context.Context, call ToolCall) (map[string]any, bool) {
	tool, err := e.registry.Resolve(call.Tool)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("unknown tool %q: %v", call.Tool, err)}, true
	}
	if err := e.registry.ValidateInput(call.Tool, call.Input); err != nil {
		return map[string]any{"error": err.Error()}, true
	}
	result, err := tool.Run(ctx, call.Input)
	if err != nil {
		return map[string]any{"error": err.Error()}, true
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, false
}
