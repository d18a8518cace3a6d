package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator walks one question through the run pipeline:
// PLAN -> DECIDE -> {EXECUTE -> REFLECT -> DECIDE} -> FINISH.
// Every collaborator is constructor-injected; there are no package-level
// singletons, so independent runs never share state.
type Orchestrator struct {
	config    *config.Config
	logger    *log.Logger
	telemetry *telemetry.Telemetry
	registry  *capability.Registry
	provider  Provider

	planner     *PlanGenerator
	selector    *ToolSelector
	executor    *ToolExecutor
	reflector   *QualityReflector
	synthesizer *ResponseSynthesizer
}

var orchestratorTracer trace.Tracer = otel.Tracer("hrdesk/internal/agent/orchestrator")

// NewOrchestrator creates an orchestrator with all its pipeline nodes.
func NewOrchestrator(cfg *config.Config, logger *log.Logger, tel *telemetry.Telemetry, registry *capability.Registry, provider Provider) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("capability registry is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCHESTRATOR] ", log.LstdFlags)
	}
	return &Orchestrator{
		config:      cfg,
		logger:      logger,
		telemetry:   tel,
		registry:    registry,
		provider:    provider,
		planner:     NewPlanGenerator(cfg, provider, tel, registry),
		selector:    NewToolSelector(cfg, provider, tel),
		executor:    NewToolExecutor(registry, tel),
		reflector:   NewQualityReflector(cfg, provider, tel),
		synthesizer: NewResponseSynthesizer(cfg, provider, tel),
	}, nil
}

// LLM exposes the orchestrator's generative provider.
func (o *Orchestrator) LLM() Provider {
	return o.provider
}

// Run answers one question. Tool failures, unparseable generative replies and
// synthesis errors all degrade to fallbacks recorded in the reasoning trace;
// the only error Run returns is external context cancellation.
func (o *Orchestrator) Run(ctx context.Context, query, topic, difficulty string) (RunResult, error) {
	startTime := time.Now()
	runID := uuid.New().String()

	ctx, span := orchestratorTracer.Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.topic", topic),
			attribute.String("run.difficulty", difficulty),
		))
	defer span.End()

	state := NewAgentState(query, topic, difficulty, o.config.Agent.MaxIterations)

	runEvent := telemetry.RunEvent{ID: runID, Query: query, StartTime: startTime}
	defer func() {
		runEvent.EndTime = time.Now()
		runEvent.Duration = runEvent.EndTime.Sub(runEvent.StartTime)
		runEvent.Cost = state.Cost
		runEvent.TokensUsed = state.Tokens
		runEvent.ToolsUsed = state.ToolsUsed()
		runEvent.Confidence = state.ConfidenceScore
		if o.telemetry != nil {
			o.telemetry.RecordRunEvent(ctx, runEvent)
		}
	}()

	o.logger.Printf("starting run %s: %q", runID, query)

	o.planner.GeneratePlan(ctx, state)
	span.AddEvent("plan.complete", trace.WithAttributes(
		attribute.Int("plan.steps", len(state.Plan)),
		attribute.String("plan.query_type", state.QueryType),
	))

	phase := PhaseDecide
	for phase != PhaseFinish {
		if err := ctx.Err(); err != nil {
			runEvent.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return RunResult{}, err
		}

		switch phase {
		case PhaseDecide:
			// Hard ceiling, enforced before every dispatch.
			if state.Iterations >= state.MaxIterations {
				state.AddTrace("decide: iteration budget exhausted (%d/%d)", state.Iterations, state.MaxIterations)
				phase = PhaseFinish
				break
			}
			call, ok := o.selector.Decide(ctx, state)
			if !ok {
				phase = PhaseFinish
				break
			}
			span.AddEvent("decide", trace.WithAttributes(attribute.String("tool", call.Tool)))
			phase = PhaseExecute

		case PhaseExecute:
			o.executor.Execute(ctx, state)
			phase = PhaseReflect

		case PhaseReflect:
			o.reflector.Reflect(ctx, state)
			if o.shouldContinue(state) {
				phase = PhaseDecide
			} else {
				phase = PhaseFinish
			}
		}
	}

	o.synthesizer.Synthesize(ctx, state)

	result := RunResult{
		ID:             runID,
		Query:          query,
		Topic:          topic,
		Answer:         state.FinalAnswer,
		Sources:        append([]string(nil), state.SourcesUsed...),
		ReasoningTrace: append([]string(nil), state.ReasoningTrace...),
		Confidence:     clamp01(state.ConfidenceScore),
		ToolsUsed:      state.ToolsUsed(),
		QueryType:      state.QueryType,
		Iterations:     state.Iterations,
		ProcessingTime: time.Since(startTime),
		CostEstimate:   state.Cost,
		TokensUsed:     state.Tokens,
		CreatedAt:      time.Now(),
	}

	runEvent.Success = true
	span.AddEvent("run.complete", trace.WithAttributes(
		attribute.Float64("run.confidence", result.Confidence),
		attribute.Int("run.iterations", result.Iterations),
		attribute.Int("run.sources", len(result.Sources)),
	))
	span.SetStatus(codes.Ok, "completed")

	o.logger.Printf("run %s completed in %v (%d iterations, confidence %.2f)",
		runID, result.ProcessingTime, result.Iterations, result.Confidence)
	return result, nil
}

// shouldContinue is the REFLECT -> DECIDE guard: the iteration budget must
// have room, and there must be work left (a pending override, an unconsumed
// plan step, or a reflector request for more information).
func (o *Orchestrator) shouldContinue(state *AgentState) bool {
	if state.Iterations >= state.MaxIterations {
		return false
	}
	if _, forced := state.ForcedTool(); forced {
		return true
	}
	return !state.PlanExhausted() || state.NeedsMoreInfo
}
