package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
)

// PlanGenerator turns a question into a short ordered plan of tool steps.
type PlanGenerator struct {
	config    *config.Config
	provider  Provider
	telemetry *telemetry.Telemetry
	registry  *capability.Registry
	logger    *log.Logger
}

// PlanOutline is the parsed planning reply.
type PlanOutline struct {
	Steps       []string `json:"plan"`
	QueryType   string   `json:"queryType"`
	PrimaryTool string   `json:"primaryTool"`
}

// NewPlanGenerator creates a new plan generator.
func NewPlanGenerator(cfg *config.Config, provider Provider, tel *telemetry.Telemetry, registry *capability.Registry) *PlanGenerator {
	return &PlanGenerator{
		config:    cfg,
		provider:  provider,
		telemetry: tel,
		registry:  registry,
		logger:    log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// GeneratePlan fills the state's plan fields. Generation is retried exactly
// once on failure; after that the fixed baseline plan is used. Never returns
// an error: the run always gets a usable plan.
func (p *PlanGenerator) GeneratePlan(ctx context.Context, state *AgentState) {
	startTime := time.Now()

	outline, err := p.generateOnce(ctx, state)
	if err != nil {
		p.logger.Printf("plan generation failed, retrying once: %v", err)
		outline, err = p.generateOnce(ctx, state)
	}
	if err != nil {
		p.logger.Printf("plan generation failed twice, using baseline plan: %v", err)
		state.AddTrace("plan generation failed twice (%v); using baseline plan", err)
		outline = baselinePlan()
	}

	state.Plan = outline.Steps
	state.QueryType = outline.QueryType
	state.PrimaryTool = outline.PrimaryTool
	state.AddTrace("plan (%s, primary %s): %s", outline.QueryType, outline.PrimaryTool, strings.Join(outline.Steps, " | "))

	p.logger.Printf("Planning completed in %v with %d steps (%s)", time.Since(startTime), len(outline.Steps), outline.QueryType)
}

func (p *PlanGenerator) generateOnce(ctx context.Context, state *AgentState) (PlanOutline, error) {
	prompt := p.createPlanningPrompt(state)
	model := p.config.LLM.Routing.Planning

	response, err := generateText(ctx, p.provider, p.telemetry, state, "planning", model, prompt, map[string]interface{}{
		"temperature": 0.3, // lower temperature for more consistent planning
	})
	if err != nil {
		return PlanOutline{}, fmt.Errorf("failed to generate plan: %w", err)
	}

	var outline PlanOutline
	if err := decodeStrictJSON(response, &outline); err != nil {
		return PlanOutline{}, fmt.Errorf("failed to parse planning response: %w", err)
	}

	steps := make([]string, 0, len(outline.Steps))
	for _, s := range outline.Steps {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			steps = append(steps, trimmed)
		}
	}
	if len(steps) == 0 {
		return PlanOutline{}, fmt.Errorf("planning response contained no steps")
	}
	if len(steps) > maxPlanSteps {
		steps = steps[:maxPlanSteps]
	}
	outline.Steps = steps
	outline.QueryType = normalizeQueryType(outline.QueryType)
	outline.PrimaryTool = p.normalizePrimaryTool(outline.PrimaryTool)
	return outline, nil
}

func (p *PlanGenerator) createPlanningPrompt(state *AgentState) string {
	toolList := strings.Join(p.registry.Names(), ", ")

	return fmt.Sprintf(`You are a planning agent for an HR assistant. Break the employee's question into a short ordered plan of tool steps.

QUESTION: %s
TOPIC: %s
DIFFICULTY: %s

AVAILABLE TOOLS: %s
- knowledge_search: look up the internal HR handbook and policy documents
- web_search: search the public web for regulations or guidance not in the handbook
- policy_compare: compare two policies or benefit options side by side
- fact_check: verify a specific claim against the handbook
- content_plan: outline HR content such as announcements or policy drafts

PLANNING REQUIREMENTS:
1. Produce between 1 and %d steps. Most questions need 1 or 2.
2. Each step is one imperative sentence and must name the tool it uses.
3. Prefer knowledge_search first; only plan web_search when the handbook alone cannot answer.
4. Classify the question as one of: simple_search, creation, comparison, verification, complex_analysis.

OUTPUT FORMAT (JSON):
{
  "plan": ["Use knowledge_search to find the vacation accrual policy"],
  "queryType": "simple_search",
  "primaryTool": "knowledge_search"
}

Return ONLY strict JSON matching the format above.`,
		state.Query, orUnspecified(state.Topic), orUnspecified(state.Difficulty), toolList, maxPlanSteps)
}

func (p *PlanGenerator) normalizePrimaryTool(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return capability.ToolKnowledgeSearch
	}
	if _, ok := p.registry.Card(name); !ok {
		return capability.ToolKnowledgeSearch
	}
	return name
}

// baselinePlan is the fixed fallback used when generation fails twice.
func baselinePlan() PlanOutline {
	return PlanOutline{
		Steps:       []string{"Use knowledge_search to look up handbook guidance for this question"},
		QueryType:   QuerySimpleSearch,
		PrimaryTool: capability.ToolKnowledgeSearch,
	}
}

func normalizeQueryType(qt string) string {
	switch strings.TrimSpace(strings.ToLower(qt)) {
	case QueryCreation:
		return QueryCreation
	case QueryComparison:
		return QueryComparison
	case QueryVerification:
		return QueryVerification
	case QueryComplexAnalysis:
		return QueryComplexAnalysis
	default:
		return QuerySimpleSearch
	}
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unspecified"
	}
	return s
}
