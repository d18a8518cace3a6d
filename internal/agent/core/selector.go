package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
)

// genericSearch is the ambiguous vocabulary match: the only step kind whose
// tool choice goes through a generative call.
const genericSearch = "search"

// stepVocabulary maps plan-step text to tool names, ordered most-specific
// first: exact tool names before natural-language markers, and any marker
// containing "search" before the bare "search" itself. First match wins; no
// match defaults to internal knowledge search.
var stepVocabulary = []struct {
	tool    string
	markers []string
}{
	{capability.ToolContentPlan, []string{"content_plan", "content plan"}},
	{capability.ToolPolicyCompare, []string{"policy_compare"}},
	{capability.ToolFactCheck, []string{"fact_check", "fact-check", "fact check"}},
	{capability.ToolWebSearch, []string{"web_search", "web search", "external search"}},
	{capability.ToolKnowledgeSearch, []string{"knowledge_search", "knowledge base"}},
	{capability.ToolContentPlan, []string{"outline", "draft"}},
	{capability.ToolPolicyCompare, []string{"compare", "difference between", " versus ", " vs "}},
	{capability.ToolFactCheck, []string{"verify", "validate"}},
	{capability.ToolWebSearch, []string{"online", "internet", "public web"}},
	{capability.ToolKnowledgeSearch, []string{"handbook", "internal"}},
	{genericSearch, []string{"search", "look up", "lookup", "find"}},
}

// comparisonConnectives split a comparison query into its two items, ordered
// longest first so "compared to" wins over the " to " it contains.
var comparisonConnectives = []string{
	" compared with ", " compared to ", " difference between ", " versus ", " vs. ", " vs ", " or ", " and ",
}

// questionPrefixes are stripped from the front of a query before comparison
// parsing.
var questionPrefixes = []string{
	"what is the difference between", "what's the difference between",
	"how does", "how do", "what is", "what's", "which is better", "which is",
	"should i pick", "should i choose", "should i use", "compare",
}

// ToolSelector resolves the current plan step, or a pending override, into a
// concrete tool call.
type ToolSelector struct {
	config    *config.Config
	provider  Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewToolSelector creates a new tool selector.
func NewToolSelector(cfg *config.Config, provider Provider, tel *telemetry.Telemetry) *ToolSelector {
	return &ToolSelector{
		config:    cfg,
		provider:  provider,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[SELECTOR] ", log.LstdFlags),
	}
}

// Decide walks the priority ladder: a pending override wins unconditionally,
// an exhausted plan signals completion, otherwise the current step's text is
// scanned for a tool name. ok=false means the run should move to Finish.
// Decide records the chosen call and a trace entry on the state.
func (s *ToolSelector) Decide(ctx context.Context, state *AgentState) (ToolCall, bool) {
	if forced, ok := state.ForcedTool(); ok {
		call := ToolCall{
			Tool:      forced,
			Input:     s.inputForTool(forced, state),
			Reasoning: ReasonForcedByQualityCheck,
		}
		state.ClearForcedTool()
		state.RecordCall(call)
		state.AddTrace("decide: forced %s by quality check", forced)
		return call, true
	}

	if state.PlanExhausted() {
		return ToolCall{}, false
	}

	step := state.Plan[state.CurrentStep]
	tool := toolFromStep(step)
	if tool == genericSearch {
		tool = s.chooseSearchTool(ctx, state, step)
	}

	call := ToolCall{
		Tool:      tool,
		Input:     s.inputForTool(tool, state),
		Reasoning: fmt.Sprintf("plan step %d: %s", state.CurrentStep+1, step),
	}
	state.RecordCall(call)
	state.AddTrace("decide: step %d -> %s", state.CurrentStep+1, tool)
	return call, true
}

// toolFromStep scans a plan step for tool markers, most specific first.
func toolFromStep(step string) string {
	lowered := strings.ToLower(step)
	for _, entry := range stepVocabulary {
		for _, marker := range entry.markers {
			if strings.Contains(lowered, marker) {
				return entry.tool
			}
		}
	}
	return capability.ToolKnowledgeSearch
}

// inputForTool builds the fixed input payload for a tool.
func (s *ToolSelector) inputForTool(tool string, state *AgentState) map[string]any {
	switch tool {
	case capability.ToolKnowledgeSearch:
		topK := s.config.Knowledge.DefaultTopK
		if topK <= 0 {
			topK = 5
		}
		return map[string]any{"query": state.Query, "topic": state.Topic, "topK": topK}
	case capability.ToolWebSearch:
		return map[string]any{"query": state.Query}
	case capability.ToolPolicyCompare:
		itemA, itemB := splitComparison(state.Query)
		return map[string]any{
			"itemA":          itemA,
			"itemB":          itemB,
			"topic":          state.Topic,
			"comparisonType": comparisonType(state.Query),
		}
	case capability.ToolFactCheck:
		return map[string]any{"claim": state.Query, "topic": state.Topic}
	case capability.ToolContentPlan:
		return map[string]any{"request": state.Query, "topic": state.Topic, "difficulty": state.Difficulty}
	default:
		return map[string]any{"query": state.Query}
	}
}

// splitComparison extracts the two compared items from a query by stripping
// leading question words and splitting on the first comparison connective.
// When no connective is present the whole cleaned query becomes itemA.
func splitComparison(query string) (string, string) {
	cleaned := strings.ToLower(strings.TrimSpace(query))
	cleaned = strings.TrimSuffix(cleaned, "?")
	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(cleaned, prefix) {
			cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, prefix))
			break
		}
	}
	for _, conn := range comparisonConnectives {
		if idx := strings.Index(cleaned, conn); idx >= 0 {
			itemA := strings.TrimSpace(cleaned[:idx])
			itemB := strings.TrimSpace(cleaned[idx+len(conn):])
			if itemA != "" && itemB != "" {
				return itemA, itemB
			}
		}
	}
	return cleaned, ""
}

func comparisonType(query string) string {
	lowered := strings.ToLower(query)
	if strings.Contains(lowered, "better") || strings.Contains(lowered, "should i") {
		return "recommendation"
	}
	return "difference"
}

// chooseSearchTool resolves the ambiguous generic "search" step with one
// generative call, falling back to internal search on any failure.
func (s *ToolSelector) chooseSearchTool(ctx context.Context, state *AgentState, step string) string {
	prompt := fmt.Sprintf(`An HR assistant must pick a search tool for this plan step.

QUESTION: %s
STEP: %s

Pick "knowledge_search" for anything the internal HR handbook can answer
(policies, benefits, leave, payroll, onboarding). Pick "web_search" only for
external information such as laws, regulations, or market data.

OUTPUT FORMAT (JSON):
{"tool": "knowledge_search"}

Return ONLY strict JSON matching the format above.`, state.Query, step)

	model := s.config.LLM.Routing.Selection
	response, err := generateText(ctx, s.provider, s.telemetry, state, "selection", model, prompt, nil)
	if err != nil {
		s.logger.Printf("search tool choice failed, defaulting to internal search: %v", err)
		return capability.ToolKnowledgeSearch
	}

	var choice struct {
		Tool string `json:"tool"`
	}
	if err := decodeStrictJSON(response, &choice); err != nil {
		s.logger.Printf("search tool choice unparseable, defaulting to internal search: %v", err)
		return capability.ToolKnowledgeSearch
	}
	switch strings.TrimSpace(strings.ToLower(choice.Tool)) {
	case capability.ToolWebSearch:
		return capability.ToolWebSearch
	default:
		return capability.ToolKnowledgeSearch
	}
}
