package core

import (
	"context"
	"strings"
	"testing"
)

func newTestPlanner(t *testing.T, provider Provider) *PlanGenerator {
	t.Helper()
	return NewPlanGenerator(testConfig(), provider, testTelemetry(), newTestRegistry(t))
}

func TestGeneratePlanParsesStrictJSON(t *testing.T) {
	provider := &stubProvider{script: []scriptedReply{
		{text: `{"plan":["Use knowledge_search to find the PTO policy","Use policy_compare to compare PTO and sick leave"],"queryType":"comparison","primaryTool":"policy_compare"}`},
	}}
	planner := newTestPlanner(t, provider)
	state := newTestState("How do PTO and sick leave differ?")

	planner.GeneratePlan(context.Background(), state)

	if len(state.Plan) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(state.Plan))
	}
	if state.QueryType != QueryComparison {
		t.Fatalf("expected comparison query type, got %s", state.QueryType)
	}
	if state.PrimaryTool != "policy_compare" {
		t.Fatalf("expected policy_compare primary tool, got %s", state.PrimaryTool)
	}
	if provider.calls != 1 {
		t.Fatalf("expected exactly one generative call, got %d", provider.calls)
	}
}

func TestGeneratePlanExtractsJSONFromProse(t *testing.T) {
	provider := &stubProvider{script: []scriptedReply{
		{text: "Here is the plan:\n```json\n{\"plan\":[\"Use knowledge_search to look up parental leave\"],\"queryType\":\"simple_search\",\"primaryTool\":\"knowledge_search\"}\n```"},
	}}
	planner := newTestPlanner(t, provider)
	state := newTestState("What is the parental leave policy?")

	planner.GeneratePlan(context.Background(), state)

	if len(state.Plan) != 1 || !strings.Contains(state.Plan[0], "parental leave") {
		t.Fatalf("expected plan extracted from prose, got %v", state.Plan)
	}
}

func TestGeneratePlanTruncatesToFourSteps(t *testing.T) {
	provider := &stubProvider{script: []scriptedReply{
		{text: `{"plan":["one","two","three","four","five","six"],"queryType":"complex_analysis","primaryTool":"knowledge_search"}`},
	}}
	planner := newTestPlanner(t, provider)
	state := newTestState("Walk me through every benefit we offer")

	planner.GeneratePlan(context.Background(), state)

	if len(state.Plan) != maxPlanSteps {
		t.Fatalf("expected plan truncated to %d steps, got %d", maxPlanSteps, len(state.Plan))
	}
	if state.Plan[3] != "four" {
		t.Fatalf("expected the first four steps kept, got %v", state.Plan)
	}
}

func TestGeneratePlanRetriesOnceThenSucceeds(t *testing.T) {
	provider := &stubProvider{script: []scriptedReply{
		{text: "no json here at all"},
		{text: `{"plan":["Use knowledge_search to find the answer"],"queryType":"simple_search","primaryTool":"knowledge_search"}`},
	}}
	planner := newTestPlanner(t, provider)
	state := newTestState("How many sick days do I get?")

	planner.GeneratePlan(context.Background(), state)

	if provider.calls != 2 {
		t.Fatalf("expected exactly one retry (2 calls), got %d", provider.calls)
	}
	if len(state.Plan) != 1 {
		t.Fatalf("expected the retry's plan to be used, got %v", state.Plan)
	}
}

func TestGeneratePlanFallsBackAfterTwoFailures(t *testing.T) {
	provider := &stubProvider{} // empty script: every call errors
	planner := newTestPlanner(t, provider)
	state := newTestState("How many sick days do I get?")

	planner.GeneratePlan(context.Background(), state)

	if provider.calls != 2 {
		t.Fatalf("expected exactly two attempts before fallback, got %d", provider.calls)
	}
	if len(state.Plan) != 1 {
		t.Fatalf("baseline plan must have one step, got %v", state.Plan)
	}
	if state.PrimaryTool != "knowledge_search" {
		t.Fatalf("baseline primary tool must be knowledge_search, got %s", state.PrimaryTool)
	}
	if state.QueryType != QuerySimpleSearch {
		t.Fatalf("baseline query type must be simple_search, got %s", state.QueryType)
	}
	if toolFromStep(state.Plan[0]) != "knowledge_search" {
		t.Fatalf("baseline step must name the internal search tool, got %q", state.Plan[0])
	}
}

func TestGeneratePlanNormalizesUnknownQueryType(t *testing.T) {
	provider := &stubProvider{script: []scriptedReply{
		{text: `{"plan":["Use knowledge_search to check the handbook"],"queryType":"weird_type","primaryTool":"not_a_tool"}`},
	}}
	planner := newTestPlanner(t, provider)
	state := newTestState("What holidays do we observe?")

	planner.GeneratePlan(context.Background(), state)

	if state.QueryType != QuerySimpleSearch {
		t.Fatalf("unknown query types must normalize to simple_search, got %s", state.QueryType)
	}
	if state.PrimaryTool != "knowledge_search" {
		t.Fatalf("unregistered primary tools must normalize to knowledge_search, got %s", state.PrimaryTool)
	}
}

func TestGeneratePlanDropsBlankSteps(t *testing.T) {
	provider := &stubProvider{script: []scriptedReply{
		{text: `{"plan":["  ","Use knowledge_search to find the policy",""],"queryType":"simple_search","primaryTool":"knowledge_search"}`},
	}}
	planner := newTestPlanner(t, provider)
	state := newTestState("What is the expense policy?")

	planner.GeneratePlan(context.Background(), state)

	if len(state.Plan) != 1 {
		t.Fatalf("expected blank steps dropped, got %v", state.Plan)
	}
}

func TestCreatePlanningPromptNamesTools(t *testing.T) {
	planner := newTestPlanner(t, &stubProvider{})
	prompt := planner.createPlanningPrompt(newTestState("How does the 401k match work?"))

	for _, snippet := range []string{"knowledge_search", "web_search", "OUTPUT FORMAT (JSON)", "queryType"} {
		if !strings.Contains(prompt, snippet) {
			t.Fatalf("prompt missing snippet %q", snippet)
		}
	}
}
