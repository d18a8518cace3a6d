package core

import (
	"context"
	"testing"

	"github.com/hrdesk-ai/hrdesk/internal/capability"
)

func newTestSelector(provider Provider) *ToolSelector {
	return NewToolSelector(testConfig(), provider, testTelemetry())
}

func TestDecideForcedOverrideConsumedAndCleared(t *testing.T) {
	provider := &stubProvider{}
	selector := newTestSelector(provider)
	state := newTestState("How many vacation days do I get?")
	state.Plan = []string{"Use knowledge_search to find the PTO policy"}
	state.CurrentStep = 1 // plan exhausted
	state.SetForcedTool(capability.ToolWebSearch)

	call, ok := selector.Decide(context.Background(), state)
	if !ok {
		t.Fatalf("forced override must produce a call even with the plan exhausted")
	}
	if call.Tool != capability.ToolWebSearch {
		t.Fatalf("expected forced web_search, got %s", call.Tool)
	}
	if call.Reasoning != ReasonForcedByQualityCheck {
		t.Fatalf("forced call must carry the quality-check tag, got %q", call.Reasoning)
	}
	if call.Input["query"] != state.Query {
		t.Fatalf("forced web_search input must map the original query, got %v", call.Input)
	}
	if _, forced := state.ForcedTool(); forced {
		t.Fatalf("override must be cleared immediately after consumption")
	}
	if provider.calls != 0 {
		t.Fatalf("forced path must make zero generative calls, got %d", provider.calls)
	}

	// The next Decide must not see the override again: with the plan
	// exhausted it signals completion.
	if _, ok := selector.Decide(context.Background(), state); ok {
		t.Fatalf("consecutive Decide must not re-select the forced tool")
	}
}

func TestDecidePlanExhaustedSignalsCompletion(t *testing.T) {
	selector := newTestSelector(&stubProvider{})
	state := newTestState("q")
	state.Plan = []string{"only step"}
	state.CurrentStep = 1

	if _, ok := selector.Decide(context.Background(), state); ok {
		t.Fatalf("exhausted plan without override must signal completion")
	}
	if len(state.ToolCalls) != 0 {
		t.Fatalf("completion must not record a tool call")
	}
}

func TestDecideSpecificityPrefersExternalOverGenericSearch(t *testing.T) {
	provider := &stubProvider{}
	selector := newTestSelector(provider)
	state := newTestState("Are there new rules about remote work taxes?")
	state.Plan = []string{"Use web_search to search for recent tax guidance"}

	call, ok := selector.Decide(context.Background(), state)
	if !ok {
		t.Fatalf("expected a call")
	}
	if call.Tool != capability.ToolWebSearch {
		t.Fatalf("step naming web_search must dispatch to it, got %s", call.Tool)
	}
	if provider.calls != 0 {
		t.Fatalf("non-default match must make zero generative calls, got %d", provider.calls)
	}
}

func TestDecideComparatorDirectDispatch(t *testing.T) {
	provider := &stubProvider{}
	selector := newTestSelector(provider)
	state := newTestState("Compare PTO and sick leave")
	state.Topic = "leave"
	state.Plan = []string{"Use policy_compare to compare PTO and sick leave"}

	call, ok := selector.Decide(context.Background(), state)
	if !ok {
		t.Fatalf("expected a call")
	}
	if call.Tool != capability.ToolPolicyCompare {
		t.Fatalf("expected policy_compare, got %s", call.Tool)
	}
	if provider.calls != 0 {
		t.Fatalf("comparator dispatch must make zero generative calls, got %d", provider.calls)
	}
	if call.Input["itemA"] != "pto" || call.Input["itemB"] != "sick leave" {
		t.Fatalf("comparison items not extracted, got %v", call.Input)
	}
	if call.Input["topic"] != "leave" {
		t.Fatalf("comparator input must carry the topic, got %v", call.Input)
	}
}

func TestDecideDefaultsToInternalSearch(t *testing.T) {
	provider := &stubProvider{}
	selector := newTestSelector(provider)
	state := newTestState("What is the dress code?")
	state.Topic = "workplace"
	state.Plan = []string{"Review the relevant documentation"}

	call, ok := selector.Decide(context.Background(), state)
	if !ok {
		t.Fatalf("expected a call")
	}
	if call.Tool != capability.ToolKnowledgeSearch {
		t.Fatalf("unmatched step must default to knowledge_search, got %s", call.Tool)
	}
	if call.Input["query"] != state.Query || call.Input["topic"] != "workplace" {
		t.Fatalf("internal search input mapping wrong: %v", call.Input)
	}
	if call.Input["topK"] != 5 {
		t.Fatalf("expected configured topK 5, got %v", call.Input["topK"])
	}
	if provider.calls != 0 {
		t.Fatalf("default path must make zero generative calls, got %d", provider.calls)
	}
}

func TestDecideAmbiguousSearchUsesGenerativeChoice(t *testing.T) {
	provider := &stubProvider{script: []scriptedReply{
		{text: `{"tool":"web_search"}`},
	}}
	selector := newTestSelector(provider)
	state := newTestState("What are current minimum wage laws?")
	state.Plan = []string{"Search for current minimum wage laws"}

	call, ok := selector.Decide(context.Background(), state)
	if !ok {
		t.Fatalf("expected a call")
	}
	if call.Tool != capability.ToolWebSearch {
		t.Fatalf("expected the generative choice to be honored, got %s", call.Tool)
	}
	if provider.calls != 1 {
		t.Fatalf("ambiguous search must make exactly one generative call, got %d", provider.calls)
	}
}

func TestDecideAmbiguousSearchFallsBackToInternal(t *testing.T) {
	provider := &stubProvider{} // every call fails
	selector := newTestSelector(provider)
	state := newTestState("Look into our holiday schedule")
	state.Plan = []string{"Search for the holiday schedule"}

	call, ok := selector.Decide(context.Background(), state)
	if !ok {
		t.Fatalf("expected a call")
	}
	if call.Tool != capability.ToolKnowledgeSearch {
		t.Fatalf("ambiguous choice failure must fall back to knowledge_search, got %s", call.Tool)
	}
	if provider.calls != 1 {
		t.Fatalf("fallback must not retry the generative choice, got %d calls", provider.calls)
	}
}

func TestDecideRecordsCallAndTrace(t *testing.T) {
	selector := newTestSelector(&stubProvider{})
	state := newTestState("What is the PTO policy?")
	state.Plan = []string{"Use knowledge_search to find the PTO policy"}

	if _, ok := selector.Decide(context.Background(), state); !ok {
		t.Fatalf("expected a call")
	}
	if len(state.ToolCalls) != 1 {
		t.Fatalf("Decide must append exactly one tool call, got %d", len(state.ToolCalls))
	}
	if len(state.ReasoningTrace) == 0 {
		t.Fatalf("Decide must append a trace entry")
	}
	if state.CurrentTool != capability.ToolKnowledgeSearch {
		t.Fatalf("Decide must update the current tool, got %s", state.CurrentTool)
	}
}

func TestSplitComparison(t *testing.T) {
	cases := []struct {
		query string
		itemA string
		itemB string
	}{
		{"What is the difference between PTO and sick leave?", "pto", "sick leave"},
		{"Should I pick the HMO or the PPO?", "the hmo", "the ppo"},
		{"HSA versus FSA", "hsa", "fsa"},
		{"Compare remote work", "remote work", ""},
	}
	for _, tc := range cases {
		itemA, itemB := splitComparison(tc.query)
		if itemA != tc.itemA || itemB != tc.itemB {
			t.Fatalf("splitComparison(%q) = (%q, %q), want (%q, %q)", tc.query, itemA, itemB, tc.itemA, tc.itemB)
		}
	}
}

func TestComparisonType(t *testing.T) {
	if got := comparisonType("Which is better, HMO or PPO?"); got != "recommendation" {
		t.Fatalf("expected recommendation, got %s", got)
	}
	if got := comparisonType("Difference between PTO and sick leave"); got != "difference" {
		t.Fatalf("expected difference, got %s", got)
	}
}

func TestToolFromStepVocabularyOrder(t *testing.T) {
	cases := []struct {
		step string
		tool string
	}{
		{"Use content_plan to outline the announcement", capability.ToolContentPlan},
		{"Draft an outline for the policy", capability.ToolContentPlan},
		{"Use fact_check to verify the claim", capability.ToolFactCheck},
		{"Verify the handbook statement", capability.ToolFactCheck},
		{"Use knowledge_search to check the handbook", capability.ToolKnowledgeSearch},
		{"Check the internal handbook", capability.ToolKnowledgeSearch},
		{"Use web_search to search online", capability.ToolWebSearch},
		{"Search for the answer", genericSearch},
		{"Find the relevant policy", genericSearch},
		{"Summarize the gathered information", capability.ToolKnowledgeSearch},
	}
	for _, tc := range cases {
		if got := toolFromStep(tc.step); got != tc.tool {
			t.Fatalf("toolFromStep(%q) = %s, want %s", tc.step, got, tc.tool)
		}
	}
}
