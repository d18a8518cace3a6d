package core

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/hrdesk-ai/hrdesk/internal/capability"
)

func TestSynthesizeWritesAnswerAndSources(t *testing.T) {
	provider := &stubProvider{script: []scriptedReply{
		{text: "You accrue 1.25 PTO days per month (handbook/pto)."},
	}}
	synthesizer := NewResponseSynthesizer(testConfig(), provider, testTelemetry())
	state := newTestState("How does PTO accrue?")
	state.RecordResult(capability.ToolKnowledgeSearch, map[string]any{
		"documents": []any{"PTO accrues monthly"},
		"sources":   []any{"handbook/pto"},
	})

	synthesizer.Synthesize(context.Background(), state)

	if !strings.Contains(state.FinalAnswer, "1.25 PTO days") {
		t.Fatalf("answer not written, got %q", state.FinalAnswer)
	}
	if len(state.SourcesUsed) != 1 || state.SourcesUsed[0] != "handbook/pto" {
		t.Fatalf("sources not collected, got %v", state.SourcesUsed)
	}
	if provider.calls != 1 {
		t.Fatalf("synthesis must make exactly one generative call, got %d", provider.calls)
	}
}

func TestSynthesizeApologyEmbedsErrorAndQuery(t *testing.T) {
	provider := &stubProvider{} // every call fails
	synthesizer := NewResponseSynthesizer(testConfig(), provider, testTelemetry())
	state := newTestState("How does PTO accrue?")

	synthesizer.Synthesize(context.Background(), state)

	if !strings.Contains(state.FinalAnswer, "I'm sorry") {
		t.Fatalf("expected an apology, got %q", state.FinalAnswer)
	}
	if !strings.Contains(state.FinalAnswer, state.Query) {
		t.Fatalf("apology must embed the original question, got %q", state.FinalAnswer)
	}
	if !strings.Contains(state.FinalAnswer, "error") {
		t.Fatalf("apology must embed the failure, got %q", state.FinalAnswer)
	}
}

func TestSynthesizeRejectsBlankAnswer(t *testing.T) {
	provider := &stubProvider{script: []scriptedReply{{text: "   \n"}}}
	synthesizer := NewResponseSynthesizer(testConfig(), provider, testTelemetry())
	state := newTestState("q")

	synthesizer.Synthesize(context.Background(), state)

	if !strings.Contains(state.FinalAnswer, "I'm sorry") {
		t.Fatalf("blank reply must degrade to the apology, got %q", state.FinalAnswer)
	}
}

func TestCollectSourcesDeduplicatesAcrossTools(t *testing.T) {
	results := map[string]map[string]any{
		"a": {"sources": []any{"x", "y"}},
		"b": {"topK": []any{"y", "z"}},
	}

	got := CollectSources(results)
	sort.Strings(got)

	want := []string{"x", "y", "z"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCollectSourcesIgnoresScalarFields(t *testing.T) {
	results := map[string]map[string]any{
		"a": {"topK": 5, "sources": []any{"x"}},
	}

	got := CollectSources(results)
	if len(got) != 1 || got[0] != "x" {
		t.Fatalf("scalar topK must be ignored, got %v", got)
	}
}

func TestCollectSourcesStringifiesEntries(t *testing.T) {
	results := map[string]map[string]any{
		"a": {"sources": []any{42, "x"}},
	}

	got := CollectSources(results)
	sort.Strings(got)

	if len(got) != 2 || got[0] != "42" || got[1] != "x" {
		t.Fatalf("entries must be stringified, got %v", got)
	}
}
