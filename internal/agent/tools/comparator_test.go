package tools

import (
	"context"
	"strings"
	"testing"
)

func TestPolicyCompareGeneratesComparison(t *testing.T) {
	index := buildIndex(t,
		closeDoc("pto", "PTO accrues at 1.25 days per month and is paid out on departure", "handbook/pto"),
		nearDoc("sick", "Sick leave is 10 days per year and does not carry over", "handbook/sick-leave"),
	)
	gen := &stubGenerator{script: []string{
		`{"summary": "PTO accrues monthly and pays out; sick leave is a flat annual grant.", "keyDifferences": ["accrual", "payout"], "recommendation": ""}`,
	}}
	tool := NewPolicyCompare(index, gen, testTel(), "test-model")

	result, err := tool.Run(context.Background(), map[string]any{
		"itemA":          "pto",
		"itemB":          "sick leave",
		"topic":          "benefits",
		"comparisonType": "difference",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(result["summary"].(string), "PTO accrues monthly") {
		t.Fatalf("summary = %v", result["summary"])
	}
	if result["comparisonType"] != "difference" {
		t.Fatalf("comparisonType = %v", result["comparisonType"])
	}
	sources := result["sources"].([]string)
	if len(sources) == 0 {
		t.Fatalf("sources must carry the handbook citations")
	}
	if gen.calls != 1 {
		t.Fatalf("expected one generative call, got %d", gen.calls)
	}
	if !strings.Contains(gen.prompts[0], `EVIDENCE FOR "pto"`) || !strings.Contains(gen.prompts[0], `EVIDENCE FOR "sick leave"`) {
		t.Fatalf("both sides must be retrieved into the prompt")
	}
}

func TestPolicyCompareFallbackKeepsEvidence(t *testing.T) {
	index := buildIndex(t,
		closeDoc("pto", "PTO accrues at 1.25 days per month", "handbook/pto"),
	)
	gen := &stubGenerator{} // generation fails
	tool := NewPolicyCompare(index, gen, testTel(), "test-model")

	result, err := tool.Run(context.Background(), map[string]any{"itemA": "pto", "itemB": "sick leave"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(result["summary"].(string), "unavailable") {
		t.Fatalf("fallback summary must say the comparison was unavailable: %v", result["summary"])
	}
	if _, ok := result["evidence"]; !ok {
		t.Fatalf("fallback must attach the retrieved evidence")
	}
}

func TestPolicyCompareSingleItem(t *testing.T) {
	index := buildIndex(t,
		closeDoc("pto", "PTO accrues at 1.25 days per month", "handbook/pto"),
	)
	gen := &stubGenerator{script: []string{
		`{"summary": "PTO accrues monthly.", "keyDifferences": [], "recommendation": ""}`,
	}}
	tool := NewPolicyCompare(index, gen, testTel(), "test-model")

	result, err := tool.Run(context.Background(), map[string]any{"itemA": "pto"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(gen.prompts[0], `EVIDENCE FOR ""`) {
		t.Fatalf("empty itemB must not be retrieved")
	}
	if result["summary"] != "PTO accrues monthly." {
		t.Fatalf("summary = %v", result["summary"])
	}
}

func TestPolicyCompareRequiresItemA(t *testing.T) {
	tool := NewPolicyCompare(buildIndex(t), &stubGenerator{}, testTel(), "test-model")
	if _, err := tool.Run(context.Background(), map[string]any{"itemB": "sick leave"}); err == nil {
		t.Fatalf("missing itemA must be an error")
	}
}
