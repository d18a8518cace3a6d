package core

import "testing"

func TestForcedToolLifecycle(t *testing.T) {
	state := newTestState("q")

	if _, ok := state.ForcedTool(); ok {
		t.Fatalf("fresh state must have no forced tool")
	}

	state.SetForcedTool("web_search")
	name, ok := state.ForcedTool()
	if !ok || name != "web_search" {
		t.Fatalf("expected forced web_search, got %q (%t)", name, ok)
	}

	state.ClearForcedTool()
	if _, ok := state.ForcedTool(); ok {
		t.Fatalf("ClearForcedTool must remove the override")
	}
	// Clearing twice is a no-op.
	state.ClearForcedTool()
	if _, ok := state.ForcedTool(); ok {
		t.Fatalf("repeated clear must stay cleared")
	}
}

func TestRecordResultOverwrites(t *testing.T) {
	state := newTestState("q")
	state.RecordResult("knowledge_search", map[string]any{"answer": "old"})
	state.RecordResult("knowledge_search", map[string]any{"answer": "new"})

	if len(state.ToolResults) != 1 {
		t.Fatalf("expected one entry per tool, got %d", len(state.ToolResults))
	}
	if state.ToolResults["knowledge_search"]["answer"] != "new" {
		t.Fatalf("later result must overwrite earlier one")
	}
}

func TestToolCallsAppendOnly(t *testing.T) {
	state := newTestState("q")
	state.RecordCall(ToolCall{Tool: "a"})
	state.RecordCall(ToolCall{Tool: "b"})
	state.RecordCall(ToolCall{Tool: "a"})

	if len(state.ToolCalls) != 3 {
		t.Fatalf("expected 3 calls recorded, got %d", len(state.ToolCalls))
	}
	if state.CurrentTool != "a" {
		t.Fatalf("current tool must track the latest call, got %s", state.CurrentTool)
	}
	used := state.ToolsUsed()
	if len(used) != 2 || used[0] != "a" || used[1] != "b" {
		t.Fatalf("ToolsUsed must dedupe in first-call order, got %v", used)
	}
}

func TestNewAgentStateDefaultsIterationCap(t *testing.T) {
	state := NewAgentState("q", "", "", 0)
	if state.MaxIterations != DefaultMaxIterations {
		t.Fatalf("expected default cap %d, got %d", DefaultMaxIterations, state.MaxIterations)
	}
}
