package domain

import (
	"encoding/json"
	"testing"
)

func TestDisplayLabel(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		props  map[string]any
		want   string
	}{
		{"name wins", []string{"Employee"}, map[string]any{"name": "Sarah", "employee_id": "employee_sarah"}, "Sarah"},
		{"summary before ids", []string{"DecisionVersion"}, map[string]any{"summary": "Ship it", "decision_version_id": "d1:v1"}, "Ship it"},
		{"truth id", []string{"TruthObject"}, map[string]any{"truth_id": "pricing_policy", "kind": "policy"}, "pricing_policy"},
		{"empty string skipped", []string{"Decision"}, map[string]any{"name": "", "decision_id": "d1"}, "d1"},
		{"non-string skipped", []string{"Decision"}, map[string]any{"name": 5}, "Decision:42"},
		{"fallback", []string{"ConversationTurn"}, map[string]any{}, "ConversationTurn:42"},
		{"no labels", nil, nil, "Node:42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayLabel(tt.labels, tt.props, 42); got != tt.want {
				t.Errorf("DisplayLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEdgeDisplayLabel(t *testing.T) {
	if got := EdgeDisplayLabel(EdgeCurrent, nil); got != "CURRENT" {
		t.Errorf("expected type fallback, got %q", got)
	}
	if got := EdgeDisplayLabel(EdgeSaid, map[string]any{"label": "said"}); got != "said" {
		t.Errorf("expected label property, got %q", got)
	}
}

func TestVersionKey(t *testing.T) {
	if got := VersionKey("pricing_policy", 2); got != "pricing_policy:v2" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestVisibilityLevel_JSONBoundary(t *testing.T) {
	var routing map[string]VisibilityLevel
	if err := json.Unmarshal([]byte(`{"a":"full","b":"SUMMARY","c":"bogus"}`), &routing); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if routing["a"] != VisibilityFull || routing["b"] != VisibilitySummary || routing["c"] != VisibilityNone {
		t.Fatalf("unexpected levels: %v", routing)
	}

	out, err := json.Marshal(map[string]VisibilityLevel{"a": VisibilitySummary})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":"summary"}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestRoutingAgents(t *testing.T) {
	got := RoutingAgents(map[string]VisibilityLevel{
		"employee_sarah": VisibilitySummary,
		"employee_bob":   VisibilityNone,
		"employee_john":  VisibilityFull,
	})
	if len(got) != 2 || got[0] != "employee_john" || got[1] != "employee_sarah" {
		t.Fatalf("unexpected routing agents %v", got)
	}
}

func TestAgentIDFromName(t *testing.T) {
	tests := map[string]string{
		"Sarah":         "employee_sarah",
		" Mary Ann ":    "employee_mary_ann",
		"employee_bob":  "employee_bob",
		"EMPLOYEE_JOHN": "employee_john",
		"":              "",
	}
	for in, want := range tests {
		if got := AgentIDFromName(in); got != want {
			t.Errorf("AgentIDFromName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseEventType(t *testing.T) {
	if ParseEventType("Decision_Signal") != EventDecisionSignal {
		t.Error("expected decision_signal")
	}
	if ParseEventType("rumor") != EventUpdate {
		t.Error("expected unknown to map to update")
	}
}

func TestTraceClone_Independent(t *testing.T) {
	orig := &ReasoningTrace{
		Evidence: []string{"e1"},
		Routing:  map[string]VisibilityLevel{"a": VisibilityFull},
	}
	c := orig.Clone()
	c.Evidence[0] = "changed"
	c.Routing["a"] = VisibilityNone

	if orig.Evidence[0] != "e1" || orig.Routing["a"] != VisibilityFull {
		t.Fatal("clone shares state with original")
	}
}
