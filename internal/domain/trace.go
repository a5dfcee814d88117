package domain

import (
	"sort"
	"time"
)

// GraphUpdates lists the graph ids touched by one synthesis cycle.
type GraphUpdates struct {
	Nodes []int64 `json:"nodes"`
	Edges []int64 `json:"edges"`
}

// ReasoningTrace is the record of one synthesis cycle.
type ReasoningTrace struct {
	DecisionID     string                     `json:"decision_id"`
	Topic          string                     `json:"topic"`
	Summary        string                     `json:"summary"`
	Version        int64                      `json:"version"`
	Rationale      string                     `json:"rationale"`
	Evidence       []string                   `json:"evidence"`
	Assumptions    []string                   `json:"assumptions"`
	TriggerEvents  []string                   `json:"trigger_events"`
	AgentsInvolved []string                   `json:"agents_involved"`
	GraphUpdates   GraphUpdates               `json:"graph_updates"`
	Routing        map[string]VisibilityLevel `json:"routing"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// Clone returns a deep copy so redaction never mutates the shared trace.
func (t *ReasoningTrace) Clone() *ReasoningTrace {
	if t == nil {
		return nil
	}
	c := *t
	c.Evidence = cloneStrings(t.Evidence)
	c.Assumptions = cloneStrings(t.Assumptions)
	c.TriggerEvents = cloneStrings(t.TriggerEvents)
	c.AgentsInvolved = cloneStrings(t.AgentsInvolved)
	c.GraphUpdates = GraphUpdates{
		Nodes: append([]int64{}, t.GraphUpdates.Nodes...),
		Edges: append([]int64{}, t.GraphUpdates.Edges...),
	}
	c.Routing = make(map[string]VisibilityLevel, len(t.Routing))
	for k, v := range t.Routing {
		c.Routing[k] = v
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append(make([]string, 0, len(in)), in...)
}

func sortStrings(s []string) {
	sort.Strings(s)
}
