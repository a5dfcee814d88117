package domain

import (
	"fmt"
	"strings"
	"time"
)

// ObjectKind selects which versioned object family an operation targets.
type ObjectKind uint8

const (
	KindDecision ObjectKind = iota
	KindTruth
)

// ParseObjectKind accepts "decision"/"decisions" and "truth".
func ParseObjectKind(s string) (ObjectKind, bool) {
	switch strings.ToLower(s) {
	case "decision", "decisions":
		return KindDecision, true
	case "truth", "truths":
		return KindTruth, true
	}
	return 0, false
}

func (k ObjectKind) String() string {
	if k == KindTruth {
		return "truth"
	}
	return "decision"
}

// ObjectLabel is the node label of the stable object.
func (k ObjectKind) ObjectLabel() string {
	if k == KindTruth {
		return LabelTruthObject
	}
	return LabelDecision
}

// VersionLabel is the node label of one version in the chain.
func (k ObjectKind) VersionLabel() string {
	if k == KindTruth {
		return LabelTruthVersion
	}
	return LabelDecisionVersion
}

// IDProperty is the property carrying the business id on the object node.
func (k ObjectKind) IDProperty() string {
	if k == KindTruth {
		return "truth_id"
	}
	return "decision_id"
}

// VersionIDProperty is the property carrying "<id>:v<n>" on version nodes.
func (k ObjectKind) VersionIDProperty() string {
	if k == KindTruth {
		return "truth_version_id"
	}
	return "decision_version_id"
}

// Node labels.
const (
	LabelEmployee         = "Employee"
	LabelDecision         = "Decision"
	LabelDecisionVersion  = "DecisionVersion"
	LabelTruthObject      = "TruthObject"
	LabelTruthVersion     = "TruthVersion"
	LabelConversationTurn = "ConversationTurn"
)

// Edge types.
const (
	EdgeCurrent        = "CURRENT"
	EdgeSupersedes     = "SUPERSEDES"
	EdgeParticipatedIn = "PARTICIPATED_IN"
	EdgeSaid           = "SAID"
)

// TruthKindDefault tags truth objects created by synthesis.
const TruthKindDefault = "org_truth"

// VersionKey renders the key of a version node.
func VersionKey(objectID string, version int64) string {
	return fmt.Sprintf("%s:v%d", objectID, version)
}

// VersionWrite describes one version to append to a chain.
type VersionWrite struct {
	Kind     ObjectKind
	ObjectID string
	// Version is honored by PersistVersion only; AppendVersion computes it.
	Version int64
	Summary string
	// Tag is the decision label for decisions and the kind tag for truths.
	Tag            string
	Confidence     float64
	TriggerEvents  []string
	AgentsInvolved []string
	Routing        map[string]VisibilityLevel
	CreatedAt      time.Time
}

// VersionResult reports what a version write created.
type VersionResult struct {
	Version int64   `json:"version"`
	NodeIDs []int64 `json:"nodes"`
	EdgeIDs []int64 `json:"edges"`
}

// ObjectVersion is one version of a chain as read back from the graph.
type ObjectVersion struct {
	Kind           ObjectKind                 `json:"-"`
	ObjectID       string                     `json:"object_id"`
	ObjectTag      string                     `json:"kind,omitempty"`
	Version        int64                      `json:"version"`
	VersionID      string                     `json:"version_id"`
	Summary        string                     `json:"summary"`
	Decision       string                     `json:"decision,omitempty"`
	Confidence     float64                    `json:"confidence"`
	TriggerEvents  []string                   `json:"trigger_events"`
	AgentsInvolved []string                   `json:"agents_involved"`
	RoutingAgents  []string                   `json:"routing_agents"`
	Routing        map[string]VisibilityLevel `json:"routing"`
	Current        bool                       `json:"current"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// GraphNode is a node in a snapshot, with its chosen display label.
type GraphNode struct {
	ID         int64          `json:"id"`
	Labels     []string       `json:"labels"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

type GraphEdge struct {
	ID         int64          `json:"id"`
	Type       string         `json:"type"`
	From       int64          `json:"from"`
	To         int64          `json:"to"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

type Snapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

var displayKeys = []string{
	"name", "label", "summary", "decision", "truth_id", "employee_id",
	"team_id", "topic", "decision_id", "decision_version_id", "truth_version_id",
}

// DisplayLabel picks the first non-empty string property by priority,
// falling back to "<PrimaryLabel>:<id>".
func DisplayLabel(labels []string, props map[string]any, id int64) string {
	for _, key := range displayKeys {
		if s, ok := props[key].(string); ok && s != "" {
			return s
		}
	}
	primary := "Node"
	if len(labels) > 0 {
		primary = labels[0]
	}
	return fmt.Sprintf("%s:%d", primary, id)
}

// EdgeDisplayLabel prefers name, then label, then the edge type.
func EdgeDisplayLabel(edgeType string, props map[string]any) string {
	for _, key := range []string{"name", "label"} {
		if s, ok := props[key].(string); ok && s != "" {
			return s
		}
	}
	return edgeType
}
