package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a normalized input.
type EventType uint8

const (
	EventUpdate EventType = iota
	EventDecisionSignal
	EventConcern
	EventClarification
)

var eventTypeNames = map[EventType]string{
	EventUpdate:         "update",
	EventDecisionSignal: "decision_signal",
	EventConcern:        "concern",
	EventClarification:  "clarification",
}

func (t EventType) String() string {
	if s, ok := eventTypeNames[t]; ok {
		return s
	}
	return "update"
}

// ParseEventType maps unknown values to EventUpdate.
func ParseEventType(s string) EventType {
	norm := strings.ToLower(strings.TrimSpace(s))
	for t, name := range eventTypeNames {
		if name == norm {
			return t
		}
	}
	return EventUpdate
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(b []byte) error {
	*t = ParseEventType(string(b))
	return nil
}

// Event is the normalized form of one caller input. Immutable once emitted.
type Event struct {
	ID         uuid.UUID `json:"id"`
	EmittedBy  string    `json:"emitted_by"`
	Type       EventType `json:"event_type"`
	Topic      string    `json:"topic"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	References []string  `json:"references"`
}

// PrivateNote holds per-agent reasoning that is never surfaced to other agents.
type PrivateNote struct {
	AgentID   string    `json:"agent_id"`
	Seq       uint64    `json:"seq"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (n PrivateNote) Key() string {
	return NoteKey(n.AgentID, n.Seq)
}

func NoteKey(agentID string, seq uint64) string {
	return fmt.Sprintf("%s:%d", agentID, seq)
}

// ClampConfidence bounds c to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// ConversationTurn is one line of prompt context for an agent.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)
