package domain

import "strings"

// VisibilityLevel is how much of a trace a viewer may see.
type VisibilityLevel uint8

const (
	VisibilityNone VisibilityLevel = iota
	VisibilitySummary
	VisibilityFull
)

func (l VisibilityLevel) String() string {
	switch l {
	case VisibilityFull:
		return "full"
	case VisibilitySummary:
		return "summary"
	default:
		return "none"
	}
}

// ParseVisibilityLevel maps unknown values to VisibilityNone.
func ParseVisibilityLevel(s string) VisibilityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return VisibilityFull
	case "summary":
		return VisibilitySummary
	default:
		return VisibilityNone
	}
}

func (l VisibilityLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *VisibilityLevel) UnmarshalText(b []byte) error {
	*l = ParseVisibilityLevel(string(b))
	return nil
}

// ParseRouting converts wire-level routing into typed levels.
func ParseRouting(raw map[string]string) map[string]VisibilityLevel {
	out := make(map[string]VisibilityLevel, len(raw))
	for agent, level := range raw {
		out[agent] = ParseVisibilityLevel(level)
	}
	return out
}

// RoutingAgents lists the agents whose level is not none, sorted.
func RoutingAgents(routing map[string]VisibilityLevel) []string {
	agents := make([]string, 0, len(routing))
	for agent, level := range routing {
		if level != VisibilityNone {
			agents = append(agents, agent)
		}
	}
	sortStrings(agents)
	return agents
}

// Role is an organizational role used for default visibility.
type Role uint8

const (
	RoleEngineer Role = iota
	RoleHR
	RoleCEO
)

func (r Role) String() string {
	switch r {
	case RoleCEO:
		return "ceo"
	case RoleHR:
		return "hr"
	default:
		return "engineer"
	}
}

// ParseRole maps unknown values to RoleEngineer.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ceo":
		return RoleCEO
	case "hr":
		return RoleHR
	default:
		return RoleEngineer
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Employee is a known agent in the organization.
type Employee struct {
	ID   string `json:"employee_id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// DefaultEmployees is the directory seeded at startup.
var DefaultEmployees = []Employee{
	{ID: "employee_john", Name: "John", Role: RoleCEO},
	{ID: "employee_sarah", Name: "Sarah", Role: RoleHR},
	{ID: "employee_bob", Name: "Bob", Role: RoleEngineer},
}

// AgentIDFromName derives a stable agent id from a display name.
func AgentIDFromName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "employee_") {
		return lower
	}
	return "employee_" + strings.Join(strings.Fields(lower), "_")
}
