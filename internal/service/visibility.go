package service

import (
	"strings"
	"sync"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
)

var (
	hrKeywords       = []string{"hr", "people", "hiring", "policy", "compensation", "performance"}
	engineerKeywords = []string{"engineer", "eng", "tech", "product", "reliab", "infra"}
)

// Directory maps agent ids to organizational roles. Unknown agents are
// engineers.
type Directory struct {
	mu    sync.RWMutex
	roles map[string]domain.Role
}

// NewDirectory seeds the directory from employees, then applies overrides
// (agent id -> role name).
func NewDirectory(employees []domain.Employee, overrides map[string]string) *Directory {
	d := &Directory{roles: make(map[string]domain.Role)}
	for _, e := range employees {
		d.roles[e.ID] = e.Role
	}
	for id, role := range overrides {
		d.roles[id] = domain.ParseRole(role)
	}
	return d
}

func (d *Directory) RoleOf(agentID string) domain.Role {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r, ok := d.roles[agentID]; ok {
		return r
	}
	return domain.RoleEngineer
}

func (d *Directory) Set(agentID string, role domain.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[agentID] = role
}

// Employees lists the directory, for seeding the graph.
func (d *Directory) Employees() []domain.Employee {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Employee, 0, len(d.roles))
	for id, role := range d.roles {
		out = append(out, domain.Employee{ID: id, Role: role, Name: displayName(id)})
	}
	return out
}

func displayName(agentID string) string {
	for _, e := range domain.DefaultEmployees {
		if e.ID == agentID {
			return e.Name
		}
	}
	name := strings.TrimPrefix(agentID, "employee_")
	if name == "" {
		return agentID
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// VisibilityRouter decides how much of a trace each viewer may see.
type VisibilityRouter struct {
	dir *Directory
}

func NewVisibilityRouter(dir *Directory) *VisibilityRouter {
	return &VisibilityRouter{dir: dir}
}

func (r *VisibilityRouter) Directory() *Directory {
	return r.dir
}

// Resolve returns the explicit routing entry for viewer when present,
// otherwise the role default for the trace topic.
func (r *VisibilityRouter) Resolve(trace *domain.ReasoningTrace, viewer string) domain.VisibilityLevel {
	if level, ok := trace.Routing[viewer]; ok {
		return level
	}

	topic := strings.ToLower(trace.Topic)
	switch r.dir.RoleOf(viewer) {
	case domain.RoleCEO:
		return domain.VisibilityFull
	case domain.RoleHR:
		if containsAny(topic, hrKeywords) {
			return domain.VisibilitySummary
		}
	default:
		if containsAny(topic, engineerKeywords) {
			return domain.VisibilitySummary
		}
	}
	return domain.VisibilityNone
}

// Apply returns the redacted copy for level, or false when nothing may be
// delivered.
func (r *VisibilityRouter) Apply(trace *domain.ReasoningTrace, level domain.VisibilityLevel) (*domain.ReasoningTrace, bool) {
	switch level {
	case domain.VisibilityFull:
		return trace.Clone(), true
	case domain.VisibilitySummary:
		c := trace.Clone()
		c.Evidence = []string{}
		c.Assumptions = []string{}
		return c, true
	default:
		return nil, false
	}
}

// Redact resolves and applies in one step.
func (r *VisibilityRouter) Redact(trace *domain.ReasoningTrace, viewer string) (*domain.ReasoningTrace, bool) {
	if viewer == "" {
		return nil, false
	}
	return r.Apply(trace, r.Resolve(trace, viewer))
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
