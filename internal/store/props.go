package store

import (
	"sort"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
)

// sqlLimit maps a read limit to a LIMIT parameter. Non-positive limits bind
// NULL, which PostgreSQL treats as no limit.
func sqlLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func objectProperties(w domain.VersionWrite) map[string]any {
	props := map[string]any{
		w.Kind.IDProperty(): w.ObjectID,
	}
	if w.Kind == domain.KindTruth {
		tag := w.Tag
		if tag == "" {
			tag = domain.TruthKindDefault
		}
		props["kind"] = tag
	}
	return props
}

func versionProperties(w domain.VersionWrite, version int64) map[string]any {
	routing := make(map[string]string, len(w.Routing))
	for agent, level := range w.Routing {
		routing[agent] = level.String()
	}
	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	props := map[string]any{
		w.Kind.VersionIDProperty(): domain.VersionKey(w.ObjectID, version),
		"object_id":                w.ObjectID,
		"version":                  version,
		"summary":                  w.Summary,
		"confidence":               w.Confidence,
		"trigger_events":           nonNil(w.TriggerEvents),
		"agents_involved":          nonNil(w.AgentsInvolved),
		"routing_agents":           domain.RoutingAgents(w.Routing),
		"routing":                  routing,
		"created_at":               createdAt.Format(time.RFC3339Nano),
	}
	if w.Kind == domain.KindTruth {
		props["content"] = w.Summary
	} else {
		props["decision"] = w.Tag
	}
	return props
}

func employeeProperties(e domain.Employee) map[string]any {
	name := e.Name
	if name == "" {
		name = e.ID
	}
	return map[string]any{
		"employee_id": e.ID,
		"name":        name,
		"role":        e.Role.String(),
	}
}

// objectVersionFromProps reads a version node. Properties may come straight
// from memory or round-trip through JSON, so numbers and lists are coerced.
func objectVersionFromProps(kind domain.ObjectKind, objectProps, props map[string]any) domain.ObjectVersion {
	routing := make(map[string]domain.VisibilityLevel)
	switch r := props["routing"].(type) {
	case map[string]string:
		for k, v := range r {
			routing[k] = domain.ParseVisibilityLevel(v)
		}
	case map[string]any:
		for k, v := range r {
			s, _ := v.(string)
			routing[k] = domain.ParseVisibilityLevel(s)
		}
	}

	ov := domain.ObjectVersion{
		Kind:           kind,
		ObjectID:       stringProp(props, "object_id"),
		Version:        int64Prop(props, "version"),
		VersionID:      stringProp(props, kind.VersionIDProperty()),
		Summary:        stringProp(props, "summary"),
		Decision:       stringProp(props, "decision"),
		Confidence:     floatProp(props, "confidence"),
		TriggerEvents:  stringsProp(props, "trigger_events"),
		AgentsInvolved: stringsProp(props, "agents_involved"),
		RoutingAgents:  stringsProp(props, "routing_agents"),
		Routing:        routing,
	}
	if objectProps != nil {
		ov.ObjectTag = stringProp(objectProps, "kind")
	}
	if ts, err := time.Parse(time.RFC3339Nano, stringProp(props, "created_at")); err == nil {
		ov.CreatedAt = ts
	}
	return ov
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func floatProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func int64Prop(props map[string]any, key string) int64 {
	switch v := props[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func stringsProp(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func sortVersionsNewestFirst(vs []domain.ObjectVersion) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].CreatedAt.After(vs[j].CreatedAt)
	})
}
