package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
)

type contextKey string

const viewerContextKey contextKey = "viewer"

const (
	// APIKeyHeader carries the shared secret when one is configured.
	APIKeyHeader = "X-API-Key"
	// EmployeeHeader names the calling employee.
	EmployeeHeader = "X-Employee-Name"
	employeeQuery  = "employee_name"
)

// ViewerFromContext returns the agent id resolved by Identity, or "".
func ViewerFromContext(ctx context.Context) string {
	v, _ := ctx.Value(viewerContextKey).(string)
	return v
}

// WithViewer stores an agent id in ctx.
func WithViewer(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, viewerContextKey, agentID)
}

// APIKey rejects requests whose X-API-Key differs from key. An empty key
// disables the check.
func APIKey(key string) func(http.Handler) http.Handler {
	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			got := []byte(r.Header.Get(APIKeyHeader))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ResolveViewer derives the caller's agent id from the X-Employee-Name header
// or the employee_name query parameter.
func ResolveViewer(r *http.Request) string {
	if name := strings.TrimSpace(r.Header.Get(EmployeeHeader)); name != "" {
		return domain.AgentIDFromName(name)
	}
	if name := strings.TrimSpace(r.URL.Query().Get(employeeQuery)); name != "" {
		return domain.AgentIDFromName(name)
	}
	return ""
}

// Identity stores the resolved viewer in the request context. Requests
// without one pass through; handlers decide whether identity is required.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if viewer := ResolveViewer(r); viewer != "" {
			r = r.WithContext(WithViewer(r.Context(), viewer))
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
