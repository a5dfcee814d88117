package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/orgbrain/internal/api/middleware"
	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"github.com/Harshitk-cp/orgbrain/internal/store"
)

const (
	errMissingIdentity = "missing x-employee-name"
	errForbidden       = "forbidden"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and store sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrGraphUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrMissingIdentity):
		writeError(w, http.StatusBadRequest, errMissingIdentity)
	case errors.Is(err, service.ErrEmptyInput), errors.Is(err, service.ErrInvalidIngest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// queryLimit reads ?limit=, returning def when absent or not a positive int.
func queryLimit(r *http.Request, def int) int {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// requireViewer returns the caller's agent id or writes a 400.
func requireViewer(w http.ResponseWriter, r *http.Request) (string, bool) {
	viewer := middleware.ViewerFromContext(r.Context())
	if viewer == "" {
		writeError(w, http.StatusBadRequest, errMissingIdentity)
		return "", false
	}
	return viewer, true
}

// canView reports whether viewer may read agentID's scoped data: themselves,
// or the organization head.
func canView(svc *service.ReasoningService, viewer, agentID string) bool {
	return viewer == agentID || svc.RoleOf(viewer) == domain.RoleCEO
}
