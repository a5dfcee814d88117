package handlers

import (
	"net/http"
	"strings"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"github.com/go-chi/chi/v5"
)

const (
	defaultSnapshotLimit = 5000
	defaultCurrentLimit  = 200
)

type GraphHandler struct {
	svc *service.ReasoningService
}

func NewGraphHandler(svc *service.ReasoningService) *GraphHandler {
	return &GraphHandler{svc: svc}
}

type versionListResponse struct {
	Kind     string                 `json:"kind"`
	Versions []domain.ObjectVersion `json:"versions"`
}

type historyResponse struct {
	Kind     string                 `json:"kind"`
	ObjectID string                 `json:"object_id"`
	Versions []domain.ObjectVersion `json:"versions"`
}

func (h *GraphHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context(), queryLimit(r, defaultSnapshotLimit))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// AgentSnapshot returns the version nodes routed to agent_id and their
// immediate neighborhood.
func (h *GraphHandler) AgentSnapshot(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}
	agentID := chi.URLParam(r, "agent_id")
	if !canView(h.svc, viewer, agentID) {
		writeError(w, http.StatusForbidden, errForbidden)
		return
	}

	snap, err := h.svc.AgentSnapshot(r.Context(), agentID, queryLimit(r, defaultSnapshotLimit))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Current lists every object of the kind named in the route with its current
// version.
func (h *GraphHandler) Current(kind domain.ObjectKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versions, err := h.svc.CurrentVersions(r.Context(), kind, queryLimit(r, defaultCurrentLimit))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if versions == nil {
			versions = []domain.ObjectVersion{}
		}
		writeJSON(w, http.StatusOK, versionListResponse{Kind: kind.String(), Versions: versions})
	}
}

// History returns one version chain, newest first.
func (h *GraphHandler) History(kind domain.ObjectKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		versions, err := h.svc.History(r.Context(), kind, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, historyResponse{Kind: kind.String(), ObjectID: id, Versions: versions})
	}
}
