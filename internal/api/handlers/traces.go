package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"github.com/go-chi/chi/v5"
)

const defaultTraceLimit = 50

type TraceHandler struct {
	svc *service.ReasoningService
}

func NewTraceHandler(svc *service.ReasoningService) *TraceHandler {
	return &TraceHandler{svc: svc}
}

type traceListResponse struct {
	Traces []*domain.ReasoningTrace `json:"traces"`
}

type agentTraceListResponse struct {
	AgentID string                   `json:"agent_id"`
	Traces  []*domain.ReasoningTrace `json:"traces"`
}

// List returns the unredacted trace log. Only the organization head may read it.
func (h *TraceHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}
	if h.svc.RoleOf(viewer) != domain.RoleCEO {
		writeError(w, http.StatusForbidden, errForbidden)
		return
	}
	writeJSON(w, http.StatusOK, traceListResponse{Traces: h.svc.Traces(queryLimit(r, defaultTraceLimit))})
}

// ForAgent returns the traces agent_id may see, redacted for that agent.
func (h *TraceHandler) ForAgent(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}
	agentID := chi.URLParam(r, "agent_id")
	if !canView(h.svc, viewer, agentID) {
		writeError(w, http.StatusForbidden, errForbidden)
		return
	}

	writeJSON(w, http.StatusOK, agentTraceListResponse{
		AgentID: agentID,
		Traces:  h.svc.TracesFor(agentID, queryLimit(r, defaultTraceLimit)),
	})
}
