package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type KnowledgeHandler struct {
	svc *service.ReasoningService
}

func NewKnowledgeHandler(svc *service.ReasoningService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type knowledgeRequest struct {
	TruthID  string            `json:"truth_id" validate:"required,notblank"`
	Kind     string            `json:"kind" validate:"required,notblank"`
	Content  string            `json:"content"`
	AgentID  string            `json:"agent_id"`
	Routing  map[string]string `json:"routing" validate:"omitempty,dive,keys,required,endkeys,oneof=full summary none"`
	AddToRAG *bool             `json:"add_to_rag"`
}

type knowledgeResponse struct {
	Trace *domain.ReasoningTrace `json:"trace"`
}

func init() {
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func (h *KnowledgeHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req knowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && strings.HasPrefix(typeErr.Field, "routing") {
			writeError(w, http.StatusBadRequest, "routing must be an object mapping agent_id -> level")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, formatValidationError(err))
		return
	}

	trace, err := h.svc.Ingest(r.Context(), service.IngestRequest{
		TruthID:        req.TruthID,
		Kind:           req.Kind,
		Content:        req.Content,
		AgentID:        req.AgentID,
		Routing:        domain.ParseRouting(req.Routing),
		AddToRetrieval: req.AddToRAG,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, knowledgeResponse{Trace: trace})
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := jsonFieldName(e.StructField())
		switch e.Tag() {
		case "required", "notblank":
			msgs = append(msgs, fmt.Sprintf("%s must be non-empty", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("routing values must be one of: %s", e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func jsonFieldName(structField string) string {
	switch {
	case structField == "TruthID":
		return "truth_id"
	case strings.HasPrefix(structField, "Routing"):
		return "routing"
	default:
		return strings.ToLower(structField)
	}
}
