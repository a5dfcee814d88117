package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/orgbrain/internal/api/middleware"
	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"go.uber.org/zap"
)

type AskHandler struct {
	svc    *service.ReasoningService
	logger *zap.Logger
}

func NewAskHandler(svc *service.ReasoningService, logger *zap.Logger) *AskHandler {
	return &AskHandler{svc: svc, logger: logger}
}

type askRequest struct {
	Text          string `json:"text"`
	AudioBase64   string `json:"audio_base64"`
	AudioMime     string `json:"audio_mime"`
	AgentID       string `json:"agent_id"`
	EmployeeName  string `json:"employee_name"`
	ResponseAudio bool   `json:"response_audio"`
}

type askResponse struct {
	ResponseText string                 `json:"response_text"`
	Trace        *domain.ReasoningTrace `json:"trace"`
	AudioBase64  string                 `json:"audio_base64,omitempty"`
	AudioMime    string                 `json:"audio_mime,omitempty"`
}

// askIdentity resolves the caller: header or query first, then the body's
// employee_name, then its agent_id.
func askIdentity(r *http.Request, req askRequest) string {
	if v := middleware.ViewerFromContext(r.Context()); v != "" {
		return v
	}
	if name := strings.TrimSpace(req.EmployeeName); name != "" {
		return domain.AgentIDFromName(name)
	}
	return strings.TrimSpace(req.AgentID)
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agentID := askIdentity(r, req)
	if agentID == "" {
		writeError(w, http.StatusBadRequest, errMissingIdentity)
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		encoded := strings.TrimSpace(req.AudioBase64)
		if encoded == "" {
			writeError(w, http.StatusBadRequest, "provide either non-empty text or audio_base64")
			return
		}
		audio, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			writeError(w, http.StatusBadRequest, "audio_base64 must be valid base64")
			return
		}
		text, err = h.svc.Transcribe(r.Context(), audio, req.AudioMime)
		if err != nil {
			h.logger.Error("transcription failed", zap.String("agent_id", agentID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	res, err := h.svc.Ask(r.Context(), agentID, text)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := askResponse{ResponseText: res.ResponseText, Trace: res.Trace}
	if req.ResponseAudio {
		audio, mime, err := h.svc.Speak(r.Context(), res.ResponseText)
		if err != nil {
			h.logger.Error("speech synthesis failed", zap.String("agent_id", agentID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
		resp.AudioMime = mime
	}

	writeJSON(w, http.StatusOK, resp)
}
