package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/api/middleware"
	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/Harshitk-cp/orgbrain/internal/service"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sseEventName = "cos"

	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsMaxMessageSize = 4 * 1024
)

type streamMessage struct {
	Type string                 `json:"type"`
	Data *domain.ReasoningTrace `json:"data,omitempty"`
}

var connectedMessage = streamMessage{Type: "connected"}

type StreamHandler struct {
	svc       *service.ReasoningService
	keepAlive time.Duration
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

func NewStreamHandler(svc *service.ReasoningService, keepAlive time.Duration, logger *zap.Logger) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = 10 * time.Second
	}
	return &StreamHandler{
		svc:       svc,
		keepAlive: keepAlive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the CORS layer and the API key.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// SSE streams visibility-filtered traces as server-sent events. A caller
// without identity stays connected but never receives traces.
func (h *StreamHandler) SSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	viewer := middleware.ViewerFromContext(r.Context())
	sub := h.svc.Subscribe(viewer)
	defer h.svc.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, connectedMessage); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case trace, open := <-sub.C():
			if !open {
				return
			}
			if err := writeSSE(w, streamMessage{Type: "trace", Data: trace}); err != nil {
				h.logger.Debug("sse write failed", zap.String("viewer", viewer), zap.Error(err))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, msg streamMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sseEventName, b)
	return err
}

// WebSocket is the websocket variant of SSE: same payloads, with ping frames
// instead of keep-alive comments.
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	viewer := middleware.ViewerFromContext(r.Context())
	sub := h.svc.Subscribe(viewer)
	defer h.svc.Unsubscribe(sub)

	// The read pump only services control frames; it ends when the peer goes
	// away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(wsMaxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("websocket read error", zap.String("viewer", viewer), zap.Error(err))
				}
				return
			}
		}
	}()

	if err := h.writeWS(conn, connectedMessage); err != nil {
		return
	}

	pingEvery := h.keepAlive
	if pingEvery >= wsPongWait {
		pingEvery = wsPongWait * 9 / 10
	}
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case trace, open := <-sub.C():
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
				return
			}
			if err := h.writeWS(conn, streamMessage{Type: "trace", Data: trace}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) writeWS(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}
