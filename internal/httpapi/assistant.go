package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/assistant"
	"github.com/advisordesk/orchestrator/internal/auth"
)

// AssistantHandler exposes the natural-language entry point.
type AssistantHandler struct {
	service *assistant.Service
	logger  *zap.Logger
}

// NewAssistantHandler builds the handler.
func NewAssistantHandler(service *assistant.Service, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{service: service, logger: logger}
}

// RegisterRoutes attaches handler routes to the mux.
func (h *AssistantHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/assistant/messages", h.handleMessage)
}

type messageRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

func (h *AssistantHandler) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	reply, err := h.service.HandleRequest(r.Context(), userID, req.SessionID, req.Text)
	if err != nil {
		h.logger.Error("Request handling failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
