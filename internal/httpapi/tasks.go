package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/auth"
	"github.com/advisordesk/orchestrator/internal/db"
	"github.com/advisordesk/orchestrator/internal/models"
)

// TaskHandler exposes read access to a user's tasks.
type TaskHandler struct {
	store  *db.TaskStore
	logger *zap.Logger
}

// NewTaskHandler builds the handler.
func NewTaskHandler(store *db.TaskStore, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{store: store, logger: logger}
}

// RegisterRoutes attaches task routes to the mux.
func (h *TaskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/tasks/", h.handleGet)
}

type taskResponse struct {
	Task   *models.Task   `json:"task"`
	Events []db.TaskEvent `json:"events,omitempty"`
}

func (h *TaskHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")
	idPart, suffix, _ := strings.Cut(rest, "/")
	id, err := uuid.Parse(idPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if suffix != "" && suffix != "events" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	task, err := h.store.GetOwned(r.Context(), id, userID)
	if errors.Is(err, db.ErrTaskNotFound) || errors.Is(err, db.ErrNotOwner) {
		// Not-owner reads 404 so task ids do not leak across users.
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.logger.Error("Task fetch failed", zap.String("task_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := taskResponse{Task: task}
	if suffix == "events" {
		events, err := h.store.ListTaskEvents(r.Context(), id)
		if err != nil {
			h.logger.Error("Task events fetch failed", zap.String("task_id", id.String()), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.Events = events
	}
	writeJSON(w, http.StatusOK, resp)
}
