package httpapi

import (
	"net/http"

	"github.com/advisordesk/orchestrator/internal/db"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	db *db.Client
}

// NewHealthHandler builds the handler.
func NewHealthHandler(client *db.Client) *HealthHandler {
	return &HealthHandler{db: client}
}

// RegisterRoutes attaches health routes to the mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.handleLiveness)
	mux.HandleFunc("/readyz", h.handleReadiness)
}

func (h *HealthHandler) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
