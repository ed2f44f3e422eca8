package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/models"
	"github.com/advisordesk/orchestrator/internal/resume"
	"github.com/advisordesk/orchestrator/internal/rules"
)

const dedupeTTL = 24 * time.Hour

// WebhookHandler ingests provider callbacks (email replies, calendar
// responses), resumes matching waiting tasks, and evaluates the user's
// proactive rules. Deliveries are deduplicated by message id in Redis;
// beyond that, duplicate deliveries are harmless because a task already
// resumed no longer matches as waiting.
type WebhookHandler struct {
	coordinator *resume.Coordinator
	evaluator   *rules.Evaluator
	redis       *redis.Client
	bearerToken string
	logger      *zap.Logger
}

// NewWebhookHandler builds the handler. An empty bearerToken disables auth
// (local development only).
func NewWebhookHandler(coordinator *resume.Coordinator, evaluator *rules.Evaluator, redisClient *redis.Client, bearerToken string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		coordinator: coordinator,
		evaluator:   evaluator,
		redis:       redisClient,
		bearerToken: bearerToken,
		logger:      logger,
	}
}

// RegisterRoutes attaches webhook routes to the mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/webhooks/email", h.handle(models.WaitEmailReply, rules.TriggerEmailReceived))
	mux.HandleFunc("/v1/webhooks/calendar", h.handle(models.WaitCalendarResponse, rules.TriggerCalendarResponse))
}

type webhookEvent struct {
	UserID    string `json:"user_id"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	ThreadID  string `json:"thread_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

func (h *WebhookHandler) handle(kind models.WaitKind, trigger rules.Trigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if h.bearerToken != "" {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != h.bearerToken {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var ev webhookEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.UserID == "" {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}

		if h.isDuplicate(r, kind, ev.MessageID) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"status": "duplicate"})
			return
		}

		payload := map[string]interface{}{
			"from":       ev.From,
			"subject":    ev.Subject,
			"body":       ev.Body,
			"thread_id":  ev.ThreadID,
			"message_id": ev.MessageID,
		}

		outcomes, err := h.coordinator.ResumeFromEvent(r.Context(), ev.UserID, kind, payload)
		if err != nil {
			h.logger.Error("Webhook resume failed",
				zap.String("kind", string(kind)),
				zap.String("user_id", ev.UserID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		fired, err := h.evaluator.EvaluateEvent(r.Context(), ev.UserID, trigger, payload)
		if err != nil {
			// Rules are secondary to resumption; report and move on.
			h.logger.Error("Rule evaluation failed",
				zap.String("user_id", ev.UserID),
				zap.Error(err),
			)
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"resumed":     outcomes,
			"rules_fired": fired,
		})
	}
}

// isDuplicate reserves the message id in Redis; a failed reservation means
// this delivery was already processed. Redis trouble degrades to processing
// the event (resumption itself is idempotent).
func (h *WebhookHandler) isDuplicate(r *http.Request, kind models.WaitKind, messageID string) bool {
	if messageID == "" || h.redis == nil {
		return false
	}
	key := "webhook:" + string(kind) + ":" + messageID
	set, err := h.redis.SetNX(r.Context(), key, 1, dedupeTTL).Result()
	if err != nil {
		h.logger.Warn("Webhook dedupe check failed", zap.Error(err))
		return false
	}
	return !set
}
