package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/models"
	"github.com/advisordesk/orchestrator/internal/rules"
)

func TestWebhookHandlerRejectsBadRequests(t *testing.T) {
	h := NewWebhookHandler(nil, nil, nil, "hook-secret", zap.NewNop())
	handler := h.handle(models.WaitEmailReply, rules.TriggerEmailReceived)

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/webhooks/email", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("missing bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/email", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/email", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing user id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/email", strings.NewReader(`{"from":"a@b.c"}`))
		req.Header.Set("Authorization", "Bearer hook-secret")
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/email", strings.NewReader(`{`))
		req.Header.Set("Authorization", "Bearer hook-secret")
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthLiveness(t *testing.T) {
	h := NewHealthHandler(nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.handleLiveness(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
