package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/circuitbreaker"
	"github.com/advisordesk/orchestrator/internal/config"
	"github.com/advisordesk/orchestrator/internal/metrics"
)

// HTTPAdapters bundles the per-capability HTTP clients against the external
// tool services (contact directory, mail, calendar, CRM). Each service gets
// its own circuit breaker so a flapping calendar backend does not block
// email sends.
type HTTPAdapters struct {
	contacts *serviceClient
	email    *serviceClient
	calendar *serviceClient
	crm      *serviceClient
}

type serviceClient struct {
	baseURL string
	client  *circuitbreaker.HTTPClient
	tool    string
	logger  *zap.Logger
}

// NewHTTPAdapters builds adapters from config.
func NewHTTPAdapters(cfg *config.AdaptersConfig, logger *zap.Logger) *HTTPAdapters {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	mk := func(base, tool string) *serviceClient {
		return &serviceClient{
			baseURL: base,
			client:  circuitbreaker.NewHTTPClient(&http.Client{Timeout: timeout}, tool, logger),
			tool:    tool,
			logger:  logger,
		}
	}
	return &HTTPAdapters{
		contacts: mk(cfg.ContactsURL, "contacts"),
		email:    mk(cfg.EmailURL, "email"),
		calendar: mk(cfg.CalendarURL, "calendar"),
		crm:      mk(cfg.CRMURL, "crm"),
	}
}

// post sends a JSON request and decodes the JSON response into out.
func (sc *serviceClient) post(ctx context.Context, path string, in, out interface{}) error {
	start := time.Now()
	status := "ok"
	defer func() {
		metrics.ToolCalls.WithLabelValues(sc.tool, status).Inc()
		metrics.ToolCallDuration.WithLabelValues(sc.tool).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(in)
	if err != nil {
		status = "error"
		return fmt.Errorf("%s: marshal request: %w", sc.tool, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.baseURL+path, bytes.NewReader(body))
	if err != nil {
		status = "error"
		return fmt.Errorf("%s: build request: %w", sc.tool, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		status = "error"
		return fmt.Errorf("%s: call failed: %w", sc.tool, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status = "error"
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: unexpected status %d: %s", sc.tool, resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			status = "error"
			return fmt.Errorf("%s: decode response: %w", sc.tool, err)
		}
	}
	return nil
}

// FindContact implements ContactDirectory.
func (a *HTTPAdapters) FindContact(ctx context.Context, userID, nameHint, contextHint string) ([]Contact, error) {
	var out struct {
		EmailsFound []Contact `json:"emails_found"`
	}
	err := a.contacts.post(ctx, "/contacts/find", map[string]string{
		"user_id": userID,
		"name":    nameHint,
		"context": contextHint,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.EmailsFound, nil
}

// SendEmail implements EmailSender.
func (a *HTTPAdapters) SendEmail(ctx context.Context, userID string, msg EmailMessage) (EmailReceipt, error) {
	var out EmailReceipt
	err := a.email.post(ctx, "/messages/send", struct {
		UserID string `json:"user_id"`
		EmailMessage
	}{UserID: userID, EmailMessage: msg}, &out)
	if err != nil {
		return EmailReceipt{}, err
	}
	a.email.logger.Debug("Email sent",
		zap.String("user_id", userID),
		zap.String("message_id", out.MessageID),
	)
	return out, nil
}

// CreateEvent implements CalendarClient.
func (a *HTTPAdapters) CreateEvent(ctx context.Context, userID string, ev CalendarEvent) (EventReceipt, error) {
	var out EventReceipt
	err := a.calendar.post(ctx, "/events", struct {
		UserID string `json:"user_id"`
		CalendarEvent
	}{UserID: userID, CalendarEvent: ev}, &out)
	if err != nil {
		return EventReceipt{}, err
	}
	return out, nil
}

// UpsertContact implements CRMClient.
func (a *HTTPAdapters) UpsertContact(ctx context.Context, userID string, c CRMContact) (CRMReceipt, error) {
	var out CRMReceipt
	err := a.crm.post(ctx, "/contacts/upsert", struct {
		UserID string `json:"user_id"`
		CRMContact
	}{UserID: userID, CRMContact: c}, &out)
	if err != nil {
		return CRMReceipt{}, err
	}
	return out, nil
}
