package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/advisordesk/orchestrator/internal/circuitbreaker"
	"github.com/advisordesk/orchestrator/internal/config"
	"github.com/advisordesk/orchestrator/internal/metrics"
)

// Analyzer is the tools-disabled LLM contract used for reply-intent
// analysis. The engine depends only on this interface.
type Analyzer interface {
	Analyze(ctx context.Context, userID, prompt string) (string, error)
}

// Completer is the conversational contract used by the simple Q&A path.
type Completer interface {
	Complete(ctx context.Context, userID, prompt string, contextDocs []string, history []string) (string, error)
}

// Client talks to the LLM gateway service. All calls go through a shared
// rate limiter and a circuit breaker.
type Client struct {
	baseURL string
	client  *circuitbreaker.HTTPClient
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a gateway client from config.
func NewClient(cfg *config.LLMConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  circuitbreaker.NewHTTPClient(&http.Client{Timeout: timeout}, "llm", logger),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Analyze asks the gateway for a free-text interpretation with tool calling
// disabled. Used only for reply-intent analysis; a failure here is a task
// failure, never silently defaulted to a guessed classification.
func (c *Client) Analyze(ctx context.Context, userID, prompt string) (string, error) {
	return c.ask(ctx, "analyze", map[string]interface{}{
		"user_id":     userID,
		"prompt":      prompt,
		"allow_tools": false,
	})
}

// Complete answers a conversational turn, optionally grounded on retrieved
// documents and prior history.
func (c *Client) Complete(ctx context.Context, userID, prompt string, contextDocs []string, history []string) (string, error) {
	return c.ask(ctx, "complete", map[string]interface{}{
		"user_id":      userID,
		"prompt":       prompt,
		"context_docs": contextDocs,
		"history":      history,
	})
}

func (c *Client) ask(ctx context.Context, mode string, payload map[string]interface{}) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.LLMRequests.WithLabelValues(mode, "rate_limited").Inc()
		return "", fmt.Errorf("llm rate limit wait: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/"+mode, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.LLMRequests.WithLabelValues(mode, "error").Inc()
		return "", fmt.Errorf("llm call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.LLMRequests.WithLabelValues(mode, "error").Inc()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("llm unexpected status %d: %s", resp.StatusCode, string(msg))
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.LLMRequests.WithLabelValues(mode, "error").Inc()
		return "", fmt.Errorf("llm decode response: %w", err)
	}

	metrics.LLMRequests.WithLabelValues(mode, "ok").Inc()
	return out.Response, nil
}
