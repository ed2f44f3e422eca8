package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/config"
)

// Document is one ranked retrieval hit.
type Document struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}

// Retriever returns ranked documents relevant to a user's query. The
// vector index itself lives in an external service; this is its contract.
type Retriever interface {
	Search(ctx context.Context, userID, query string) ([]Document, error)
}

// Client is the HTTP retriever implementation.
type Client struct {
	baseURL string
	topK    int
	client  *http.Client
	logger  *zap.Logger
}

// NewClient builds a retriever client from config.
func NewClient(cfg *config.RetrievalConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Client{
		baseURL: cfg.BaseURL,
		topK:    topK,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Search returns up to topK documents for the query. Retrieval failures are
// reported to the caller, which may choose to answer without context.
func (c *Client) Search(ctx context.Context, userID, query string) ([]Document, error) {
	body, err := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"query":   query,
		"top_k":   c.topK,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("retrieval build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("retrieval unexpected status %d: %s", resp.StatusCode, string(msg))
	}

	var out struct {
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("retrieval decode response: %w", err)
	}
	return out.Documents, nil
}
