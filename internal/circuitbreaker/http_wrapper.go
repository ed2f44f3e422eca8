package circuitbreaker

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPClient wraps an http.Client with a circuit breaker. 5xx responses
// count as failures for breaker accounting; 4xx do not trip the breaker.
type HTTPClient struct {
	client  *http.Client
	breaker *Breaker
}

// NewHTTPClient wraps client with a named breaker using default thresholds.
func NewHTTPClient(client *http.Client, name string, logger *zap.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPClient{
		client:  client,
		breaker: New(name, DefaultConfig(), logger),
	}
}

// Do executes the request through the breaker. When the breaker classified
// a 5xx as a failure, the response is still returned to the caller.
func (hc *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := hc.breaker.Execute(req.Context(), func() error {
		var callErr error
		resp, callErr = hc.client.Do(req)
		if callErr != nil {
			return callErr
		}
		if resp.StatusCode >= 500 {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	})

	if _, ok := err.(*statusError); ok {
		return resp, nil
	}
	return resp, err
}

// State exposes the breaker state for health reporting.
func (hc *HTTPClient) State() State {
	return hc.breaker.State()
}

type statusError struct{ code int }

func (e *statusError) Error() string { return http.StatusText(e.code) }
