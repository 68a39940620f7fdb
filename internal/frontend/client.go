package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dewpoint.dev/monitor/pkg/metrics"
	"dewpoint.dev/monitor/pkg/sensor"
)

const (
	endpointCurrent   = "/api/current"
	endpointHistory   = "/api/history"
	endpointFan       = "/api/fan"
	endpointFanToggle = "/api/fan/toggle"

	// maxErrorBody bounds how much of a failed response is read for its message.
	maxErrorBody = 4 << 10
)

// APIClient fetches readings and fan state from the backend.
type APIClient interface {
	Current(ctx context.Context) (sensor.Reading, error)
	History(ctx context.Context) ([]sensor.Reading, error)
	Fan(ctx context.Context) (sensor.FanStatus, error)
	ToggleFan(ctx context.Context) (sensor.FanStatus, error)
}

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// HTTPClient implements APIClient over the backend's JSON API.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	metrics *metrics.DashboardMetrics
}

// NewHTTPClient creates a client for the backend at baseURL. m may be nil.
func NewHTTPClient(baseURL string, timeout time.Duration, m *metrics.DashboardMetrics) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, errors.New("backend URL cannot be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("backend URL must include a host")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPClient{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}, nil
}

func (c *HTTPClient) Current(ctx context.Context) (sensor.Reading, error) {
	var r sensor.Reading
	err := c.do(ctx, http.MethodGet, endpointCurrent, &r)
	return r, err
}

func (c *HTTPClient) History(ctx context.Context) ([]sensor.Reading, error) {
	var h sensor.History
	if err := c.do(ctx, http.MethodGet, endpointHistory, &h); err != nil {
		return nil, err
	}
	return h.Readings, nil
}

func (c *HTTPClient) Fan(ctx context.Context) (sensor.FanStatus, error) {
	var f sensor.FanStatus
	err := c.do(ctx, http.MethodGet, endpointFan, &f)
	return f, err
}

func (c *HTTPClient) ToggleFan(ctx context.Context) (sensor.FanStatus, error) {
	var f sensor.FanStatus
	err := c.do(ctx, http.MethodPost, endpointFanToggle, &f)
	return f, err
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, out any) (err error) {
	if c.metrics != nil {
		timer := prometheus.NewTimer(c.metrics.BackendRequestDuration.WithLabelValues(endpoint))
		defer func() {
			timer.ObserveDuration()
			status := "success"
			if err != nil {
				status = "error"
			}
			c.metrics.BackendRequests.WithLabelValues(endpoint, status).Inc()
		}()
	}

	target := c.baseURL.JoinPath(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}

// errorMessage extracts the message of a JSON error body, falling back to the raw text.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

var _ APIClient = (*HTTPClient)(nil)
