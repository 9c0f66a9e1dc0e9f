package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/snapsolve/internal/apierr"
	"github.com/teslashibe/snapsolve/internal/httpc"
)

const providerClient = "client"

// Routes served by the inference backend.
const (
	ProcessImagePath = "/api/process-image"
	HealthPath       = "/api/health"
)

// Client is the Analyzer that talks to an inference backend over HTTP.
type Client struct {
	baseURL string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewClient returns a Client for the configured BaseURL.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, WrapError(providerClient, err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpc.New(cfg.Timeout)
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		http:    hc,
		logger:  cfg.Logger.With("component", "inference.client"),
	}, nil
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Analyze posts req to ProcessImagePath. Any non-2xx status is returned
// as *APIError; a 2xx body is decoded as a Result.
func (c *Client) Analyze(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.Image == "" {
		return nil, WrapError(providerClient, ErrNoImage)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("marshal request: %w", err))
	}

	start := time.Now()
	requestID := uuid.NewString()

	resp, err := c.do(ctx, http.MethodPost, ProcessImagePath, body, requestID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("decode response: %w", err))
	}

	c.logger.Debug("image analyzed",
		"request_id", requestID,
		"has_solution", result.HasSolution(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &result, nil
}

// Health asks the backend whether it is up.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, HealthPath, nil, uuid.NewString())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Close drops idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// do sends one request, retrying transport failures, 429 and 5xx up to
// MaxRetries times. It returns only 2xx responses.
func (c *Client) do(ctx context.Context, method, path string, body []byte, requestID string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, WrapError(providerClient, ctx.Err())
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(providerClient, fmt.Errorf("create request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.http.Do(req)
		switch {
		case err != nil:
			lastErr = WrapError(providerClient, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			c.logger.Warn("request failed", "path", path, "attempt", attempt+1, "error", err)
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return resp, nil
		default:
			apiErr := c.parseError(resp)
			resp.Body.Close()
			lastErr = apiErr
			if !apiErr.IsRetryable() {
				return nil, apiErr
			}
			c.logger.Warn("retrying request", "path", path, "attempt", attempt+1, "status", resp.StatusCode)
		}
	}
	return nil, lastErr
}

// parseError reads a {"error": "..."} body into an *APIError.
func (c *Client) parseError(resp *http.Response) *APIError {
	return apierr.FromResponse("inference", providerClient, resp, func(body []byte) (string, string) {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) != nil {
			return "", ""
		}
		return e.Error, ""
	})
}

var _ Analyzer = (*Client)(nil)
