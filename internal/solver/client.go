// Package solver dispatches assembled payloads to the external
// constraint solver over HTTP. The call is fire-and-forget: the solver
// reports asynchronously via the payload's callback URL.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rush86999/atomic-sub002/internal/metrics"
	"github.com/rush86999/atomic-sub002/internal/models"
)

const defaultSolvePath = "/api/v1/solve"

// Client posts planner payloads to the solve endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	solvePath  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithSolvePath overrides the solve endpoint path.
func WithSolvePath(path string) Option {
	return func(c *Client) { c.solvePath = path }
}

// WithRateLimit caps dispatches per second with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient constructs a client with baseURL and API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		solvePath:  defaultSolvePath,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Solve posts the payload. Only the status code is consumed; the solver
// calls back out-of-band.
func (c *Client) Solve(ctx context.Context, payload *models.PlannerPayload) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("solver: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.solvePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("solver: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("solver: dispatch: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveDispatchDuration(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("solver: dispatch returned status %d", resp.StatusCode)
	}
	return nil
}
