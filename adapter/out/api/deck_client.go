// Package api is the HTTP client of the todo REST API.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"taskdeck/core/port/out"
	"taskdeck/pkg/apperr"
	"taskdeck/pkg/metrics"
	"taskdeck/pkg/resilience"
	"taskdeck/pkg/response"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 4 << 20

var _ out.API = (*Client)(nil)

// Config holds client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration // per request, on top of the caller's context
}

// Client implements out.API over HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	tokens  oauth2.TokenSource
	breaker *resilience.Breaker
	latency *metrics.LatencyWindow
	log     zerolog.Logger

	mu            sync.RWMutex
	onAuthFailure func()
}

// NewClient creates an API client.
func NewClient(cfg Config, tokens oauth2.TokenSource, httpClient *http.Client, breaker *resilience.Breaker, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.DefaultBreakerConfig("todo-api"), log)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    httpClient,
		tokens:  tokens,
		breaker: breaker,
		latency: metrics.NewLatencyWindow(0),
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

// OnAuthFailure sets the callback run whenever the token is missing,
// expired or rejected with 401.
func (c *Client) OnAuthFailure(fn func()) {
	c.mu.Lock()
	c.onAuthFailure = fn
	c.mu.Unlock()
}

// Breaker returns the circuit breaker guarding the API.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// Latency summarizes recent round trips per operation.
func (c *Client) Latency() map[string]metrics.LatencySummary {
	return c.latency.Summaries()
}

func (c *Client) authFailed(op string, cause error) *apperr.AppError {
	c.log.Warn().Err(cause).Str("op", op).Msg("authentication failed")

	c.mu.RLock()
	fn := c.onAuthFailure
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
	return apperr.Unauthorized("session expired, please sign in again").WithError(cause)
}

// =============================================================================
// Request plumbing
// =============================================================================

// call performs one API request and returns the envelope data. Errors are
// always *apperr.AppError: unauthorized, network or application.
func call[T any](ctx context.Context, c *Client, op, method, path string, body any) (T, error) {
	var zero T

	tok, err := c.tokens.Token()
	if err != nil {
		return zero, c.authFailed(op, err)
	}

	var env response.Envelope[T]
	err = c.breaker.Execute(func() error {
		var rerr error
		env, rerr = roundTrip[T](ctx, c, op, method, path, tok, body)
		return rerr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return zero, apperr.NetworkError(op, err)
	}
	if err != nil {
		return zero, err
	}
	return env.Data, nil
}

func roundTrip[T any](ctx context.Context, c *Client, op, method, path string, tok *oauth2.Token, body any) (response.Envelope[T], error) {
	var env response.Envelope[T]

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return env, apperr.InternalWithError(err)
		}
		reader = bytes.NewReader(data)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return env, apperr.InternalWithError(err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.latency.Record(op, time.Since(start))
	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Msg("request failed")
		return env, apperr.NetworkError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return env, apperr.NetworkError(op, err)
	}

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode == http.StatusUnauthorized {
		return env, c.authFailed(op, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}

	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			// 게이트웨이 오류 페이지 등 → 요청이 서버 앱까지 가지 못함
			return env, apperr.NetworkError(op, fmt.Errorf("status %d", resp.StatusCode))
		}
		return env, apperr.ApplicationError(op, "").WithError(err)
	}
	if !env.Success {
		return env, apperr.ApplicationError(op, env.Message).WithDetail("status", resp.StatusCode)
	}
	return env, nil
}

// requireData rejects a successful envelope without data.
func requireData[T any](op string, v *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.ApplicationError(op, "empty response")
	}
	return v, nil
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}
