package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/bruno-romeu/frontend-ecommerce/internal/logger"
)

const (
	loginPath   = "client/auth/jwt/create/"
	refreshPath = "auth/jwt/refresh/"

	maxResponseBody = 4 << 20
)

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Breaker   *Breaker
	Logger    *zap.Logger
}

// Client talks to the storefront REST API on behalf of one shopper. It keeps
// the shopper's session cookies and bearer token, and retries a request once
// after a silent session refresh when the API answers 401.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *Breaker
	log     *zap.Logger

	mu        sync.RWMutex
	token     string
	onExpired func()
}

type rawResponse struct {
	status int
	body   []byte
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = NewBreaker(5, 30*time.Second, log)
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker: breaker,
		log:     log,
	}, nil
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// OnSessionExpired registers fn to run whenever a refresh fails and the
// token is dropped.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

func (c *Client) expire() {
	c.mu.Lock()
	c.token = ""
	fn := c.onExpired
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do sends one API request and decodes a 2xx JSON answer into out.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	resp, err := c.send(ctx, method, path, query, payload)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && refreshable(path) {
		original := newAPIError(method, path, resp.status, resp.body)
		if errRefresh := c.refresh(ctx); errRefresh != nil {
			logger.WithContext(ctx, c.log).Info("session refresh failed",
				zap.String("path", path), zap.Error(errRefresh))
			c.expire()
			return fmt.Errorf("%w: %w", ErrSessionExpired, original)
		}
		// replay exactly once; a second 401 is returned as-is
		if resp, err = c.send(ctx, method, path, query, payload); err != nil {
			return err
		}
	}

	if resp.status < 200 || resp.status >= 300 {
		return newAPIError(method, path, resp.status, resp.body)
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) refresh(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodPost, refreshPath, nil, []byte("{}"))
	if err != nil {
		return err
	}
	if resp.status < 200 || resp.status >= 300 {
		return newAPIError(http.MethodPost, refreshPath, resp.status, resp.body)
	}
	var tokens struct {
		Access string `json:"access"`
	}
	if len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, &tokens); err != nil {
			return fmt.Errorf("decode refresh: %w", err)
		}
	}
	if tokens.Access != "" {
		c.SetToken(tokens.Access)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte) (*rawResponse, error) {
	target := c.resolve(path, query)
	start := time.Now()

	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		raw := &rawResponse{status: httpResp.StatusCode, body: body}
		if httpResp.StatusCode >= 500 {
			return raw, errServerStatus
		}
		return raw, nil
	})

	log := logger.WithContext(ctx, c.log).With(
		zap.String("method", method),
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)))

	switch {
	case errors.Is(err, errServerStatus):
		log.Warn("api request failed", zap.Int("status", resp.status))
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		log.Warn("api request short-circuited", zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrUnavailable)
	case err != nil:
		log.Warn("api request error", zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	log.Debug("api request", zap.Int("status", resp.status))
	return resp, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := c.baseURL.JoinPath(strings.TrimPrefix(path, "/"))
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func refreshable(path string) bool {
	p := strings.TrimPrefix(path, "/")
	return !strings.HasPrefix(p, loginPath) && !strings.HasPrefix(p, refreshPath)
}
