package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Backend auth endpoint paths. The gateway forwards its own auth surface to
// these verbatim.
const (
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
	PathLogout   = "/api/auth/logout"
	PathMe       = "/api/auth/me"
)

// Client talks to the PixelVault backend API. It owns no state besides
// configuration; every call is an independent request/response cycle.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Timeouts belong to the
// caller; the gateway relies on this client's own timeout behavior.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login forwards a login request body and returns the backend envelope.
func (c *Client) Login(ctx context.Context, body io.Reader) (Envelope, error) {
	return c.callEnvelope(ctx, http.MethodPost, PathLogin, "", body)
}

// Register forwards a registration request body.
func (c *Client) Register(ctx context.Context, body io.Reader) (Envelope, error) {
	return c.callEnvelope(ctx, http.MethodPost, PathRegister, "", body)
}

// Logout tells the backend to revoke the given session token.
func (c *Client) Logout(ctx context.Context, token string) (Envelope, error) {
	return c.callEnvelope(ctx, http.MethodPost, PathLogout, token, nil)
}

// Me fetches the identity the backend associates with the given token.
func (c *Client) Me(ctx context.Context, token string) (Envelope, error) {
	return c.callEnvelope(ctx, http.MethodGet, PathMe, token, nil)
}

// Do performs a raw pass-through call and returns the backend response.
// The caller owns the response body. Used by the gateway's proxy surface,
// where the body is copied to the browser without interpretation.
func (c *Client) Do(ctx context.Context, method, path, token string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &CallError{Endpoint: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &CallError{Endpoint: path, Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}
	return resp, nil
}

// callEnvelope performs a call and decodes the body as an envelope.
// Any transport-level failure surfaces as ErrUnreachable; a body that is
// not an envelope surfaces as ErrBadEnvelope. Both are wrapped with the
// endpoint for logging.
func (c *Client) callEnvelope(ctx context.Context, method, path, token string, body io.Reader) (Envelope, error) {
	resp, err := c.Do(ctx, method, path, token, body)
	if err != nil {
		return Envelope{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Envelope{}, &CallError{Endpoint: path, Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}

	env, err := DecodeEnvelope(data)
	if err != nil {
		c.logger.Warn("backend returned non-envelope body",
			"endpoint", path,
			"status", resp.StatusCode,
		)
		return Envelope{}, &CallError{Endpoint: path, Err: err}
	}
	return env, nil
}
