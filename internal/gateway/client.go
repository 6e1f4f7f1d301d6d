// Package gateway wraps outbound HTTP calls to the upstream identity
// backend. Calls never surface transport errors; every outcome is
// normalized into the shared JSON envelope so callers treat success and
// failure uniformly.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"dsm-gateway/internal/model"
)

// UnauthorizedHook runs after any call that came back 401. The client
// side uses it to clear the token store and plan a login redirect.
type UnauthorizedHook func()

type Client struct {
	baseURL        string
	httpClient     *http.Client
	onUnauthorized UnauthorizedHook
}

type Option func(*Client)

// WithTransport swaps the underlying round tripper. The mock identity
// backend plugs in here so development traffic never leaves the process.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// WithUnauthorizedHook installs the 401 callback.
func WithUnauthorizedHook(hook UnauthorizedHook) Option {
	return func(c *Client) {
		c.onUnauthorized = hook
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Get(ctx context.Context, path string, bearer string) model.Response {
	return c.do(ctx, http.MethodGet, path, bearer, nil)
}

func (c *Client) Post(ctx context.Context, path string, bearer string, body any) model.Response {
	return c.do(ctx, http.MethodPost, path, bearer, body)
}

func (c *Client) Put(ctx context.Context, path string, bearer string, body any) model.Response {
	return c.do(ctx, http.MethodPut, path, bearer, body)
}

func (c *Client) Delete(ctx context.Context, path string, bearer string) model.Response {
	return c.do(ctx, http.MethodDelete, path, bearer, nil)
}

func (c *Client) do(ctx context.Context, method string, path string, bearer string, body any) model.Response {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return model.Fail(500, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return model.Fail(500, "failed to build request")
	}

	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures are indistinguishable to the
		// caller: a generic upstream failure.
		return model.Fail(500, "upstream unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.Fail(500, "failed to read upstream response")
	}

	var envelope model.Response
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.Code == 0 {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return model.Fail(500, "malformed upstream response")
		}
		return model.Fail(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return envelope
}
