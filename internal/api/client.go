// Package api holds the typed clients for the commerce collaborators the
// engine consumes: the cart, checkout session, shipping, tax, and order
// creation APIs. All calls go over HTTP with JSON bodies; the shopper's
// session identity rides in a request header.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Project2Studios/storefront-client/pkg/httpclient"
)

// SessionHeader carries the shopper's session identity token.
const SessionHeader = "X-Session-Token"

// IdempotencyKeyHeader carries the idempotency key on order creation.
const IdempotencyKeyHeader = "Idempotency-Key"

// Doer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client is the shared base for the collaborator clients.
type Client struct {
	http    Doer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a collaborator client rooted at baseURL.
func NewClient(httpClient Doer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		logger:  logger,
	}
}

// do issues one request and decodes a 2xx JSON response into out (when out is
// non-nil). Non-2xx responses are translated into the engine's error taxonomy.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any, api string) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", api, err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", api, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call %s: %w", api, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp, api)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", api, err)
	}
	return nil
}

// parseError maps a non-2xx response into the engine's failure taxonomy.
func parseError(resp *http.Response, api string) error {
	return httpclient.ParseResponseError(resp, api)
}
