package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	apperrors "github.com/Project2Studios/storefront-client/pkg/errors"
)

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns sensible defaults for the HTTP client.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxConnsPerHost: 100,
	}
}

// Client wraps http.Client with connection pooling and transient-error
// classification. It issues exactly one attempt per call; bounded retry with
// backoff is owned by the fetch cache so a request is never retried twice at
// two layers.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a new HTTP client with connection pooling.
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
}

// Do executes the HTTP request. Transport-level failures (dial, reset,
// timeout) come back wrapped as transient errors so the caller's retry policy
// can recognize them; context cancellation is returned as-is.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if isTransientError(err) {
			return nil, apperrors.Transient(err)
		}
		return nil, err
	}

	return resp, nil
}

// isTransientError determines if a transport error may be retried.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	// Client-side deadline counts as a timeout; retry per the backoff policy.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
