// Package httpclient provides the retrying HTTP transport shared by the
// index adapters and the ArticleMeta source client.
//
// Transport-level failures (connection errors, timeouts) are retried with
// exponential backoff up to a bounded attempt budget. Responses that complete
// with an error status are never retried; interpreting the status is the
// caller's concern.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the transport configuration.
type Config struct {
	// HTTPClient is the underlying client. Defaults to a client with a
	// 30 second timeout.
	HTTPClient Doer

	// MaxAttempts is the total attempt budget, including the first try
	// (default: 3).
	MaxAttempts int

	// InitialInterval is the first backoff interval (default: 500ms). Each
	// subsequent interval doubles.
	InitialInterval time.Duration

	Logger hclog.Logger
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
	}
}

// Client sends JSON requests with retry.
type Client struct {
	client          Doer
	maxAttempts     int
	initialInterval time.Duration
	logger          hclog.Logger
}

// New creates a retrying client from cfg, filling unset fields with defaults.
func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultConfig().InitialInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	return &Client{
		client:          cfg.HTTPClient,
		maxAttempts:     cfg.MaxAttempts,
		initialInterval: cfg.InitialInterval,
		logger:          cfg.Logger.Named("httpclient"),
	}
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Success reports whether the response carries a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// SendJSON sends one request with the given method, URL, query parameters and
// optional JSON body, retrying transport failures. The returned response has
// its body fully read and the connection released.
func (c *Client) SendJSON(ctx context.Context, method, rawURL string, params url.Values, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	if len(params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parsing request URL: %w", err)
		}
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval

	var resp *Response
	attempt := 0
	operation := func() error {
		attempt++
		c.logger.Debug("sending HTTP request", "method", method, "url", rawURL, "attempt", attempt)

		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		httpResp, err := c.client.Do(req)
		if err != nil {
			// Transport failure: retryable.
			return err
		}
		defer httpResp.Body.Close()

		raw, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return err
		}

		resp = &Response{StatusCode: httpResp.StatusCode, Body: raw}
		return nil
	}

	err := backoff.Retry(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("sending %s %s: %w", method, rawURL, err)
	}
	return resp, nil
}
