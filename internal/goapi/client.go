// Package goapi is a small client for the IFRC GO platform REST API (v2).
package goapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/config"
	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
)

const (
	defaultBaseURL    = "https://goadmin.ifrc.org/api/v2/"
	defaultPageSize   = 200
	defaultMaxRetries = 5
	defaultRetryDelay = time.Second
)

// HTTPClient defines the interface for HTTP operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client handles communication with the GO API
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	maxRetries int
	retryDelay time.Duration
	httpClient HTTPClient
}

// ClientOption allows configuring the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURL = baseURL
	}
}

// WithToken sets the authorization token. A bare token is sent with the
// "Token" scheme.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithPageSize sets the limit used for paginated tables
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithRetries sets how many times a request is attempted and the delay between attempts
func WithRetries(maxRetries int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// NewClient creates a new GO API client
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		pageSize:   defaultPageSize,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// NewClientFromConfig creates a client from the goapi configuration section
func NewClientFromConfig(cfg config.GoAPI) *Client {
	return NewClient(
		WithBaseURL(cfg.BaseURL),
		WithToken(cfg.Token),
		WithPageSize(cfg.PageSize),
		WithRetries(cfg.MaxRetries, config.Duration(cfg.RetryDelay, defaultRetryDelay)),
		WithHTTPClient(&http.Client{Timeout: config.Duration(cfg.Timeout, 60*time.Second)}),
	)
}

// BaseURL returns the API root, always ending with a slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) authorization() string {
	if c.token == "" {
		return ""
	}
	if strings.HasPrefix(c.token, "Token ") || strings.HasPrefix(c.token, "Bearer ") {
		return c.token
	}
	return "Token " + c.token
}

// resolve turns a table name or a relative next link into an absolute URL.
func (c *Client) resolve(ref string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base URL %q: %v", core.ErrConfig, c.baseURL, err)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: invalid URL %q: %v", core.ErrParse, ref, err)
	}
	return base.ResolveReference(u).String(), nil
}

// doRequest performs an HTTP request with retry logic. Network failures,
// 429 and 5xx responses are retried with a fixed delay; exhaustion and other
// non-2xx responses return an error wrapping core.ErrTransport.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body []byte) ([]byte, int, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, c.retryDelay); err != nil {
				return nil, 0, fmt.Errorf("%w: %v", core.ErrTransport, err)
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: failed to build request: %v", core.ErrTransport, err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if auth := c.authorization(); auth != "" {
			req.Header.Set("Authorization", auth)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger.Debug("GO API request failed", "url", reqURL, "attempt", attempt+1, "error", err.Error())
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
				if err := wait(ctx, time.Duration(seconds)*time.Second); err != nil {
					return nil, resp.StatusCode, fmt.Errorf("%w: %v", core.ErrTransport, err)
				}
			}
			lastErr = fmt.Errorf("rate limited: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return data, resp.StatusCode, fmt.Errorf("%w: %s %s returned %d: %s", core.ErrTransport, method, reqURL, resp.StatusCode, truncate(string(data), 200))
		}

		return data, resp.StatusCode, nil
	}

	return nil, 0, fmt.Errorf("%w: %s %s failed after %d attempts: %v", core.ErrTransport, method, reqURL, c.maxRetries, lastErr)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
