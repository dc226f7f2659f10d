// Package classify tags excerpt text with a PER component using the
// external tagging service.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/config"
	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
)

const defaultURL = "https://dreftagging.azurewebsites.net/classify"

// Classifier returns the label of the first tag for a text, or "" when the
// service has no tag for it.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// HTTPClient defines the interface for HTTP operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the tagging service.
type Client struct {
	url        string
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

// WithURL sets the classify endpoint
func WithURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// NewClient creates a tagging service client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		url:        defaultURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client from the classifier configuration section
func NewClientFromConfig(cfg config.Classifier) *Client {
	return NewClient(
		WithURL(cfg.URL),
		WithHTTPClient(&http.Client{Timeout: config.Duration(cfg.Timeout, 30*time.Second)}),
	)
}

type classification struct {
	Tags []string `json:"tags"`
}

// Classify posts the text as a JSON string. Only a 201 response with at least
// one tag yields a label.
func (c *Client) Classify(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(text)
	if err != nil {
		return "", fmt.Errorf("failed to encode text: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request: %v", core.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: classify request failed: %v", core.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read classify response: %v", core.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusCreated {
		logger.Warn("Classifier returned no tags", "status", resp.StatusCode)
		return "", nil
	}

	var result []classification
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("%w: failed to decode classify response: %v", core.ErrParse, err)
	}
	if len(result) == 0 || len(result[0].Tags) == 0 {
		return "", nil
	}
	return result[0].Tags[0], nil
}
