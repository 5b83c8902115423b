package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/credshield/credshield/internal/config"
	"github.com/credshield/credshield/internal/llm"
)

// SourceCount is the fixed number of corroborating links returned by
// TopSources. Callers can rely on the slice length without checking.
const SourceCount = 3

const defaultTimeout = 30 * time.Second

// Client queries a programmable search endpoint for web sources.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	engineID   string
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the http.Client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a search Client for the given endpoint and credentials.
func New(endpoint, apiKey, engineID string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		endpoint:   endpoint,
		apiKey:     apiKey,
		engineID:   engineID,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchResponse mirrors the subset of the search API reply we read.
type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// TopSources returns the top result links for query, always exactly
// SourceCount entries with empty strings padding short result sets.
func (c *Client) TopSources(ctx context.Context, query string) ([]string, error) {
	if c.apiKey == "" || c.engineID == "" {
		return nil, fmt.Errorf("search credentials: %w", config.ErrNoAPIKey)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(SourceCount))
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llm.UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &llm.UpstreamError{Status: resp.StatusCode, Message: "search request failed"}
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	sources := make([]string, SourceCount)
	for i, item := range parsed.Items {
		if i >= SourceCount {
			break
		}
		sources[i] = item.Link
	}
	return sources, nil
}
