package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/credshield/credshield/internal/config"
	"github.com/credshield/credshield/internal/model"
)

// Generation parameters sent with every request. Low temperature keeps
// the JSON output predictable; the token cap bounds reply size (the
// interpret package repairs replies that hit it anyway).
const (
	generationTemperature = 0.3
	scoringMaxTokens      = 800
	verificationMaxTokens = 400
)

// Client calls a generateContent-style LLM endpoint.
//
// Design decision: One shared client struct rather than per-call
// configuration, so the HTTP client's connection pool is reused and the
// credential is validated in one place.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	maxBodySize int64
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxBodySize limits how much of a reply body is read.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the given endpoint and credential.
func New(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		endpoint:    endpoint,
		apiKey:      apiKey,
		maxBodySize: config.DefaultMaxBodySize,
		timeout:     config.DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScoreText requests a credibility analysis of the page text at the
// given tier and returns the raw model reply.
func (c *Client) ScoreText(ctx context.Context, text string, tier model.Sensitivity) (string, error) {
	return c.generate(ctx, buildScoringPrompt(text, tier), scoringMaxTokens)
}

// VerifySnippet requests an explanation (and, at the deep tier, a
// search query) for one flagged snippet and returns the raw reply.
func (c *Client) VerifySnippet(ctx context.Context, snippet, reason string, tier model.Sensitivity) (string, error) {
	return c.generate(ctx, buildVerificationPrompt(snippet, reason, tier), verificationMaxTokens)
}

// generateRequest is the wire format of a generateContent request.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"response_mime_type"`
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
}

// generateResponse is the wire format of a generateContent reply.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// generate performs one generateContent call and returns the first
// candidate's text.
func (c *Client) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	// Fail fast on a missing credential before touching the network.
	if c.apiKey == "" {
		return "", config.ErrNoAPIKey
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      generationTemperature,
			MaxOutputTokens:  maxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.endpoint + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Message: "failed to read response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{
			Status:  resp.StatusCode,
			Message: upstreamMessage(respBody, resp.StatusCode),
		}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Message: "malformed response envelope"}
	}

	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", &UpstreamError{
			Status:  resp.StatusCode,
			Message: "request blocked by API safety settings: " + parsed.PromptFeedback.BlockReason,
		}
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &UpstreamError{Status: resp.StatusCode, Message: "response contained no candidates"}
	}

	c.logger.Debug("model reply received",
		"bytes", len(respBody),
		"candidates", len(parsed.Candidates),
	)

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// upstreamMessage extracts a human-readable message from an error body.
// Upstream error bodies are usually JSON with an error.message field;
// fall back to the raw body, then to a generic status description.
func upstreamMessage(body []byte, status int) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	if len(body) > 0 && len(body) <= 512 {
		return string(body)
	}
	return fmt.Sprintf("API request failed with status %d", status)
}
