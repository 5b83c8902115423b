package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html"

	"github.com/credshield/credshield/internal/config"
	"github.com/credshield/credshield/internal/extract"
)

// ErrUnexpectedStatus is returned when the page responds with a
// non-success status code after all retries.
var ErrUnexpectedStatus = errors.New("fetch: unexpected response status")

// Fetcher retrieves web pages and parses them into a DOM tree.
//
// Design decision: We use a struct with the http.Client rather than
// passing the client on each call because:
//  1. Client configuration (timeouts, redirects) should be consistent
//  2. Connection pooling works better with a shared client
//  3. Easier to test with mock transport
type Fetcher struct {
	// client is the HTTP client used for page requests.
	client *http.Client

	// userAgent is the User-Agent header to use for requests.
	userAgent string

	// maxBodySize limits the response body size to prevent memory
	// exhaustion. Default is 5MB.
	maxBodySize int64

	// timeout is the per-request timeout.
	timeout time.Duration

	// retries is how many times a page that parses but yields no
	// article text is re-fetched before giving up. Pages rendered by
	// client-side scripts often fill in late.
	retries int

	// retryDelay is the pause between readiness retries.
	retryDelay time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the http.Client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		f.client = hc
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// WithRetries sets the readiness retry count and delay.
func WithRetries(retries int, delay time.Duration) Option {
	return func(f *Fetcher) {
		f.retries = retries
		f.retryDelay = delay
	}
}

// New creates a Fetcher with sane defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      http.DefaultClient,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		timeout:     config.DefaultTimeout,
		retries:     config.DefaultFetchRetries,
		retryDelay:  config.DefaultFetchRetryDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Page fetches target and returns the parsed document together with
// the article text extracted from it.
//
// A page that downloads and parses but contains no extractable text is
// retried a bounded number of times. Each retry re-downloads the page,
// which gives server-side A/B variants and slow CDNs a second chance.
// The last attempt's extraction error is returned when all fail.
func (f *Fetcher) Page(ctx context.Context, target string) (*html.Node, string, error) {
	var (
		doc     *html.Node
		text    string
		lastErr error
	)
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}

		doc, lastErr = f.download(ctx, target)
		if lastErr != nil {
			continue
		}
		text, lastErr = extract.Extract(doc)
		if lastErr == nil {
			return doc, text, nil
		}
	}
	return nil, "", lastErr
}

// download performs a single GET and parses the body as HTML.
func (f *Fetcher) download(ctx context.Context, target string) (*html.Node, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, target)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}
