package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Where a constant mirrors observed
// behavior of the scoring flow (truncation length, neutral score), the
// value is defined in the package that owns the behavior; here we only
// keep operational knobs.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "credshield"

	// DefaultTimeout bounds each network call (scoring, verification,
	// search, page fetch). LLM endpoints routinely take tens of seconds
	// for long inputs, so this is generous.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBodySize limits how much of an HTTP response body is
	// read. 5MB covers any realistic article page or model reply while
	// preventing memory exhaustion from a misbehaving server.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultBatchSize is the number of pages scored concurrently when
	// scanning multiple targets. Scoring is network-bound; a small bound
	// avoids hammering the LLM endpoint's rate limits.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies credshield in page-fetch requests.
	DefaultUserAgent = "credshield/1.0 (+https://github.com/credshield/credshield)"

	// DefaultFetchRetries is the number of extra fetch attempts made
	// when a page yields no usable article text. This stands in for the
	// original's bounded wait for content to render.
	DefaultFetchRetries = 2

	// DefaultFetchRetryDelay is the pause between readiness retries.
	DefaultFetchRetryDelay = 1500 * time.Millisecond

	// DefaultScoreEndpoint is the generateContent-style LLM endpoint used
	// for both scoring and verification requests.
	DefaultScoreEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash-latest:generateContent"

	// DefaultSearchEndpoint is the web-search endpoint used at the deep
	// tier to fetch supporting or refuting sources.
	DefaultSearchEndpoint = "https://www.googleapis.com/customsearch/v1"
)

// Config holds all runtime options. It is populated from defaults, the
// credentials file, and CLI flags, then passed to components by
// dependency injection rather than read from global state.
//
// Design decision: One flat struct, matching the manageable number of
// options. Nested sub-configs would add indirection without benefit at
// this size.
type Config struct {
	// APIKey is the LLM API credential. Required for scoring and
	// verification; validated before any network call.
	APIKey string

	// SearchAPIKey is the search API credential, required only when a
	// deep-tier verification actually issues a search.
	SearchAPIKey string

	// SearchEngineID scopes search requests to a configured engine.
	SearchEngineID string

	// ScoreEndpoint is the LLM endpoint URL.
	ScoreEndpoint string

	// SearchEndpoint is the web-search endpoint URL.
	SearchEndpoint string

	// Sensitivity is the scan tier: light, medium, or deep.
	Sensitivity string

	// Timeout bounds each individual network call.
	Timeout time.Duration

	// MaxBodySize limits HTTP response bodies, in bytes.
	MaxBodySize int64

	// UserAgent is sent with page-fetch requests.
	UserAgent string

	// FetchRetries is the number of extra attempts when a fetched page
	// yields no usable text.
	FetchRetries int

	// FetchRetryDelay is the pause between readiness retries.
	FetchRetryDelay time.Duration

	// BatchSize is the number of concurrent scans for multi-target runs.
	BatchSize int

	// DBDir is the directory holding the reputation database. Defaults
	// to the XDG data directory. Empty disables persistence entirely.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport selects JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// AnnotatedFile writes the highlighted page HTML to a file.
	AnnotatedFile string

	// ConfigFilePath is an explicit credentials-file path. Empty means
	// search the standard locations.
	ConfigFilePath string

	// Targets is the list of page URLs (or local HTML files) to scan.
	Targets []string
}

// NewConfig returns a Config with all defaults applied.
func NewConfig() *Config {
	return &Config{
		ScoreEndpoint:   DefaultScoreEndpoint,
		SearchEndpoint:  DefaultSearchEndpoint,
		Sensitivity:     "light",
		Timeout:         DefaultTimeout,
		MaxBodySize:     DefaultMaxBodySize,
		UserAgent:       DefaultUserAgent,
		FetchRetries:    DefaultFetchRetries,
		FetchRetryDelay: DefaultFetchRetryDelay,
		BatchSize:       DefaultBatchSize,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for credshield.
// On Linux: ~/.local/share/credshield
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for credshield.
// On Linux: ~/.config/credshield
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after flag parsing, before any component starts.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.FetchRetries < 0 {
		return ErrInvalidFetchRetries
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
