package config

import "errors"

// Configuration validation errors.
//
// Design decision: Package-level sentinel errors rather than ad hoc
// fmt.Errorf values, so callers can branch with errors.Is while users
// still get a readable message.
var (
	// ErrNoTarget is returned when no page URL or file is specified.
	ErrNoTarget = errors.New("no target specified: provide a page URL or HTML file")

	// ErrNoAPIKey is returned when a scoring or verification operation is
	// attempted without an LLM API key configured. This is checked before
	// any network call is made.
	ErrNoAPIKey = errors.New("API key not set: add api_key to the credentials file or pass --api-key")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidFetchRetries is returned when the retry count is negative.
	ErrInvalidFetchRetries = errors.New("invalid fetch retries: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
