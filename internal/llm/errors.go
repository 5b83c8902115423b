package llm

import "fmt"

// UpstreamError reports a failed call to an external API: non-2xx
// status, timeout, or transport failure. The message is taken from the
// upstream error body when one is present, so users see the provider's
// own explanation (quota exhausted, key invalid, prompt blocked).
type UpstreamError struct {
	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int

	// Message is the upstream explanation, or a generic description.
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream request failed: %s", e.Message)
	}
	return fmt.Sprintf("upstream request failed with status %d: %s", e.Status, e.Message)
}
