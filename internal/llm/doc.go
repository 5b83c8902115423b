// Package llm calls the external model endpoint for credibility
// scoring and snippet verification.
//
// The endpoint is treated as opaque: requests carry a prompt assembled
// per sensitivity tier, and replies are returned as raw text for the
// interpret package to parse. The model is asked for JSON output, but
// nothing here assumes it complied.
//
// Failure taxonomy: a missing API key fails with config.ErrNoAPIKey
// before any network I/O; any non-2xx response, timeout, or transport
// failure becomes an *UpstreamError carrying the upstream status and
// message. Upstream failures are never retried here.
package llm
