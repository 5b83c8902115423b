package model

import (
	"errors"
	"net/url"
	"strings"
)

// Domain normalization errors.
var (
	// ErrEmptyURL is returned when the page URL is empty.
	ErrEmptyURL = errors.New("page URL cannot be empty")
	// ErrUnsupportedScheme is returned for non-http(s) URLs such as
	// chrome://, file://, or about: pages, which have no meaningful domain.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme: only http and https carry a domain")
)

// NormalizeDomain derives the reputation-store key for a page URL.
// The hostname is lowercased and a leading "www." is stripped, so
// "https://www.Example.com/path" and "http://example.com/other" both
// normalize to "example.com".
//
// Non-http(s) schemes are rejected rather than silently keyed, because
// browser-internal pages must never accumulate reputation samples.
func NormalizeDomain(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", ErrEmptyURL
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return "", ErrUnsupportedScheme
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", ErrEmptyURL
	}
	return host, nil
}

// DomainInfo describes the reputation of the scanned page's domain at the
// time of one scan. It is derived fresh per scan and never persisted.
type DomainInfo struct {
	// Name is the normalized domain, or empty when the page URL carried
	// no usable domain (e.g. a local file).
	Name string `json:"name,omitempty"`

	// IsUnreliable reports whether the domain has a promoted reputation
	// record in the unreliable range (reliability <= 5).
	IsUnreliable bool `json:"isUnreliable"`

	// Reliability is the promoted 1-10 tier, or nil when the domain has
	// not accumulated enough samples to be promoted.
	Reliability *int `json:"reliability"`
}
