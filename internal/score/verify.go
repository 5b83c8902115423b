package score

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/credshield/credshield/internal/config"
	"github.com/credshield/credshield/internal/interpret"
	"github.com/credshield/credshield/internal/model"
)

// SnippetVerifier produces a raw model reply for a verification prompt.
type SnippetVerifier interface {
	VerifySnippet(ctx context.Context, snippet, reason string, tier model.Sensitivity) (string, error)
}

// SourceSearcher returns the top web sources for a query.
type SourceSearcher interface {
	TopSources(ctx context.Context, query string) ([]string, error)
}

// Verifier fact-checks a single flagged snippet. At the deep tier it
// additionally turns the model's suggested search query into a list of
// corroborating sources.
type Verifier struct {
	model    SnippetVerifier
	searcher SourceSearcher
	logger   *slog.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithSearcher attaches a web source searcher for the deep tier.
func WithSearcher(s SourceSearcher) VerifierOption {
	return func(v *Verifier) {
		v.searcher = s
	}
}

// WithVerifierLogger sets the structured logger.
func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a Verifier backed by the given model client.
func NewVerifier(m SnippetVerifier, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		model:  m,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify fact-checks a flagged snippet.
//
// At the light and medium tiers the result carries only the model's
// explanation. At the deep tier the model must also supply a search
// query; an empty query is a format error because the deep contract
// promises sources. The source search itself is part of that contract,
// so a missing searcher or a failed search call fails the verification.
func (v *Verifier) Verify(ctx context.Context, snippet, reason string, tier model.Sensitivity) (model.VerificationResult, error) {
	raw, err := v.model.VerifySnippet(ctx, snippet, reason, tier)
	if err != nil {
		return model.VerificationResult{}, err
	}

	payload, err := interpret.Verification(raw)
	if err != nil {
		return model.VerificationResult{}, err
	}

	result := model.VerificationResult{Summary: payload.Summary}
	if !tier.SearchesSources() {
		return result, nil
	}

	query := strings.TrimSpace(payload.SearchQuery)
	if query == "" {
		return model.VerificationResult{}, &interpret.FormatError{
			Reason: "verification reply is missing the search query",
			Raw:    raw,
		}
	}

	if v.searcher == nil {
		return model.VerificationResult{}, fmt.Errorf("deep verification needs search credentials: %w", config.ErrNoAPIKey)
	}

	v.logger.Debug("searching for corroborating sources", slog.String("query", query))
	sources, err := v.searcher.TopSources(ctx, query)
	if err != nil {
		return model.VerificationResult{}, fmt.Errorf("source search: %w", err)
	}
	result.Sources = sources
	return result, nil
}
