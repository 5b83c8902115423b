package score

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/credshield/credshield/internal/interpret"
	"github.com/credshield/credshield/internal/model"
)

// Blending constants. A promoted unreliable domain hard-caps the score;
// a promoted but not-unreliable domain applies a softer cap or floor.
const (
	// unreliableCapPerTier multiplies the reliability tier to form the
	// hard cap for unreliable domains (tier 3 caps the score at 30).
	unreliableCapPerTier = 10

	// trustedFloor is the minimum score granted to a fully trusted
	// domain (reliability 10) regardless of what the model said.
	trustedFloor = 85

	// midCapBase and midCapPerTier form the cap for domains in the
	// middle tiers: 60 + 3*reliability.
	midCapBase    = 60
	midCapPerTier = 3
)

// TextScorer produces a raw model reply for a scoring prompt.
type TextScorer interface {
	ScoreText(ctx context.Context, text string, tier model.Sensitivity) (string, error)
}

// ReputationLookup reads the promoted reputation record for a domain.
// A nil record with a nil error means the domain is not promoted.
type ReputationLookup interface {
	Reliability(ctx context.Context, domain string) (*model.ReputationRecord, error)
}

// Scorer scores page text and blends the result with domain reputation.
//
// Design decision: We accept small interfaces rather than the concrete
// llm and reputation types because:
//  1. Tests can inject canned model replies without a network stub
//  2. The reputation store can be absent (degraded mode) behind a nil
//  3. The blending rules stay testable in isolation
type Scorer struct {
	model      TextScorer
	reputation ReputationLookup
	logger     *slog.Logger
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithReputation attaches a reputation lookup. Without one the Scorer
// runs in degraded mode and passes model scores through unblended.
func WithReputation(r ReputationLookup) ScorerOption {
	return func(s *Scorer) {
		s.reputation = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ScorerOption {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// NewScorer creates a Scorer backed by the given model client.
func NewScorer(m TextScorer, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		model:  m,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score analyzes text from the given domain and returns the blended
// result together with the domain reputation snapshot used for it.
//
// Reputation store failures are soft: the scan continues without
// blending and the failure is logged. Model and interpretation
// failures are fatal.
func (s *Scorer) Score(ctx context.Context, domain, text string, tier model.Sensitivity) (model.ScoreResult, model.DomainInfo, error) {
	info := s.lookup(ctx, domain)

	raw, err := s.model.ScoreText(ctx, text, tier)
	if err != nil {
		return model.ScoreResult{}, info, err
	}

	result, err := interpret.Score(raw)
	if err != nil {
		return model.ScoreResult{}, info, err
	}

	return Blend(result, info), info, nil
}

// lookup builds the DomainInfo snapshot for domain, degrading silently
// when the store is absent or failing.
func (s *Scorer) lookup(ctx context.Context, domain string) model.DomainInfo {
	info := model.DomainInfo{Name: domain}
	if s.reputation == nil || domain == "" {
		return info
	}

	rec, err := s.reputation.Reliability(ctx, domain)
	if err != nil {
		s.logger.Warn("reputation lookup failed, scoring without blending",
			slog.String("domain", domain), slog.String("error", err.Error()))
		return info
	}
	if rec == nil {
		return info
	}

	tier := rec.Reliability
	info.Reliability = &tier
	info.IsUnreliable = rec.IsUnreliable()
	return info
}

// Blend applies the domain reputation to a raw model result.
//
// An unreliable domain (tier 1-5) hard-caps the score at ten points per
// tier and prepends a synthetic flag naming the domain so the warning
// surfaces alongside the model's own findings. A fully trusted domain
// floors the score at trustedFloor. Middle tiers apply a soft cap.
// Without a promoted record the model result passes through untouched.
func Blend(result model.ScoreResult, info model.DomainInfo) model.ScoreResult {
	if info.Reliability == nil {
		return result
	}
	tier := *info.Reliability

	switch {
	case tier <= model.UnreliableThreshold:
		limit := unreliableCapPerTier * tier
		if result.Score > limit {
			result.Score = limit
		}
		warning := model.Flag{
			Snippet: info.Name,
			Reason: fmt.Sprintf("The domain %s has a stored reliability rating of %d/10 and is considered unreliable.",
				info.Name, tier),
		}
		result.Flags = append([]model.Flag{warning}, result.Flags...)
	case tier == model.MaxReliability:
		if result.Score < trustedFloor {
			result.Score = trustedFloor
		}
	default:
		limit := midCapBase + midCapPerTier*tier
		if result.Score > limit {
			result.Score = limit
		}
	}

	result.Score = model.ClampScore(result.Score)
	return result
}
