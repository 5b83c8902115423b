package model

import "time"

// Reliability tier bounds. A promoted domain always carries a tier in
// [MinReliability, MaxReliability].
const (
	// MinReliability is the worst promoted tier.
	MinReliability = 1
	// MaxReliability is the best promoted tier.
	MaxReliability = 10
	// UnreliableThreshold is the highest tier still considered unreliable.
	UnreliableThreshold = 5
)

// DomainScore is the running-average record for a domain that is still
// accumulating samples. It is the source of truth for the reliability
// tier; the promoted ReputationRecord is a projection of it.
type DomainScore struct {
	// Domain is the normalized domain key.
	Domain string

	// SampleCount is the number of raw scores recorded so far.
	SampleCount int

	// AverageScore is the running average of all recorded raw scores.
	AverageScore float64

	// UpdatedAt is when the last sample was recorded.
	UpdatedAt time.Time
}

// ReputationRecord is a promoted reputation entry for a domain that has
// accumulated enough samples. Reliability is derived from the running
// average: clamp(round(average/10), 1, 10).
type ReputationRecord struct {
	// Domain is the normalized domain key.
	Domain string `json:"domain_url"`

	// Reliability is the promoted 1-10 tier.
	Reliability int `json:"reliability"`

	// Reason is the auto-generated explanation for the tier.
	Reason string `json:"reason"`

	// PromotedAt is when the record was first promoted.
	PromotedAt time.Time `json:"promoted_at"`
}

// IsUnreliable reports whether the promoted tier falls in the unreliable
// range.
func (r ReputationRecord) IsUnreliable() bool {
	return r.Reliability <= UnreliableThreshold
}

// ReliabilityFromAverage derives a 1-10 tier from a running average score.
// The scaling divides the 0-100 score space into ten buckets and clamps
// the result so even a zero average maps to the lowest valid tier.
func ReliabilityFromAverage(average float64) int {
	tier := int(average/10 + 0.5)
	if tier < MinReliability {
		return MinReliability
	}
	if tier > MaxReliability {
		return MaxReliability
	}
	return tier
}
