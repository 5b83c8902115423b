package model

// Score bounds and defaults.
const (
	// MinScore is the lowest possible credibility score.
	MinScore = 0
	// MaxScore is the highest possible credibility score.
	MaxScore = 100
	// DefaultScore is the neutral fallback used when the upstream payload
	// omits or malforms the score.
	DefaultScore = 50
)

// Flag is a single model-identified problematic text snippet together with
// a short explanation of why it was flagged. Flags are immutable once
// created; the annotator uses Snippet to locate the text on the page.
type Flag struct {
	// Snippet is the verbatim problematic text, at most about two sentences.
	Snippet string `json:"snippet"`

	// Reason is a one-sentence explanation of the problem.
	Reason string `json:"reason"`
}

// ScoreResult is the structured outcome of a credibility scoring call.
type ScoreResult struct {
	// Score is the credibility score in [MinScore, MaxScore].
	// Higher means more credible.
	Score int `json:"score"`

	// Flags lists the problematic snippets found in the text.
	// May be empty for clean content.
	Flags []Flag `json:"flags"`
}

// ClampScore forces a raw score into the valid [MinScore, MaxScore] range.
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// VerificationResult is the outcome of verifying a single flagged snippet.
type VerificationResult struct {
	// Summary is a short explanation of whether the snippet holds up.
	Summary string `json:"summary"`

	// Sources lists up to three supporting or refuting links.
	// Populated only at the deep sensitivity tier; non-link entries from
	// the search layer are filtered out before the result is returned.
	Sources []string `json:"sources"`
}
