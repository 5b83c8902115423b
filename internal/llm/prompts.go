package llm

import (
	"fmt"
	"strings"

	"github.com/credshield/credshield/internal/model"
)

// scoringEmphasis returns the tier-specific instruction for what the
// model should flag. Light scans stick to outright falsehoods; medium
// and deep scans also chase bias and manipulation.
func scoringEmphasis(tier model.Sensitivity) string {
	if tier.FlagsBias() {
		return "Flag outright-false claims as well as biased framing, emotionally manipulative language, unsupported generalizations, and logical fallacies."
	}
	return "Flag only claims that are outright false or directly contradicted by well-established facts. Do not flag opinion, tone, or style."
}

// buildScoringPrompt assembles the scoring request for one page text.
// The prompt pins the exact JSON schema the interpret package expects.
func buildScoringPrompt(text string, tier model.Sensitivity) string {
	var b strings.Builder
	b.WriteString("Analyze the following text for potential signs of misinformation.\n")
	b.WriteString(scoringEmphasis(tier))
	b.WriteString("\n\n")
	b.WriteString(`Provide your analysis in JSON format with two keys: "score" and "flags".
1. "score": a numerical credibility score between 0 (very low credibility) and 100 (very high credibility).
2. "flags": an array of objects, each with two keys:
   - "snippet": the exact text snippet (maximum 2 sentences) that contains the issue.
   - "reason": a brief one-sentence explanation of why the snippet is flagged.

If no specific issues are found, return an empty "flags" array. Ensure the entire output is valid JSON.

Text to analyze:
---
`)
	b.WriteString(text)
	b.WriteString("\n---\n\nJSON Analysis:")
	return b.String()
}

// buildVerificationPrompt assembles the verification request for one
// flagged snippet. At the deep tier the model is also asked for a
// compact web-search query so external sources can be fetched.
func buildVerificationPrompt(snippet, reason string, tier model.Sensitivity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following text snippet was flagged during a credibility check.\n\nSnippet: %q\nFlag reason: %s\n\n", snippet, reason)

	if tier.SearchesSources() {
		b.WriteString(`Respond in JSON with two keys:
1. "summary": a short (2-3 sentence) explanation of whether the snippet holds up to scrutiny and why.
2. "search_query": a compact web-search query (under 10 words) a reader could use to find supporting or refuting sources.

Ensure the entire output is valid JSON.`)
	} else {
		b.WriteString(`Respond in JSON with one key:
1. "summary": a short (2-3 sentence) explanation of whether the snippet holds up to scrutiny and why.

Ensure the entire output is valid JSON.`)
	}
	return b.String()
}
