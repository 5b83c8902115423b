package interpret

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/credshield/credshield/internal/model"
)

// DefaultSummary is the fallback explanation when a verification reply
// carries no usable summary.
const DefaultSummary = "Could not generate explanation."

// FormatError reports a model reply that could not be interpreted even
// after the repair pass. The raw reply is kept for diagnostic logging
// but deliberately excluded from Error(), so it never reaches end users.
type FormatError struct {
	// Reason describes what could not be located or parsed.
	Reason string

	// Raw is the offending reply text, for logs only.
	Raw string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("unable to interpret model response: %s", e.Reason)
}

// fenceRegex extracts the first ```json fenced region from a reply.
var fenceRegex = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// flagsKeyRegex locates the flags array by name, independent of whether
// the surrounding JSON is intact.
var flagsKeyRegex = regexp.MustCompile(`"flags"\s*:\s*\[`)

// scoreRegex locates a numeric score value anywhere in the reply.
var scoreRegex = regexp.MustCompile(`"score"\s*:\s*(-?\d+(?:\.\d+)?)`)

// trailingCommaRegex matches a comma left dangling before an object's
// closing brace, a common near-JSON artifact.
var trailingCommaRegex = regexp.MustCompile(`,\s*}`)

// StripFence returns the contents of the first fenced code block if the
// reply contains one, otherwise the trimmed reply unchanged.
func StripFence(raw string) string {
	if m := fenceRegex.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// Score parses a scoring reply into a ScoreResult.
//
// Stage 1 is a strict JSON parse of the (unfenced) reply. Stage 2 is the
// repair pass for near-valid JSON. The score is clamped to [0,100] and
// defaults to the neutral value when absent or non-numeric; flags missing
// a string snippet or reason are dropped. Only a reply in which no flags
// key can be located at all fails with *FormatError.
func Score(raw string) (model.ScoreResult, error) {
	body := StripFence(raw)

	if result, ok := parseStrict(body); ok {
		return result, nil
	}
	return repairScore(body, raw)
}

// parseStrict attempts a normal JSON parse and validates the payload
// shape. Returns ok=false when the text is not valid JSON at all.
func parseStrict(body string) (model.ScoreResult, bool) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return model.ScoreResult{}, false
	}

	result := model.ScoreResult{
		Score: model.DefaultScore,
		Flags: []model.Flag{},
	}
	if v, ok := payload["score"].(float64); ok {
		result.Score = model.ClampScore(int(math.Round(v)))
	}
	if arr, ok := payload["flags"].([]any); ok {
		for _, entry := range arr {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			snippet, sok := obj["snippet"].(string)
			reason, rok := obj["reason"].(string)
			if sok && rok {
				result.Flags = append(result.Flags, model.Flag{Snippet: snippet, Reason: reason})
			}
		}
	}
	return result, true
}

// repairScore recovers a ScoreResult from near-valid JSON.
//
// The heuristics are deliberately bounded: locate the flags array by
// name, split its contents on '{', parse each candidate object on its
// own, and discard whatever fails (typically the trailing object cut off
// by the model's output cap). The score is recovered with a regex scan
// that ignores JSON structure entirely.
func repairScore(body, raw string) (model.ScoreResult, error) {
	loc := flagsKeyRegex.FindStringIndex(body)
	if loc == nil {
		return model.ScoreResult{}, &FormatError{Reason: "no flags array found", Raw: raw}
	}

	arrayBody := body[loc[1]:]
	// The flag objects contain no nested arrays, so the first ']' (when
	// the model did finish the array) bounds the search space.
	if end := strings.Index(arrayBody, "]"); end >= 0 {
		arrayBody = arrayBody[:end]
	}

	result := model.ScoreResult{
		Score: recoverScore(body),
		Flags: []model.Flag{},
	}

	chunks := strings.Split(arrayBody, "{")
	if len(chunks) < 2 {
		// Key present but array empty or cut off before any object.
		return result, nil
	}
	for _, chunk := range chunks[1:] {
		candidate := "{" + strings.TrimRight(strings.TrimSpace(chunk), ", \t\n\r")
		candidate = trailingCommaRegex.ReplaceAllString(candidate, "}")
		var flag struct {
			Snippet *string `json:"snippet"`
			Reason  *string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(candidate), &flag); err != nil {
			// Truncated or garbled object; drop it and keep going.
			continue
		}
		if flag.Snippet == nil || flag.Reason == nil {
			continue
		}
		result.Flags = append(result.Flags, model.Flag{Snippet: *flag.Snippet, Reason: *flag.Reason})
	}

	return result, nil
}

// recoverScore scans for a numeric score independent of JSON structure,
// clamped to the valid range, defaulting to the neutral value.
func recoverScore(body string) int {
	m := scoreRegex.FindStringSubmatch(body)
	if m == nil {
		return model.DefaultScore
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return model.DefaultScore
	}
	return model.ClampScore(int(math.Round(v)))
}

// VerificationPayload is the parsed form of a verification reply.
type VerificationPayload struct {
	// Summary is the model's short explanation, trimmed, never empty.
	Summary string

	// SearchQuery is the compact web-search query the model proposed.
	// Present only in deep-tier replies.
	SearchQuery string

	// Sources are any links the model itself offered, already filtered
	// to http(s) entries.
	Sources []string
}

// Verification parses a verification reply.
//
// The summary defaults to DefaultSummary when missing; source entries
// that do not start with "http" are dropped. A reply that is not JSON at
// all fails with *FormatError.
func Verification(raw string) (VerificationPayload, error) {
	body := StripFence(raw)

	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return VerificationPayload{}, &FormatError{Reason: "verification reply is not valid JSON", Raw: raw}
	}

	result := VerificationPayload{
		Summary: DefaultSummary,
		Sources: []string{},
	}
	if s, ok := payload["summary"].(string); ok && strings.TrimSpace(s) != "" {
		result.Summary = strings.TrimSpace(s)
	}
	if q, ok := payload["search_query"].(string); ok {
		result.SearchQuery = strings.TrimSpace(q)
	}
	if arr, ok := payload["sources"].([]any); ok {
		raw := make([]string, 0, len(arr))
		for _, entry := range arr {
			if s, ok := entry.(string); ok {
				raw = append(raw, s)
			}
		}
		result.Sources = FilterSources(raw)
	}
	return result, nil
}

// FilterSources keeps only entries that look like web links. Applied to
// sources the model offers on its own; search API results are passed
// through as-is so the padded three-slot shape survives.
func FilterSources(links []string) []string {
	out := make([]string, 0, len(links))
	for _, link := range links {
		if strings.HasPrefix(strings.TrimSpace(link), "http") {
			out = append(out, strings.TrimSpace(link))
		}
	}
	return out
}
