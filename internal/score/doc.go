// Package score combines model output with stored domain reputation to
// produce the final credibility verdict for a page, and drives snippet
// verification.
package score
