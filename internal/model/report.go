package model

import (
	"time"

	"golang.org/x/net/html"
)

// AnalysisReport accumulates the result of analyzing one page. It is
// created at the start of a scan and passed through each pipeline step,
// which fills in its portion.
//
// Design decision: A single mutable accumulator rather than per-step
// return values, because later steps need earlier results (the annotator
// needs the flags, the persist step needs the final score and domain),
// and a shared report keeps the step interface uniform.
type AnalysisReport struct {
	// URL is the page location as given by the caller.
	URL string `json:"url"`

	// Domain is the normalized domain, empty when the URL carries none.
	Domain string `json:"domain,omitempty"`

	// Sensitivity is the scan tier used for this analysis.
	Sensitivity Sensitivity `json:"sensitivity"`

	// Document is the parsed page DOM. It is mutated in place by the
	// annotation step and never serialized.
	Document *html.Node `json:"-"`

	// PageText is the extracted article text submitted for scoring.
	// Not serialized into stored reports to keep history rows small.
	PageText string `json:"-"`

	// TextHash is the hex SHA3-256 of PageText, identifying the exact
	// content that was scored.
	TextHash string `json:"text_hash,omitempty"`

	// Result is the blended score and flags.
	Result ScoreResult `json:"result"`

	// DomainInfo is the reputation of the page's domain for this scan.
	DomainInfo DomainInfo `json:"domainInfo"`

	// HighlightsApplied is the number of flags the annotator located and
	// wrapped. Always <= len(Result.Flags); unmatched snippets are an
	// accepted loss, not an error.
	HighlightsApplied int `json:"highlights_applied"`

	// AnnotatedHTML is the serialized page with highlight markup, when
	// annotation was requested. Not serialized into stored reports.
	AnnotatedHTML string `json:"-"`

	// StartedAt and FinishedAt bound the scan.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error holds the fatal error that aborted the scan, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewAnalysisReport creates a report for one page scan.
func NewAnalysisReport(url string, tier Sensitivity) *AnalysisReport {
	return &AnalysisReport{
		URL:         url,
		Sensitivity: tier,
		StartedAt:   time.Now(),
	}
}

// SetError records a fatal scan error in both typed and string form.
func (r *AnalysisReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Succeeded reports whether the scan completed without a fatal error.
func (r *AnalysisReport) Succeeded() bool {
	return r.Error == nil
}
