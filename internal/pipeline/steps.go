package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/credshield/credshield/internal/annotate"
	"github.com/credshield/credshield/internal/extract"
	"github.com/credshield/credshield/internal/fetch"
	"github.com/credshield/credshield/internal/model"
	"github.com/credshield/credshield/internal/reputation"
	"github.com/credshield/credshield/internal/score"
)

// autoRecordThreshold is the final score at or below which a scan
// automatically contributes a reputation sample for its domain.
const autoRecordThreshold = 50

// FetchStep downloads the page and parses it into a DOM tree.
// It also normalizes the page URL into the report's domain key.
type FetchStep struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

// NewFetchStep creates a FetchStep backed by the given fetcher.
func NewFetchStep(fetcher *fetch.Fetcher, logger *slog.Logger) *FetchStep {
	return &FetchStep{fetcher: fetcher, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string { return "fetch" }

// Do downloads and parses the target page. The fetcher's readiness
// retries already guarantee the page carries extractable text when
// this step succeeds.
//
// A file:// URL or a plain filesystem path is parsed from disk
// instead. Local pages carry no domain, so they never touch the
// reputation store, and their text is extracted by the next step.
func (s *FetchStep) Do(ctx context.Context, report *model.AnalysisReport) error {
	if path, ok := localTarget(report.URL); ok {
		doc, err := parseLocalFile(path)
		if err != nil {
			return err
		}
		s.logger.Debug("parsed local file", "path", path)
		report.Document = doc
		return nil
	}

	domain, err := model.NormalizeDomain(report.URL)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", report.URL, err)
	}
	report.Domain = domain

	doc, text, err := s.fetcher.Page(ctx, report.URL)
	if err != nil {
		return err
	}
	report.Document = doc
	report.PageText = text
	return nil
}

// localTarget reports whether the scan target names a file on disk
// rather than a remote page.
func localTarget(target string) (string, bool) {
	if after, ok := strings.CutPrefix(target, "file://"); ok {
		return after, true
	}
	if strings.Contains(target, "://") {
		return "", false
	}
	if _, err := os.Stat(target); err == nil {
		return target, true
	}
	return "", false
}

// parseLocalFile reads and parses an HTML file from disk.
func parseLocalFile(path string) (*html.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// ExtractStep finalizes the text used for scoring: it extracts the
// article text when an earlier step supplied only a DOM (for example a
// local HTML file) and records the text hash identifying the content.
type ExtractStep struct {
	logger *slog.Logger
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(logger *slog.Logger) *ExtractStep {
	return &ExtractStep{logger: logger}
}

// Name returns the step name.
func (s *ExtractStep) Name() string { return "extract" }

// Do ensures the report carries non-empty page text and its hash.
func (s *ExtractStep) Do(_ context.Context, report *model.AnalysisReport) error {
	if report.PageText == "" {
		if report.Document == nil {
			return extract.ErrNoText
		}
		text, err := extract.Extract(report.Document)
		if err != nil {
			return err
		}
		report.PageText = text
	}
	report.TextHash = reputation.HashText(report.PageText)
	s.logger.Debug("text ready for scoring",
		"chars", len(report.PageText),
		"hash", report.TextHash,
	)
	return nil
}

// ScoreStep sends the page text for credibility scoring and blends the
// result with the domain's stored reputation.
type ScoreStep struct {
	scorer *score.Scorer
}

// NewScoreStep creates a ScoreStep backed by the given scorer.
func NewScoreStep(scorer *score.Scorer) *ScoreStep {
	return &ScoreStep{scorer: scorer}
}

// Name returns the step name.
func (s *ScoreStep) Name() string { return "score" }

// Do scores the page text.
func (s *ScoreStep) Do(ctx context.Context, report *model.AnalysisReport) error {
	result, info, err := s.scorer.Score(ctx, report.Domain, report.PageText, report.Sensitivity)
	if err != nil {
		return err
	}
	report.Result = result
	report.DomainInfo = info
	return nil
}

// AnnotateStep highlights the flagged snippets in the page DOM and
// serializes the annotated document.
type AnnotateStep struct {
	logger *slog.Logger
}

// NewAnnotateStep creates an AnnotateStep.
func NewAnnotateStep(logger *slog.Logger) *AnnotateStep {
	return &AnnotateStep{logger: logger}
}

// Name returns the step name.
func (s *AnnotateStep) Name() string { return "annotate" }

// Do applies highlights in place. Flags whose snippets cannot be
// located are an accepted loss and only lower the applied count.
func (s *AnnotateStep) Do(_ context.Context, report *model.AnalysisReport) error {
	if report.Document == nil {
		return nil
	}
	annotate.InjectStyles(report.Document)
	report.HighlightsApplied = annotate.Apply(report.Document, report.Result.Flags)
	if report.HighlightsApplied < len(report.Result.Flags) {
		s.logger.Debug("some snippets were not found on the page",
			"applied", report.HighlightsApplied,
			"flags", len(report.Result.Flags),
		)
	}

	var sb strings.Builder
	if err := html.Render(&sb, report.Document); err != nil {
		return fmt.Errorf("render annotated page: %w", err)
	}
	report.AnnotatedHTML = sb.String()
	return nil
}

// PersistStep records the scan in history and, for low-scoring pages
// on domains without an unreliable rating yet, contributes a
// reputation sample.
//
// Design decision: Storage failures here are non-fatal. The scan's
// value to the user is the score and the highlights, both already
// computed; losing a history row should not turn a finished analysis
// into an error.
type PersistStep struct {
	store  *reputation.Store
	logger *slog.Logger
}

// NewPersistStep creates a PersistStep. A nil store disables
// persistence entirely (degraded mode).
func NewPersistStep(store *reputation.Store, logger *slog.Logger) *PersistStep {
	return &PersistStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string { return "persist" }

// Do saves the scan and feeds the reputation ledger.
func (s *PersistStep) Do(ctx context.Context, report *model.AnalysisReport) error {
	if s.store == nil {
		s.logger.Debug("no reputation store, skipping persistence")
		return nil
	}

	if err := s.store.SaveScan(ctx, report); err != nil {
		s.logger.Warn("failed to save scan history",
			"url", report.URL,
			"error", err,
		)
	}

	if report.Domain == "" {
		return nil
	}
	if report.Result.Score > autoRecordThreshold || report.DomainInfo.IsUnreliable {
		return nil
	}
	if err := s.store.RecordSample(ctx, report.Domain, report.Result.Score); err != nil {
		s.logger.Warn("failed to record reputation sample",
			"domain", report.Domain,
			"error", err,
		)
	}
	return nil
}
