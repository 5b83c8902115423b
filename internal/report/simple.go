package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/credshield/credshield/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AnalysisReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	if report.Error != nil {
		w.writeError(&sb, report)
		return io.WriteString(w.output, sb.String())
	}

	w.writeScore(&sb, report)
	w.writeReputation(&sb, report)
	w.writeFlags(&sb, report)
	if w.verbose {
		w.writeDetails(&sb, report)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AnalysisReport) {
	fmt.Fprintf(sb, "=== Credibility Analysis ===\n")
	fmt.Fprintf(sb, "URL:         %s\n", report.URL)
	if report.Domain != "" {
		fmt.Fprintf(sb, "Domain:      %s\n", report.Domain)
	}
	fmt.Fprintf(sb, "Sensitivity: %s\n", tierLabel(report.Sensitivity))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeError(sb *strings.Builder, report *model.AnalysisReport) {
	fmt.Fprintf(sb, "Analysis failed: %s\n", report.ErrorMessage)
}

func (w *SimpleWriter) writeScore(sb *strings.Builder, report *model.AnalysisReport) {
	fmt.Fprintf(sb, "Score:   %d/100 (%s)\n", report.Result.Score, verdict(report.Result.Score))
}

func (w *SimpleWriter) writeReputation(sb *strings.Builder, report *model.AnalysisReport) {
	info := report.DomainInfo
	switch {
	case info.Reliability == nil:
		sb.WriteString("Domain:  no stored reputation\n")
	case info.IsUnreliable:
		fmt.Fprintf(sb, "Domain:  rated UNRELIABLE (reliability %d/10)\n", *info.Reliability)
	default:
		fmt.Fprintf(sb, "Domain:  reliability %d/10\n", *info.Reliability)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFlags(sb *strings.Builder, report *model.AnalysisReport) {
	flags := report.Result.Flags
	if len(flags) == 0 {
		sb.WriteString("No problematic content flagged.\n")
		return
	}

	fmt.Fprintf(sb, "Flagged content (%d):\n", len(flags))
	for i, flag := range flags {
		fmt.Fprintf(sb, "  %d. %q\n", i+1, condense(flag.Snippet))
		fmt.Fprintf(sb, "     %s\n", flag.Reason)
	}
}

func (w *SimpleWriter) writeDetails(sb *strings.Builder, report *model.AnalysisReport) {
	sb.WriteString("\nDetails:\n")
	if report.TextHash != "" {
		fmt.Fprintf(sb, "  Text hash:  %s\n", report.TextHash)
	}
	fmt.Fprintf(sb, "  Highlights: %d applied\n", report.HighlightsApplied)
	if len(report.PerformedSteps) > 0 {
		fmt.Fprintf(sb, "  Steps:      %s\n", strings.Join(report.PerformedSteps, ", "))
	}
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(sb, "  Duration:   %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
}

// condense shortens a snippet to one display line.
func condense(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const maxLen = 80
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
