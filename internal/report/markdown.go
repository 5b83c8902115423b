package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/credshield/credshield/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AnalysisReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	if report.Error != nil {
		md.Warning("Analysis failed: " + report.ErrorMessage)
		return len(md.String()), md.Build()
	}

	w.writeReputation(md, report)
	w.writeFlags(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AnalysisReport) {
	md.H1("Credibility Report")
	md.PlainText("")

	rows := [][]string{
		{"URL", "`" + report.URL + "`"},
		{"Sensitivity", tierLabel(report.Sensitivity)},
	}
	if report.Domain != "" {
		rows = append(rows, []string{"Domain", "`" + report.Domain + "`"})
	}
	if report.Error == nil {
		rows = append(rows,
			[]string{"Score", fmt.Sprintf("%d/100 (%s)", report.Result.Score, verdict(report.Result.Score))},
			[]string{"Flags", strconv.Itoa(len(report.Result.Flags))},
			[]string{"Highlights", strconv.Itoa(report.HighlightsApplied)},
		)
	}
	if !report.StartedAt.IsZero() {
		rows = append(rows, []string{"Scanned", report.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeReputation writes the domain reputation section.
func (w *MarkdownWriter) writeReputation(md *markdown.Markdown, report *model.AnalysisReport) {
	info := report.DomainInfo
	switch {
	case info.Reliability == nil:
		return
	case info.IsUnreliable:
		md.Warning(fmt.Sprintf("The domain `%s` is rated unreliable (reliability %d/10). The score has been capped accordingly.",
			info.Name, *info.Reliability))
	default:
		md.Note(fmt.Sprintf("The domain `%s` has a stored reliability of %d/10.",
			info.Name, *info.Reliability))
	}
	md.PlainText("")
}

// writeFlags writes the flagged-content table.
func (w *MarkdownWriter) writeFlags(md *markdown.Markdown, report *model.AnalysisReport) {
	md.H2("Flagged Content")
	md.PlainText("")

	flags := report.Result.Flags
	if len(flags) == 0 {
		md.PlainText("No problematic content was flagged.")
		return
	}

	rows := make([][]string, 0, len(flags))
	for _, flag := range flags {
		rows = append(rows, []string{condense(flag.Snippet), flag.Reason})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Snippet", "Reason"},
		Rows:   rows,
	})
}
