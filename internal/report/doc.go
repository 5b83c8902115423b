// Package report renders analysis results in human-readable text,
// JSON, and Markdown formats.
package report
