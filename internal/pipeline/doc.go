// Package pipeline orchestrates the steps of a page analysis: fetch,
// extract, score, annotate, and persist. Steps share a single mutable
// report and run in a fixed order; a batch processor runs independent
// pages concurrently.
package pipeline
