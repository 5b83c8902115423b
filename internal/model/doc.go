// Package model defines the core domain types for credshield.
//
// This package contains the value objects shared across the analysis
// pipeline:
//   - Flag, ScoreResult: the outcome of a credibility scoring call
//   - VerificationResult: the outcome of verifying a single flagged snippet
//   - Sensitivity: the scan tier (light, medium, deep)
//   - DomainInfo, ReputationRecord, DomainScore: domain reputation data
//   - AnalysisReport: the accumulator passed through the scan pipeline
//
// Design decision: Types in this package carry no behavior beyond
// validation and formatting. Business logic (blending, promotion,
// annotation) lives in the packages that own it, so model can be
// imported anywhere without dependency cycles.
package model
