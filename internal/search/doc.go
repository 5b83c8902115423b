// Package search queries a programmable web search endpoint for
// corroborating sources during snippet verification.
package search
