// Package main provides the entry point for the credshield CLI.
//
// credshield scores the credibility of web pages. It extracts the main
// article text, sends it to an LLM scoring endpoint, blends the result
// with stored domain reputation, and can highlight the flagged passages
// directly in a saved copy of the page.
//
// Usage:
//
//	credshield scan <url>
//	credshield verify --reason "why it was flagged" "the snippet"
//	credshield domains
//
// See --help for all available options.
package main

// main is the entry point for credshield.
func main() {
	Execute()
}
