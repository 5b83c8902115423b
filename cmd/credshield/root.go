package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for credshield.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credshield",
		Short: "Credibility scoring for web pages",
		Long: `credshield analyzes the credibility of web pages.

It extracts the readable article text from a page, scores it with an
LLM endpoint, blends the raw score with the domain's stored reputation,
and reports flagged passages. Repeatedly low-scoring domains are
promoted to an unreliable list that caps future scores.

A credentials file (.credshield) supplies the API keys:
  api_key: "your-llm-api-key"
  search_api_key: "your-search-api-key"
  search_engine_id: "your-engine-id"`,
		Version:       rootVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewDomainsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
