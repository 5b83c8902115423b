package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/credshield/credshield/internal/config"
	"github.com/credshield/credshield/internal/llm"
	"github.com/credshield/credshield/internal/log"
	"github.com/credshield/credshield/internal/model"
	"github.com/credshield/credshield/internal/score"
	"github.com/credshield/credshield/internal/search"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [snippet]",
		Short: "Fact-check a flagged text snippet",
		Long: `Verify asks the LLM endpoint to fact-check one flagged snippet.

At the light and medium tiers the result is an explanation. At the deep
tier the model also proposes a web search, and the top results are
listed as sources (requires search credentials).

Examples:
  credshield verify --reason "unsupported claim" "vaccines contain microchips"
  credshield verify -s deep --reason "disputed statistic" "crime rose 400% last year"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runVerifyCmd,
	}

	cmd.Flags().StringP("reason", "r", "",
		"Why the snippet was flagged (improves the fact-check prompt)")
	cmd.Flags().StringP("sensitivity", "s", "light",
		"Verification tier: light, medium, or deep")
	cmd.Flags().StringP("config", "c", "",
		"Credentials file path (default: .credshield in current or home directory)")
	cmd.Flags().String("api-key", "",
		"LLM API key (overrides the credentials file)")

	return cmd
}

// runVerifyCmd executes the verify command.
func runVerifyCmd(cmd *cobra.Command, args []string) error {
	snippet := strings.TrimSpace(strings.Join(args, " "))
	if snippet == "" {
		return fmt.Errorf("empty snippet")
	}

	reason, err := cmd.Flags().GetString("reason")
	if err != nil {
		return err
	}
	tierFlag, err := cmd.Flags().GetString("sensitivity")
	if err != nil {
		return err
	}
	tier, err := model.ParseSensitivity(tierFlag)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg.APIKey, err = cmd.Flags().GetString("api-key")
	if err != nil {
		return err
	}
	if err := applyCredentials(cfg); err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("configuration error: %w", config.ErrNoAPIKey)
	}

	logger := log.NewLogger(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := llm.New(cfg.ScoreEndpoint, cfg.APIKey,
		llm.WithTimeout(cfg.Timeout),
		llm.WithLogger(logger),
	)

	opts := []score.VerifierOption{score.WithVerifierLogger(logger)}
	if tier.SearchesSources() {
		if cfg.SearchAPIKey == "" || cfg.SearchEngineID == "" {
			return fmt.Errorf("deep verification needs search credentials: %w", config.ErrNoAPIKey)
		}
		opts = append(opts, score.WithSearcher(
			search.New(cfg.SearchEndpoint, cfg.SearchAPIKey, cfg.SearchEngineID,
				search.WithTimeout(cfg.Timeout)),
		))
	}
	verifier := score.NewVerifier(client, opts...)

	result, err := verifier.Verify(ctx, snippet, reason, tier)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Snippet: %q\n\n", snippet)
	fmt.Fprintf(out, "%s\n", result.Summary)
	if len(result.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, src := range result.Sources {
			if src == "" {
				continue
			}
			fmt.Fprintf(out, "  - %s\n", src)
		}
	}
	return nil
}
