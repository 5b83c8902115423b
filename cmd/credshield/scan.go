package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/credshield/credshield/internal/config"
	"github.com/credshield/credshield/internal/fetch"
	"github.com/credshield/credshield/internal/llm"
	"github.com/credshield/credshield/internal/log"
	"github.com/credshield/credshield/internal/model"
	"github.com/credshield/credshield/internal/pipeline"
	"github.com/credshield/credshield/internal/report"
	"github.com/credshield/credshield/internal/reputation"
	"github.com/credshield/credshield/internal/score"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Analyze the credibility of one or more web pages",
		Long: `Scan downloads each page, extracts its article text, scores it with
the configured LLM endpoint, and blends the score with the domain's
stored reputation. Pages scoring at or below 50 on domains not yet
rated unreliable contribute a reputation sample automatically.

Examples:
  # Scan a single page
  credshield scan https://news.example/story

  # Scan several pages concurrently at the deep sensitivity tier
  credshield scan -s deep https://a.example/1 https://b.example/2

  # Output a JSON report to a file
  credshield scan --json -o report.json https://news.example/story

  # Scan a saved HTML file (no domain reputation applies)
  credshield scan ./saved-article.html

  # Save the page with flagged passages highlighted
  credshield scan --annotated-html story.html https://news.example/story`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("sensitivity", "s", "light",
		"Scan sensitivity tier: light, medium, or deep")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each network call")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")
	cmd.Flags().StringP("config", "c", "",
		"Credentials file path (default: .credshield in current or home directory)")
	cmd.Flags().String("api-key", "",
		"LLM API key (overrides the credentials file)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("annotated-html", "",
		"Write the page with highlighted passages to this file")
	cmd.Flags().String("db-dir", "",
		"Reputation database directory (default: XDG data directory)")
	cmd.Flags().Bool("no-db", false,
		"Disable the reputation database for this run")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("configuration error: %w", config.ErrNoAPIKey)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// credentials file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Sensitivity, err = cmd.Flags().GetString("sensitivity")
	if err != nil {
		return nil, err
	}
	if _, err := model.ParseSensitivity(cfg.Sensitivity); err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.APIKey, err = cmd.Flags().GetString("api-key")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.AnnotatedFile, err = cmd.Flags().GetString("annotated-html")
	if err != nil {
		return nil, err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	if noDB {
		cfg.DBDir = ""
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args

	if err := applyCredentials(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyCredentials loads the credentials file into the config.
// An explicitly specified file must exist; otherwise a missing file
// just leaves the credentials empty.
func applyCredentials(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("credentials file not found: %s", cfg.ConfigFilePath)
		}
		return nil
	}
	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load credentials file %s: %w", path, err)
	}
	cfg.Apply(file)
	return nil
}

// runScan executes the scan.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tier, err := model.ParseSensitivity(cfg.Sensitivity)
	if err != nil {
		return err
	}

	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"sensitivity", tier.String(),
		"batchSize", cfg.BatchSize,
	)

	// The reputation store is optional: scans degrade to unblended
	// scoring when it cannot be opened.
	var store *reputation.Store
	if cfg.DBDir != "" {
		store, err = reputation.Open(cfg.DBDir, reputation.DefaultOptions())
		if err != nil {
			logger.Warn("could not open reputation database, continuing without it",
				"dir", cfg.DBDir, "error", err)
		} else {
			defer store.Close()
			logger.Info("reputation database opened", "dir", cfg.DBDir)
		}
	}

	factory := newPipelineFactory(cfg, store, logger)

	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, factory, tier, logger)
	}
	return runSequentialScan(ctx, cfg, factory, tier, logger)
}

// newPipelineFactory builds the per-scan pipeline constructor sharing
// one HTTP client and one set of backend clients.
func newPipelineFactory(cfg *config.Config, store *reputation.Store, logger *slog.Logger) func() *pipeline.Pipeline {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	fetcher := fetch.New(
		fetch.WithHTTPClient(httpClient),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithRetries(cfg.FetchRetries, cfg.FetchRetryDelay),
	)

	client := llm.New(cfg.ScoreEndpoint, cfg.APIKey,
		llm.WithTimeout(cfg.Timeout),
		llm.WithMaxBodySize(cfg.MaxBodySize),
		llm.WithLogger(logger),
	)

	scorerOpts := []score.ScorerOption{score.WithLogger(logger)}
	if store != nil {
		scorerOpts = append(scorerOpts, score.WithReputation(store))
	}
	scorer := score.NewScorer(client, scorerOpts...)

	return func() *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddSteps(
			pipeline.NewFetchStep(fetcher, logger),
			pipeline.NewExtractStep(logger),
			pipeline.NewScoreStep(scorer),
			pipeline.NewAnnotateStep(logger),
			pipeline.NewPersistStep(store, logger),
		)
		return p
	}
}

// runSequentialScan analyzes targets one at a time.
func runSequentialScan(ctx context.Context, cfg *config.Config, factory func() *pipeline.Pipeline, tier model.Sensitivity, logger *slog.Logger) error {
	for i, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("Analyzing %s...\n", target)
		startTime := time.Now()

		scanReport := model.NewAnalysisReport(target, tier)
		if err := factory().Execute(ctx, scanReport); err != nil {
			logger.Error("scan failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Analysis error for %s: %v\n", target, err)
			continue
		}
		scanReport.FinishedAt = time.Now()

		fmt.Printf("Analysis completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

		if err := outputReport(cfg, scanReport); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}
		if err := writeAnnotatedHTML(cfg, scanReport, i, len(cfg.Targets)); err != nil {
			logger.Error("failed to write annotated page", "target", target, "error", err)
		}
	}

	return nil
}

// runBatchScan analyzes multiple targets concurrently.
func runBatchScan(ctx context.Context, cfg *config.Config, factory func() *pipeline.Pipeline, tier model.Sensitivity, logger *slog.Logger) error {
	fmt.Printf("Starting batch analysis of %d pages (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	reports, err := bp.ProcessBatch(ctx, cfg.Targets, tier)
	if err != nil {
		return err
	}

	for i, scanReport := range reports {
		if scanReport == nil {
			continue
		}
		if !scanReport.Succeeded() {
			fmt.Fprintf(os.Stderr, "Analysis error for %s: %s\n", scanReport.URL, scanReport.ErrorMessage)
		}
		if err := outputReport(cfg, scanReport); err != nil {
			logger.Error("report failed", "target", scanReport.URL, "error", err)
		}
		if err := writeAnnotatedHTML(cfg, scanReport, i, len(reports)); err != nil {
			logger.Error("failed to write annotated page", "target", scanReport.URL, "error", err)
		}
	}

	return nil
}

// outputReport writes the report in the selected format to stdout or
// the configured file.
func outputReport(cfg *config.Config, scanReport *model.AnalysisReport) error {
	var out io.Writer = os.Stdout
	if cfg.ReportFile != "" {
		f, err := report.CreateFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}

	_, err := w.Write(scanReport)
	return err
}

// writeAnnotatedHTML saves the highlighted page when requested. With
// multiple targets the index is appended to keep the files apart.
func writeAnnotatedHTML(cfg *config.Config, scanReport *model.AnalysisReport, index, total int) error {
	if cfg.AnnotatedFile == "" || scanReport.AnnotatedHTML == "" {
		return nil
	}

	path := cfg.AnnotatedFile
	if total > 1 {
		path = fmt.Sprintf("%s.%d", path, index+1)
	}
	f, err := report.CreateFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.WriteString(f, scanReport.AnnotatedHTML)
	return err
}
