package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/credshield/credshield/internal/model"
)

// BatchProcessor handles concurrent analysis of multiple pages.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-page execution
// 2. It allows different batch strategies (e.g., rate limiting)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each page.
	// Each scan gets a fresh pipeline instance so no state leaks
	// between pages.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent scans.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed reports, indexed like the input slice.
	results []*model.AnalysisReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each page to create a
// fresh pipeline instance.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*model.AnalysisReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch analyzes multiple pages concurrently at the given
// sensitivity tier. It respects the configured concurrency limit and
// context cancellation.
//
// Returns all reports in input order, including those for pages that
// failed; a failed page's report carries its error. The error return
// indicates batch-level cancellation, not per-page failure.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string, tier model.Sensitivity) ([]*model.AnalysisReport, error) {
	bp.logger.Info("starting batch analysis",
		"total_pages", len(urls),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	bp.results = make([]*model.AnalysisReport, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("analyzing page",
				"url", url,
				"index", i+1,
				"total", len(urls),
			)

			report := model.NewAnalysisReport(url, tier)
			pipeline := bp.pipelineFactory()
			err := pipeline.Execute(ctx, report)
			report.FinishedAt = time.Now()

			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("page analysis failed",
					"url", url,
					"error", err,
				)
				// The error stays in the report so other pages continue.
				return nil
			}

			bp.logger.Info("page analysis completed",
				"url", url,
				"score", report.Result.Score,
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch analysis complete",
		"total_pages", len(urls),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}
