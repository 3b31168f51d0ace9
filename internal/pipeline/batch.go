package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crawlscope/crawlscope/internal/model"
)

// BatchProcessor handles concurrent processing of multiple seed URLs.
// It uses errgroup to manage goroutines and respect concurrency limits.
// Each seed still gets a sequential breadth-first traversal; concurrency
// applies across seeds, never within one.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-crawl execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each crawl.
	// We use a factory to ensure each crawl gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed crawl reports.
	// Access is synchronized via mutex.
	results []*model.CrawlReport
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

// WithConcurrency sets the maximum number of concurrent crawls.
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
// The pipelineFactory function is called for each crawl to create a fresh
// pipeline instance. This ensures that spider state doesn't leak between
// crawls and allows for per-crawl customization if needed.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		results:         make([]*model.CrawlReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls multiple seeds concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each seed gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports collected in seed order, even for seeds that failed
// or were interrupted. The error return indicates cancellation.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.CrawlReport, error) {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.CrawlReport, len(seeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			job := &Job{Seed: seed}
			pipeline := bp.pipelineFactory()
			err := pipeline.Execute(gctx, job)

			// Store result regardless of error. The report carries the
			// interruption flag for crawls stopped mid-flight.
			bp.mu.Lock()
			bp.results[i] = job.Report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("crawl incomplete",
					"seed", seed,
					"error", err,
				)
				// Don't return the error to errgroup so other seeds continue.
				return nil
			}

			bp.logger.Info("crawl completed",
				"seed", seed,
			)

			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		// Workers absorb per-seed failures so the remaining seeds keep
		// running, which means cancellation of the parent context never
		// reaches g.Wait once every seed is in flight. Surface it here so
		// an interrupted batch is reported as interrupted.
		err = ctx.Err()
	}

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback crawls multiple seeds and calls a callback
// for each completed crawl. This is useful for streaming results.
//
// The callback receives the report and the index of the seed in the
// original slice. The callback is called from the goroutine that completed
// the crawl, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(result *model.CrawlReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			job := &Job{Seed: seed}
			pipeline := bp.pipelineFactory()
			_ = pipeline.Execute(gctx, job) //nolint:errcheck // Interruption is recorded on the report

			callback(job.Report, i)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Workers swallow pipeline errors so interrupted crawls still reach
	// the callback with their partial reports. Cancellation of the parent
	// context must therefore be surfaced separately.
	return ctx.Err()
}
