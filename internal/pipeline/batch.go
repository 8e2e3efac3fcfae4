package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/badgegraph/internal/model"
)

// BatchResult is the outcome of ingesting one submission of a batch.
type BatchResult struct {
	Ingestion *Ingestion
	Err       error
}

// BatchProcessor ingests many submissions concurrently, e.g. when replaying
// results saved by offline workers.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on a single submission
// 2. One invalid submission must not cancel the others
type BatchProcessor struct {
	// pipeline is shared by all submissions; Execute keeps no state.
	pipeline Executor

	// concurrency is the maximum number of concurrent ingestions.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent ingestions.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor running p.
func NewBatchProcessor(p Executor, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipeline:    p,
		concurrency: 4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch ingests subs and returns one result per submission, in
// input order. Failed submissions are reported in their result and do not
// stop the others. The returned error is non-nil only when ctx ends first.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, subs []model.Submission) ([]BatchResult, error) {
	bp.logger.Info("starting batch ingestion",
		"total", len(subs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Each goroutine writes only its own index.
	results := make([]BatchResult, len(subs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, sub := range subs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			in := NewIngestion(sub)
			err := bp.pipeline.Execute(ctx, in)
			results[i] = BatchResult{Ingestion: in, Err: err}

			if err != nil {
				bp.logger.Warn("ingestion failed",
					"url", sub.ResultURL,
					"error", err,
				)
			}
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch ingestion complete",
		"total", len(subs),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
