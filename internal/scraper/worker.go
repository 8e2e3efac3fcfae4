package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/badgegraph/internal/model"
)

// Default worker settings.
const (
	DefaultConcurrency = 4
	DefaultIdleDelay   = 10 * time.Second
)

// WorkClient is the coordinator surface a Worker needs.
type WorkClient interface {
	FetchWork(ctx context.Context) (string, error)
	SubmitWork(ctx context.Context, sub model.Submission) error
}

// PageScraper turns a URL into a submission.
type PageScraper interface {
	Scrape(ctx context.Context, pageURL string) (model.Submission, error)
}

// Worker runs scrape loops against the coordinator.
type Worker struct {
	client      WorkClient
	scraper     PageScraper
	concurrency int
	idleDelay   time.Duration
	logger      *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithConcurrency sets the number of concurrent loops.
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithIdleDelay sets how long a loop waits when there is no work or the
// coordinator is unreachable.
func WithIdleDelay(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.idleDelay = d
		}
	}
}

// WithWorkerLogger sets the logger. Default is slog.Default().
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker creates a Worker.
func NewWorker(client WorkClient, scraper PageScraper, opts ...WorkerOption) *Worker {
	w := &Worker{
		client:      client,
		scraper:     scraper,
		concurrency: DefaultConcurrency,
		idleDelay:   DefaultIdleDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the loops and blocks until ctx is cancelled or the
// coordinator rejects the API key. Cancellation is not an error.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting worker", "concurrency", w.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := range w.concurrency {
		g.Go(func() error {
			return w.loop(gctx, i)
		})
	}

	err := g.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	w.logger.Info("worker stopped")
	return nil
}

func (w *Worker) loop(ctx context.Context, id int) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		worked, err := w.Step(ctx)
		switch {
		case errors.Is(err, ErrUnauthorized):
			return err
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("work cycle failed", "loop", id, "error", err)
		case worked:
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.idleDelay):
		}
	}
}

// Step fetches, scrapes and submits one URL. It reports false when the
// coordinator had no work.
func (w *Worker) Step(ctx context.Context) (bool, error) {
	url, err := w.client.FetchWork(ctx)
	if err != nil {
		return false, err
	}
	if url == "" {
		return false, nil
	}

	sub, err := w.scraper.Scrape(ctx, url)
	if err != nil {
		return false, err
	}

	if err := w.client.SubmitWork(ctx, sub); err != nil {
		if errors.Is(err, ErrRejected) {
			// The coordinator refused this URL; move on to the next one.
			w.logger.Debug("submission rejected", "url", url, "result_url", sub.ResultURL)
			return true, nil
		}
		return false, err
	}

	w.logger.Debug("submitted work",
		"url", url,
		"result_url", sub.ResultURL,
		"success", sub.Success,
		"links", len(sub.Links),
	)
	return true, nil
}
