// Package work hands crawl work to workers and ingests their results.
//
// Dispatch has no lease: a dispatched URL leaves the frontier and only
// comes back through a later fill once the freshness window has passed,
// or when it is discovered again as a link target.
package work

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/pipeline"
)

// ErrInvalidURL is returned by Submit for submissions with invalid URLs.
var ErrInvalidURL = pipeline.ErrInvalidURL

// Queue is the frontier as seen by the dispatcher.
type Queue interface {
	Take(ctx context.Context) (string, bool, error)
}

// Observer is notified about dispatches and ingestions.
type Observer interface {
	WorkDispatched(found bool)
	WorkIngested(in *pipeline.Ingestion, err error)
}

type nopObserver struct{}

func (nopObserver) WorkDispatched(bool)                    {}
func (nopObserver) WorkIngested(*pipeline.Ingestion, error) {}

// Service implements the work distribution protocol.
type Service struct {
	queue    Queue
	ingest   pipeline.Executor
	observer Observer
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithObserver sets the observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service that dispatches from queue and ingests with p.
func NewService(queue Queue, p pipeline.Executor, opts ...Option) *Service {
	s := &Service{
		queue:    queue,
		ingest:   p,
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch returns the next URL to crawl, or "" when there is no work.
// A refill error after a URL was already taken is logged, not returned,
// so the taken URL is not lost.
func (s *Service) Dispatch(ctx context.Context) (string, error) {
	url, ok, err := s.queue.Take(ctx)
	if err != nil {
		if !ok {
			return "", err
		}
		s.logger.Warn("frontier refill failed", "error", err)
	}

	s.observer.WorkDispatched(ok)
	if ok {
		s.logger.Debug("dispatched work", "url", url)
	}
	return url, nil
}

// Submit ingests one worker result. The returned Ingestion describes what
// was written even when an error is returned.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (*pipeline.Ingestion, error) {
	in := pipeline.NewIngestion(sub)
	err := s.ingest.Execute(ctx, in)
	s.observer.WorkIngested(in, err)

	if err != nil && !errors.Is(err, ErrInvalidURL) {
		s.logger.Error("ingestion failed",
			"orig_url", sub.OrigURL,
			"result_url", sub.ResultURL,
			"error", err,
		)
	}
	return in, err
}
