package graph

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/badgegraph/internal/model"
)

// Observer is notified after every export run.
type Observer interface {
	GraphExported(elapsed time.Duration, g *model.Graph, err error)
}

type nopObserver struct{}

func (nopObserver) GraphExported(time.Duration, *model.Graph, error) {}

// Job runs export-then-write, at most one at a time.
type Job struct {
	exporter *Exporter
	writer   *Writer
	observer Observer
	logger   *slog.Logger

	// runMu serializes runs; running tracks background runs for Trigger.
	runMu   sync.Mutex
	running atomic.Bool
	wg      sync.WaitGroup
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithJobObserver sets the observer.
func WithJobObserver(o Observer) JobOption {
	return func(j *Job) {
		if o != nil {
			j.observer = o
		}
	}
}

// WithJobLogger sets the logger.
func WithJobLogger(logger *slog.Logger) JobOption {
	return func(j *Job) {
		j.logger = logger
	}
}

// NewJob creates a Job.
func NewJob(exporter *Exporter, writer *Writer, opts ...JobOption) *Job {
	j := &Job{
		exporter: exporter,
		writer:   writer,
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run exports the graph and writes it, waiting for any other run first.
func (j *Job) Run(ctx context.Context) (*model.Graph, error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	start := time.Now()
	g, err := j.exporter.Export(ctx)
	if err == nil {
		err = j.writer.Write(g)
	}
	elapsed := time.Since(start)
	j.observer.GraphExported(elapsed, g, err)

	if err != nil {
		j.logger.Error("graph export failed", "error", err)
		return nil, err
	}
	j.logger.Info("wrote graph",
		"path", j.writer.Path(),
		"hosts", len(g.Hosts()),
		"edges", g.EdgeCount(),
		"elapsed", elapsed,
	)
	return g, nil
}

// Trigger starts a background run and returns immediately. It returns false
// when a background run is already in progress, in which case nothing new
// is started. ctx must outlive the request that triggered the run.
func (j *Job) Trigger(ctx context.Context) bool {
	if !j.running.CompareAndSwap(false, true) {
		return false
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer j.running.Store(false)
		_, _ = j.Run(ctx) //nolint:errcheck // logged by Run
	}()
	return true
}

// Running reports whether a background run is in progress.
func (j *Job) Running() bool {
	return j.running.Load()
}

// Wait blocks until background runs finish.
func (j *Job) Wait() {
	j.wg.Wait()
}
