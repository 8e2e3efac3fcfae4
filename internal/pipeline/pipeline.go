package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/badgegraph/internal/model"
)

// Ingestion is the state of one submission as it moves through the pipeline.
type Ingestion struct {
	// Submission is the worker's report.
	Submission model.Submission

	// Host is the canonical hostname of the result URL.
	Host string

	// ScrapedAt is the freshness timestamp written to the result page.
	ScrapedAt time.Time

	// RedirectRecorded is true when an orig -> result redirect was stored.
	RedirectRecorded bool

	// Stopped is set by a step to skip the remaining steps.
	Stopped bool

	// LinksRecorded counts links upserted into the store.
	LinksRecorded int

	// LinksSkipped counts reported links dropped for invalid targets.
	LinksSkipped int

	// PagesCreated counts link targets seen for the first time.
	PagesCreated int

	// Offered counts link targets added to the frontier.
	Offered int

	// LinksDeleted counts links removed by the hard failure policy.
	LinksDeleted int64

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string
}

// NewIngestion creates the pipeline state for sub.
func NewIngestion(sub model.Submission) *Ingestion {
	return &Ingestion{Submission: sub}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the ingestion
// state accumulated by previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry their dependencies
// 2. It provides a Name() method for logging and debugging
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the submission cannot be ingested; per-record
	// problems should be counted on the Ingestion and return nil.
	Do(ctx context.Context, in *Ingestion) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in sequence until one fails, one sets Stopped,
// or ctx is cancelled. It returns the first error.
func (p *Pipeline) Execute(ctx context.Context, in *Ingestion) error {
	for _, step := range p.steps {
		if in.Stopped {
			break
		}

		// Check for cancellation before starting each step
		select {
		case <-ctx.Done():
			p.logger.Warn("ingestion cancelled",
				"step", step.Name(),
				"url", in.Submission.ResultURL,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		if err := step.Do(ctx, in); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"url", in.Submission.ResultURL,
				"error", err,
			)
			return err
		}

		in.PerformedSteps = append(in.PerformedSteps, step.Name())
	}

	p.logger.Debug("ingestion completed",
		"url", in.Submission.ResultURL,
		"steps", len(in.PerformedSteps),
		"links", in.LinksRecorded,
		"skipped", in.LinksSkipped,
		"offered", in.Offered,
	)
	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
