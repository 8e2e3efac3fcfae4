package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/urlcanon"
)

// PageStore is the Link Store write surface used during ingestion.
type PageStore interface {
	UpsertScrapedPage(ctx context.Context, url, domain string, at time.Time) error
	EnsurePage(ctx context.Context, url, domain string) (bool, error)
	UpsertLink(ctx context.Context, link model.Link) error
	DeleteLinksTouching(ctx context.Context, url string) (int64, error)
}

// Redirects records and resolves single-hop redirects.
type Redirects interface {
	Record(ctx context.Context, from, to string) (bool, error)
	Resolve(ctx context.Context, url string) (string, error)
}

// Recrawler answers whether a URL is due for a crawl.
type Recrawler interface {
	ShouldRecrawl(ctx context.Context, url string) (bool, error)
}

// Offerer accepts newly discovered URLs into the frontier.
type Offerer interface {
	Offer(ctx context.Context, url string) (bool, error)
}

// FailurePolicy decides what a failed scrape does to the graph.
type FailurePolicy string

const (
	// FailureSoft only refreshes the page's freshness so it is retried
	// after the freshness window.
	FailureSoft FailurePolicy = "soft"

	// FailureHard also deletes every link whose source or destination is
	// the failed URL.
	FailureHard FailurePolicy = "hard"
)

// ParseFailurePolicy converts a configuration value to a FailurePolicy.
// The empty string selects FailureSoft.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailureSoft:
		return FailureSoft, nil
	case FailureHard:
		return FailureHard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFailurePolicy, s)
	}
}

// Dependencies are the collaborators of the ingestion steps.
type Dependencies struct {
	Canon     *urlcanon.Canonicalizer
	Store     PageStore
	Redirects Redirects
	Recrawler Recrawler
	Frontier  Offerer

	// FailurePolicy defaults to FailureSoft.
	FailurePolicy FailurePolicy

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewIngestPipeline assembles the standard ingestion steps in order.
func NewIngestPipeline(deps Dependencies, opts ...Option) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FailurePolicy == "" {
		deps.FailurePolicy = FailureSoft
	}

	p := New(append([]Option{WithLogger(deps.Logger)}, opts...)...)
	p.AddSteps(
		NewValidateStep(deps.Canon),
		NewRedirectStep(deps.Redirects),
		NewFreshnessStep(deps.Store, deps.Now),
		NewFailureStep(deps.Store, deps.FailurePolicy, deps.Logger),
		NewLinksStep(deps.Canon, deps.Store, deps.Redirects, deps.Recrawler, deps.Frontier, deps.Logger),
	)
	return p
}

// ValidateStep rejects submissions whose URLs fail canonicalization.
// It writes nothing.
type ValidateStep struct {
	canon *urlcanon.Canonicalizer
}

// NewValidateStep creates a ValidateStep.
func NewValidateStep(canon *urlcanon.Canonicalizer) *ValidateStep {
	return &ValidateStep{canon: canon}
}

// Name returns the step name.
func (s *ValidateStep) Name() string {
	return "validate"
}

// Do executes the validation step.
func (s *ValidateStep) Do(_ context.Context, in *Ingestion) error {
	host := s.canon.Hostname(in.Submission.ResultURL)
	if host == "" {
		return fmt.Errorf("%w: result_url %q", ErrInvalidURL, in.Submission.ResultURL)
	}
	if !s.canon.Validate(in.Submission.OrigURL) {
		return fmt.Errorf("%w: orig_url %q", ErrInvalidURL, in.Submission.OrigURL)
	}
	in.Host = host
	return nil
}

// RedirectStep records orig_url -> result_url when the worker was redirected.
type RedirectStep struct {
	redirects Redirects
}

// NewRedirectStep creates a RedirectStep.
func NewRedirectStep(redirects Redirects) *RedirectStep {
	return &RedirectStep{redirects: redirects}
}

// Name returns the step name.
func (s *RedirectStep) Name() string {
	return "redirect"
}

// Do executes the redirect step.
func (s *RedirectStep) Do(ctx context.Context, in *Ingestion) error {
	if !in.Submission.Redirected() {
		return nil
	}
	recorded, err := s.redirects.Record(ctx, in.Submission.OrigURL, in.Submission.ResultURL)
	if err != nil {
		return fmt.Errorf("failed to record redirect: %w", err)
	}
	in.RedirectRecorded = recorded
	return nil
}

// FreshnessStep upserts the result page with last_scraped = now.
// It runs for failed scrapes too, so a failing URL is not retried at once.
type FreshnessStep struct {
	store PageStore
	now   func() time.Time
}

// NewFreshnessStep creates a FreshnessStep.
func NewFreshnessStep(store PageStore, now func() time.Time) *FreshnessStep {
	return &FreshnessStep{store: store, now: now}
}

// Name returns the step name.
func (s *FreshnessStep) Name() string {
	return "freshness"
}

// Do executes the freshness step.
func (s *FreshnessStep) Do(ctx context.Context, in *Ingestion) error {
	in.ScrapedAt = s.now()
	if err := s.store.UpsertScrapedPage(ctx, in.Submission.ResultURL, in.Host, in.ScrapedAt); err != nil {
		return fmt.Errorf("failed to mark page scraped: %w", err)
	}
	return nil
}

// FailureStep stops the pipeline for unsuccessful scrapes and applies the
// failure policy.
type FailureStep struct {
	store  PageStore
	policy FailurePolicy
	logger *slog.Logger
}

// NewFailureStep creates a FailureStep.
func NewFailureStep(store PageStore, policy FailurePolicy, logger *slog.Logger) *FailureStep {
	return &FailureStep{store: store, policy: policy, logger: logger}
}

// Name returns the step name.
func (s *FailureStep) Name() string {
	return "failure"
}

// Do executes the failure step.
func (s *FailureStep) Do(ctx context.Context, in *Ingestion) error {
	if in.Submission.Success {
		return nil
	}
	in.Stopped = true

	if s.policy != FailureHard {
		return nil
	}

	targets := []string{in.Submission.ResultURL}
	if in.Submission.Redirected() {
		targets = append(targets, in.Submission.OrigURL)
	}
	for _, url := range targets {
		n, err := s.store.DeleteLinksTouching(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to drop links of failed page: %w", err)
		}
		in.LinksDeleted += n
	}

	s.logger.Debug("dropped links of failed page",
		"url", in.Submission.ResultURL,
		"deleted", in.LinksDeleted,
	)
	return nil
}

// LinksStep records every valid reported link and offers newly eligible
// targets to the frontier.
type LinksStep struct {
	canon     *urlcanon.Canonicalizer
	store     PageStore
	redirects Redirects
	recrawler Recrawler
	frontier  Offerer
	logger    *slog.Logger
}

// NewLinksStep creates a LinksStep.
func NewLinksStep(
	canon *urlcanon.Canonicalizer,
	store PageStore,
	redirects Redirects,
	recrawler Recrawler,
	frontier Offerer,
	logger *slog.Logger,
) *LinksStep {
	return &LinksStep{
		canon:     canon,
		store:     store,
		redirects: redirects,
		recrawler: recrawler,
		frontier:  frontier,
		logger:    logger,
	}
}

// Name returns the step name.
func (s *LinksStep) Name() string {
	return "links"
}

// Do executes the links step.
func (s *LinksStep) Do(ctx context.Context, in *Ingestion) error {
	src := in.Submission.ResultURL

	for _, l := range in.Submission.Links {
		if !s.canon.Validate(l.To) {
			in.LinksSkipped++
			s.logger.Debug("skipping link", "src", src, "to", l.To, "reason", "invalid target")
			continue
		}

		target, err := s.redirects.Resolve(ctx, l.To)
		if err != nil {
			return err
		}
		host := s.canon.Hostname(target)
		if host == "" {
			in.LinksSkipped++
			s.logger.Debug("skipping link", "src", src, "to", target, "reason", "invalid redirect target")
			continue
		}

		created, err := s.store.EnsurePage(ctx, target, host)
		if err != nil {
			return err
		}
		if created {
			in.PagesCreated++
		}

		link := model.Link{
			SrcURL:    src,
			DstURL:    target,
			ImageURL:  l.Image,
			ImageHash: l.ImageHash,
		}
		if err := s.store.UpsertLink(ctx, link); err != nil {
			return err
		}
		in.LinksRecorded++

		due, err := s.recrawler.ShouldRecrawl(ctx, target)
		if err != nil {
			return err
		}
		if !due {
			continue
		}
		offered, err := s.frontier.Offer(ctx, target)
		if err != nil {
			return err
		}
		if offered {
			in.Offered++
		}
	}
	return nil
}
