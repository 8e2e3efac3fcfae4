package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/badgegraph/internal/model"
)

// DefaultImageConcurrency is how many badge images of one page are
// downloaded at once.
const DefaultImageConcurrency = 4

// maxCachedImages bounds the badge cache; it is cleared when full.
const maxCachedImages = 10000

// badgeResult is the cached outcome of checking one image URL.
type badgeResult struct {
	hash string
	ok   bool
}

// Scraper turns one URL into a submission.
type Scraper struct {
	fetcher          *Fetcher
	imageConcurrency int
	logger           *slog.Logger

	mu    sync.Mutex
	cache map[string]badgeResult
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithImageConcurrency sets how many images of one page are fetched at once.
func WithImageConcurrency(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.imageConcurrency = n
		}
	}
}

// WithScraperLogger sets the logger. Default is slog.Default().
func WithScraperLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scraper.
func New(fetcher *Fetcher, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:          fetcher,
		imageConcurrency: DefaultImageConcurrency,
		logger:           slog.Default(),
		cache:            make(map[string]badgeResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches pageURL and reports its badge links. Fetch failures
// produce an unsuccessful submission, never an error; the only error is
// ctx's.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (model.Submission, error) {
	sub := model.Submission{OrigURL: pageURL, ResultURL: pageURL}

	page, err := s.fetcher.FetchPage(ctx, pageURL)
	if page != nil {
		sub.ResultURL = page.FinalURL
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return sub, ctxErr
		}
		s.logger.Debug("page fetch failed", "url", pageURL, "error", err)
		return sub, nil
	}

	sub.Success = true
	sub.Links = []model.SubmittedLink{}
	if !page.IsHTML() {
		return sub, nil
	}

	parser, err := NewParser(page.FinalURL)
	if err != nil {
		sub.Success = false
		sub.Links = nil
		return sub, nil
	}
	candidates, err := parser.Parse(page.Body, page.ContentType)
	if err != nil {
		s.logger.Debug("page parse failed", "url", page.FinalURL, "error", err)
		sub.Success = false
		sub.Links = nil
		return sub, nil
	}

	links, err := s.badges(ctx, candidates)
	if err != nil {
		return sub, err
	}
	sub.Links = links

	s.logger.Debug("scraped page",
		"url", page.FinalURL,
		"candidates", len(candidates),
		"badges", len(links),
	)
	return sub, nil
}

// badges checks every candidate image and keeps the ones that are badges,
// in document order.
func (s *Scraper) badges(ctx context.Context, candidates []Candidate) ([]model.SubmittedLink, error) {
	results := make([]badgeResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.imageConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = s.check(gctx, c.Image)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	links := make([]model.SubmittedLink, 0, len(candidates))
	for i, c := range candidates {
		if !results[i].ok {
			continue
		}
		links = append(links, model.SubmittedLink{
			To:        c.To,
			Image:     c.Image,
			ImageHash: results[i].hash,
		})
	}
	return links, nil
}

// check downloads and measures one image, consulting the cache first.
func (s *Scraper) check(ctx context.Context, imageURL string) badgeResult {
	s.mu.Lock()
	r, ok := s.cache[imageURL]
	s.mu.Unlock()
	if ok {
		return r
	}

	data, err := s.fetcher.FetchImage(ctx, imageURL)
	if err != nil {
		// Transient failures are not cached.
		s.logger.Debug("image fetch failed", "image", imageURL, "error", err)
		return badgeResult{}
	}

	if err := CheckBadge(data); err != nil {
		if !errors.Is(err, ErrNotBadge) {
			return badgeResult{}
		}
		r = badgeResult{}
	} else {
		r = badgeResult{hash: model.ContentHash(data), ok: true}
	}

	s.mu.Lock()
	if len(s.cache) >= maxCachedImages {
		clear(s.cache)
	}
	s.cache[imageURL] = r
	s.mu.Unlock()
	return r
}
