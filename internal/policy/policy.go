package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/urlcanon"
)

// DefaultFreshnessWindow is how long a scraped page stays out of the frontier.
const DefaultFreshnessWindow = 7 * 24 * time.Hour

// Lookup is the read access the predicates need.
// Not-found results are reported as nil, nil.
type Lookup interface {
	GetPage(ctx context.Context, url string) (*model.Page, error)
	LinksFrom(ctx context.Context, src string) ([]model.Link, error)
	GetRedirect(ctx context.Context, from string) (*model.Redirect, error)
}

// Policy evaluates the purge and recrawl predicates.
type Policy struct {
	canon  *urlcanon.Canonicalizer
	lookup Lookup
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Policy.
type Option func(*Policy)

// WithFreshnessWindow sets how long a scraped page is considered fresh.
func WithFreshnessWindow(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.window = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// New creates a Policy over lookup.
func New(canon *urlcanon.Canonicalizer, lookup Lookup, opts ...Option) *Policy {
	p := &Policy{
		canon:  canon,
		lookup: lookup,
		window: DefaultFreshnessWindow,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Window returns the freshness window.
func (p *Policy) Window() time.Duration {
	return p.window
}

// WithLookup returns a copy of p that reads from lookup instead.
func (p *Policy) WithLookup(lookup Lookup) *Policy {
	cp := *p
	cp.lookup = lookup
	return &cp
}

// ShouldPurge reports whether url must never be queued.
//
// A URL is purged when it fails validation, or when the page for it, or for
// its single-hop redirect target, has exactly one outbound link and that
// link points back at the page itself after redirect resolution.
func (p *Policy) ShouldPurge(ctx context.Context, url string) (bool, error) {
	if !p.canon.Validate(url) {
		return true, nil
	}

	selfOnly, err := p.onlySelfLink(ctx, url)
	if err != nil || selfOnly {
		return selfOnly, err
	}

	target, ok, err := p.redirectTarget(ctx, url)
	if err != nil || !ok {
		return false, err
	}
	return p.onlySelfLink(ctx, target)
}

// ShouldRecrawl reports whether url is eligible for the frontier: it is not
// purged and neither it nor its redirect target was scraped within the
// freshness window. Pages never scraped are always eligible.
func (p *Policy) ShouldRecrawl(ctx context.Context, url string) (bool, error) {
	purge, err := p.ShouldPurge(ctx, url)
	if err != nil {
		return false, err
	}
	if purge {
		return false, nil
	}

	fresh, err := p.scrapedRecently(ctx, url)
	if err != nil || fresh {
		return false, err
	}

	target, ok, err := p.redirectTarget(ctx, url)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	fresh, err = p.scrapedRecently(ctx, target)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

func (p *Policy) onlySelfLink(ctx context.Context, url string) (bool, error) {
	links, err := p.lookup.LinksFrom(ctx, url)
	if err != nil {
		return false, fmt.Errorf("failed to load links from %s: %w", url, err)
	}
	if len(links) != 1 {
		return false, nil
	}

	dst := links[0].DstURL
	if dst == url {
		return true, nil
	}
	resolved, ok, err := p.redirectTarget(ctx, dst)
	if err != nil {
		return false, err
	}
	return ok && resolved == url, nil
}

func (p *Policy) scrapedRecently(ctx context.Context, url string) (bool, error) {
	page, err := p.lookup.GetPage(ctx, url)
	if err != nil {
		return false, fmt.Errorf("failed to load page %s: %w", url, err)
	}
	return page.ScrapedWithin(p.now(), p.window), nil
}

func (p *Policy) redirectTarget(ctx context.Context, url string) (string, bool, error) {
	rd, err := p.lookup.GetRedirect(ctx, url)
	if err != nil {
		return "", false, fmt.Errorf("failed to load redirect for %s: %w", url, err)
	}
	if rd == nil {
		return "", false, nil
	}
	return rd.To, true, nil
}
