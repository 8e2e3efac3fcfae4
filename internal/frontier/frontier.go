package frontier

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nao1215/badgegraph/internal/urlcanon"
)

// DefaultPruneInterval is how often Run prunes the queue.
const DefaultPruneInterval = time.Minute

// TargetSource lists every distinct link destination in the Link Store.
type TargetSource interface {
	LinkTargets(ctx context.Context) ([]string, error)
}

// Policy is the purge/recrawl predicate pair.
type Policy interface {
	ShouldPurge(ctx context.Context, url string) (bool, error)
	ShouldRecrawl(ctx context.Context, url string) (bool, error)
}

// Resolver follows one redirect hop.
type Resolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// Observer is notified about queue maintenance.
type Observer interface {
	FrontierFilled(added int)
	FrontierPruned(removed int)
}

type nopObserver struct{}

func (nopObserver) FrontierFilled(int) {}
func (nopObserver) FrontierPruned(int) {}

// Frontier is the crawl queue. It is safe for concurrent use.
type Frontier struct {
	mu    sync.Mutex
	queue []string
	index map[string]struct{}
	rng   *rand.Rand

	canon    *urlcanon.Canonicalizer
	targets  TargetSource
	policy   Policy
	resolver Resolver

	interval time.Duration
	fills    singleflight.Group
	observer Observer
	logger   *slog.Logger
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithSeeds queues the given URLs at construction. Invalid seeds are skipped.
func WithSeeds(seeds ...string) Option {
	return func(f *Frontier) {
		for _, s := range seeds {
			if f.canon.Validate(s) {
				f.push(s)
			}
		}
	}
}

// WithPruneInterval sets the interval used by Run.
func WithPruneInterval(d time.Duration) Option {
	return func(f *Frontier) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithRand sets the random source used to shuffle the queue.
func WithRand(rng *rand.Rand) Option {
	return func(f *Frontier) {
		f.rng = rng
	}
}

// WithObserver sets the maintenance observer.
func WithObserver(o Observer) Option {
	return func(f *Frontier) {
		if o != nil {
			f.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Frontier) {
		f.logger = logger
	}
}

// New creates a Frontier. Options are applied in order, so WithSeeds sees
// the canonicalizer passed here.
func New(canon *urlcanon.Canonicalizer, targets TargetSource, policy Policy, resolver Resolver, opts ...Option) *Frontier {
	f := &Frontier{
		index:    make(map[string]struct{}),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)), //nolint:gosec // shuffling only
		canon:    canon,
		targets:  targets,
		policy:   policy,
		resolver: resolver,
		interval: DefaultPruneInterval,
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Snapshot returns a copy of the queue in order.
func (f *Frontier) Snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queue))
	copy(out, f.queue)
	return out
}

// Contains reports whether url is queued.
func (f *Frontier) Contains(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.index[url]
	return ok
}

// Take removes and returns the URL at the front of the queue.
// When the queue is empty afterwards, Fill runs before Take returns. If the
// queue was already empty, Take fills it and pops again.
// ok is false when there is no work at all.
func (f *Frontier) Take(ctx context.Context) (string, bool, error) {
	url, ok, drained := f.pop()
	if !drained {
		return url, ok, nil
	}

	if err := f.Fill(ctx); err != nil {
		return url, ok, err
	}
	if ok {
		return url, true, nil
	}

	url, ok, _ = f.pop()
	return url, ok, nil
}

// pop removes the front entry. drained is true when the queue is empty
// after the call.
func (f *Frontier) pop() (string, bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return "", false, true
	}
	url := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	delete(f.index, url)
	return url, true, len(f.queue) == 0
}

// Offer appends url unless it is already queued or should be purged.
// It reports whether url was added.
func (f *Frontier) Offer(ctx context.Context, url string) (bool, error) {
	if !f.canon.Validate(url) || f.Contains(url) {
		return false, nil
	}

	purge, err := f.policy.ShouldPurge(ctx, url)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", url, err)
	}
	if purge {
		return false, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.push(url), nil
}

// push appends url if absent. The caller holds mu or owns f exclusively.
func (f *Frontier) push(url string) bool {
	if _, ok := f.index[url]; ok {
		return false
	}
	f.index[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// Fill appends every link destination that is due for a crawl and not yet
// queued, then shuffles the whole queue. Concurrent calls share one scan,
// which is not cancelled when the caller that started it goes away.
func (f *Frontier) Fill(ctx context.Context) error {
	shared := context.WithoutCancel(ctx)
	_, err, _ := f.fills.Do("fill", func() (any, error) {
		return nil, f.fill(shared)
	})
	return err
}

func (f *Frontier) fill(ctx context.Context) error {
	targets, err := f.targets.LinkTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list link targets: %w", err)
	}

	eligible := make([]string, 0, len(targets))
	for _, url := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Contains(url) {
			continue
		}
		ok, err := f.policy.ShouldRecrawl(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", url, err)
		}
		if ok {
			eligible = append(eligible, url)
		}
	}

	f.mu.Lock()
	added := 0
	for _, url := range eligible {
		if f.push(url) {
			added++
		}
	}
	f.rng.Shuffle(len(f.queue), func(i, j int) {
		f.queue[i], f.queue[j] = f.queue[j], f.queue[i]
	})
	size := len(f.queue)
	f.mu.Unlock()

	f.observer.FrontierFilled(added)
	f.logger.Debug("frontier filled", "candidates", len(targets), "added", added, "size", size)
	return nil
}

// Prune removes entries that fail validation, are no longer due for a
// crawl, or whose redirect target is no longer due for a crawl.
// Entries offered while the prune is evaluating are kept.
func (f *Frontier) Prune(ctx context.Context) error {
	entries := f.Snapshot()

	drop := make(map[string]struct{})
	for _, url := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		keep, err := f.keep(ctx, url)
		if err != nil {
			return err
		}
		if !keep {
			drop[url] = struct{}{}
		}
	}

	f.mu.Lock()
	kept := f.queue[:0]
	seen := make(map[string]struct{}, len(f.queue))
	for _, url := range f.queue {
		if _, ok := drop[url]; ok {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		kept = append(kept, url)
	}
	removed := len(f.queue) - len(kept)
	clear(f.queue[len(kept):])
	f.queue = kept
	f.index = seen
	size := len(f.queue)
	f.mu.Unlock()

	f.observer.FrontierPruned(removed)
	f.logger.Debug("frontier pruned", "removed", removed, "size", size)
	return nil
}

func (f *Frontier) keep(ctx context.Context, url string) (bool, error) {
	if !f.canon.Validate(url) {
		return false, nil
	}

	ok, err := f.policy.ShouldRecrawl(ctx, url)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", url, err)
	}
	if !ok {
		return false, nil
	}

	target, err := f.resolver.Resolve(ctx, url)
	if err != nil {
		return false, err
	}
	if target == url {
		return true, nil
	}

	ok, err = f.policy.ShouldRecrawl(ctx, target)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", target, err)
	}
	return ok, nil
}

// Run prunes the queue every interval until ctx is done.
// Prune errors are logged and do not stop the loop.
func (f *Frontier) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Prune(ctx); err != nil && ctx.Err() == nil {
				f.logger.Warn("frontier prune failed", "error", err)
			}
		}
	}
}
