package pipeline

import (
	"context"
	"log/slog"
)

// Executor ingests one submission.
type Executor interface {
	Execute(ctx context.Context, in *Ingestion) error
}

// Bound is the store-facing part of Dependencies, bound to one transaction.
type Bound struct {
	Store     PageStore
	Redirects Redirects
	Recrawler Recrawler
}

// Transactor runs fn inside one Link Store transaction, committing when fn
// returns nil.
type Transactor interface {
	InTx(ctx context.Context, fn func(Bound) error) error
}

// AtomicIngester runs the ingestion pipeline inside one transaction per
// submission, so a store error leaves nothing of the submission behind.
// Frontier offers are collected during the transaction and made after it
// commits.
type AtomicIngester struct {
	deps Dependencies
	tx   Transactor
	opts []Option
}

// NewAtomicIngester creates an AtomicIngester. deps.Frontier receives the
// offers; the store-facing fields of deps are replaced per transaction.
func NewAtomicIngester(deps Dependencies, tx Transactor, opts ...Option) *AtomicIngester {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AtomicIngester{deps: deps, tx: tx, opts: opts}
}

// Execute ingests in. On error in reports nothing as written.
func (a *AtomicIngester) Execute(ctx context.Context, in *Ingestion) error {
	var held heldOffers
	sub := in.Submission

	err := a.tx.InTx(ctx, func(b Bound) error {
		*in = *NewIngestion(sub)
		held.reset()

		deps := a.deps
		deps.Store = b.Store
		deps.Redirects = b.Redirects
		deps.Recrawler = b.Recrawler
		deps.Frontier = &held
		return NewIngestPipeline(deps, a.opts...).Execute(ctx, in)
	})
	if err != nil {
		*in = *NewIngestion(sub)
		return err
	}

	in.Offered = 0
	for _, url := range held.urls {
		ok, err := a.deps.Frontier.Offer(ctx, url)
		if err != nil {
			// The submission is committed; a lost offer comes back on the
			// next fill.
			a.deps.Logger.Warn("failed to offer link target", "url", url, "error", err)
			continue
		}
		if ok {
			in.Offered++
		}
	}
	return nil
}

// StepNames returns the names of the ingestion steps in execution order.
func (a *AtomicIngester) StepNames() []string {
	return NewIngestPipeline(a.deps, a.opts...).StepNames()
}

// heldOffers records offered URLs until the transaction commits.
type heldOffers struct {
	urls []string
}

func (h *heldOffers) Offer(_ context.Context, url string) (bool, error) {
	h.urls = append(h.urls, url)
	return true, nil
}

func (h *heldOffers) reset() {
	h.urls = h.urls[:0]
}
