// Package redirect resolves and records single-hop URL redirects.
//
// A redirect says that fetching From landed on To. Resolution follows at
// most one hop: chains are stored as separate records and never collapsed.
package redirect

import (
	"context"
	"fmt"

	"github.com/nao1215/badgegraph/internal/model"
)

// Store is the subset of the Link Store the resolver needs.
type Store interface {
	GetRedirect(ctx context.Context, from string) (*model.Redirect, error)
	UpsertRedirect(ctx context.Context, from, to string) error
}

// Resolver maps URLs through the redirect table.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the redirect target of url, or url itself when no
// redirect is recorded.
func (r *Resolver) Resolve(ctx context.Context, url string) (string, error) {
	rd, err := r.store.GetRedirect(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", url, err)
	}
	if rd == nil {
		return url, nil
	}
	return rd.To, nil
}

// Record upserts the redirect from -> to. A self-redirect is not stored.
// It reports whether a record was written.
func (r *Resolver) Record(ctx context.Context, from, to string) (bool, error) {
	if from == to {
		return false, nil
	}
	if err := r.store.UpsertRedirect(ctx, from, to); err != nil {
		return false, err
	}
	return true, nil
}
