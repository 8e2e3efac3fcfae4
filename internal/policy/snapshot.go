package policy

import (
	"context"
	"fmt"

	"github.com/nao1215/badgegraph/internal/model"
)

// Source lists every record of the Link Store.
type Source interface {
	ListPages(ctx context.Context) ([]model.Page, error)
	ListLinks(ctx context.Context) ([]model.Link, error)
	ListRedirects(ctx context.Context) ([]model.Redirect, error)
}

// Snapshot is an immutable in-memory copy of the Link Store.
// It implements Lookup, so a Policy can evaluate against it without
// further store round trips.
type Snapshot struct {
	pages     []model.Page
	pageByURL map[string]*model.Page
	linksFrom map[string][]model.Link
	redirects map[string]string
}

// LoadSnapshot reads all pages, links and redirects from src.
func LoadSnapshot(ctx context.Context, src Source) (*Snapshot, error) {
	pages, err := src.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	links, err := src.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}
	redirects, err := src.ListRedirects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load redirects: %w", err)
	}
	return NewSnapshot(pages, links, redirects), nil
}

// NewSnapshot indexes the given records.
func NewSnapshot(pages []model.Page, links []model.Link, redirects []model.Redirect) *Snapshot {
	s := &Snapshot{
		pages:     pages,
		pageByURL: make(map[string]*model.Page, len(pages)),
		linksFrom: make(map[string][]model.Link),
		redirects: make(map[string]string, len(redirects)),
	}
	for i := range s.pages {
		s.pageByURL[s.pages[i].URL] = &s.pages[i]
	}
	for _, l := range links {
		s.linksFrom[l.SrcURL] = append(s.linksFrom[l.SrcURL], l)
	}
	for _, r := range redirects {
		s.redirects[r.From] = r.To
	}
	return s
}

// Pages returns every page in the snapshot.
func (s *Snapshot) Pages() []model.Page {
	return s.pages
}

// GetPage implements Lookup.
func (s *Snapshot) GetPage(_ context.Context, url string) (*model.Page, error) {
	p, ok := s.pageByURL[url]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// LinksFrom implements Lookup.
func (s *Snapshot) LinksFrom(_ context.Context, src string) ([]model.Link, error) {
	return s.linksFrom[src], nil
}

// GetRedirect implements Lookup.
func (s *Snapshot) GetRedirect(_ context.Context, from string) (*model.Redirect, error) {
	to, ok := s.redirects[from]
	if !ok {
		return nil, nil
	}
	return &model.Redirect{From: from, To: to}, nil
}

// Resolve follows at most one redirect hop.
func (s *Snapshot) Resolve(url string) string {
	if to, ok := s.redirects[url]; ok {
		return to
	}
	return url
}
