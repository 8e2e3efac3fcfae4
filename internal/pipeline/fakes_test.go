package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/nao1215/badgegraph/internal/model"
)

// memStore is an in-memory PageStore.
type memStore struct {
	mu      sync.Mutex
	pages   map[string]model.Page
	links   []model.Link
	failOn  string
	failErr error

	// failSkip lets that many calls of failOn succeed first.
	failSkip int
}

func newMemStore() *memStore {
	return &memStore{pages: make(map[string]model.Page)}
}

func (m *memStore) fail(method string) error {
	if m.failOn != method {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSkip > 0 {
		m.failSkip--
		return nil
	}
	return m.failErr
}

func (m *memStore) UpsertScrapedPage(_ context.Context, url, domain string, at time.Time) error {
	if err := m.fail("UpsertScrapedPage"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[url] = model.Page{URL: url, Domain: domain, LastScraped: &at}
	return nil
}

func (m *memStore) EnsurePage(_ context.Context, url, domain string) (bool, error) {
	if err := m.fail("EnsurePage"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[url]; ok {
		return false, nil
	}
	m.pages[url] = model.Page{URL: url, Domain: domain}
	return true, nil
}

func (m *memStore) UpsertLink(_ context.Context, link model.Link) error {
	if err := m.fail("UpsertLink"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.links {
		if l.SrcURL == link.SrcURL && l.DstURL == link.DstURL && l.ImageURL == link.ImageURL {
			m.links[i].ImageHash = link.ImageHash
			return nil
		}
	}
	m.links = append(m.links, link)
	return nil
}

func (m *memStore) DeleteLinksTouching(_ context.Context, url string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.links[:0]
	var n int64
	for _, l := range m.links {
		if l.SrcURL == url || l.DstURL == url {
			n++
			continue
		}
		kept = append(kept, l)
	}
	m.links = kept
	return n, nil
}

func (m *memStore) linkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

// memRedirects is an in-memory single-hop redirect table.
type memRedirects struct {
	mu sync.Mutex
	to map[string]string
}

func newMemRedirects() *memRedirects {
	return &memRedirects{to: make(map[string]string)}
}

func (r *memRedirects) Record(_ context.Context, from, to string) (bool, error) {
	if from == to {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to[from] = to
	return true, nil
}

func (r *memRedirects) Resolve(_ context.Context, url string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if to, ok := r.to[url]; ok {
		return to, nil
	}
	return url, nil
}

// setRecrawler answers ShouldRecrawl from a deny set.
type setRecrawler struct {
	fresh map[string]bool
}

func (s setRecrawler) ShouldRecrawl(_ context.Context, url string) (bool, error) {
	return !s.fresh[url], nil
}

// listOfferer records offered URLs.
type listOfferer struct {
	mu      sync.Mutex
	offered []string
}

func (l *listOfferer) Offer(_ context.Context, url string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range l.offered {
		if u == url {
			return false, nil
		}
	}
	l.offered = append(l.offered, url)
	return true, nil
}

// stagingTx runs each transaction against copies of the stores and swaps
// them in only when fn succeeds.
type stagingTx struct {
	store     *memStore
	redirects *memRedirects
	recrawler Recrawler
}

func (s *stagingTx) InTx(_ context.Context, fn func(Bound) error) error {
	s.store.mu.Lock()
	store := &memStore{
		pages:    make(map[string]model.Page, len(s.store.pages)),
		links:    append([]model.Link(nil), s.store.links...),
		failOn:   s.store.failOn,
		failErr:  s.store.failErr,
		failSkip: s.store.failSkip,
	}
	for k, v := range s.store.pages {
		store.pages[k] = v
	}
	s.store.mu.Unlock()

	s.redirects.mu.Lock()
	redirects := newMemRedirects()
	for k, v := range s.redirects.to {
		redirects.to[k] = v
	}
	s.redirects.mu.Unlock()

	if err := fn(Bound{Store: store, Redirects: redirects, Recrawler: s.recrawler}); err != nil {
		return err
	}

	s.store.mu.Lock()
	s.store.pages, s.store.links, s.store.failSkip = store.pages, store.links, store.failSkip
	s.store.mu.Unlock()
	s.redirects.mu.Lock()
	s.redirects.to = redirects.to
	s.redirects.mu.Unlock()
	return nil
}
