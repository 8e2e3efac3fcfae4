package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/urlcanon"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func scrapedAt(url string, at time.Time) model.Page {
	return model.Page{URL: url, LastScraped: &at}
}

func link(src, dst string) model.Link {
	return model.Link{SrcURL: src, DstURL: dst, ImageURL: src + "badge.gif", ImageHash: "h"}
}

func newTestPolicy(snap *Snapshot) *Policy {
	canon := urlcanon.New(urlcanon.DefaultBlacklist)
	return New(canon, snap, WithClock(func() time.Time { return testNow }))
}

func TestPolicy_ShouldPurge(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(
		nil,
		[]model.Link{
			link("https://self.example/", "https://self.example/"),
			link("https://loop.example/", "https://old-loop.example/"),
			link("https://two.example/", "https://two.example/"),
			link("https://two.example/", "https://other.example/"),
			link("https://target.example/", "https://target.example/"),
			link("https://normal.example/", "https://other.example/"),
		},
		[]model.Redirect{
			{From: "https://old-loop.example/", To: "https://loop.example/"},
			{From: "https://moved.example/", To: "https://target.example/"},
		},
	)
	p := newTestPolicy(snap)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "invalid scheme", url: "ftp://a.example/", want: true},
		{name: "blacklisted host", url: "https://www.youtube.com/watch", want: true},
		{name: "unknown page", url: "https://fresh.example/", want: false},
		{name: "only link is self", url: "https://self.example/", want: true},
		{name: "only link resolves to self", url: "https://loop.example/", want: true},
		{name: "self link among others", url: "https://two.example/", want: false},
		{name: "redirect target links only to itself", url: "https://moved.example/", want: true},
		{name: "ordinary page", url: "https://normal.example/", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := p.ShouldPurge(context.Background(), tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_ShouldRecrawl(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(
		[]model.Page{
			scrapedAt("https://recent.example/", testNow.Add(-time.Hour)),
			scrapedAt("https://stale.example/", testNow.Add(-8*24*time.Hour)),
			scrapedAt("https://edge.example/", testNow.Add(-7*24*time.Hour)),
			{URL: "https://never.example/"},
			scrapedAt("https://new-home.example/", testNow.Add(-time.Minute)),
		},
		[]model.Link{
			link("https://self.example/", "https://self.example/"),
		},
		[]model.Redirect{
			{From: "https://old-home.example/", To: "https://new-home.example/"},
			{From: "https://gone.example/", To: "https://stale.example/"},
		},
	)
	p := newTestPolicy(snap)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "scraped within window", url: "https://recent.example/", want: false},
		{name: "scraped before window", url: "https://stale.example/", want: true},
		{name: "scraped exactly window ago", url: "https://edge.example/", want: true},
		{name: "never scraped", url: "https://never.example/", want: true},
		{name: "unknown url", url: "https://unknown.example/", want: true},
		{name: "redirect target fresh", url: "https://old-home.example/", want: false},
		{name: "redirect target stale", url: "https://gone.example/", want: true},
		{name: "purged", url: "https://self.example/", want: false},
		{name: "invalid", url: "javascript:alert(1)", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := p.ShouldRecrawl(context.Background(), tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_FreshnessWindowOption(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot([]model.Page{scrapedAt("https://a.example/", testNow.Add(-2*time.Hour))}, nil, nil)
	canon := urlcanon.New(nil)
	p := New(canon, snap,
		WithClock(func() time.Time { return testNow }),
		WithFreshnessWindow(time.Hour),
	)

	assert.Equal(t, time.Hour, p.Window())
	got, err := p.ShouldRecrawl(context.Background(), "https://a.example/")
	require.NoError(t, err)
	assert.True(t, got)
}

type failingLookup struct{ err error }

func (f failingLookup) GetPage(context.Context, string) (*model.Page, error) { return nil, f.err }
func (f failingLookup) LinksFrom(context.Context, string) ([]model.Link, error) {
	return nil, f.err
}
func (f failingLookup) GetRedirect(context.Context, string) (*model.Redirect, error) {
	return nil, f.err
}

func TestPolicy_LookupErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("store offline")
	p := New(urlcanon.New(nil), failingLookup{err: boom})

	_, err := p.ShouldPurge(context.Background(), "https://a.example/")
	assert.ErrorIs(t, err, boom)

	_, err = p.ShouldRecrawl(context.Background(), "https://a.example/")
	assert.ErrorIs(t, err, boom)

	// Invalid URLs never reach the store.
	purge, err := p.ShouldPurge(context.Background(), "not a url")
	require.NoError(t, err)
	assert.True(t, purge)
}

func TestPolicy_WithLookup(t *testing.T) {
	t.Parallel()

	empty := NewSnapshot(nil, nil, nil)
	loaded := NewSnapshot(nil, []model.Link{link("https://a.example/", "https://a.example/")}, nil)

	base := newTestPolicy(empty)
	swapped := base.WithLookup(loaded)

	got, err := base.ShouldPurge(context.Background(), "https://a.example/")
	require.NoError(t, err)
	assert.False(t, got)

	got, err = swapped.ShouldPurge(context.Background(), "https://a.example/")
	require.NoError(t, err)
	assert.True(t, got)
}
