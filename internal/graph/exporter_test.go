package graph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/policy"
	"github.com/nao1215/badgegraph/internal/urlcanon"
)

// memSource serves fixed records as a policy.Source.
type memSource struct {
	pages     []model.Page
	links     []model.Link
	redirects []model.Redirect
	err       error
	block     chan struct{}
}

func (m *memSource) ListPages(ctx context.Context) ([]model.Page, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.pages, m.err
}

func (m *memSource) ListLinks(context.Context) ([]model.Link, error) { return m.links, nil }

func (m *memSource) ListRedirects(context.Context) ([]model.Redirect, error) {
	return m.redirects, nil
}

func page(url string) model.Page {
	now := time.Now()
	return model.Page{URL: url, LastScraped: &now}
}

func newTestExporter(src policy.Source) *Exporter {
	canon := urlcanon.New(urlcanon.DefaultBlacklist)
	return NewExporter(canon, src, policy.New(canon, nil))
}

func TestExporter_EndToEndScenario(t *testing.T) {
	t.Parallel()

	src := &memSource{
		pages: []model.Page{
			page("https://a.example/"),
			page("https://b.example/"),
			{URL: "https://c.example/"},
		},
		links: []model.Link{
			{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "img1", ImageHash: "h1"},
			{SrcURL: "https://b.example/", DstURL: "https://c.example/", ImageURL: "https://b.example/88.png", ImageHash: "h2"},
		},
	}

	g, err := newTestExporter(src).Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"b.example"}, g.LinksTo["a.example"])
	assert.Equal(t, []string{"c.example"}, g.LinksTo["b.example"])
	assert.Equal(t, []string{}, g.LinksTo["c.example"])
	assert.Equal(t, []string{"https://b.example/88.png"}, g.Images["c.example"])
	assert.Equal(t, []string{"img1"}, g.Images["b.example"])
	assert.Equal(t, []string{"a.example"}, g.LinkedFrom["b.example"])
	assert.Equal(t, []string{"b.example"}, g.LinkedFrom["c.example"])
}

func TestExporter_RedirectScenario(t *testing.T) {
	t.Parallel()

	src := &memSource{
		pages: []model.Page{
			page("https://a.example/"),
			{URL: "https://old.example/"},
			page("https://new.example/"),
		},
		links: []model.Link{
			{SrcURL: "https://a.example/", DstURL: "https://old.example/", ImageURL: "https://a.example/old.gif", ImageHash: "h1"},
		},
		redirects: []model.Redirect{{From: "https://old.example/", To: "https://new.example/"}},
	}

	g, err := newTestExporter(src).Export(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, g.Hosts(), "old.example")
	assert.Equal(t, []string{"a.example"}, g.LinkedFrom["new.example"])
	assert.Equal(t, []string{"new.example"}, g.LinksTo["a.example"])
}

func TestExporter_SelfLoopPurged(t *testing.T) {
	t.Parallel()

	src := &memSource{
		pages: []model.Page{page("https://loop.example/"), page("https://a.example/")},
		links: []model.Link{
			{SrcURL: "https://loop.example/", DstURL: "https://loop.example/", ImageURL: "i", ImageHash: "h"},
			{SrcURL: "https://a.example/", DstURL: "https://loop.example/", ImageURL: "i", ImageHash: "h"},
			{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "j", ImageHash: "k"},
		},
	}

	g, err := newTestExporter(src).Export(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, g.LinksTo, "loop.example")
	assert.NotContains(t, g.LinkedFrom, "loop.example")
	assert.Equal(t, []string{"b.example"}, g.LinksTo["a.example"])
}

func TestExporter_Deduplicates(t *testing.T) {
	t.Parallel()

	src := &memSource{
		pages: []model.Page{
			page("https://a.example/"),
			page("https://a.example/links"),
			page("https://z.example/"),
		},
		links: []model.Link{
			{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "https://a.example/b.gif", ImageHash: "same"},
			{SrcURL: "https://a.example/links", DstURL: "https://b.example/page", ImageURL: "https://a.example/b-copy.gif", ImageHash: "same"},
			{SrcURL: "https://z.example/", DstURL: "https://b.example/", ImageURL: "https://z.example/b.png", ImageHash: "other"},
			{SrcURL: "https://z.example/", DstURL: "https://b.example/", ImageURL: "https://z.example/b.png", ImageHash: "other2"},
		},
	}

	g, err := newTestExporter(src).Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"b.example"}, g.LinksTo["a.example"])
	assert.Equal(t, []string{"a.example", "z.example"}, g.LinkedFrom["b.example"])
	assert.Equal(t, []string{"https://a.example/b.gif", "https://z.example/b.png"}, g.Images["b.example"])
}

func TestExporter_DropsInvalidHosts(t *testing.T) {
	t.Parallel()

	src := &memSource{
		pages: []model.Page{
			page("https://a.example/"),
			page("ftp://files.example/"),
		},
		links: []model.Link{
			{SrcURL: "https://a.example/", DstURL: "https://youtube.com/watch", ImageURL: "i", ImageHash: "h"},
			{SrcURL: "ftp://files.example/", DstURL: "https://a.example/", ImageURL: "i", ImageHash: "h"},
		},
	}

	g, err := newTestExporter(src).Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.example"}, g.Hosts())
	assert.Empty(t, g.LinkedFrom)
}

func TestExporter_JSONShape(t *testing.T) {
	t.Parallel()

	g, err := newTestExporter(&memSource{}).Export(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{"linksTo":{},"linkedFrom":{},"images":{}}`, string(data))
}

func TestExporter_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("scan failed")
	_, err := newTestExporter(&memSource{err: boom}).Export(context.Background())
	assert.ErrorIs(t, err, boom)
}
