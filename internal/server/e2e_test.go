package server

import (
	"context"
	"math/rand/v2"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/badgegraph/internal/auth"
	"github.com/nao1215/badgegraph/internal/database"
	"github.com/nao1215/badgegraph/internal/frontier"
	"github.com/nao1215/badgegraph/internal/graph"
	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/pipeline"
	"github.com/nao1215/badgegraph/internal/policy"
	"github.com/nao1215/badgegraph/internal/redirect"
	"github.com/nao1215/badgegraph/internal/urlcanon"
	"github.com/nao1215/badgegraph/internal/work"
)

// coordinator wires the real stack behind the HTTP server.
type coordinator struct {
	store  *database.LinkStore
	job    *graph.Job
	output string
	server *Server
}

func newCoordinator(t *testing.T, seeds ...string) *coordinator {
	t.Helper()

	dir := t.TempDir()
	store, err := database.Open(dir, database.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	canon := urlcanon.New(urlcanon.DefaultBlacklist)
	res := redirect.NewResolver(store)
	pol := policy.New(canon, store)
	f := frontier.New(canon, store, pol, res,
		frontier.WithSeeds(seeds...),
		frontier.WithRand(rand.New(rand.NewPCG(1, 2))),
	)
	p := pipeline.NewIngestPipeline(pipeline.Dependencies{
		Canon:     canon,
		Store:     store,
		Redirects: res,
		Recrawler: pol,
		Frontier:  f,
	})

	output := filepath.Join(dir, "graph.json")
	job := graph.NewJob(graph.NewExporter(canon, store, pol), graph.NewWriter(output))
	t.Cleanup(job.Wait)

	s, err := New(Config{}, Dependencies{
		Work:     work.NewService(f, p),
		Auth:     auth.New(auth.NewSQLKeyStore(store), adminKey),
		Graph:    job,
		Frontier: f,
	})
	require.NoError(t, err)

	return &coordinator{store: store, job: job, output: output, server: s}
}

func (c *coordinator) issueKey(t *testing.T) string {
	t.Helper()

	rec := do(t, c.server.Handler(), http.MethodPost, "/create_account", adminKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	key := strings.TrimSpace(rec.Body.String())
	require.NotEmpty(t, key)
	return key
}

func (c *coordinator) exportGraph(t *testing.T) *model.Graph {
	t.Helper()

	rec := do(t, c.server.Handler(), http.MethodGet, "/graph", adminKey, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	c.job.Wait()

	g, err := graph.Read(c.output)
	require.NoError(t, err)
	return g
}

func TestEndToEnd_BadgeChain(t *testing.T) {
	t.Parallel()

	c := newCoordinator(t, "https://notnite.com/")
	ctx := context.Background()

	require.NoError(t, c.store.UpsertScrapedPage(ctx, "https://a.example/", "a.example", time.Now()))
	_, err := c.store.EnsurePage(ctx, "https://b.example/", "b.example")
	require.NoError(t, err)
	require.NoError(t, c.store.UpsertLink(ctx, model.Link{
		SrcURL:    "https://a.example/",
		DstURL:    "https://b.example/",
		ImageURL:  "img1",
		ImageHash: "h1",
	}))

	key := c.issueKey(t)

	rec := do(t, c.server.Handler(), http.MethodGet, "/work", "Bearer "+key, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://notnite.com/", rec.Body.String())

	body := `{"orig_url":"https://b.example/","result_url":"https://b.example/","success":true,` +
		`"links":[{"to":"https://c.example/","image":"https://b.example/88.png","image_hash":"h2"}]}`
	rec = do(t, c.server.Handler(), http.MethodPost, "/work", key, body)
	require.Equal(t, http.StatusNoContent, rec.Code)

	g := c.exportGraph(t)
	assert.Equal(t, []string{"b.example"}, g.LinksTo["a.example"])
	assert.Equal(t, []string{"c.example"}, g.LinksTo["b.example"])
	assert.Equal(t, []string{"https://b.example/88.png"}, g.Images["c.example"])
	assert.Equal(t, []string{"a.example"}, g.LinkedFrom["b.example"])
	assert.Equal(t, []string{"b.example"}, g.LinkedFrom["c.example"])

	// The backup appears on the second export.
	c.exportGraph(t)
	_, err = graph.Read(graph.BackupPath(c.output))
	require.NoError(t, err)
}

func TestEndToEnd_Redirect(t *testing.T) {
	t.Parallel()

	c := newCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.store.UpsertScrapedPage(ctx, "https://x.example/", "x.example", time.Now()))
	_, err := c.store.EnsurePage(ctx, "https://old.example/", "old.example")
	require.NoError(t, err)
	require.NoError(t, c.store.UpsertLink(ctx, model.Link{
		SrcURL:    "https://x.example/",
		DstURL:    "https://old.example/",
		ImageURL:  "https://x.example/old.png",
		ImageHash: "ho",
	}))

	key := c.issueKey(t)
	rec := do(t, c.server.Handler(), http.MethodPost, "/work", key,
		`{"orig_url":"https://old.example/","result_url":"https://new.example/","success":true,"links":[]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	g := c.exportGraph(t)
	assert.NotContains(t, g.Hosts(), "old.example")
	assert.Equal(t, []string{"x.example"}, g.LinkedFrom["new.example"])
	assert.Equal(t, []string{"new.example"}, g.LinksTo["x.example"])
}

func TestEndToEnd_IdempotentSubmission(t *testing.T) {
	t.Parallel()

	c := newCoordinator(t)
	ctx := context.Background()
	key := c.issueKey(t)

	body := `{"orig_url":"https://a.example/","result_url":"https://a.example/","success":true,` +
		`"links":[{"to":"https://b.example/","image":"https://a.example/b.png","image_hash":"hb"}]}`
	for range 2 {
		rec := do(t, c.server.Handler(), http.MethodPost, "/work", key, body)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	stats, err := c.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Links)
	assert.Equal(t, 2, stats.Pages)
	assert.Zero(t, stats.Redirects)
}

func TestEndToEnd_InvalidSubmissionWritesNothing(t *testing.T) {
	t.Parallel()

	c := newCoordinator(t)
	ctx := context.Background()
	key := c.issueKey(t)

	rec := do(t, c.server.Handler(), http.MethodPost, "/work", key,
		`{"orig_url":"https://a.example/","result_url":"ftp://a.example/","success":true,"links":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stats, err := c.store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pages)
	assert.Zero(t, stats.Redirects)
}

func TestEndToEnd_UnknownKey(t *testing.T) {
	t.Parallel()

	c := newCoordinator(t, "https://notnite.com/")
	rec := do(t, c.server.Handler(), http.MethodGet, "/work", "00000000-0000-4000-8000-000000000000", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Body.String())
}
