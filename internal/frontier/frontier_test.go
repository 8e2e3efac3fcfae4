package frontier

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/badgegraph/internal/database"
	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/policy"
	"github.com/nao1215/badgegraph/internal/redirect"
	"github.com/nao1215/badgegraph/internal/urlcanon"
)

type fixture struct {
	store *database.LinkStore
	canon *urlcanon.Canonicalizer
	pol   *policy.Policy
	res   *redirect.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := database.Open(t.TempDir(), database.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	canon := urlcanon.New(urlcanon.DefaultBlacklist)
	return &fixture{
		store: store,
		canon: canon,
		pol:   policy.New(canon, store),
		res:   redirect.NewResolver(store),
	}
}

func (fx *fixture) frontier(opts ...Option) *Frontier {
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return New(fx.canon, fx.store, fx.pol, fx.res, opts...)
}

func (fx *fixture) link(t *testing.T, src, dst string) {
	t.Helper()
	require.NoError(t, fx.store.UpsertLink(context.Background(), model.Link{
		SrcURL: src, DstURL: dst, ImageURL: src + "88x31.png", ImageHash: "h",
	}))
}

func (fx *fixture) scrapedNow(t *testing.T, url string) {
	t.Helper()
	require.NoError(t, fx.store.UpsertScrapedPage(context.Background(), url, fx.canon.Hostname(url), time.Now()))
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestNew_Seeds(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	f := fx.frontier(WithSeeds("https://notnite.com/", "ftp://bad.example/", "https://notnite.com/"))

	assert.Equal(t, []string{"https://notnite.com/"}, f.Snapshot())
}

func TestFrontier_TakeIsFIFO(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	f := fx.frontier(WithSeeds("https://a.example/", "https://b.example/", "https://c.example/"))
	ctx := context.Background()

	for _, want := range []string{"https://a.example/", "https://b.example/", "https://c.example/"} {
		got, ok, err := f.Take(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok, err := f.Take(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty store yields no work")
}

func TestFrontier_TakeRefillsWhenDrained(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.scrapedNow(t, "https://a.example/")
	fx.link(t, "https://a.example/", "https://b.example/")
	fx.link(t, "https://a.example/", "https://c.example/")

	f := fx.frontier(WithSeeds("https://seed.example/"))
	ctx := context.Background()

	got, ok, err := f.Take(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://seed.example/", got)

	// The seed drained the queue, so Take refilled it before returning.
	assert.Equal(t, []string{"https://b.example/", "https://c.example/"}, sorted(f.Snapshot()))
}

func TestFrontier_TakeOnEmptyFillsAndPops(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.link(t, "https://a.example/", "https://b.example/")

	f := fx.frontier()
	got, ok, err := f.Take(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://b.example/", got)
}

func TestFrontier_Fill(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	fx.link(t, "https://a.example/", "https://new.example/")
	fx.link(t, "https://a.example/", "https://fresh.example/")
	fx.link(t, "https://a.example/", "https://self.example/")
	fx.link(t, "https://self.example/", "https://self.example/")
	fx.link(t, "https://a.example/", "https://www.youtube.com/watch")
	fx.link(t, "https://b.example/", "https://new.example/")
	fx.scrapedNow(t, "https://fresh.example/")

	f := fx.frontier(WithSeeds("https://new.example/"))
	require.NoError(t, f.Fill(ctx))

	assert.Equal(t, []string{"https://new.example/"}, f.Snapshot())

	// Filling twice never duplicates entries.
	require.NoError(t, f.Fill(ctx))
	assert.Equal(t, 1, f.Len())
}

func TestFrontier_FillShuffles(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	var want []string
	for _, host := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		u := "https://" + host + ".example/"
		fx.link(t, "https://src.example/", u)
		want = append(want, u)
	}

	f := fx.frontier()
	require.NoError(t, f.Fill(context.Background()))

	got := f.Snapshot()
	assert.Equal(t, want, sorted(got))
	assert.NotEqual(t, want, got, "queue should not keep store order")
}

func TestFrontier_Prune(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	f := fx.frontier(WithSeeds(
		"https://keep.example/",
		"https://scraped.example/",
		"https://old.example/",
		"https://self.example/",
	))

	// Scraped by a racing worker after being queued.
	fx.scrapedNow(t, "https://scraped.example/")
	// Redirects to a page scraped just now.
	require.NoError(t, fx.store.UpsertRedirect(ctx, "https://old.example/", "https://new.example/"))
	fx.scrapedNow(t, "https://new.example/")
	// Became a self-loop.
	fx.link(t, "https://self.example/", "https://self.example/")

	require.NoError(t, f.Prune(ctx))
	assert.Equal(t, []string{"https://keep.example/"}, f.Snapshot())
	assert.False(t, f.Contains("https://scraped.example/"))
}

func TestFrontier_PruneDropsNewlyInvalid(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	// Queued while youtube.com was not blacklisted.
	f := New(urlcanon.New(nil), fx.store, fx.pol, fx.res,
		WithSeeds("https://youtube.com/", "https://keep.example/"))
	require.Equal(t, []string{"https://youtube.com/", "https://keep.example/"}, f.Snapshot())

	f.canon = fx.canon
	require.NoError(t, f.Prune(ctx))
	assert.Equal(t, []string{"https://keep.example/"}, f.Snapshot())
	assert.False(t, f.Contains("https://youtube.com/"))
}

func TestFrontier_FillSurvivesCallerCancel(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	fx.link(t, "https://a.example/", "https://b.example/")
	f := fx.frontier()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.Fill(ctx))
	assert.Equal(t, []string{"https://b.example/"}, f.Snapshot())
}

func TestFrontier_Offer(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	fx.link(t, "https://self.example/", "https://self.example/")

	f := fx.frontier()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "new url", url: "https://a.example/", want: true},
		{name: "duplicate", url: "https://a.example/", want: false},
		{name: "invalid", url: "mailto:me@a.example", want: false},
		{name: "blacklisted", url: "https://youtube.com/", want: false},
		{name: "self loop", url: "https://self.example/", want: false},
	}
	for _, tt := range tests {
		got, err := f.Offer(ctx, tt.url)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
	assert.Equal(t, []string{"https://a.example/"}, f.Snapshot())
}

func TestFrontier_ConcurrentTake(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	var seeds []string
	for i := range 50 {
		seeds = append(seeds, "https://host"+string(rune('a'+i%26))+string(rune('a'+i/26))+".example/")
	}
	f := fx.frontier(WithSeeds(seeds...))

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				url, ok, err := f.Take(context.Background())
				if err != nil || !ok {
					return
				}
				mu.Lock()
				seen[url]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, len(seeds))
	for url, n := range seen {
		assert.Equal(t, 1, n, "%s taken more than once", url)
	}
}

type countingObserver struct {
	mu      sync.Mutex
	added   int
	removed int
}

func (c *countingObserver) FrontierFilled(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added += n
}

func (c *countingObserver) FrontierPruned(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed += n
}

func (c *countingObserver) removedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed
}

func TestFrontier_Run(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	obs := &countingObserver{}
	f := fx.frontier(
		WithSeeds("https://a.example/", "https://b.example/"),
		WithPruneInterval(10*time.Millisecond),
		WithObserver(obs),
	)
	fx.scrapedNow(t, "https://a.example/")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return obs.removedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"https://b.example/"}, f.Snapshot())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
