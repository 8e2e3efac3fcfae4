package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/badgegraph/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*LinkStore, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	db, err := Open(tmpDir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, "badgegraph.db")
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("reopening keeps existing data", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		ctx := context.Background()

		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := db.UpsertRedirect(ctx, "https://a.example/", "https://b.example/"); err != nil {
			t.Fatalf("UpsertRedirect failed: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		r, err := db.GetRedirect(ctx, "https://a.example/")
		if err != nil {
			t.Fatalf("GetRedirect failed: %v", err)
		}
		if r == nil || r.To != "https://b.example/" {
			t.Errorf("redirect not persisted: %+v", r)
		}
	})
}

func TestLinkStore_Pages(t *testing.T) {
	t.Parallel()

	t.Run("unknown page returns nil", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()

		page, err := db.GetPage(context.Background(), "https://nowhere.example/")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if page != nil {
			t.Errorf("expected nil page, got %+v", page)
		}
	})

	t.Run("ensure creates unscraped page once", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()

		created, err := db.EnsurePage(ctx, "https://a.example/", "a.example")
		if err != nil {
			t.Fatalf("EnsurePage failed: %v", err)
		}
		if !created {
			t.Error("first EnsurePage should create the page")
		}

		created, err = db.EnsurePage(ctx, "https://a.example/", "a.example")
		if err != nil {
			t.Fatalf("EnsurePage failed: %v", err)
		}
		if created {
			t.Error("second EnsurePage should not create the page")
		}

		page, err := db.GetPage(ctx, "https://a.example/")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if page == nil {
			t.Fatal("page not found")
		}
		if page.Domain != "a.example" {
			t.Errorf("Domain = %q, want a.example", page.Domain)
		}
		if page.LastScraped != nil {
			t.Errorf("LastScraped = %v, want nil", page.LastScraped)
		}
	})

	t.Run("upsert scraped page sets and refreshes timestamp", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()

		first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		if err := db.UpsertScrapedPage(ctx, "https://a.example/", "a.example", first); err != nil {
			t.Fatalf("UpsertScrapedPage failed: %v", err)
		}

		// EnsurePage must not clear an existing timestamp.
		if _, err := db.EnsurePage(ctx, "https://a.example/", "a.example"); err != nil {
			t.Fatalf("EnsurePage failed: %v", err)
		}

		page, err := db.GetPage(ctx, "https://a.example/")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if page.LastScraped == nil || !page.LastScraped.Equal(first) {
			t.Errorf("LastScraped = %v, want %v", page.LastScraped, first)
		}

		second := first.Add(48 * time.Hour)
		if err := db.UpsertScrapedPage(ctx, "https://a.example/", "a.example", second); err != nil {
			t.Fatalf("UpsertScrapedPage failed: %v", err)
		}

		page, err = db.GetPage(ctx, "https://a.example/")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if page.LastScraped == nil || !page.LastScraped.Equal(second) {
			t.Errorf("LastScraped = %v, want %v", page.LastScraped, second)
		}
	})

	t.Run("list pages is ordered by url", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()

		for _, u := range []string{"https://c.example/", "https://a.example/", "https://b.example/"} {
			if _, err := db.EnsurePage(ctx, u, "x"); err != nil {
				t.Fatalf("EnsurePage failed: %v", err)
			}
		}

		pages, err := db.ListPages(ctx)
		if err != nil {
			t.Fatalf("ListPages failed: %v", err)
		}
		if len(pages) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(pages))
		}
		if pages[0].URL != "https://a.example/" || pages[2].URL != "https://c.example/" {
			t.Errorf("unexpected order: %+v", pages)
		}
	})
}

func TestLinkStore_Links(t *testing.T) {
	t.Parallel()

	t.Run("identity is source, destination and image", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()

		links := []model.Link{
			{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "https://a.example/b.gif", ImageHash: "h1"},
			{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "https://a.example/b.gif", ImageHash: "h2"},
			{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "https://a.example/b2.gif", ImageHash: "h3"},
			{SrcURL: "https://a.example/", DstURL: "https://c.example/", ImageURL: "https://a.example/c.gif", ImageHash: "h4"},
		}
		for _, l := range links {
			if err := db.UpsertLink(ctx, l); err != nil {
				t.Fatalf("UpsertLink failed: %v", err)
			}
		}

		got, err := db.LinksFrom(ctx, "https://a.example/")
		if err != nil {
			t.Fatalf("LinksFrom failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 links, got %d: %+v", len(got), got)
		}
		if got[0].ImageHash != "h2" {
			t.Errorf("duplicate link should refresh hash, got %q", got[0].ImageHash)
		}
	})

	t.Run("link targets are distinct in first-seen order", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()

		for _, l := range []model.Link{
			{SrcURL: "https://a.example/", DstURL: "https://c.example/", ImageURL: "i1", ImageHash: "h"},
			{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "i2", ImageHash: "h"},
			{SrcURL: "https://b.example/", DstURL: "https://c.example/", ImageURL: "i3", ImageHash: "h"},
		} {
			if err := db.UpsertLink(ctx, l); err != nil {
				t.Fatalf("UpsertLink failed: %v", err)
			}
		}

		targets, err := db.LinkTargets(ctx)
		if err != nil {
			t.Fatalf("LinkTargets failed: %v", err)
		}
		want := []string{"https://c.example/", "https://b.example/"}
		if len(targets) != len(want) {
			t.Fatalf("targets = %v, want %v", targets, want)
		}
		for i := range want {
			if targets[i] != want[i] {
				t.Errorf("targets[%d] = %q, want %q", i, targets[i], want[i])
			}
		}
	})

	t.Run("delete links touching url", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()

		for _, l := range []model.Link{
			{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "i1", ImageHash: "h"},
			{SrcURL: "https://b.example/", DstURL: "https://c.example/", ImageURL: "i2", ImageHash: "h"},
			{SrcURL: "https://c.example/", DstURL: "https://a.example/", ImageURL: "i3", ImageHash: "h"},
		} {
			if err := db.UpsertLink(ctx, l); err != nil {
				t.Fatalf("UpsertLink failed: %v", err)
			}
		}

		n, err := db.DeleteLinksTouching(ctx, "https://b.example/")
		if err != nil {
			t.Fatalf("DeleteLinksTouching failed: %v", err)
		}
		if n != 2 {
			t.Errorf("deleted %d links, want 2", n)
		}

		all, err := db.ListLinks(ctx)
		if err != nil {
			t.Fatalf("ListLinks failed: %v", err)
		}
		if len(all) != 1 || all[0].SrcURL != "https://c.example/" {
			t.Errorf("unexpected remaining links: %+v", all)
		}
	})
}

func TestLinkStore_Redirects(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	r, err := db.GetRedirect(ctx, "https://a.example/")
	if err != nil {
		t.Fatalf("GetRedirect failed: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil redirect, got %+v", r)
	}

	if err := db.UpsertRedirect(ctx, "https://a.example/", "https://b.example/"); err != nil {
		t.Fatalf("UpsertRedirect failed: %v", err)
	}
	if err := db.UpsertRedirect(ctx, "https://a.example/", "https://c.example/"); err != nil {
		t.Fatalf("UpsertRedirect failed: %v", err)
	}

	r, err = db.GetRedirect(ctx, "https://a.example/")
	if err != nil {
		t.Fatalf("GetRedirect failed: %v", err)
	}
	if r == nil || r.To != "https://c.example/" {
		t.Errorf("redirect should be overwritten, got %+v", r)
	}

	all, err := db.ListRedirects(ctx)
	if err != nil {
		t.Fatalf("ListRedirects failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 redirect, got %d", len(all))
	}
}

func TestLinkStore_Clients(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	ok, err := db.HasClient(ctx, "digest")
	if err != nil {
		t.Fatalf("HasClient failed: %v", err)
	}
	if ok {
		t.Error("unknown digest should not be a client")
	}

	if err := db.CreateClient(ctx, "digest"); err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	if err := db.CreateClient(ctx, "digest"); err == nil {
		t.Error("duplicate digest should be rejected")
	}

	ok, err = db.HasClient(ctx, "digest")
	if err != nil {
		t.Fatalf("HasClient failed: %v", err)
	}
	if !ok {
		t.Error("stored digest should be a client")
	}
}

func TestLinkStore_Stats(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := db.UpsertScrapedPage(ctx, "https://a.example/", "a.example", time.Now()); err != nil {
		t.Fatalf("UpsertScrapedPage failed: %v", err)
	}
	if _, err := db.EnsurePage(ctx, "https://b.example/", "b.example"); err != nil {
		t.Fatalf("EnsurePage failed: %v", err)
	}
	if err := db.UpsertLink(ctx, model.Link{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "i", ImageHash: "h"}); err != nil {
		t.Fatalf("UpsertLink failed: %v", err)
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := Stats{Pages: 2, ScrapedPages: 1, Links: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

// TestLinkStore_WithinTx tests commit and rollback of grouped writes.
func TestLinkStore_WithinTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	link := model.Link{SrcURL: "https://a.example/", DstURL: "https://b.example/", ImageURL: "i", ImageHash: "h"}

	t.Run("commits when fn succeeds", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()

		err := db.WithinTx(ctx, func(tx *LinkStore) error {
			if err := tx.UpsertScrapedPage(ctx, link.SrcURL, "a.example", time.Now()); err != nil {
				return err
			}
			// Reads inside the transaction see its own writes.
			page, err := tx.GetPage(ctx, link.SrcURL)
			if err != nil || page == nil {
				t.Errorf("GetPage inside tx = %v, %v", page, err)
			}
			return tx.UpsertLink(ctx, link)
		})
		if err != nil {
			t.Fatalf("WithinTx failed: %v", err)
		}

		links, err := db.LinksFrom(ctx, link.SrcURL)
		if err != nil {
			t.Fatalf("LinksFrom failed: %v", err)
		}
		if len(links) != 1 {
			t.Errorf("expected 1 committed link, got %d", len(links))
		}
	})

	t.Run("rolls back every write when fn fails", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()

		boom := errors.New("boom")
		err := db.WithinTx(ctx, func(tx *LinkStore) error {
			if err := tx.UpsertRedirect(ctx, "https://old.example/", "https://new.example/"); err != nil {
				return err
			}
			if err := tx.UpsertLink(ctx, link); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected fn error, got %v", err)
		}

		stats, err := db.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Links != 0 || stats.Redirects != 0 {
			t.Errorf("expected nothing committed, got %+v", stats)
		}
	})

	t.Run("nested call joins the transaction", func(t *testing.T) {
		t.Parallel()

		db, cleanup := setupTestDB(t)
		defer cleanup()

		boom := errors.New("boom")
		err := db.WithinTx(ctx, func(tx *LinkStore) error {
			if err := tx.WithinTx(ctx, func(inner *LinkStore) error {
				return inner.UpsertLink(ctx, link)
			}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected fn error, got %v", err)
		}
		links, err := db.LinksFrom(ctx, link.SrcURL)
		if err != nil {
			t.Fatalf("LinksFrom failed: %v", err)
		}
		if len(links) != 0 {
			t.Errorf("inner write must roll back with the outer transaction, got %d links", len(links))
		}
	})
}
