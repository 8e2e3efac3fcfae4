package model

import (
	"testing"
	"time"
)

// TestContentHash tests the ContentHash function.
func TestContentHash(t *testing.T) {
	t.Parallel()

	t.Run("computes SHA256 hash of raw content", func(t *testing.T) {
		t.Parallel()

		// Expected SHA256 of "Hello, World!"
		expected := "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f"
		if got := ContentHash([]byte("Hello, World!")); got != expected {
			t.Errorf("got %q, expected %q", got, expected)
		}
	})

	t.Run("empty content produces empty hash", func(t *testing.T) {
		t.Parallel()

		if got := ContentHash([]byte{}); got != "" {
			t.Errorf("expected empty hash, got %q", got)
		}
		if got := ContentHash(nil); got != "" {
			t.Errorf("expected empty hash for nil, got %q", got)
		}
	})
}

// TestPageScrapedWithin tests the freshness check on Page.
func TestPageScrapedWithin(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name string
		page *Page
		want bool
	}{
		{name: "nil page", page: nil, want: false},
		{name: "never scraped", page: &Page{URL: "https://a.example/"}, want: false},
		{name: "scraped just now", page: &Page{LastScraped: at(0)}, want: true},
		{name: "scraped six days ago", page: &Page{LastScraped: at(6 * 24 * time.Hour)}, want: true},
		{name: "scraped exactly a week ago", page: &Page{LastScraped: at(week)}, want: false},
		{name: "scraped eight days ago", page: &Page{LastScraped: at(8 * 24 * time.Hour)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.page.ScrapedWithin(now, week); got != tt.want {
				t.Errorf("ScrapedWithin() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSubmissionRedirected tests redirect detection on submissions.
func TestSubmissionRedirected(t *testing.T) {
	t.Parallel()

	same := Submission{OrigURL: "https://a.example/", ResultURL: "https://a.example/"}
	if same.Redirected() {
		t.Error("expected identical URLs not to be a redirect")
	}

	moved := Submission{OrigURL: "https://old.example/", ResultURL: "https://new.example/"}
	if !moved.Redirected() {
		t.Error("expected different URLs to be a redirect")
	}
}
