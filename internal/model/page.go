package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Page is a URL known to the crawl.
// A page is created the first time it is referenced as a link target or
// the first time it is successfully scraped, whichever comes first.
type Page struct {
	// URL is the unique key of the page.
	URL string `json:"url"`

	// Domain is the canonical hostname of URL.
	Domain string `json:"domain"`

	// LastScraped is set only when a worker reports a scrape of this exact URL.
	// Nil means the page has never been scraped.
	LastScraped *time.Time `json:"last_scraped,omitempty"`
}

// ScrapedWithin reports whether the page was scraped after now-window.
func (p *Page) ScrapedWithin(now time.Time, window time.Duration) bool {
	if p == nil || p.LastScraped == nil {
		return false
	}
	return p.LastScraped.After(now.Add(-window))
}

// Link is a badge link from SrcURL to DstURL.
// (SrcURL, DstURL, ImageURL) identifies a link.
type Link struct {
	SrcURL    string `json:"src_url"`
	DstURL    string `json:"dst_url"`
	ImageURL  string `json:"image_url"`
	ImageHash string `json:"image_hash"`
}

// Redirect records that From resolved to To when it was scraped.
type Redirect struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Client is a worker credential. Only the digest of the API key is kept.
type Client struct {
	KeyDigest string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentHash returns the hex encoded SHA-256 of raw.
// Empty input produces an empty hash.
func ContentHash(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
