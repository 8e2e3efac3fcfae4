// Package urlcanon validates crawl URLs and extracts their canonical hostname.
//
// Every other component funnels URLs through a Canonicalizer before storing
// or queueing them. An empty hostname is the signal to drop a record; it is
// never an error.
package urlcanon

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// DefaultBlacklist lists host suffixes that are never crawled.
// Video hosting pages carry badge-sized thumbnails that are not link badges.
var DefaultBlacklist = []string{"youtube.com"}

// allowedSchemes are the only schemes a crawl URL may use.
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// Canonicalizer validates URLs against the scheme rules and a host blacklist.
// The zero value accepts every http(s) URL.
type Canonicalizer struct {
	blacklist []string
}

// New creates a Canonicalizer that rejects hosts ending with any of blacklist.
// Entries are compared case-insensitively.
func New(blacklist []string) *Canonicalizer {
	c := &Canonicalizer{blacklist: make([]string, 0, len(blacklist))}
	for _, suffix := range blacklist {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix != "" {
			c.blacklist = append(c.blacklist, suffix)
		}
	}
	return c
}

// Validate reports whether raw is an absolute http(s) URL whose host is not
// blacklisted.
func (c *Canonicalizer) Validate(raw string) bool {
	return c.Hostname(raw) != ""
}

// Hostname returns the lowercase, ASCII form of raw's host, or "" when raw
// does not pass Validate.
func (c *Canonicalizer) Hostname(raw string) string {
	host, ok := parseHost(raw)
	if !ok {
		return ""
	}
	if c.blacklisted(host) {
		return ""
	}
	return host
}

// Blacklist returns a copy of the configured host suffixes.
func (c *Canonicalizer) Blacklist() []string {
	out := make([]string, len(c.blacklist))
	copy(out, c.blacklist)
	return out
}

func (c *Canonicalizer) blacklisted(host string) bool {
	for _, suffix := range c.blacklist {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// parseHost parses raw as an absolute URL and returns its canonical host.
func parseHost(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if !allowedSchemes[strings.ToLower(u.Scheme)] {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}

	// Internationalized hosts are reduced to their punycode form so that
	// the same site always maps to one key.
	ascii, err := idna.Punycode.ToASCII(host)
	if err != nil || ascii == "" {
		return "", false
	}
	return ascii, true
}
