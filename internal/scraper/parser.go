package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Candidate is an anchor that wraps an image. Whether the image is a badge
// is only known after downloading it.
type Candidate struct {
	// To is the absolute href of the anchor.
	To string

	// Image is the absolute src of the wrapped image.
	Image string
}

// Parser finds anchor/image pairs in HTML.
type Parser struct {
	// baseURL resolves relative href and src attributes.
	baseURL *url.URL
}

// NewParser creates a Parser for a page served from baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	return &Parser{baseURL: u}, nil
}

// Parse decodes body using contentType's charset (or the document's own
// declaration) and returns every distinct (href, img src) pair where the
// image is a descendant of the anchor. A <base href> overrides the page URL.
func (p *Parser) Parse(body []byte, contentType string) ([]Candidate, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	base := p.baseURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = p.baseURL.ResolveReference(u)
		}
	}

	seen := make(map[Candidate]struct{})
	var out []Candidate

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		to := resolveURL(base, href)
		if to == "" {
			return
		}

		a.Find("img").Each(func(_ int, img *goquery.Selection) {
			src := imageSource(img)
			image := resolveURL(base, src)
			if image == "" {
				return
			}

			c := Candidate{To: to, Image: image}
			if _, dup := seen[c]; dup {
				return
			}
			seen[c] = struct{}{}
			out = append(out, c)
		})
	})

	return out, nil
}

// imageSource returns the src of an <img>, falling back to common
// lazy-loading attributes.
func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// resolveURL resolves href against base. Script, mail, phone and inline
// data references resolve to "".
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String()
}
