package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/policy"
	"github.com/nao1215/badgegraph/internal/urlcanon"
)

// Exporter builds the host-level graph from the Link Store.
type Exporter struct {
	canon  *urlcanon.Canonicalizer
	source policy.Source
	policy *policy.Policy
	logger *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithExporterLogger sets the logger.
func WithExporterLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// NewExporter creates an Exporter reading from source. pol supplies the
// purge rules; it is re-targeted at each export's snapshot.
func NewExporter(canon *urlcanon.Canonicalizer, source policy.Source, pol *policy.Policy, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		canon:  canon,
		source: source,
		policy: pol,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export builds the graph. Every list in the result is deduplicated and
// sorted, and every list is non-nil.
func (e *Exporter) Export(ctx context.Context) (*model.Graph, error) {
	snap, err := policy.LoadSnapshot(ctx, e.source)
	if err != nil {
		return nil, err
	}
	return e.build(ctx, snap)
}

func (e *Exporter) build(ctx context.Context, snap *policy.Snapshot) (*model.Graph, error) {
	pol := e.policy.WithLookup(snap)
	purged := make(map[string]bool)
	isPurged := func(url string) (bool, error) {
		if v, ok := purged[url]; ok {
			return v, nil
		}
		v, err := pol.ShouldPurge(ctx, url)
		if err != nil {
			return false, err
		}
		purged[url] = v
		return v, nil
	}

	b := newBuilder()
	for _, page := range snap.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		skip, err := isPurged(page.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s: %w", page.URL, err)
		}
		if skip {
			continue
		}

		srcHost := e.canon.Hostname(snap.Resolve(page.URL))
		if srcHost == "" {
			continue
		}
		b.addHost(srcHost)

		links, _ := snap.LinksFrom(ctx, page.URL)
		for _, link := range links {
			skip, err := isPurged(link.DstURL)
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate %s: %w", link.DstURL, err)
			}
			if skip {
				continue
			}

			dstHost := e.canon.Hostname(snap.Resolve(link.DstURL))
			if dstHost == "" {
				continue
			}
			b.addEdge(srcHost, dstHost, link.ImageURL, link.ImageHash)
		}
	}

	g := b.graph()
	e.logger.Debug("graph exported",
		"pages", len(snap.Pages()),
		"hosts", len(g.Hosts()),
		"edges", g.EdgeCount(),
		"images", g.ImageCount(),
	)
	return g, nil
}

// builder accumulates set-valued adjacency while the pages are walked.
type builder struct {
	linksTo    map[string]map[string]struct{}
	linkedFrom map[string]map[string]struct{}
	images     map[string]map[string]struct{}
	// imageHashes tracks which content hashes a host already has an image for.
	imageHashes map[string]map[string]struct{}
}

func newBuilder() *builder {
	return &builder{
		linksTo:     make(map[string]map[string]struct{}),
		linkedFrom:  make(map[string]map[string]struct{}),
		images:      make(map[string]map[string]struct{}),
		imageHashes: make(map[string]map[string]struct{}),
	}
}

func (b *builder) addHost(host string) {
	if _, ok := b.linksTo[host]; !ok {
		b.linksTo[host] = make(map[string]struct{})
	}
}

func (b *builder) addEdge(src, dst, imageURL, imageHash string) {
	b.addHost(src)
	b.linksTo[src][dst] = struct{}{}

	if _, ok := b.linkedFrom[dst]; !ok {
		b.linkedFrom[dst] = make(map[string]struct{})
	}
	b.linkedFrom[dst][src] = struct{}{}

	if _, ok := b.images[dst]; !ok {
		b.images[dst] = make(map[string]struct{})
		b.imageHashes[dst] = make(map[string]struct{})
	}
	if _, seen := b.imageHashes[dst][imageHash]; seen {
		return
	}
	b.imageHashes[dst][imageHash] = struct{}{}
	if imageURL != "" {
		b.images[dst][imageURL] = struct{}{}
	}
}

func (b *builder) graph() *model.Graph {
	return &model.Graph{
		LinksTo:    flatten(b.linksTo),
		LinkedFrom: flatten(b.linkedFrom),
		Images:     flatten(b.images),
	}
}

func flatten(sets map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(sets))
	for key, set := range sets {
		list := make([]string, 0, len(set))
		for v := range set {
			list = append(list, v)
		}
		sort.Strings(list)
		out[key] = list
	}
	return out
}
