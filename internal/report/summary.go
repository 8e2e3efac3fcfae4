package report

import (
	"sort"
	"time"

	"github.com/nao1215/badgegraph/internal/model"
)

// DefaultTopN is the number of hosts listed in the ranking sections.
const DefaultTopN = 10

// Counts holds Link Store row counts.
type Counts struct {
	Pages        int `json:"pages"`
	ScrapedPages int `json:"scraped_pages"`
	Links        int `json:"links"`
	Redirects    int `json:"redirects"`
	Clients      int `json:"clients"`
}

// HostCount pairs a host with a number of neighbours.
type HostCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

// Summary describes the state of the crawl and its exported graph.
type Summary struct {
	// GeneratedAt is when the summary was computed.
	GeneratedAt time.Time `json:"generated_at"`

	// Store holds row counts from the Link Store.
	Store Counts `json:"store"`

	// Hosts is the number of distinct hosts in the graph.
	Hosts int `json:"hosts"`

	// Edges is the number of distinct host-to-host edges.
	Edges int `json:"edges"`

	// Images is the number of distinct (host, badge) pairs.
	Images int `json:"images"`

	// MostLinked ranks hosts by how many hosts link to them.
	MostLinked []HostCount `json:"most_linked"`

	// MostLinking ranks hosts by how many hosts they link to.
	MostLinking []HostCount `json:"most_linking"`
}

// NewSummary computes a Summary from the exported graph and store counts.
// topN limits the ranking lists; values <= 0 select DefaultTopN.
func NewSummary(g *model.Graph, counts Counts, topN int, now time.Time) *Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Summary{
		GeneratedAt: now,
		Store:       counts,
		Hosts:       len(g.Hosts()),
		Edges:       g.EdgeCount(),
		Images:      g.ImageCount(),
		MostLinked:  rank(g.LinkedFrom, topN),
		MostLinking: rank(g.LinksTo, topN),
	}
}

// rank orders hosts by list length, then by name, dropping empty lists.
func rank(adj map[string][]string, topN int) []HostCount {
	out := make([]HostCount, 0, len(adj))
	for host, list := range adj {
		if len(list) == 0 {
			continue
		}
		out = append(out, HostCount{Host: host, Count: len(list)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Host < out[j].Host
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// ScrapedRatio returns the share of pages that were scraped at least once.
func (s *Summary) ScrapedRatio() float64 {
	if s.Store.Pages == 0 {
		return 0
	}
	return float64(s.Store.ScrapedPages) / float64(s.Store.Pages)
}
