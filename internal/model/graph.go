package model

import "sort"

// Graph is the exported host-level graph document.
// All maps are keyed by canonical hostname. The JSON form has exactly the
// three top-level keys linksTo, linkedFrom and images.
type Graph struct {
	// LinksTo maps a host to the hosts it links to.
	LinksTo map[string][]string `json:"linksTo"`

	// LinkedFrom is the transpose of LinksTo.
	LinkedFrom map[string][]string `json:"linkedFrom"`

	// Images maps a host to the badge image URLs other hosts use to link to it.
	Images map[string][]string `json:"images"`
}

// NewGraph returns an empty graph with all maps allocated.
func NewGraph() *Graph {
	return &Graph{
		LinksTo:    make(map[string][]string),
		LinkedFrom: make(map[string][]string),
		Images:     make(map[string][]string),
	}
}

// Hosts returns every host that appears as a key in the graph, sorted.
func (g *Graph) Hosts() []string {
	seen := make(map[string]struct{})
	for _, m := range []map[string][]string{g.LinksTo, g.LinkedFrom, g.Images} {
		for host := range m {
			seen[host] = struct{}{}
		}
	}
	hosts := make([]string, 0, len(seen))
	for host := range seen {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// EdgeCount returns the number of distinct host-to-host edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, dsts := range g.LinksTo {
		n += len(dsts)
	}
	return n
}

// ImageCount returns the number of distinct (host, image) pairs.
func (g *Graph) ImageCount() int {
	n := 0
	for _, images := range g.Images {
		n += len(images)
	}
	return n
}
