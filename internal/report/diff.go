package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/badgegraph/internal/model"
)

// Edge is one host-to-host badge link.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GraphStats are the headline numbers of one exported graph.
type GraphStats struct {
	Hosts  int `json:"hosts"`
	Edges  int `json:"edges"`
	Images int `json:"images"`
}

// Diff lists what changed between two exported graphs.
type Diff struct {
	Previous GraphStats `json:"previous"`
	Current  GraphStats `json:"current"`

	AddedHosts   []string `json:"added_hosts,omitempty"`
	RemovedHosts []string `json:"removed_hosts,omitempty"`
	AddedEdges   []Edge   `json:"added_edges,omitempty"`
	RemovedEdges []Edge   `json:"removed_edges,omitempty"`

	// UnchangedEdges counts edges present in both graphs.
	UnchangedEdges int `json:"unchanged_edges"`
}

// Empty reports whether the graphs have the same hosts and edges.
func (d *Diff) Empty() bool {
	return len(d.AddedHosts) == 0 && len(d.RemovedHosts) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// Compare computes the difference from previous to current. All lists are
// sorted.
func Compare(previous, current *model.Graph) *Diff {
	d := &Diff{
		Previous: statsOf(previous),
		Current:  statsOf(current),
	}

	prevHosts := toSet(previous.Hosts())
	curHosts := toSet(current.Hosts())
	d.AddedHosts = missingFrom(curHosts, prevHosts)
	d.RemovedHosts = missingFrom(prevHosts, curHosts)

	prevEdges := edgesOf(previous)
	curEdges := edgesOf(current)
	for e := range curEdges {
		if _, ok := prevEdges[e]; ok {
			d.UnchangedEdges++
			continue
		}
		d.AddedEdges = append(d.AddedEdges, e)
	}
	for e := range prevEdges {
		if _, ok := curEdges[e]; !ok {
			d.RemovedEdges = append(d.RemovedEdges, e)
		}
	}
	sortEdges(d.AddedEdges)
	sortEdges(d.RemovedEdges)

	return d
}

func statsOf(g *model.Graph) GraphStats {
	return GraphStats{
		Hosts:  len(g.Hosts()),
		Edges:  g.EdgeCount(),
		Images: g.ImageCount(),
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// missingFrom returns the sorted members of a that are not in b.
func missingFrom(a, b map[string]struct{}) []string {
	var out []string
	for item := range a {
		if _, ok := b[item]; !ok {
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

func edgesOf(g *model.Graph) map[Edge]struct{} {
	edges := make(map[Edge]struct{})
	for from, dsts := range g.LinksTo {
		for _, to := range dsts {
			edges[Edge{From: from, To: to}] = struct{}{}
		}
	}
	return edges
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
}

// WriteDiff writes d to output in format (simple, json or markdown).
func WriteDiff(format string, output io.Writer, d *Diff) error {
	switch strings.ToLower(format) {
	case "", FormatSimple:
		return writeDiffText(output, d)
	case FormatJSON:
		encoder := json.NewEncoder(output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(d)
	case FormatMarkdown, "md":
		return writeDiffMarkdown(output, d)
	default:
		return fmt.Errorf("unknown report format %q (want %s, %s or %s)",
			format, FormatSimple, FormatJSON, FormatMarkdown)
	}
}

func writeDiffText(w io.Writer, d *Diff) error {
	var b strings.Builder

	b.WriteString("Graph Comparison\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "  %-10s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	b.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, row := range diffRows(d) {
		fmt.Fprintf(&b, "  %-10s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	if d.Empty() {
		b.WriteString("\nNo hosts or edges changed.\n")
	}
	writeList(&b, "New Hosts", "+", d.AddedHosts)
	writeList(&b, "Removed Hosts", "-", d.RemovedHosts)
	writeList(&b, "New Edges", "+", edgeStrings(d.AddedEdges))
	writeList(&b, "Removed Edges", "-", edgeStrings(d.RemovedEdges))
	if d.UnchangedEdges > 0 {
		fmt.Fprintf(&b, "\nUnchanged: %d edges\n", d.UnchangedEdges)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title, marker string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d):\n", title, len(items))
	for _, item := range items {
		fmt.Fprintf(b, "  [%s] %s\n", marker, item)
	}
}

func writeDiffMarkdown(w io.Writer, d *Diff) error {
	md := markdown.NewMarkdown(w)

	md.H1("Graph Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Previous", "Current", "Change"},
		Rows:   diffRows(d),
	})

	if d.Empty() {
		md.PlainText("")
		md.Note("No hosts or edges changed.")
	}
	markdownList(md, "New Hosts", d.AddedHosts)
	markdownList(md, "Removed Hosts", d.RemovedHosts)
	markdownList(md, "New Edges", edgeStrings(d.AddedEdges))
	markdownList(md, "Removed Edges", edgeStrings(d.RemovedEdges))

	return md.Build()
}

func markdownList(md *markdown.Markdown, title string, items []string) {
	if len(items) == 0 {
		return
	}
	code := make([]string, len(items))
	for i, item := range items {
		code[i] = fmt.Sprintf("`%s`", item)
	}
	md.PlainText("")
	md.H2(fmt.Sprintf("%s (%d)", title, len(items)))
	md.PlainText("")
	md.BulletList(code...)
}

func diffRows(d *Diff) [][]string {
	return [][]string{
		{"Hosts", strconv.Itoa(d.Previous.Hosts), strconv.Itoa(d.Current.Hosts), formatDelta(d.Current.Hosts - d.Previous.Hosts)},
		{"Edges", strconv.Itoa(d.Previous.Edges), strconv.Itoa(d.Current.Edges), formatDelta(d.Current.Edges - d.Previous.Edges)},
		{"Images", strconv.Itoa(d.Previous.Images), strconv.Itoa(d.Current.Images), formatDelta(d.Current.Images - d.Previous.Images)},
	}
}

func edgeStrings(edges []Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.From + " -> " + e.To
	}
	return out
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
