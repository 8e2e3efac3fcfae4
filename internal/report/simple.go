package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text summaries.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because it works in all terminals and is easy to pipe to
// files or other tools.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(s *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("BADGEGRAPH CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	sb.WriteString("STORE\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&sb, "  Pages:         %d (%d scraped, %.1f%%)\n", s.Store.Pages, s.Store.ScrapedPages, s.ScrapedRatio()*100)
	fmt.Fprintf(&sb, "  Links:         %d\n", s.Store.Links)
	fmt.Fprintf(&sb, "  Redirects:     %d\n", s.Store.Redirects)
	fmt.Fprintf(&sb, "  Clients:       %d\n\n", s.Store.Clients)

	sb.WriteString("GRAPH\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&sb, "  Hosts:         %d\n", s.Hosts)
	fmt.Fprintf(&sb, "  Edges:         %d\n", s.Edges)
	fmt.Fprintf(&sb, "  Badge images:  %d\n\n", s.Images)

	writeRanking(&sb, "MOST LINKED HOSTS", s.MostLinked)
	writeRanking(&sb, "MOST LINKING HOSTS", s.MostLinking)

	return io.WriteString(w.output, sb.String())
}

func writeRanking(sb *strings.Builder, title string, hosts []HostCount) {
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	if len(hosts) == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}
	for i, h := range hosts {
		fmt.Fprintf(sb, "  %2d. %-40s %d\n", i+1, h.Host, h.Count)
	}
	sb.WriteString("\n")
}
