package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides tables, Mermaid charts and GitHub-flavored
// alerts without hand-built string formatting.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Badge Graph Summary")
	md.PlainText("")
	md.PlainTextf("Generated %s", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	md.PlainText("")

	w.writeStore(md, s)
	w.writeGraph(md, s)
	w.writeRanking(md, "Most Linked Hosts", "Linked from", s.MostLinked)
	w.writeRanking(md, "Most Linking Hosts", "Links to", s.MostLinking)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeStore(md *markdown.Markdown, s *Summary) {
	md.H2("Link Store")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Record", "Count"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(s.Store.Pages)},
			{"Scraped pages", strconv.Itoa(s.Store.ScrapedPages)},
			{"Links", strconv.Itoa(s.Store.Links)},
			{"Redirects", strconv.Itoa(s.Store.Redirects)},
			{"Clients", strconv.Itoa(s.Store.Clients)},
		},
	})
	md.PlainText("")

	if s.Store.Pages > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Crawl Coverage"),
			piechart.WithShowData(true),
		)
		chart.LabelAndIntValue("Scraped", uint64(s.Store.ScrapedPages))            //nolint:gosec // counts are non-negative
		chart.LabelAndIntValue("Pending", uint64(s.Store.Pages-s.Store.ScrapedPages)) //nolint:gosec // counts are non-negative
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeGraph(md *markdown.Markdown, s *Summary) {
	md.H2("Graph")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Hosts", strconv.Itoa(s.Hosts)},
			{"Edges", strconv.Itoa(s.Edges)},
			{"Badge images", strconv.Itoa(s.Images)},
		},
	})
	md.PlainText("")

	if s.Hosts == 0 {
		md.Note("The graph is empty. Start a worker to begin crawling.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeRanking(md *markdown.Markdown, title, column string, hosts []HostCount) {
	md.H2(title)
	md.PlainText("")
	if len(hosts) == 0 {
		md.PlainText("No hosts yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(hosts))
	for i, h := range hosts {
		rows = append(rows, []string{strconv.Itoa(i + 1), fmt.Sprintf("`%s`", h.Host), strconv.Itoa(h.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Host", column},
		Rows:   rows,
	})
	md.PlainText("")
}
