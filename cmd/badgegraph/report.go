package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/badgegraph/internal/graph"
	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the crawl and its badge graph",
		Long: `Report prints Link Store counts and graph statistics: number of hosts,
edges and badges, and the most linked and most linking hosts.

The graph is exported live from the Link Store unless --graph names an
already exported document.

Examples:
  # Markdown summary on stdout
  badgegraph report

  # JSON summary of a previously exported graph
  badgegraph report --format json --graph ./graph.json

  # Write the summary to a file
  badgegraph report -o summary.md`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().StringP("format", "f", report.FormatMarkdown,
		"Output format (simple, json or markdown)")
	cmd.Flags().IntP("top", "n", report.DefaultTopN,
		"Number of hosts in the ranking sections")
	cmd.Flags().String("graph", "",
		"Summarize this exported graph document instead of exporting")
	cmd.Flags().StringP("output", "o", "",
		"Write the summary to this file (creates directories if needed)")

	addStorageFlags(cmd)
	addCrawlFlags(cmd)

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyStorageFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	topN, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}
	graphPath, err := cmd.Flags().GetString("graph")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var g *model.Graph
	if graphPath != "" {
		g, err = graph.Read(graphPath)
	} else {
		var c *coordinator
		c, err = newCoordinator(cfg, store, logger, nil)
		if err == nil {
			g, err = c.exporter.Export(ctx)
		}
	}
	if err != nil {
		return err
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	summary := report.NewSummary(g, report.Counts{
		Pages:        stats.Pages,
		ScrapedPages: stats.ScrapedPages,
		Links:        stats.Links,
		Redirects:    stats.Redirects,
		Clients:      stats.Clients,
	}, topN, time.Now())

	return writeReport(cmd.OutOrStdout(), outputPath, format, summary)
}

// writeReport writes summary to outputPath, or to stdout when it is empty.
func writeReport(stdout io.Writer, outputPath, format string, summary *report.Summary) error {
	out := stdout
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		}
		file, err := os.Create(filepath.Clean(outputPath))
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()
		out = file
	}

	w, err := report.NewWriter(format, out)
	if err != nil {
		return err
	}
	if _, err := w.Write(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
