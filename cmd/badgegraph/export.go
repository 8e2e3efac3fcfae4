package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the badge graph once and exit",
		Long: `Export builds the host-level badge graph from the Link Store and writes it
to the graph output path. The previous document is kept next to it with a
.bak.json suffix.

Examples:
  # Export to the default location
  badgegraph export

  # Export to a specific file
  badgegraph export --graph-output ./graph.json`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	addStorageFlags(cmd)
	addCrawlFlags(cmd)

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, _ []string) error {
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

	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := newCoordinator(cfg, store, logger, nil)
	if err != nil {
		return err
	}

	g, err := c.job.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d hosts, %d edges, %d images)\n",
		cfg.GraphOutput, len(g.Hosts()), g.EdgeCount(), g.ImageCount())
	return nil
}
