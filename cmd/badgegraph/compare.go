package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/badgegraph/internal/graph"
	"github.com/nao1215/badgegraph/internal/report"
)

// NewCompareCmd creates the compare command.
// This command compares two exported graph documents.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [previous.json] [current.json]",
		Short: "Compare two exported badge graphs",
		Long: `Compare displays differences between two exported graph documents:
- Hosts that appeared or disappeared
- Badge links (host edges) that appeared or disappeared
- Changes in host, edge and image counts

With no arguments the previous export (the .bak.json backup kept by every
export) is compared with the current graph output. With one argument that
document is compared with the current graph output.

Examples:
  # What changed in the last export
  badgegraph compare

  # Compare two archived exports as Markdown
  badgegraph compare --format markdown january.json february.json`,
		Args: cobra.MaximumNArgs(2),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("format", "f", report.FormatSimple,
		"Output format (simple, json or markdown)")
	cmd.Flags().String("graph-output", "",
		"Current graph document (default: the configured graph output)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	previousPath, currentPath := "", ""
	switch len(args) {
	case 2:
		previousPath, currentPath = args[0], args[1]
	default:
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := overrideFlag(cmd, "graph-output", &cfg.GraphOutput, cmd.Flags().GetString); err != nil {
			return err
		}
		if cfg.GraphOutput == "" {
			return errors.New("no graph output configured")
		}
		currentPath = cfg.GraphOutput
		previousPath = graph.BackupPath(cfg.GraphOutput)
		if len(args) == 1 {
			previousPath = args[0]
		}
	}

	previous, err := graph.Read(previousPath)
	if err != nil {
		return fmt.Errorf("failed to read previous graph: %w", err)
	}
	current, err := graph.Read(currentPath)
	if err != nil {
		return fmt.Errorf("failed to read current graph: %w", err)
	}

	return report.WriteDiff(format, cmd.OutOrStdout(), report.Compare(previous, current))
}
