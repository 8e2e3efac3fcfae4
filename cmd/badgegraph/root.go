// Package main provides the entry point for the badgegraph CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for badgegraph.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badgegraph",
		Short: "Crawl frontier and link graph for the 88x31 badge web",
		Long: `badgegraph maps the web of 88x31 badges: small button images that
personal sites use to link to each other.

The coordinator (serve) hands out URLs to crawl workers, records the badge
links they report and exports the host-level graph as JSON. A reference
worker (worker) that scrapes static HTML is included.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .badgegraph in current or home directory)")
	cmd.PersistentFlags().String("env-file", "",
		"Load environment variables from this file (default: .env if present)")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCreateAccountCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
