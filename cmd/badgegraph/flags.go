package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/badgegraph/internal/config"
)

// addStorageFlags registers the Link Store and key store flags shared by the
// commands that open the database.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("driver", config.DriverSQLite,
		"Link Store driver (sqlite or postgres)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the SQLite database")
	cmd.Flags().String("dsn", "",
		"PostgreSQL connection string (prefer DATABASE_DSN)")
	cmd.Flags().String("key-backend", config.KeyBackendSQL,
		"Where worker API keys are stored (sql or redis)")
	cmd.Flags().String("redis-address", "",
		"Redis address for the redis key backend")
}

// applyStorageFlags copies explicitly set storage flags into cfg.
func applyStorageFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	for name, dst := range map[string]*string{
		"driver":        &cfg.DatabaseDriver,
		"db-dir":        &cfg.DBDir,
		"dsn":           &cfg.DatabaseDSN,
		"key-backend":   &cfg.KeyBackend,
		"redis-address": &cfg.RedisAddress,
	} {
		if err := overrideFlag(cmd, name, dst, f.GetString); err != nil {
			return err
		}
	}
	return nil
}

// addCrawlFlags registers the flags that shape the frontier and ingestion.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("seed", config.DefaultSeeds,
		"Seed URL handed out when the frontier is empty (repeatable)")
	cmd.Flags().StringSlice("blacklist", config.DefaultBlacklist,
		"Blacklisted host suffix (repeatable)")
	cmd.Flags().Duration("freshness-window", config.DefaultFreshnessWindow,
		"How long a scraped page stays fresh")
	cmd.Flags().String("failure-policy", config.FailureSoft,
		"What a failed scrape does to stored links (soft or hard)")
	cmd.Flags().String("graph-output", "",
		"Graph JSON output path (default: graph.json in the data directory)")
}

// applyCrawlFlags copies explicitly set crawl flags into cfg.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if err := overrideFlag(cmd, "seed", &cfg.Seeds, f.GetStringSlice); err != nil {
		return err
	}
	if err := overrideFlag(cmd, "blacklist", &cfg.Blacklist, f.GetStringSlice); err != nil {
		return err
	}
	if err := overrideFlag(cmd, "freshness-window", &cfg.FreshnessWindow, f.GetDuration); err != nil {
		return err
	}
	if err := overrideFlag(cmd, "failure-policy", &cfg.FailurePolicy, f.GetString); err != nil {
		return err
	}
	return overrideFlag(cmd, "graph-output", &cfg.GraphOutput, f.GetString)
}
