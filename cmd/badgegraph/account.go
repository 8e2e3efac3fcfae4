package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/badgegraph/internal/auth"
)

// NewCreateAccountCmd creates the create-account command.
func NewCreateAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Issue a worker API key without going through the HTTP API",
		Long: `Create-account issues a new worker API key directly in the configured key
store and prints it. Only a digest of the key is stored, so the printed
key cannot be recovered later.

Examples:
  # Issue a key in the default SQLite store
  badgegraph create-account

  # Issue a key in Redis
  badgegraph create-account --key-backend redis --redis-address localhost:6379`,
		Args: cobra.NoArgs,
		RunE: runCreateAccountCmd,
	}

	addStorageFlags(cmd)

	return cmd
}

// runCreateAccountCmd executes the create-account command.
func runCreateAccountCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyStorageFlags(cmd, cfg); err != nil {
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

	keys, closeKeys, err := openKeyStore(cfg, store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeKeys(); err != nil {
			logger.Warn("failed to close key store", "error", err)
		}
	}()

	key, err := auth.New(keys, "").IssueKey(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}
