package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/nao1215/badgegraph/internal/config"
	"github.com/nao1215/badgegraph/internal/scraper"
)

// NewWorkerCmd creates the worker command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the reference crawl worker",
		Long: `Worker repeatedly takes a URL from the coordinator, downloads the page,
finds links wrapping 88x31 badge images and submits them.

Only static HTML is scraped; pages that build their badges with
JavaScript are seen without them. The API key is read from
BADGEGRAPH_API_KEY unless --api-key is given.

Examples:
  # Crawl with four concurrent loops against a local coordinator
  BADGEGRAPH_API_KEY=<key> badgegraph worker

  # Crawl against a remote coordinator
  badgegraph worker --server https://badges.example.net --workers 16`,
		Args: cobra.NoArgs,
		RunE: runWorkerCmd,
	}

	cmd.Flags().StringP("server", "s", config.DefaultServerURL,
		"Coordinator base URL")
	cmd.Flags().String("api-key", "",
		"Worker API key (prefer BADGEGRAPH_API_KEY)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent scrape loops")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum bytes read from a page or image")
	cmd.Flags().Duration("idle-delay", config.DefaultIdleDelay,
		"How long to wait when the coordinator has no work")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent to crawled sites")

	return cmd
}

// runWorkerCmd executes the worker command.
func runWorkerCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildWorkerConfig(cmd)
	if err != nil {
		return err
	}

	logger := newServiceLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := signalContext(logger)
	defer cancel()

	fetcher := scraper.NewFetcher(
		scraper.WithUserAgent(cfg.UserAgent),
		scraper.WithMaxBodySize(cfg.MaxBodySize),
		scraper.WithTimeout(cfg.RequestTimeout),
	)
	client := scraper.NewClient(cfg.ServerURL, cfg.APIKey,
		scraper.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		scraper.WithClientUserAgent(cfg.UserAgent),
	)
	w := scraper.NewWorker(client, scraper.New(fetcher, scraper.WithScraperLogger(logger)),
		scraper.WithConcurrency(cfg.Workers),
		scraper.WithIdleDelay(cfg.IdleDelay),
		scraper.WithWorkerLogger(logger),
	)

	logger.Info("starting worker",
		"server", cfg.ServerURL,
		"workers", cfg.Workers,
	)

	err = w.Run(ctx)
	if errors.Is(err, scraper.ErrUnauthorized) {
		return fmt.Errorf("coordinator rejected the api key: %w", err)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildWorkerConfig loads the configuration and applies the worker flags.
func buildWorkerConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	for name, dst := range map[string]*string{
		"server":     &cfg.ServerURL,
		"api-key":    &cfg.APIKey,
		"user-agent": &cfg.UserAgent,
	} {
		if err := overrideFlag(cmd, name, dst, f.GetString); err != nil {
			return nil, err
		}
	}
	if err := overrideFlag(cmd, "workers", &cfg.Workers, f.GetInt); err != nil {
		return nil, err
	}
	if err := overrideFlag(cmd, "timeout", &cfg.RequestTimeout, f.GetDuration); err != nil {
		return nil, err
	}
	if err := overrideFlag(cmd, "max-body-size", &cfg.MaxBodySize, f.GetInt64); err != nil {
		return nil, err
	}
	if err := overrideFlag(cmd, "idle-delay", &cfg.IdleDelay, f.GetDuration); err != nil {
		return nil, err
	}

	if err := cfg.ValidateWorker(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}
