package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/badgegraph/internal/auth"
	"github.com/nao1215/badgegraph/internal/config"
	"github.com/nao1215/badgegraph/internal/metrics"
	"github.com/nao1215/badgegraph/internal/scheduler"
	"github.com/nao1215/badgegraph/internal/server"
)

// graphExportTask is the scheduler task name of the periodic export.
const graphExportTask = "graph-export"

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl coordinator HTTP server",
		Long: `Serve starts the coordinator: it hands out URLs to workers, ingests
their results into the Link Store and exports the badge graph on demand.

Routes:
  POST /create_account   issue a worker API key (admin)
  GET  /graph            export the graph (admin)
  GET  /work             take a URL to crawl (worker)
  POST /work             submit a crawl result (worker)
  GET  /health           liveness and frontier size
  GET  /metrics          Prometheus metrics

The admin secret is read from ADMIN_KEY (or server.admin_key in the
configuration file). Without it the admin routes always answer 401.

Examples:
  # Serve on the default port with SQLite in the XDG data directory
  ADMIN_KEY=secret badgegraph serve

  # Serve on another port with PostgreSQL
  badgegraph serve --listen :8080 --driver postgres --dsn postgres://...

  # Export the graph every hour
  badgegraph serve --graph-schedule "@every 1h"`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on (PORT overrides the port)")
	cmd.Flags().Duration("prune-interval", config.DefaultPruneInterval,
		"How often the frontier drops URLs that are no longer due")
	cmd.Flags().String("graph-schedule", "",
		`Cron expression for periodic graph export (e.g. "0 * * * *" or "@every 1h")`)
	cmd.Flags().Bool("graph-sync", false,
		"Export inline on GET /graph and return the document")
	cmd.Flags().Float64("rate-limit", 0,
		"Requests per second allowed per worker key (0 disables)")
	cmd.Flags().Int("rate-burst", 0,
		"Burst size for --rate-limit")

	addStorageFlags(cmd)
	addCrawlFlags(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	logger := newServiceLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := signalContext(logger)
	defer cancel()

	return runServe(ctx, cfg, logger)
}

// buildServeConfig loads the configuration and applies the serve flags.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if err := overrideFlag(cmd, "listen", &cfg.ListenAddress, f.GetString); err != nil {
		return nil, err
	}
	if err := overrideFlag(cmd, "prune-interval", &cfg.PruneInterval, f.GetDuration); err != nil {
		return nil, err
	}
	if err := overrideFlag(cmd, "graph-schedule", &cfg.GraphSchedule, f.GetString); err != nil {
		return nil, err
	}
	if err := overrideFlag(cmd, "graph-sync", &cfg.GraphSynchronous, f.GetBool); err != nil {
		return nil, err
	}
	if err := overrideFlag(cmd, "rate-limit", &cfg.RateLimit, f.GetFloat64); err != nil {
		return nil, err
	}
	if err := overrideFlag(cmd, "rate-burst", &cfg.RateBurst, f.GetInt); err != nil {
		return nil, err
	}
	if err := applyStorageFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if cfg.GraphSchedule != "" {
		if err := scheduler.ValidateSpec(cfg.GraphSchedule); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}
	return cfg, nil
}

// runServe runs the coordinator until ctx is cancelled or a component fails.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	c, err := newCoordinator(cfg, store, logger, m)
	if err != nil {
		return err
	}
	m.TrackFrontierSize(c.frontier.Len)
	if err := c.restore(ctx); err != nil {
		return err
	}
	logger.Info("frontier restored", "size", c.frontier.Len())

	if cfg.AdminKey == "" {
		logger.Warn("no admin key configured; /create_account and /graph are disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.New(server.Config{
		ListenAddress:    cfg.ListenAddress,
		ShutdownTimeout:  cfg.ShutdownTimeout,
		RateLimit:        cfg.RateLimit,
		RateBurst:        cfg.RateBurst,
		GraphSynchronous: cfg.GraphSynchronous,
	}, server.Dependencies{
		Work:     c.work,
		Auth:     auth.New(keys, cfg.AdminKey),
		Graph:    c.job,
		Frontier: c.frontier,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	sched := scheduler.New(scheduler.WithLogger(logger))
	if cfg.GraphSchedule != "" {
		err := sched.Add(graphExportTask, cfg.GraphSchedule, func(ctx context.Context) error {
			_, err := c.job.Run(ctx)
			return err
		})
		if err != nil {
			return err
		}
		logger.Info("scheduled graph export",
			"schedule", cfg.GraphSchedule,
			"next", sched.Next(graphExportTask),
		)
	}

	logger.Info("starting coordinator",
		"listen", cfg.ListenAddress,
		"driver", cfg.DatabaseDriver,
		"keyBackend", cfg.KeyBackend,
		"failurePolicy", cfg.FailurePolicy,
		"freshnessWindow", c.policy.Window(),
		"blacklist", c.canon.Blacklist(),
		"ingestSteps", c.ingest.StepNames(),
		"graphOutput", cfg.GraphOutput,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		c.frontier.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	err = g.Wait()
	// Let a triggered export finish writing before the store closes.
	c.job.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("coordinator stopped")
	return nil
}
