package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/badgegraph/internal/auth"
	"github.com/nao1215/badgegraph/internal/config"
	"github.com/nao1215/badgegraph/internal/database"
	"github.com/nao1215/badgegraph/internal/frontier"
	"github.com/nao1215/badgegraph/internal/graph"
	applog "github.com/nao1215/badgegraph/internal/log"
	"github.com/nao1215/badgegraph/internal/metrics"
	"github.com/nao1215/badgegraph/internal/pipeline"
	"github.com/nao1215/badgegraph/internal/policy"
	"github.com/nao1215/badgegraph/internal/redirect"
	"github.com/nao1215/badgegraph/internal/urlcanon"
	"github.com/nao1215/badgegraph/internal/work"
)

// stringFlag returns a string flag from the command or its parents, or ""
// when the flag is not defined.
func stringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// boolFlag retrieves a bool flag from the command or its parents.
func boolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// overrideFlag copies a flag value into dst when the user set the flag.
// Defaults of unset flags never override the config file or environment.
func overrideFlag[T any](cmd *cobra.Command, name string, dst *T, get func(string) (T, error)) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// loadConfig builds the effective configuration: defaults, config file,
// .env file, environment, then the global flags. Command-specific flags
// are applied by each command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var envFiles []string
	if f := stringFlag(cmd, "env-file"); f != "" {
		envFiles = append(envFiles, f)
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(stringFlag(cmd, "config"), os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if boolFlag(cmd, "verbose") {
		cfg.Verbose = true
	}
	if boolFlag(cmd, "log-json") {
		cfg.LogJSON = true
	}
	return cfg, nil
}

// newLogger creates the logger of one-shot commands, which stay quiet
// unless verbose, and installs it as the slog default.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := applog.NewSecureLogger(w, cfg.Verbose)
	if cfg.LogJSON {
		logger = applog.NewSecureJSONLogger(w, cfg.Verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// newServiceLogger creates the Info-level logger of serve and worker and
// installs it as the slog default.
func newServiceLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := applog.New(w, applog.Options{
		Verbose: cfg.Verbose,
		JSON:    cfg.LogJSON,
	})
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// openStore opens the Link Store selected by cfg.DatabaseDriver.
func openStore(ctx context.Context, cfg *config.Config) (*database.LinkStore, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		store, err := database.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, nil
	default:
		store, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, nil
	}
}

// openKeyStore returns the API key store selected by cfg.KeyBackend and a
// function releasing its resources.
func openKeyStore(cfg *config.Config, store *database.LinkStore) (auth.KeyStore, func() error, error) {
	if cfg.KeyBackend != config.KeyBackendRedis {
		return auth.NewSQLKeyStore(store), func() error { return nil }, nil
	}

	client, err := auth.NewRedisClient(auth.RedisConfig{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return auth.NewRedisKeyStore(client), client.Close, nil
}

// coordinator is the crawl engine shared by serve, export, report and ingest.
type coordinator struct {
	canon    *urlcanon.Canonicalizer
	resolver *redirect.Resolver
	policy   *policy.Policy
	frontier *frontier.Frontier
	ingest   *pipeline.AtomicIngester
	work     *work.Service
	exporter *graph.Exporter
	job      *graph.Job
}

// newCoordinator wires the engine on top of store. m may be nil.
func newCoordinator(cfg *config.Config, store *database.LinkStore, logger *slog.Logger, m *metrics.Metrics) (*coordinator, error) {
	failurePolicy, err := pipeline.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}

	canon := urlcanon.New(cfg.Blacklist)
	resolver := redirect.NewResolver(store)
	pol := policy.New(canon, store,
		policy.WithFreshnessWindow(cfg.FreshnessWindow),
		policy.WithLogger(logger),
	)

	frontierOpts := []frontier.Option{
		frontier.WithSeeds(cfg.Seeds...),
		frontier.WithPruneInterval(cfg.PruneInterval),
		frontier.WithLogger(logger),
	}
	workOpts := []work.Option{work.WithLogger(logger)}
	jobOpts := []graph.JobOption{graph.WithJobLogger(logger)}
	if m != nil {
		frontierOpts = append(frontierOpts, frontier.WithObserver(m))
		workOpts = append(workOpts, work.WithObserver(m))
		jobOpts = append(jobOpts, graph.WithJobObserver(m))
	}

	f := frontier.New(canon, store, pol, resolver, frontierOpts...)
	deps := pipeline.Dependencies{
		Canon:         canon,
		Store:         store,
		Redirects:     resolver,
		Recrawler:     pol,
		Frontier:      f,
		FailurePolicy: failurePolicy,
		Logger:        logger,
	}
	ingest := pipeline.NewAtomicIngester(deps, linkStoreTx{store: store, policy: pol})
	exporter := graph.NewExporter(canon, store, pol, graph.WithExporterLogger(logger))

	return &coordinator{
		canon:    canon,
		resolver: resolver,
		policy:   pol,
		frontier: f,
		ingest:   ingest,
		work:     work.NewService(f, ingest, workOpts...),
		exporter: exporter,
		job:      graph.NewJob(exporter, graph.NewWriter(cfg.GraphOutput), jobOpts...),
	}, nil
}

// linkStoreTx runs each submission in one Link Store transaction. Every
// store read of the pipeline goes through the transaction as well.
type linkStoreTx struct {
	store  *database.LinkStore
	policy *policy.Policy
}

func (t linkStoreTx) InTx(ctx context.Context, fn func(pipeline.Bound) error) error {
	return t.store.WithinTx(ctx, func(tx *database.LinkStore) error {
		return fn(pipeline.Bound{
			Store:     tx,
			Redirects: redirect.NewResolver(tx),
			Recrawler: t.policy.WithLookup(tx),
		})
	})
}

// restore rebuilds the frontier from the Link Store: every due link target
// is queued, then seeds and targets that are no longer due are dropped.
func (c *coordinator) restore(ctx context.Context) error {
	if err := c.frontier.Fill(ctx); err != nil {
		return fmt.Errorf("failed to rebuild frontier: %w", err)
	}
	if err := c.frontier.Prune(ctx); err != nil {
		return fmt.Errorf("failed to prune frontier: %w", err)
	}
	return nil
}
