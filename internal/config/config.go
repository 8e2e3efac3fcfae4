package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// AppName is the application name used for XDG directories.
const AppName = "badgegraph"

// Default values for the coordinator and the worker.
const (
	// DefaultListenAddress is the address the coordinator binds.
	DefaultListenAddress = ":3000"

	// DefaultPruneInterval is how often the frontier is pruned.
	DefaultPruneInterval = time.Minute

	// DefaultFreshnessWindow is how long a scraped page is considered fresh.
	DefaultFreshnessWindow = 7 * 24 * time.Hour

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultServerURL is where the worker looks for the coordinator.
	DefaultServerURL = "http://localhost:3000"

	// DefaultWorkers is the number of concurrent worker loops.
	DefaultWorkers = 4

	// DefaultRequestTimeout bounds every HTTP request the worker makes.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxBodySize caps page and image downloads (5 MiB).
	DefaultMaxBodySize = 5 << 20

	// DefaultIdleDelay is how long the worker sleeps when there is no work.
	DefaultIdleDelay = 10 * time.Second

	// DefaultUserAgent identifies the reference worker.
	DefaultUserAgent = "badgegraph-worker/1.0 (+https://github.com/nao1215/badgegraph)"
)

// Supported values for enumerated settings.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	KeyBackendSQL   = "sql"
	KeyBackendRedis = "redis"

	FailureSoft = "soft"
	FailureHard = "hard"
)

// DefaultSeeds are the URLs the frontier starts from on an empty store.
var DefaultSeeds = []string{"https://notnite.com/"}

// DefaultBlacklist are hosts (and their subdomains) never crawled or exported.
var DefaultBlacklist = []string{"youtube.com"}

// Config holds all configuration options for badgegraph.
// The coordinator (serve, export, report, ingest, create-account) and the
// reference worker share this struct. Each command validates only what it
// needs via Validate or ValidateWorker.
type Config struct {
	// ListenAddress is the host:port the HTTP API binds.
	// The PORT environment variable overrides the port.
	// Default: ":3000"
	ListenAddress string

	// AdminKey authorizes POST /create_account.
	// When empty, every admin request is rejected.
	AdminKey string

	// DatabaseDriver selects the Link Store backend: "sqlite" or "postgres".
	// Default: "sqlite"
	DatabaseDriver string

	// DatabaseDSN is the postgres connection string.
	// Ignored by the sqlite driver.
	DatabaseDSN string

	// DBDir is the directory holding the sqlite database file.
	// Default: $XDG_DATA_HOME/badgegraph
	DBDir string

	// KeyBackend selects where worker API key digests live: "sql" stores
	// them in the clients table, "redis" in a Redis instance.
	// Default: "sql"
	KeyBackend string

	// RedisAddress, RedisPassword and RedisDB configure the redis key backend.
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Seeds are the URLs the frontier holds before any link is known.
	Seeds []string

	// Blacklist lists hosts that are never crawled or exported.
	// A blacklisted host also excludes all of its subdomains.
	Blacklist []string

	// PruneInterval is how often the frontier drops entries that are no
	// longer due for a crawl.
	// Default: 1 minute
	PruneInterval time.Duration

	// FreshnessWindow is how long after a scrape a page is not re-crawled.
	// Default: 7 days
	FreshnessWindow time.Duration

	// FailurePolicy decides what a failed scrape does to the graph.
	// "soft" only refreshes the page's freshness, "hard" also deletes every
	// link touching the page.
	// Default: "soft"
	FailurePolicy string

	// GraphOutput is the path the exported graph document is written to.
	// The previous document is kept next to it as a backup.
	// Default: $XDG_DATA_HOME/badgegraph/graph.json
	GraphOutput string

	// GraphSchedule is an optional cron expression for scheduled exports,
	// e.g. "@every 1h" or "0 * * * *". Empty disables scheduling.
	GraphSchedule string

	// GraphSynchronous makes GET /graph export inline and return the document
	// instead of starting a background export.
	GraphSynchronous bool

	// RateLimit is the per-key request rate (requests per second) on the
	// worker endpoints. 0 disables rate limiting.
	RateLimit float64

	// RateBurst is the token bucket size for RateLimit.
	RateBurst int

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	// Default: 10 seconds
	ShutdownTimeout time.Duration

	// ServerURL is the coordinator base URL the worker talks to.
	// Default: "http://localhost:3000"
	ServerURL string

	// APIKey is the worker's bearer token.
	APIKey string

	// Workers is the number of concurrent worker loops.
	// Default: 4
	Workers int

	// RequestTimeout bounds each HTTP request the worker makes.
	// Default: 30 seconds
	RequestTimeout time.Duration

	// MaxBodySize caps page and image downloads in bytes.
	// Default: 5 MiB
	MaxBodySize int64

	// IdleDelay is how long the worker waits when the frontier is empty.
	// Default: 10 seconds
	IdleDelay time.Duration

	// UserAgent is sent with every worker request.
	UserAgent string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches the log output to JSON lines.
	LogJSON bool

	// ConfigFilePath is the path to the YAML configuration file.
	// If empty, .badgegraph in the current or home directory is used.
	ConfigFilePath string
}

// NewConfig creates a new Config with sensible default values.
//
// Design decision: We use a constructor function rather than relying on
// zero values because several fields need non-zero defaults (listen address,
// intervals, seeds) and slices must not be shared with the package defaults.
func NewConfig() *Config {
	return &Config{
		ListenAddress:   DefaultListenAddress,
		DatabaseDriver:  DriverSQLite,
		DBDir:           XDGDataDir(),
		KeyBackend:      KeyBackendSQL,
		Seeds:           append([]string(nil), DefaultSeeds...),
		Blacklist:       append([]string(nil), DefaultBlacklist...),
		PruneInterval:   DefaultPruneInterval,
		FreshnessWindow: DefaultFreshnessWindow,
		FailurePolicy:   FailureSoft,
		GraphOutput:     filepath.Join(XDGDataDir(), "graph.json"),
		RateBurst:       1,
		ShutdownTimeout: DefaultShutdownTimeout,
		ServerURL:       DefaultServerURL,
		Workers:         DefaultWorkers,
		RequestTimeout:  DefaultRequestTimeout,
		MaxBodySize:     DefaultMaxBodySize,
		IdleDelay:       DefaultIdleDelay,
		UserAgent:       DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for badgegraph.
// This is where the database and the exported graph are stored.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for badgegraph.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for badgegraph.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the coordinator settings and returns an error if any are
// invalid. This should be called before starting the server or touching the
// Link Store.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return ErrNoListenAddress
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DBDir == "" {
			return ErrNoDatabaseDir
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return ErrNoDatabaseDSN
		}
	default:
		return ErrUnsupportedDriver
	}

	switch c.KeyBackend {
	case KeyBackendSQL:
	case KeyBackendRedis:
		if c.RedisAddress == "" {
			return ErrNoRedisAddress
		}
	default:
		return ErrInvalidKeyBackend
	}

	if c.PruneInterval <= 0 {
		return ErrInvalidPruneInterval
	}
	if c.FreshnessWindow <= 0 {
		return ErrInvalidFreshnessWindow
	}

	switch c.FailurePolicy {
	case FailureSoft, FailureHard:
	default:
		return ErrInvalidFailurePolicy
	}

	if c.GraphOutput == "" {
		return ErrNoGraphOutput
	}

	// Rate limiting is optional; a burst only matters once it is enabled.
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return ErrInvalidRateBurst
	}

	return nil
}

// ValidateWorker checks the settings used by the reference worker.
func (c *Config) ValidateWorker() error {
	if c.ServerURL == "" {
		return ErrNoServerURL
	}
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.Workers <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
