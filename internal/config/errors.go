package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.ValidateWorker()
// and provide specific information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoListenAddress is returned when the server has no address to bind.
	ErrNoListenAddress = errors.New("no listen address: set listen_address or PORT")

	// ErrUnsupportedDriver is returned for database drivers other than
	// sqlite and postgres.
	ErrUnsupportedDriver = errors.New("unsupported database driver: use sqlite or postgres")

	// ErrNoDatabaseDSN is returned when the postgres driver is selected
	// without a connection string.
	ErrNoDatabaseDSN = errors.New("postgres requires database_dsn or DATABASE_DSN")

	// ErrNoDatabaseDir is returned when the sqlite driver has no directory.
	ErrNoDatabaseDir = errors.New("sqlite requires a database directory")

	// ErrInvalidKeyBackend is returned for key backends other than sql and redis.
	ErrInvalidKeyBackend = errors.New("invalid key backend: use sql or redis")

	// ErrNoRedisAddress is returned when the redis key backend has no address.
	ErrNoRedisAddress = errors.New("redis key backend requires redis_address or REDIS_ADDRESS")

	// ErrInvalidPruneInterval is returned when the prune interval is not positive.
	ErrInvalidPruneInterval = errors.New("invalid prune interval: must be positive")

	// ErrInvalidFreshnessWindow is returned when the freshness window is not positive.
	ErrInvalidFreshnessWindow = errors.New("invalid freshness window: must be positive")

	// ErrInvalidFailurePolicy is returned for failure policies other than
	// soft and hard.
	ErrInvalidFailurePolicy = errors.New("invalid failure policy: use soft or hard")

	// ErrNoGraphOutput is returned when no graph output path is configured.
	ErrNoGraphOutput = errors.New("no graph output path configured")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	// Use 0 to disable rate limiting.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidRateBurst is returned when rate limiting is enabled with a
	// burst below 1.
	ErrInvalidRateBurst = errors.New("invalid rate burst: must be at least 1 when rate limiting is enabled")

	// ErrNoServerURL is returned when the worker has no coordinator URL.
	ErrNoServerURL = errors.New("no server url: set server_url or BADGEGRAPH_SERVER")

	// ErrNoAPIKey is returned when the worker has no API key.
	ErrNoAPIKey = errors.New("no api key: set api_key or BADGEGRAPH_API_KEY")

	// ErrInvalidConcurrency is returned when worker concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")
)
