package config

import "time"

// File is the on-disk YAML configuration.
// Every field is optional; zero values leave the corresponding Config field
// untouched when applied.
//
// Example configuration file (.badgegraph):
//
//	server:
//	  listen_address: ":3000"
//	  rate_limit: 5
//	  rate_burst: 10
//	storage:
//	  driver: sqlite
//	  db_dir: /var/lib/badgegraph
//	auth:
//	  backend: redis
//	  redis_address: localhost:6379
//	crawl:
//	  seeds:
//	    - https://notnite.com/
//	  blacklist:
//	    - youtube.com
//	  prune_interval: 1m
//	  freshness_window: 168h
//	  failure_policy: soft
//	graph:
//	  output: /var/lib/badgegraph/graph.json
//	  schedule: "@every 1h"
//	worker:
//	  server_url: http://localhost:3000
//	  workers: 4
type File struct {
	Server  ServerSection  `yaml:"server"`
	Storage StorageSection `yaml:"storage"`
	Auth    AuthSection    `yaml:"auth"`
	Crawl   CrawlSection   `yaml:"crawl"`
	Graph   GraphSection   `yaml:"graph"`
	Worker  WorkerSection  `yaml:"worker"`
	Log     LogSection     `yaml:"log"`
}

// ServerSection configures the HTTP API.
type ServerSection struct {
	ListenAddress   string        `yaml:"listen_address"`
	AdminKey        string        `yaml:"admin_key"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageSection configures the Link Store.
type StorageSection struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	DBDir  string `yaml:"db_dir"`
}

// AuthSection configures where worker keys are stored.
type AuthSection struct {
	Backend       string `yaml:"backend"`
	RedisAddress  string `yaml:"redis_address"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// CrawlSection configures the frontier and ingestion.
type CrawlSection struct {
	Seeds           []string      `yaml:"seeds"`
	Blacklist       []string      `yaml:"blacklist"`
	PruneInterval   time.Duration `yaml:"prune_interval"`
	FreshnessWindow time.Duration `yaml:"freshness_window"`
	FailurePolicy   string        `yaml:"failure_policy"`
}

// GraphSection configures the graph export.
type GraphSection struct {
	Output      string `yaml:"output"`
	Schedule    string `yaml:"schedule"`
	Synchronous *bool  `yaml:"synchronous"`
}

// WorkerSection configures the reference worker.
type WorkerSection struct {
	ServerURL      string        `yaml:"server_url"`
	APIKey         string        `yaml:"api_key"`
	Workers        int           `yaml:"workers"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodySize    int64         `yaml:"max_body_size"`
	IdleDelay      time.Duration `yaml:"idle_delay"`
	UserAgent      string        `yaml:"user_agent"`
}

// LogSection configures logging.
type LogSection struct {
	Verbose *bool `yaml:"verbose"`
	JSON    *bool `yaml:"json"`
}

// Apply overlays the non-zero values of the file onto cfg.
// Lists replace the defaults rather than extending them.
func (f *File) Apply(cfg *Config) {
	setString(&cfg.ListenAddress, f.Server.ListenAddress)
	setString(&cfg.AdminKey, f.Server.AdminKey)
	if f.Server.RateLimit != 0 {
		cfg.RateLimit = f.Server.RateLimit
	}
	if f.Server.RateBurst != 0 {
		cfg.RateBurst = f.Server.RateBurst
	}
	setDuration(&cfg.ShutdownTimeout, f.Server.ShutdownTimeout)

	setString(&cfg.DatabaseDriver, f.Storage.Driver)
	setString(&cfg.DatabaseDSN, f.Storage.DSN)
	setString(&cfg.DBDir, f.Storage.DBDir)

	setString(&cfg.KeyBackend, f.Auth.Backend)
	setString(&cfg.RedisAddress, f.Auth.RedisAddress)
	setString(&cfg.RedisPassword, f.Auth.RedisPassword)
	if f.Auth.RedisDB != 0 {
		cfg.RedisDB = f.Auth.RedisDB
	}

	if f.Crawl.Seeds != nil {
		cfg.Seeds = append([]string(nil), f.Crawl.Seeds...)
	}
	if f.Crawl.Blacklist != nil {
		cfg.Blacklist = append([]string(nil), f.Crawl.Blacklist...)
	}
	setDuration(&cfg.PruneInterval, f.Crawl.PruneInterval)
	setDuration(&cfg.FreshnessWindow, f.Crawl.FreshnessWindow)
	setString(&cfg.FailurePolicy, f.Crawl.FailurePolicy)

	setString(&cfg.GraphOutput, f.Graph.Output)
	setString(&cfg.GraphSchedule, f.Graph.Schedule)
	if f.Graph.Synchronous != nil {
		cfg.GraphSynchronous = *f.Graph.Synchronous
	}

	setString(&cfg.ServerURL, f.Worker.ServerURL)
	setString(&cfg.APIKey, f.Worker.APIKey)
	if f.Worker.Workers != 0 {
		cfg.Workers = f.Worker.Workers
	}
	setDuration(&cfg.RequestTimeout, f.Worker.RequestTimeout)
	if f.Worker.MaxBodySize != 0 {
		cfg.MaxBodySize = f.Worker.MaxBodySize
	}
	setDuration(&cfg.IdleDelay, f.Worker.IdleDelay)
	setString(&cfg.UserAgent, f.Worker.UserAgent)

	if f.Log.Verbose != nil {
		cfg.Verbose = *f.Log.Verbose
	}
	if f.Log.JSON != nil {
		cfg.LogJSON = *f.Log.JSON
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
