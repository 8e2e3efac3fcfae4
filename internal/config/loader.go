package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".badgegraph"

// Environment variables read by ApplyEnv.
const (
	EnvAdminKey       = "ADMIN_KEY"
	EnvPort           = "PORT"
	EnvDatabaseDriver = "DATABASE_DRIVER"
	EnvDatabaseDSN    = "DATABASE_DSN"
	EnvRedisAddress   = "REDIS_ADDRESS"
	EnvRedisPassword  = "REDIS_PASSWORD"
	EnvServerURL      = "BADGEGRAPH_SERVER"
	EnvAPIKey         = "BADGEGRAPH_API_KEY"
	EnvGraphOutput    = "BADGEGRAPH_GRAPH_OUTPUT"
	EnvFailurePolicy  = "BADGEGRAPH_FAILURE_POLICY"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads the YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .badgegraph in the current directory
// 3. Look for .badgegraph in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set.
// Missing files are ignored. With no arguments ".env" is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg.
// lookup is normally os.LookupEnv; tests pass a map-backed function.
// PORT replaces the whole listen address with ":<PORT>".
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(&cfg.AdminKey, EnvAdminKey)
	if port, ok := lookup(EnvPort); ok && port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			cfg.ListenAddress = ":" + port
		}
	}
	set(&cfg.DatabaseDriver, EnvDatabaseDriver)
	set(&cfg.DatabaseDSN, EnvDatabaseDSN)
	set(&cfg.RedisAddress, EnvRedisAddress)
	set(&cfg.RedisPassword, EnvRedisPassword)
	set(&cfg.ServerURL, EnvServerURL)
	set(&cfg.APIKey, EnvAPIKey)
	set(&cfg.GraphOutput, EnvGraphOutput)
	set(&cfg.FailurePolicy, EnvFailurePolicy)
}

// Load builds the effective configuration: defaults, then the config file
// (explicit path or discovered), then the environment.
// An explicitly given path that does not exist is an error; a missing
// discovered file is not.
func Load(configPath string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := NewConfig()

	path := FindConfigFile(configPath)
	if configPath != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	if path != "" {
		f, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		f.Apply(cfg)
		cfg.ConfigFilePath = path
	}

	if lookup != nil {
		ApplyEnv(cfg, lookup)
	}
	return cfg, nil
}
