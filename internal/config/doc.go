// Package config provides configuration structures and utilities for badgegraph.
// It defines the options for the coordinator server (storage, frontier
// maintenance, graph export, authentication) and for the reference worker.
//
// Values are layered: NewConfig defaults, then the YAML file, then the
// environment (optionally seeded from a .env file), then CLI flags.
package config
