package database

import "errors"

var (
	// ErrUnsupportedDriver is returned by Migrate when the connection's
	// driver has no schema.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrEmptyDSN is returned when a PostgreSQL store is opened without a DSN.
	ErrEmptyDSN = errors.New("database DSN is required")
)
