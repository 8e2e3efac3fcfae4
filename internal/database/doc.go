// Package database provides the Link Store: durable storage for pages,
// badge links, redirects and worker clients.
//
// This package implements the LinkStore, which stores:
//   - Pages with their canonical host and last scrape time
//   - Links between pages, keyed by (source, destination, badge image)
//   - Single-hop redirect records
//   - Digests of worker API keys
//
// Design decision: We use SQLite (via modernc.org/sqlite) by default because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode provides good concurrent read performance
//
// Queries go through sqlx and are written with '?' placeholders. Rebind turns
// them into '$n' placeholders when the store runs on PostgreSQL (lib/pq), so
// a single query text serves both drivers. Every write is one upsert
// statement, which keeps each record change atomic.
package database
