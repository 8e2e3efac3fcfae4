// Package main provides the entry point for the badgegraph CLI.
//
// badgegraph coordinates a distributed crawl of the 88x31 badge web: it
// hands out URLs to workers, ingests the badge links they report and
// exports the host-level link graph.
//
// Usage:
//
//	badgegraph serve
//	badgegraph create-account
//	badgegraph worker --server http://localhost:3000 --api-key <key>
//	badgegraph export
//
// See --help for all available options.
package main

// main is the entry point for badgegraph.
func main() {
	Execute()
}
