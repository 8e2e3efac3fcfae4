// Package model defines the core data structures used throughout badgegraph.
//
// This package contains the following main types:
//   - Page: A URL known to the crawl, with its host and last scrape time
//   - Link: A badge link from one page to another, with the badge image
//   - Redirect: A single-hop redirect record (from -> to)
//   - Client: A worker credential
//   - Submission: A crawl result reported by a worker
//   - Graph: The exported host-level graph document
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The store, policy, frontier, pipeline and graph packages all
// need these types.
package model
