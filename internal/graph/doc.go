// Package graph reduces the Link Store into the host-level graph document
// consumed by the visualization front end.
//
// The exporter loads every page, link and redirect once, then works on the
// in-memory snapshot. Sources and destinations are resolved through one
// redirect hop and reduced to canonical hostnames. Purged pages and edges
// into purged pages are left out, so a host whose only link points at
// itself never shows up in the document.
//
// Design decision: Export runs as a detached background job. A full store
// scan can take a while and must not hold a request open; Job makes sure
// only one export runs at a time and Writer replaces the output file
// atomically, keeping the previous document as a backup.
package graph
