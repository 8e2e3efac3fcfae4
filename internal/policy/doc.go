// Package policy decides whether a URL must never be crawled (purge) and
// whether a known URL is due for another crawl (recrawl).
//
// Both predicates read the Link Store on every call. Concurrent worker
// submissions change their answers, so results are never cached.
//
// Design decision: The predicates depend on a small Lookup interface rather
// than the concrete store. The Link Store satisfies it for online use, and
// Snapshot satisfies it for the graph exporter, which loads every record
// once and then evaluates the same rules in memory.
package policy
