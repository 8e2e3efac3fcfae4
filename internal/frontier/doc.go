// Package frontier holds the in-memory crawl queue.
//
// The frontier is an ordered, duplicate-free list of URLs. It is rebuilt
// from the Link Store on start and whenever it drains, grows online as
// workers report new links, and is pruned on a fixed interval so entries
// that a racing worker just scraped drop out.
//
// Design decision: Store and policy calls are I/O and may interleave with
// other requests, so the queue is never mutated while it is being scanned.
// Fill and Prune copy the queue under the lock, evaluate the copy without
// holding it, then apply the result under the lock again. Concurrent Fill
// calls are coalesced with singleflight so a burst of drained Take calls
// scans the store once.
package frontier
