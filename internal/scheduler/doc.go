// Package scheduler runs coordinator maintenance on cron schedules.
//
// The coordinator uses it for the scheduled graph export (graph_schedule).
// Expressions are standard five-field cron ("0 * * * *") or descriptors
// ("@hourly", "@every 30m").
//
// Design decision: overlapping runs of the same task are skipped rather than
// queued. A graph export that outlives its interval would otherwise pile up
// full-store scans.
package scheduler
