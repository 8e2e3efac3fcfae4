// Package scraper is the reference crawl worker for badgegraph.
//
// A worker repeatedly asks the coordinator for a URL (GET /work), fetches
// the page, finds every <a> element that wraps an 88x31 badge image, and
// reports the result (POST /work).
//
// # Components
//
//   - Client: talks to the coordinator's work endpoints
//   - Fetcher: downloads pages and images with size limits
//   - Parser: finds anchor/image pairs in HTML
//   - Scraper: turns one URL into a model.Submission
//   - Worker: runs N scrape loops concurrently
//
// Design decision: The worker parses static HTML only. Badges injected by
// JavaScript are missed; in exchange the worker needs no browser and can
// run many loops in one process.
//
// # Usage
//
//	client := scraper.NewClient("http://localhost:3000", apiKey)
//	w := scraper.NewWorker(client, scraper.New(scraper.NewFetcher()), scraper.WithConcurrency(4))
//	err := w.Run(ctx)
package scraper
