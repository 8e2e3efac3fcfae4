// Package server exposes the coordinator over HTTP.
//
// Routes:
//   - POST /create_account  admin key, returns a new worker API key as text
//   - GET  /work            worker key, returns one URL as text ("" when idle)
//   - POST /work            worker key, ingests a JSON scrape result
//   - GET  /graph           admin key, starts (or runs) a graph export
//   - GET  /health          frontier size, no auth
//   - GET  /metrics         Prometheus exposition, no auth
//
// Credentials travel in the Authorization header, either bare or as
// "Bearer <key>". Rejected credentials get 401 with an empty body; workers
// only ever see status codes.
//
// Design decision: Handlers depend on small interfaces (WorkService,
// Authenticator, GraphJob) rather than concrete packages so that the HTTP
// layer can be tested with fakes and the full stack alike.
package server
