// Package auth issues and checks worker API keys and the admin secret.
//
// Workers authenticate with an API key sent in the Authorization header,
// either bare or as "Bearer <key>". Keys are random UUIDs. Only a SHA3-256
// digest of each key is stored, in the Link Store's clients table or in
// Redis under auth:keys:<digest>.
//
// Design decision: Key stores sit behind the small KeyStore interface so
// the server can run with only a database, or share issued keys through
// Redis across processes that front the same crawl.
package auth
