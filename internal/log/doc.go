// Package log builds the slog loggers used by badgegraph, with a handler
// that redacts credentials before they reach any output.
//
// The coordinator handles two kinds of secrets: the admin key that mints
// worker credentials, and the worker API keys themselves (UUIDs sent as
// bearer tokens). Neither may reach a log line, even in verbose mode.
//
// # Redaction
//
//   - Credential headers and keys (Authorization, X-Api-Key, api_key,
//     admin_key, digest, anything containing password or token)
//   - Bearer and Basic header values and issued API keys wherever they appear
//   - Passwords inside DSNs and URLs; the host stays visible
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	logger.Info("account created", "api_key", key) // api_key=***REDACTED***
//	slog.SetDefault(logger)
package log
