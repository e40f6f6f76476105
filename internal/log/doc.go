// Package log provides slog based logging that masks credentials.
//
// Crawls are often configured with cookies and authorization headers from
// the site file. SecureHandler keeps those out of the log output:
//   - attributes whose key names a credential (cookie, authorization, token, ...)
//   - values that look like bearer tokens, JWTs or private keys
//   - sensitive entries of header maps
//   - sensitive query parameters and userinfo passwords of logged URLs
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("fetch", "url", target, "headers", headers)
//	slog.SetDefault(logger)
package log
