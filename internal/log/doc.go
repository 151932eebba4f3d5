// Package log provides sanitized structured logging for crawl runs.
//
// Crawl logs are dominated by URLs, and URLs leak: userinfo components,
// session identifiers in query strings, API keys passed as parameters.
// The handlers in this package scrub those before any record reaches the
// underlying slog handler, so components can log URLs freely.
package log
