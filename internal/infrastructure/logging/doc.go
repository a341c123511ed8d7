// Package logging provides structured logging for the tracker backend.
//
// It wraps Go's standard log/slog package to provide consistent,
// structured logging across the entire application: JSON output for
// production, text output for development, default service/version
// fields, and level-based filtering.
//
// Never log secrets, tokens, passwords, or API keys.
package logging
