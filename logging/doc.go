// Package logging provides a minimal logging interface and adapters for AgroNix.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the cache, calendar store, dispatcher and assistant use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - StructuredLogger, a configurable slog logger with component / user context,
//     optional rotating file output and tool / model call helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	a := agronix.New(func(o *agronix.Options) { o.Logger = logger })
//
// All methods take a message followed by alternating key/value pairs, the same
// convention as log/slog.
package logging
