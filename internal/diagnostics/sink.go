// Package diagnostics defines the warn-only sink the index consults for
// non-fatal conditions: specifically, list()'s "some stored collections
// could not be deserialized" warning.
//
// Grounded on zephyraoss-poppy-pkgs's direct use of *slog.Logger for
// warnings throughout internal/store and internal/indexer.
package diagnostics

import "log/slog"

// Sink receives non-fatal diagnostic messages.
type Sink interface {
	Warn(msg string, args ...any)
}

// SlogSink adapts a *slog.Logger to Sink.
type SlogSink struct {
	Logger *slog.Logger
}

// Warn logs msg at Warn level.
func (s SlogSink) Warn(msg string, args ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, args...)
}

// NopSink discards every message. Used by tests that don't assert on
// diagnostics.
type NopSink struct{}

// Warn does nothing.
func (NopSink) Warn(string, ...any) {}
