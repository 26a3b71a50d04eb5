// Package logging assembles the slog loggers used by the polyglot CLI and
// its internal packages.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standard field keys (component, correlation_id, event_type, error_hint,
// impact) and the WarnWithContext/ErrorWithContext helpers that keep warning
// lines actionable. A no-op logger is provided for tests and for wiring code
// that runs before configuration is loaded.
package logging
