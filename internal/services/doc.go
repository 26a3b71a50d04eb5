// Package services defines shared helpers consumed by the pipeline and the
// external model integrations under this directory.
//
// Key responsibilities:
//   - Context helpers that stamp per-run correlation identifiers and step
//     names for logging.
//   - Structured error markers plus the Wrap helper that tag failures from
//     external tools, configuration, validation and transient conditions.
//
// The integrations themselves live in subpackages: whisperx drives the local
// WhisperX CLI, whisperapi talks to a remote Whisper ASR server.
package services
