// Package preflight provides readiness checks for the external tools,
// model backend, and filesystem paths polyglot depends on.
//
// The CLI "polyglot doctor" command runs RunAll and renders the results.
// Checks that only apply to one backend (uvx for WhisperX, the HTTP health
// probe for the remote server) are gated by the configured backend.
package preflight
