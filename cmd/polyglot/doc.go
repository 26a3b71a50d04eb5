// Package main hosts the polyglot CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the configured
// speech model backend, and hands audio to the pipeline package for
// language detection, transcription, or translation. Remote audio given as
// an http(s) URL is fetched into the download directory first.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through commands and flags.
package main
