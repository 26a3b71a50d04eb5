// Package language normalizes spoken-language codes and renders display names.
//
// Speech models report ISO 639-1 codes ("nl", "af"), while users type codes,
// ISO 639-2 variants, or full names ("dutch", "nld"). Everything that crosses
// that boundary goes through here so the CLI, pipeline, and model backends
// agree on a single form.
package language
