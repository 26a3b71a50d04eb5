// Package config loads, normalizes, and validates polyglot configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as POLYGLOT_REMOTE_TOKEN
// and HF_TOKEN. Always obtain settings through this package so downstream code
// receives sanitized paths, canonical log formats, and clear validation errors.
package config
