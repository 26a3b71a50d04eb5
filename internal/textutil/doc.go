// Package textutil sanitizes untrusted names (URL path segments, user
// input) into safe single-segment filenames.
package textutil
