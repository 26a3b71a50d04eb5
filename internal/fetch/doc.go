// Package fetch downloads remote audio to local files.
//
// Downloads stream into a temp file beside the destination and are renamed
// into place on success, guarded by an exclusive lock file so concurrent
// invocations never interleave writes. An existing non-empty destination is
// reused unless Overwrite is set.
package fetch
