// Package engine runs the sanitizer and the detectors over a directory tree.
// It selects files with include/exclude globs, the .labscrubignore file and
// default excludes, fans the work out to a bounded worker pool and, for
// sanitize runs, skips inputs whose content is unchanged since the last run.
// External consumers should use the stable facade in pkg/core.
package engine
