// Package sanitize turns a lab-order document into its redacted form and hands
// the result to an output sink.
//
// A document is read one line at a time. Each line goes through
// redact.LineCounted and is appended to an in-memory buffer with a trailing
// newline. Only after the whole input has been read is the buffer passed to
// the sink, in a single call, so a read failure never produces partial
// output. Nothing is retried.
package sanitize
