// Package redact implements line-level PHI redaction.
//
// A line goes through two passes. The known-key pass splits on the first
// colon and replaces the value when the label is a recognised PHI field name.
// The pattern pass then applies an ordered table of regular expressions to
// whatever the first pass produced, replacing every match with Token.
//
// All tables in this package are built at init and never mutated, so the
// functions here are safe for concurrent use.
package redact
