// Package detectors reports PHI in a document without rewriting it. It uses
// the same vocabulary and pattern table as package redact, so every finding
// corresponds to a value the sanitizer would replace.
package detectors
