// Package core provides a small, stable facade over labscrub's internal
// packages for programs that embed the sanitizer. It re-exports a narrow API
// so callers can depend on a stable import path without reaching into
// internal implementation packages.
//
// Example:
//
//	out := core.SanitizeText("Patient Name: John Doe\nTest: CBC")
//	// out == "Patient Name: [REDACTED]\nTest: CBC\n"
package core
