package redact

import "strings"

// KnownKeyRule is the name under which known-key redactions are counted.
const KnownKeyRule = "known_key"

// SplitLabel splits line on its first colon. ok is false when the line has
// no colon; everything after the first colon is the value, further colons
// included.
func SplitLabel(line string) (label, value string, ok bool) {
	return strings.Cut(line, ":")
}

// RedactKnownKey replaces the value of a "label: value" line when the label
// is in the PHI vocabulary. The label text is kept exactly as written.
func RedactKnownKey(line string) (string, bool) {
	label, _, ok := SplitLabel(line)
	if !ok || !IsPHIKey(label) {
		return line, false
	}
	return label + ": " + Token, true
}
