package redact

import (
	"sort"
	"strings"
)

// phiKeys holds the lower-cased field labels that precede PHI values.
var phiKeys = map[string]struct{}{
	"patient name":           {},
	"name":                   {},
	"date of birth":          {},
	"dob":                    {},
	"social security number": {},
	"ssn":                    {},
	"address":                {},
	"home address":           {},
	"phone number":           {},
	"number":                 {},
	"email address":          {},
	"email":                  {},
	"medical record number":  {},
}

// IsPHIKey reports whether label names a PHI field. Surrounding whitespace
// and case are ignored.
func IsPHIKey(label string) bool {
	_, ok := phiKeys[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// Keys returns the vocabulary in sorted order.
func Keys() []string {
	out := make([]string, 0, len(phiKeys))
	for k := range phiKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
