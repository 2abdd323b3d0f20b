package redact

import (
	"regexp"

	"github.com/redactyl/labscrub/internal/types"
)

// Rule is one fallback pattern. Rules run in table order and each one sees
// the output of the previous one.
type Rule struct {
	Name        string
	Description string
	Severity    types.Severity
	Pattern     *regexp.Regexp

	// skip reports matches the pattern accepts but that are not PHI.
	skip func(match string) bool
}

// ssnSentinel is the all-zero placeholder used on forms in place of a real SSN.
const ssnSentinel = "000-00-0000"

// Character classes are ASCII only: \d, \s and \b do not match digits,
// spaces or letters from other scripts.
var rules = []Rule{
	{
		Name:        "ssn",
		Description: "US Social Security Number",
		Severity:    types.SevHigh,
		Pattern:     regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`),
		skip:        func(m string) bool { return m == ssnSentinel },
	},
	{
		Name:        "dob",
		Description: "Date of birth (MM/DD/YYYY, 1900-2099, separators space - / .)",
		Severity:    types.SevMed,
		Pattern:     regexp.MustCompile(`\b(0[1-9]|1[012])[- /.](0[1-9]|[12][0-9]|3[01])[- /.](19|20)\d\d\b`),
	},
	{
		Name:        "phone",
		Description: "Phone number with optional country code and area code",
		Severity:    types.SevMed,
		// A leading "(" is not consumed when the match has to start on the
		// digit after it; the paren then stays in the output.
		Pattern: regexp.MustCompile(`\b(\+\d{1,2}\s?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`),
	},
	{
		Name:        "email",
		Description: "Email address",
		Severity:    types.SevMed,
		Pattern:     regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`),
	},
	{
		Name:        "mrn",
		Description: "Medical record number (MRN-NNNNNNN)",
		Severity:    types.SevHigh,
		Pattern:     regexp.MustCompile(`\bMRN-\d{7}\b`),
	},
}

// Rules returns the fallback rules in the order they are applied.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// RuleNames returns the fallback rule names in application order.
func RuleNames() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name
	}
	return out
}

// Accepts reports whether match, a string matched by r.Pattern, should be
// redacted.
func (r Rule) Accepts(match string) bool {
	return r.skip == nil || !r.skip(match)
}

// Replace substitutes Token for every accepted match in s and returns the
// result with the number of replacements made.
func (r Rule) Replace(s string) (string, int) {
	n := 0
	out := r.Pattern.ReplaceAllStringFunc(s, func(m string) string {
		if !r.Accepts(m) {
			return m
		}
		n++
		return Token
	})
	return out, n
}

// Find returns the byte offsets of every accepted match in s.
func (r Rule) Find(s string) [][]int {
	var out [][]int
	for _, loc := range r.Pattern.FindAllStringIndex(s, -1) {
		if r.Accepts(s[loc[0]:loc[1]]) {
			out = append(out, loc)
		}
	}
	return out
}

// RedactPatterns applies every fallback rule to line in order.
func RedactPatterns(line string) string {
	return redactPatterns(line, nil)
}

func redactPatterns(line string, counts Counts) string {
	for _, r := range rules {
		var n int
		line, n = r.Replace(line)
		counts.add(r.Name, n)
	}
	return line
}
