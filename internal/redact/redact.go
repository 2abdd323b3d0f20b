package redact

// Token replaces every redacted value.
const Token = "[REDACTED]"

// Counts tallies redactions by rule name. Known-key redactions are counted
// under KnownKeyRule. A nil Counts discards the tally.
type Counts map[string]int

func (c Counts) add(name string, n int) {
	if c == nil || n == 0 {
		return
	}
	c[name] += n
}

// Total is the number of redactions across all rules.
func (c Counts) Total() int {
	t := 0
	for _, n := range c {
		t += n
	}
	return t
}

// Merge adds every count in other to c.
func (c Counts) Merge(other Counts) {
	for k, n := range other {
		c.add(k, n)
	}
}

// Line runs both redaction passes over a single line of text. The line must
// not include its terminator.
func Line(line string) string {
	return LineCounted(line, nil)
}

// LineCounted is Line, recording what was redacted in counts.
func LineCounted(line string, counts Counts) string {
	line, hit := RedactKnownKey(line)
	if hit {
		counts.add(KnownKeyRule, 1)
	}
	return redactPatterns(line, counts)
}
