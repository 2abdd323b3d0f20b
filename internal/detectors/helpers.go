package detectors

import (
	"bufio"
	"bytes"
	"strings"
	"unicode"

	"github.com/redactyl/labscrub/internal/sanitize"
)

// eachLine calls fn for every line of data with its 1-based number. Lines are
// split the same way the sanitizer splits them.
func eachLine(data []byte, fn func(n int, line string)) {
	data = bytes.TrimPrefix(data, []byte(sanitize.ByteOrderMark))
	sc := bufio.NewScanner(bytes.NewReader(data))
	initial := 64 * 1024
	if initial > len(data)+1 {
		initial = len(data) + 1
	}
	sc.Buffer(make([]byte, 0, initial), len(data)+1)
	sc.Split(sanitize.ScanLines)
	n := 0
	for sc.Scan() {
		n++
		fn(n, sc.Text())
	}
}

// Mask hides letters and digits in s and keeps punctuation, so a finding shows
// the shape of a value without the value.
func Mask(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return '*'
		}
		return r
	}, s)
}

type span struct{ start, end int }

func overlaps(claimed []span, s span) bool {
	for _, c := range claimed {
		if s.start < c.end && c.start < s.end {
			return true
		}
	}
	return false
}
