package detectors

import (
	"fmt"
	"sort"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/redactyl/labscrub/internal/redact"
	"github.com/redactyl/labscrub/internal/types"
)

type Detector func(path string, data []byte) []types.Finding

// KnownKeyPrefix prefixes the rule of a finding raised by a PHI field label.
const KnownKeyPrefix = redact.KnownKeyRule + ":"

// RunAll reports every value the sanitizer would redact in data, in line
// order. A line whose label is a PHI field yields one known-key finding and
// nothing else, since its whole value is replaced. Otherwise pattern rules
// run in table order and a match overlapping an earlier rule's match is
// dropped.
func RunAll(path string, data []byte) []types.Finding {
	rules := redact.Rules()
	var out []types.Finding
	eachLine(data, func(n int, line string) {
		if f, ok := knownKey(path, n, line); ok {
			out = append(out, f)
			return
		}
		var claimed []span
		for _, r := range rules {
			for _, loc := range r.Find(line) {
				s := span{loc[0], loc[1]}
				if overlaps(claimed, s) {
					continue
				}
				claimed = append(claimed, s)
				out = append(out, patternFinding(path, n, line, r, s))
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// KnownKeys reports lines whose label is a PHI field name.
func KnownKeys(path string, data []byte) []types.Finding {
	var out []types.Finding
	eachLine(data, func(n int, line string) {
		if f, ok := knownKey(path, n, line); ok {
			out = append(out, f)
		}
	})
	return out
}

func knownKey(path string, n int, line string) (types.Finding, bool) {
	label, value, ok := redact.SplitLabel(line)
	if !ok || !redact.IsPHIKey(label) {
		return types.Finding{}, false
	}
	norm := strings.ToLower(strings.TrimSpace(label))
	rule := KnownKeyPrefix + norm
	match := Mask(strings.TrimSpace(value))
	return types.Finding{
		Path:        path,
		Line:        n,
		Column:      len(label) + 2,
		Match:       match,
		Rule:        rule,
		Severity:    types.SevHigh,
		Context:     strings.TrimSpace(label),
		Fingerprint: fingerprint(rule, match, redact.Line(line), ""),
	}, true
}

func patternFinding(path string, n int, line string, r redact.Rule, s span) types.Finding {
	match := Mask(line[s.start:s.end])
	return types.Finding{
		Path:        path,
		Line:        n,
		Column:      s.start + 1,
		Match:       match,
		Rule:        r.Name,
		Severity:    r.Severity,
		Metadata:    map[string]string{"description": r.Description},
		Fingerprint: fingerprint(r.Name, match, redact.Line(line), redact.Line(line[:s.start])),
	}
}

// fingerprint hashes only redacted text, so no PHI value feeds it. prefix is
// the redacted text before the match and tells apart matches on one line.
func fingerprint(rule, match, redacted, prefix string) string {
	h := xxhash.New()
	for _, part := range []string{rule, match, redacted, prefix} {
		_, _ = h.WriteString(part)
		_, _ = h.WriteString("\x00")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// pattern returns a detector for a single pattern rule. Lines carrying a known
// PHI label are skipped, matching RunAll.
func pattern(r redact.Rule) Detector {
	return func(path string, data []byte) []types.Finding {
		var out []types.Finding
		eachLine(data, func(n int, line string) {
			if _, ok := knownKey(path, n, line); ok {
				return
			}
			for _, loc := range r.Find(line) {
				out = append(out, patternFinding(path, n, line, r, span{loc[0], loc[1]}))
			}
		})
		return out
	}
}

var funcByID = func() map[string]Detector {
	m := map[string]Detector{redact.KnownKeyRule: KnownKeys}
	for _, r := range redact.Rules() {
		m[r.Name] = pattern(r)
	}
	return m
}()

// IDs lists the rule names a finding can carry, with the known-key rule
// expanded per vocabulary entry.
func IDs() []string {
	var ids []string
	for _, k := range redact.Keys() {
		ids = append(ids, KnownKeyPrefix+k)
	}
	return append(ids, redact.RuleNames()...)
}

// FunctionIDs lists the detectors runnable one at a time with RunFunction.
func FunctionIDs() []string {
	return append([]string{redact.KnownKeyRule}, redact.RuleNames()...)
}

func RunFunction(id, path string, data []byte) []types.Finding {
	if f, ok := funcByID[id]; ok {
		return f(path, data)
	}
	return nil
}
