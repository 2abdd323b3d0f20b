package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/redactyl/labscrub/internal/types"
)

// Baseline records findings that were reviewed and accepted, such as
// synthetic PHI in test fixtures.
type Baseline struct {
	Items map[string]bool `json:"items"`
}

func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Items: map[string]bool{}}
	f, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(f, &b); err != nil {
		return Baseline{Items: map[string]bool{}}, err
	}
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	return b, nil
}

func SaveBaseline(path string, findings []types.Finding) error {
	b := Baseline{Items: map[string]bool{}}
	for _, f := range findings {
		b.Items[key(f)] = true
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func FilterNewFindings(findings []types.Finding, base Baseline) []types.Finding {
	var out []types.Finding
	for _, f := range findings {
		if !base.Items[key(f)] {
			out = append(out, f)
		}
	}
	return out
}

// key prefers the fingerprint, which does not move with the line number.
// Findings without one fall back to their position.
func key(f types.Finding) string {
	if f.Fingerprint != "" {
		return fmt.Sprintf("%s|%s|%s", f.Path, f.Rule, f.Fingerprint)
	}
	return fmt.Sprintf("%s|%s|%d|%d", f.Path, f.Rule, f.Line, f.Column)
}

// ShouldFail reports whether any finding is at or above failOn
// (low, medium or high; anything else means medium).
func ShouldFail(findings []types.Finding, failOn string) bool {
	level := map[string]int{"low": 1, "medium": 2, "high": 3}
	th := level[failOn]
	if th == 0 {
		th = 2
	}
	for _, f := range findings {
		if level[string(f.Severity)] >= th {
			return true
		}
	}
	return false
}
