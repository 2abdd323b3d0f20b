package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode"
)

// ErrUnmaskedMatch is returned by ReadFindings when a finding carries a
// match with letters or digits left in it, which could be a raw PHI value.
var ErrUnmaskedMatch = errors.New("finding match is not masked")

// WriteFindings writes findings as an indented JSON array, the format of
// "labscrub scan --json". A nil slice is written as [].
func WriteFindings(w io.Writer, findings []Finding) error {
	if findings == nil {
		findings = []Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// ReadFindings decodes findings written by WriteFindings or by the CLI.
// Findings files get shared with reviewers, so one whose match is not
// masked is refused rather than passed along.
func ReadFindings(r io.Reader) ([]Finding, error) {
	var fs []Finding
	if err := json.NewDecoder(r).Decode(&fs); err != nil {
		return nil, err
	}
	for i, f := range fs {
		if !masked(f.Match) {
			return nil, fmt.Errorf("finding %d (%s:%d, %s): %w", i, f.Path, f.Line, f.Rule, ErrUnmaskedMatch)
		}
	}
	return fs, nil
}

func masked(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
