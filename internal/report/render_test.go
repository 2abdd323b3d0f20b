package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redactyl/labscrub/internal/types"
)

func sample() []types.Finding {
	return []types.Finding{
		{Path: "b.txt", Line: 2, Column: 10, Match: "***-**-****", Rule: "ssn", Severity: types.SevHigh},
		{Path: "a.txt", Line: 1, Column: 8, Match: "*@*.**", Rule: "email", Severity: types.SevMed},
	}
}

func TestPrintText_NoFindings_ShowsFooter(t *testing.T) {
	var buf bytes.Buffer
	PrintText(&buf, nil, PrintOptions{Duration: 1200 * time.Millisecond, FilesScanned: 10})
	out := buf.String()
	if !strings.Contains(out, "No PHI found") {
		t.Fatalf("expected friendly no-findings message; got: %q", out)
	}
	if !strings.Contains(out, "Files scanned: 10") {
		t.Fatalf("expected footer with files scanned; got: %q", out)
	}
}

func TestPrintText_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	PrintText(&buf, sample(), PrintOptions{NoColor: true})
	out := buf.String()
	if !strings.Contains(out, "Findings: 2") {
		t.Fatalf("expected findings header; got: %q", out)
	}
	if !strings.Contains(out, "a.txt:1:8") || !strings.Contains(out, "***-**-****") {
		t.Fatalf("expected location and masked match; got: %q", out)
	}
	if strings.Index(out, "a.txt") > strings.Index(out, "b.txt") {
		t.Fatalf("expected findings sorted by path; got: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes; got: %q", out)
	}
}

func TestPrintTable_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, sample(), PrintOptions{NoColor: true, FilesScanned: 2})
	out := buf.String()
	if !strings.Contains(out, "SEVERITY") {
		t.Fatalf("expected table header with SEVERITY; got: %q", out)
	}
	if !strings.Contains(out, "email") {
		t.Fatalf("expected rule in table; got: %q", out)
	}
	if !strings.Contains(out, "Findings: 2 (high: 1, medium: 1, low: 0)") {
		t.Fatalf("expected summary; got: %q", out)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array; got %q", buf.String())
	}
	buf.Reset()
	if err := PrintJSON(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	var got []types.Finding
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Rule != "ssn" {
		t.Fatalf("unexpected decode: %+v", got)
	}
}

func TestColorEnabledNonTerminal(t *testing.T) {
	if ColorEnabled(&bytes.Buffer{}) {
		t.Fatal("buffer is not a terminal")
	}
}

func TestShouldFail(t *testing.T) {
	fs := sample()
	if !ShouldFail(fs, "high") {
		t.Fatal("expected fail on high")
	}
	if ShouldFail(fs[1:], "high") {
		t.Fatal("medium finding must not fail a high threshold")
	}
	if !ShouldFail(fs[1:], "") {
		t.Fatal("default threshold is medium")
	}
	if ShouldFail(nil, "low") {
		t.Fatal("no findings never fail")
	}
}

func TestBaseline(t *testing.T) {
	p := filepath.Join(t.TempDir(), "baseline.json")
	fs := sample()
	if err := SaveBaseline(p, fs[:1]); err != nil {
		t.Fatal(err)
	}
	b, err := LoadBaseline(p)
	if err != nil {
		t.Fatal(err)
	}
	fresh := FilterNewFindings(fs, b)
	if len(fresh) != 1 || fresh[0].Rule != "email" {
		t.Fatalf("expected only the email finding to be new, got %+v", fresh)
	}
	if _, err := LoadBaseline(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatal("expected error for missing baseline")
	}
}

func TestBaselineFollowsFingerprint(t *testing.T) {
	p := filepath.Join(t.TempDir(), "baseline.json")
	accepted := types.Finding{Path: "a.txt", Line: 3, Column: 5, Rule: "ssn", Match: "***-**-****", Severity: types.SevHigh, Fingerprint: "00000000000000aa"}
	if err := SaveBaseline(p, []types.Finding{accepted}); err != nil {
		t.Fatal(err)
	}
	b, err := LoadBaseline(p)
	if err != nil {
		t.Fatal(err)
	}

	moved := accepted
	moved.Line = 9
	if fresh := FilterNewFindings([]types.Finding{moved}, b); len(fresh) != 0 {
		t.Fatalf("moved finding should stay accepted, got %+v", fresh)
	}
	changed := accepted
	changed.Fingerprint = "00000000000000bb"
	if fresh := FilterNewFindings([]types.Finding{changed}, b); len(fresh) != 1 {
		t.Fatalf("different fingerprint at the same position should be new, got %+v", fresh)
	}
}
