// Package report renders PHI findings for people and for tools: a table, a
// plain text list, JSON and SARIF. Findings only ever carry masked matches.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/redactyl/labscrub/internal/types"
	"golang.org/x/term"
)

type PrintOptions struct {
	NoColor      bool
	Duration     time.Duration
	FilesScanned int
}

// ColorEnabled reports whether w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func sortFindings(findings []types.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].Column < findings[j].Column
	})
}

// PrintTable renders findings as a bordered table followed by a summary.
func PrintTable(w io.Writer, findings []types.Finding, opts PrintOptions) {
	sortFindings(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No PHI found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header([]string{"SEVERITY", "RULE", "FILE", "LINE", "COL", "MATCH"})
		for _, f := range findings {
			sev := string(f.Severity)
			if !opts.NoColor {
				sev = colorSeverity(f.Severity)
			}
			_ = table.Append([]string{sev, f.Rule, f.Path, strconv.Itoa(f.Line), strconv.Itoa(f.Column), f.Match})
		}
		_ = table.Render()
	}
	printFooter(w, findings, opts)
}

// PrintText renders one finding per line, suited to grep and CI logs.
func PrintText(w io.Writer, findings []types.Finding, opts PrintOptions) {
	sortFindings(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No PHI found ✅")
	} else {
		maxRule := 8
		for _, f := range findings {
			if l := len(f.Rule); l > maxRule {
				maxRule = l
			}
		}
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, f := range findings {
			sev := string(f.Severity)
			if !opts.NoColor {
				sev = colorSeverity(f.Severity)
			}
			fmt.Fprintf(w, "%-6s %-*s %s:%d:%d  %s\n", sev, maxRule, f.Rule, f.Path, f.Line, f.Column, f.Match)
		}
	}
	printFooter(w, findings, opts)
}

func printFooter(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if opts.Duration <= 0 && opts.FilesScanned <= 0 {
		return
	}
	high, med, low := 0, 0, 0
	for _, f := range findings {
		switch f.Severity {
		case types.SevHigh:
			high++
		case types.SevMed:
			med++
		default:
			low++
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %d (high: %d, medium: %d, low: %d)\n", len(findings), high, med, low)
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
	}
	if opts.FilesScanned > 0 {
		fmt.Fprintf(w, "Files scanned: %d\n", opts.FilesScanned)
	}
}

// PrintJSON writes findings as an indented JSON array. Nil is written as [].
func PrintJSON(w io.Writer, findings []types.Finding) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

func colorSeverity(s types.Severity) string {
	switch s {
	case types.SevHigh:
		return "\x1b[31mhigh\x1b[0m" // red
	case types.SevMed:
		return "\x1b[33mmedium\x1b[0m" // yellow
	default:
		return "\x1b[36mlow\x1b[0m" // cyan
	}
}
