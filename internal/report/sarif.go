package report

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/redactyl/labscrub/internal/types"
)

// ToolVersion is reported as the SARIF driver version; the CLI sets it.
var ToolVersion = "dev"

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID    string       `json:"ruleId"`
	RuleIndex int          `json:"ruleIndex"`
	Level     string       `json:"level"`
	Message   sarifMessage `json:"message"`
	Locations []sarifLoc   `json:"locations"`

	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int           `json:"startLine"`
	StartColumn int           `json:"startColumn,omitempty"`
	Snippet     *sarifMessage `json:"snippet,omitempty"`
}

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevHigh:
		return "error"
	case types.SevMed:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes findings as SARIF 2.1.0.
func WriteSARIF(w io.Writer, findings []types.Finding) error {
	return WriteSARIFWithStats(w, findings, nil)
}

// WriteSARIFWithStats is WriteSARIF with run statistics recorded under
// runs[0].properties.stats.
func WriteSARIFWithStats(w io.Writer, findings []types.Finding, stats map[string]int) error {
	ruleIndex := map[string]int{}
	var ids []string
	for _, f := range findings {
		if _, ok := ruleIndex[f.Rule]; !ok {
			ruleIndex[f.Rule] = 0
			ids = append(ids, f.Rule)
		}
	}
	sort.Strings(ids)
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: "labscrub", Version: ToolVersion}},
		Results: []sarifResult{},
	}
	for i, id := range ids {
		ruleIndex[id] = i
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{ID: id, ShortDescription: sarifMessage{Text: "PHI: " + id}})
	}
	for _, f := range findings {
		res := sarifResult{
			RuleID:    f.Rule,
			RuleIndex: ruleIndex[f.Rule],
			Level:     sevToLevel(f.Severity),
			Message:   sarifMessage{Text: "possible PHI (" + f.Rule + ")"},
			Locations: []sarifLoc{{
				PhysicalLocation: sarifPhys{
					ArtifactLocation: sarifArt{URI: f.Path},
					Region:           sarifRegion{StartLine: f.Line, StartColumn: f.Column, Snippet: &sarifMessage{Text: f.Match}},
				},
			}},
		}
		if f.Fingerprint != "" {
			res.PartialFingerprints = map[string]string{"labscrubFingerprint/v1": f.Fingerprint}
		}
		run.Results = append(run.Results, res)
	}
	if len(stats) > 0 {
		run.Properties = map[string]any{"stats": stats}
	}
	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
