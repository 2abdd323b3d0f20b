package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/redactyl/labscrub/internal/types"
)

// LastScanFile is written at a scan root so "scan --last" can show the
// previous findings without reading the lab orders again.
const LastScanFile = ".labscrub_last_scan.json"

// LastScan is a stored scan. It records where PHI was found and of what kind:
// matches are masked and fingerprints hash redacted lines only, so the file
// holds no PHI values. It is still written owner-only since paths and line
// numbers point at patient documents.
type LastScan struct {
	Root         string                 `json:"root"`
	ScannedAt    time.Time              `json:"scanned_at"`
	Rules        string                 `json:"rules"`
	FilesScanned int                    `json:"files_scanned"`
	BySeverity   map[types.Severity]int `json:"by_severity"`
	Findings     []types.Finding        `json:"findings"`
}

// Stale reports whether the scan was made with a rule set other than rules,
// in which case its findings may no longer match what sanitize redacts.
func (l LastScan) Stale(rules string) bool {
	return l.Rules != rules
}

// SaveLastScan records findings from a scan of root made with the rule set
// identified by rules.
func SaveLastScan(root, rules string, filesScanned int, findings []types.Finding) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	last := LastScan{
		Root:         root,
		ScannedAt:    time.Now().UTC(),
		Rules:        rules,
		FilesScanned: filesScanned,
		BySeverity:   map[types.Severity]int{},
		Findings:     findings,
	}
	for _, f := range findings {
		last.BySeverity[f.Severity]++
	}
	b, err := json.MarshalIndent(last, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, LastScanFile), b, 0o600)
}

// LoadLastScan reads the scan saved under root.
func LoadLastScan(root string) (LastScan, error) {
	var last LastScan
	b, err := os.ReadFile(filepath.Join(root, LastScanFile))
	if err != nil {
		return last, err
	}
	err = json.Unmarshal(b, &last)
	return last, err
}
