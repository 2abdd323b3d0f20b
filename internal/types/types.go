package types

// Severity is a coarse-grained risk level for a finding.
type Severity string

const (
	SevLow  Severity = "low"
	SevMed  Severity = "medium"
	SevHigh Severity = "high"
)

// Finding describes a PHI value detected in a document at a line and column.
// Match is always a masked preview; the raw value is never carried.
type Finding struct {
	Path     string            `json:"path"`
	Line     int               `json:"line"`
	Column   int               `json:"column,omitempty"` // 1-based byte column (0 if unknown)
	Match    string            `json:"match"`
	Rule     string            `json:"rule"`
	Severity Severity          `json:"severity"`
	Context  string            `json:"context,omitempty"`  // e.g. the label a known-key hit was found under
	Metadata map[string]string `json:"metadata,omitempty"`

	// Fingerprint identifies the finding by its rule, masked match and
	// redacted line, so it survives lines being added above it.
	Fingerprint string `json:"fingerprint,omitempty"`
}
