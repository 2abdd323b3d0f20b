// Package audit keeps an append-only JSONL trail of sanitize runs. Records
// carry names, counts and timings; document content never reaches the log.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redactyl/labscrub/internal/sanitize"
)

// DefaultPath is the audit log used when none is configured.
const DefaultPath = ".labscrub_audit.jsonl"

// Sources of a sanitize run.
const (
	SourceCLI    = "cli"
	SourceBatch  = "batch"
	SourceServer = "server"
	SourceWatch  = "watch"
	SourceMCP    = "mcp"
)

type Record struct {
	Timestamp  time.Time      `json:"timestamp"`
	RunID      string         `json:"run_id"`
	Source     string         `json:"source"`
	Input      string         `json:"input"`
	Output     string         `json:"output,omitempty"`
	Lines      int            `json:"lines"`
	Redactions int            `json:"redactions"`
	RuleCounts map[string]int `json:"rule_counts,omitempty"`
	Duration   string         `json:"duration"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
}

type AuditLog struct {
	logPath string
	mu      sync.Mutex
}

func NewAuditLog(path string) *AuditLog {
	if path == "" {
		path = DefaultPath
	}
	return &AuditLog{logPath: path}
}

// Path returns the file the log writes to.
func (a *AuditLog) Path() string { return a.logPath }

// LoadHistory returns every record, newest first. Lines that do not decode
// are skipped.
func (a *AuditLog) LoadHistory() ([]Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load()
}

func (a *AuditLog) load() ([]Record, error) {
	f, err := os.Open(a.logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []Record
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Log appends record. A missing run ID or timestamp is filled in.
func (a *AuditLog) Log(record Record) error {
	if record.RunID == "" {
		record.RunID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// owner-only: file names of lab orders can themselves be sensitive
	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record at index, counted newest first as
// returned by LoadHistory.
func (a *AuditLog) DeleteRecord(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := a.load()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("invalid index: %d", index)
	}
	records = append(records[:index], records[index+1:]...)

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write audit record: %w", err)
		}
	}
	return nil
}

// NewRecord builds the record for one sanitize run.
func NewRecord(source string, st sanitize.Stats, runErr error) Record {
	r := Record{
		Timestamp:  time.Now().UTC(),
		RunID:      uuid.NewString(),
		Source:     source,
		Input:      st.Input,
		Output:     st.Output,
		Lines:      st.Lines,
		Redactions: st.Redactions(),
		Duration:   st.Duration.String(),
		Status:     "ok",
	}
	if len(st.Counts) > 0 {
		r.RuleCounts = make(map[string]int, len(st.Counts))
		for k, v := range st.Counts {
			r.RuleCounts[k] = v
		}
	}
	if runErr != nil {
		r.Status = "error"
		r.Error = runErr.Error()
	}
	return r
}
