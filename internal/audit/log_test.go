package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redactyl/labscrub/internal/redact"
	"github.com/redactyl/labscrub/internal/sanitize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAndHistory(t *testing.T) {
	p := filepath.Join(t.TempDir(), "audit.jsonl")
	a := NewAuditLog(p)

	st := sanitize.Stats{Input: "a.txt", Output: "a_sanitized.txt", Lines: 3, Counts: redact.Counts{"ssn": 2, "known_key": 1}}
	require.NoError(t, a.Log(NewRecord(SourceCLI, st, nil)))
	require.NoError(t, a.Log(NewRecord(SourceServer, sanitize.Stats{Input: "b.txt"}, errors.New("boom"))))

	recs, err := a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b.txt", recs[0].Input)
	assert.Equal(t, "error", recs[0].Status)
	assert.Equal(t, "boom", recs[0].Error)
	assert.Equal(t, "a.txt", recs[1].Input)
	assert.Equal(t, 3, recs[1].Redactions)
	assert.Equal(t, map[string]int{"ssn": 2, "known_key": 1}, recs[1].RuleCounts)
	assert.Len(t, recs[1].RunID, 36)

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, a.DeleteRecord(0))
	recs, err = a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a.txt", recs[0].Input)
	assert.Error(t, a.DeleteRecord(5))
}

func TestLogFillsDefaults(t *testing.T) {
	a := NewAuditLog(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, a.Log(Record{Source: SourceMCP}))
	recs, err := a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].RunID)
	assert.False(t, recs[0].Timestamp.IsZero())
}

func TestMissingLog(t *testing.T) {
	_, err := NewAuditLog(filepath.Join(t.TempDir(), "none.jsonl")).LoadHistory()
	assert.Error(t, err)
	assert.Equal(t, DefaultPath, NewAuditLog("").Path())
}
