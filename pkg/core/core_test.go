package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "Patient Name: [REDACTED]\nTest: CBC\n", SanitizeText("Patient Name: John Doe\r\nTest: CBC"))
	assert.Equal(t, "", SanitizeText(""))
}

func TestSanitizeLine(t *testing.T) {
	assert.Equal(t, "SSN: [REDACTED]", SanitizeLine("SSN: 123-45-6789"))
	assert.Equal(t, "placeholder 000-00-0000", SanitizeLine("placeholder 000-00-0000"))
}

func TestSanitize(t *testing.T) {
	var gotName, gotContent string
	sink := SinkFunc(func(_ context.Context, name, content string) error {
		gotName, gotContent = name, content
		return nil
	})
	st, err := Sanitize(context.Background(), Document{Name: "lab.txt", Body: strings.NewReader("DOB: 01/02/1990")}, sink)
	require.NoError(t, err)
	assert.Equal(t, "lab_sanitized.txt", gotName)
	assert.Equal(t, "DOB: [REDACTED]\n", gotContent)
	assert.Equal(t, 1, st.Redactions())
}

func TestNames(t *testing.T) {
	assert.Equal(t, "order_sanitized.txt", OutputName(`C:\in\order.txt`))
	assert.Equal(t, []string{"ssn", "dob", "phone", "email", "mrn"}, RuleNames())
	assert.Contains(t, KnownKeys(), "medical record number")
}

func TestScan_Smoke(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("Email: x@y.org\n"), 0o600))
	findings, err := Scan(context.Background(), Config{Root: root, NoCache: true})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "known_key:email", findings[0].Rule)
}

func TestFindingsJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("SSN: 123-45-6789\nref MRN-1234567\n"), 0o600))
	findings, err := Scan(context.Background(), Config{Root: root, NoCache: true})
	require.NoError(t, err)
	require.Len(t, findings, 2)

	var buf strings.Builder
	require.NoError(t, WriteFindings(&buf, findings))
	assert.NotContains(t, buf.String(), "123-45-6789")
	got, err := ReadFindings(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, findings, got)

	buf.Reset()
	require.NoError(t, WriteFindings(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestReadFindingsRefusesUnmasked(t *testing.T) {
	_, err := ReadFindings(strings.NewReader(`[{"path":"a.txt","line":1,"match":"123-45-6789","rule":"ssn","severity":"high"}]`))
	assert.ErrorIs(t, err, ErrUnmaskedMatch)

	_, err = ReadFindings(strings.NewReader(`not json`))
	assert.Error(t, err)
}
