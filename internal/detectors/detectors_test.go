package detectors

import (
	"testing"

	"github.com/redactyl/labscrub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll(t *testing.T) {
	data := []byte("Lab Order\r\nPatient Name: John Doe\nnotes: call 555-123-4567, mail a@b.co\nssn 123-45-6789 ref 000-00-0000\n")
	fs := RunAll("order.txt", data)
	require.Len(t, fs, 4)
	for i := range fs {
		assert.Len(t, fs[i].Fingerprint, 16)
		fs[i].Fingerprint = ""
	}

	assert.Equal(t, types.Finding{
		Path: "order.txt", Line: 2, Column: 14, Match: "**** ***",
		Rule: "known_key:patient name", Severity: types.SevHigh, Context: "Patient Name",
	}, fs[0])

	assert.Equal(t, "phone", fs[1].Rule)
	assert.Equal(t, 3, fs[1].Line)
	assert.Equal(t, 13, fs[1].Column)
	assert.Equal(t, "***-***-****", fs[1].Match)
	assert.Equal(t, types.SevMed, fs[1].Severity)

	assert.Equal(t, "email", fs[2].Rule)
	assert.Equal(t, "*@*.**", fs[2].Match)

	assert.Equal(t, "ssn", fs[3].Rule)
	assert.Equal(t, 4, fs[3].Line)
	assert.Equal(t, 5, fs[3].Column)
	assert.Equal(t, types.SevHigh, fs[3].Severity)
}

func TestRunAllByteOrderMark(t *testing.T) {
	fs := RunAll("order.txt", []byte("\ufeffPatient name: John Doe\n"))
	require.Len(t, fs, 1)
	assert.Equal(t, "known_key:patient name", fs[0].Rule)
	assert.Equal(t, 1, fs[0].Line)
	assert.Equal(t, 14, fs[0].Column)
}

func TestFingerprintIgnoresLineNumber(t *testing.T) {
	before := RunAll("order.txt", []byte("Patient name: John Doe\nnotes: call 555-123-4567 or 555-987-6543\n"))
	after := RunAll("order.txt", []byte("Lab Order\n\nPatient name: John Doe\nnotes: call 555-123-4567 or 555-987-6543\n"))
	require.Len(t, before, 3)
	require.Len(t, after, 3)
	for i := range before {
		assert.Equal(t, before[i].Line+2, after[i].Line)
		assert.Equal(t, before[i].Fingerprint, after[i].Fingerprint)
	}
	// two matches on one line stay distinct
	assert.NotEqual(t, before[1].Fingerprint, before[2].Fingerprint)

	other := RunAll("order.txt", []byte("Patient name: Jo\n"))
	require.Len(t, other, 1)
	assert.NotEqual(t, before[0].Fingerprint, other[0].Fingerprint)
}

func TestRunAllNoFindings(t *testing.T) {
	assert.Empty(t, RunAll("x.txt", []byte("Test: CBC\nFasting required\n")))
	assert.Empty(t, RunAll("x.txt", nil))
}

func TestRunFunction(t *testing.T) {
	data := []byte("Email: a@b.co\nbad phi: MRN-0012345 and x@y.org\n")
	kk := RunFunction("known_key", "f", data)
	require.Len(t, kk, 1)
	assert.Equal(t, "known_key:email", kk[0].Rule)

	em := RunFunction("email", "f", data)
	require.Len(t, em, 1, "labelled line is covered by the known-key detector")
	assert.Equal(t, 2, em[0].Line)

	mrn := RunFunction("mrn", "f", data)
	require.Len(t, mrn, 1)
	assert.Equal(t, "***-*******", mrn[0].Match)

	assert.Nil(t, RunFunction("nope", "f", data))
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []string{"known_key", "ssn", "dob", "phone", "email", "mrn"}, FunctionIDs())
	ids := IDs()
	assert.Contains(t, ids, "known_key:medical record number")
	assert.Contains(t, ids, "mrn")
	assert.Len(t, ids, 13+5)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***-**-****", Mask("123-45-6789"))
	assert.Equal(t, "(***) ***-****", Mask("(123) 456-7890"))
	assert.Equal(t, "", Mask(""))
}
