package mcpserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/redactyl/labscrub/internal/audit"
	"github.com/redactyl/labscrub/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, opts Options, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = ToolName
	req.Params.Arguments = args
	res, err := Handler(opts)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestSanitizeText(t *testing.T) {
	a := audit.NewAuditLog(filepath.Join(t.TempDir(), "audit.jsonl"))
	res := call(t, Options{Audit: a, Logger: logging.Discard()}, map[string]interface{}{
		"text": "Patient Name: John Doe\r\nEmail me at a.b@example.com",
	})
	assert.False(t, res.IsError)
	assert.Equal(t, "Patient Name: [REDACTED]\nEmail me at [REDACTED]\n", text(t, res))

	hist, err := a.LoadHistory()
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, audit.SourceMCP, hist[0].Source)
	assert.Equal(t, 2, hist[0].Redactions)
}

func TestSanitizeText_LongLine(t *testing.T) {
	long := make([]byte, 3<<20)
	for i := range long {
		long[i] = 'a'
	}
	res := call(t, Options{Logger: logging.Discard()}, map[string]interface{}{"text": string(long)})
	assert.False(t, res.IsError)
	assert.Len(t, text(t, res), len(long)+1)
}

func TestSanitizeText_BadArguments(t *testing.T) {
	res := call(t, Options{Logger: logging.Discard()}, map[string]interface{}{})
	assert.True(t, res.IsError)

	res = call(t, Options{Logger: logging.Discard()}, map[string]interface{}{"text": 42})
	assert.True(t, res.IsError)
}

func TestToolSchema(t *testing.T) {
	tool := Tool()
	assert.Equal(t, ToolName, tool.Name)
	assert.Contains(t, tool.InputSchema.Required, "text")
	assert.NotNil(t, New(Options{}))
}
