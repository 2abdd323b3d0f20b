// Package mcpserver exposes the sanitizer to MCP clients over stdio as a
// single tool, sanitize_text.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/redactyl/labscrub/internal/audit"
	"github.com/redactyl/labscrub/internal/metrics"
	"github.com/redactyl/labscrub/internal/sanitize"
)

const (
	ServerName = "labscrub"
	ToolName   = "sanitize_text"
	textArg    = "text"
)

type Options struct {
	Version string
	Metrics *metrics.Collector
	Audit   *audit.AuditLog
	Logger  *slog.Logger
}

// New builds the MCP server with the sanitize_text tool registered.
func New(opts Options) *server.MCPServer {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := server.NewMCPServer(ServerName, opts.Version, server.WithToolCapabilities(false))
	s.AddTool(Tool(), Handler(opts))
	return s
}

// Tool describes sanitize_text.
func Tool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Redact PHI (names, dates of birth, SSNs, phone numbers, emails, MRNs) from lab order text. Returns the sanitized text with every line newline-terminated."),
		mcp.WithString(textArg,
			mcp.Required(),
			mcp.Description("Lab order text to sanitize"),
		),
	)
}

// Handler sanitizes the text argument. Argument problems come back as tool
// errors rather than protocol errors so the client can show them.
func Handler(opts Options) server.ToolHandlerFunc {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, ok := req.Params.Arguments[textArg]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("missing required argument %q", textArg)), nil
		}
		text, ok := raw.(string)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("argument %q must be a string", textArg)), nil
		}

		// the whole text is one document, so no line can exceed it
		san := &sanitize.Sanitizer{MaxLineBytes: len(text) + 1}
		out, st, err := san.Text(sanitize.Document{Name: "mcp", Body: strings.NewReader(text)})
		opts.Metrics.RecordSanitize(audit.SourceMCP, st, err)
		if opts.Audit != nil {
			if aerr := opts.Audit.Log(audit.NewRecord(audit.SourceMCP, st, err)); aerr != nil {
				log.Warn("audit write failed", "error", aerr)
			}
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.Debug("tool call sanitized", "tool", ToolName, "lines", st.Lines, "redactions", st.Redactions())
		return mcp.NewToolResultText(out), nil
	}
}

// ServeStdio serves s on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
