package core

import (
	"context"

	"github.com/redactyl/labscrub/internal/engine"
	"github.com/redactyl/labscrub/internal/redact"
	"github.com/redactyl/labscrub/internal/sanitize"
	"github.com/redactyl/labscrub/internal/types"
)

// Re-exported as aliases so callers can depend on a stable path.
type (
	Config   = engine.Config
	Finding  = types.Finding
	Document = sanitize.Document
	Sink     = sanitize.Sink
	SinkFunc = sanitize.SinkFunc
	Stats    = sanitize.Stats
)

// Token replaces every redacted value.
const Token = redact.Token

// SanitizeLine redacts a single line without its terminator.
func SanitizeLine(line string) string { return redact.Line(line) }

// SanitizeText redacts text line by line. Lines may end in \n, \r\n or \r;
// every line of the result ends in \n.
func SanitizeText(text string) string { return sanitize.String(text) }

// Sanitize redacts doc and saves it to sink under OutputName(doc.Name).
func Sanitize(ctx context.Context, doc Document, sink Sink) (Stats, error) {
	return sanitize.Sanitize(ctx, doc, sink)
}

// OutputName maps an input file name to its sanitized output name.
func OutputName(name string) string { return sanitize.OutputName(name) }

// RuleNames lists the pattern rules in the order they are applied.
func RuleNames() []string { return redact.RuleNames() }

// KnownKeys lists the labels whose values are always redacted.
func KnownKeys() []string { return redact.Keys() }

// Scan reports PHI findings under cfg.Root without writing anything.
func Scan(ctx context.Context, cfg Config) ([]Finding, error) {
	return engine.Scan(ctx, cfg)
}
