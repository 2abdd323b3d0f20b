package sanitize

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/redactyl/labscrub/internal/redact"
)

// DefaultMaxLineBytes bounds a single input line.
const DefaultMaxLineBytes = 1 << 20

// OutputSuffix is appended to the input's base name to form the output name.
const OutputSuffix = "_sanitized.txt"

// ByteOrderMark is dropped from the start of a document so it cannot hide
// the first line's label.
const ByteOrderMark = "\ufeff"

// Document is one input to sanitize. Name is only used to derive the output
// name and for error messages.
type Document struct {
	Name string
	Body io.Reader
}

// Sink stores a sanitized document under name.
type Sink interface {
	Save(ctx context.Context, name, content string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, name, content string) error

func (f SinkFunc) Save(ctx context.Context, name, content string) error {
	return f(ctx, name, content)
}

// Stats describes one sanitize run.
type Stats struct {
	Input    string
	Output   string
	Lines    int
	Bytes    int
	Counts   redact.Counts
	Duration time.Duration
}

// Redactions is the total number of values replaced.
func (s Stats) Redactions() int { return s.Counts.Total() }

// Sanitizer reads documents and writes their redacted form to a sink.
// The zero value is ready to use.
type Sanitizer struct {
	// MaxLineBytes bounds a single line; 0 means DefaultMaxLineBytes.
	MaxLineBytes int
	// Logger receives one debug record per document. Nil disables logging.
	Logger *slog.Logger
}

// Sanitize redacts doc and saves the result to sink under OutputName(doc.Name).
// The sink is called exactly once on success and never when reading fails.
func (s *Sanitizer) Sanitize(ctx context.Context, doc Document, sink Sink) (Stats, error) {
	started := time.Now()
	out, st, err := s.Text(doc)
	if err != nil {
		return st, err
	}
	st.Output = OutputName(doc.Name)
	if err := sink.Save(ctx, st.Output, out); err != nil {
		return st, &OutputWriteError{Name: st.Output, Err: err}
	}
	st.Duration = time.Since(started)
	if s.Logger != nil {
		s.Logger.Debug("document sanitized",
			"input", st.Input,
			"output", st.Output,
			"lines", st.Lines,
			"redactions", st.Redactions(),
			"duration", st.Duration)
	}
	return st, nil
}

// Text redacts doc and returns the sanitized text without saving it.
func (s *Sanitizer) Text(doc Document) (string, Stats, error) {
	started := time.Now()
	st := Stats{Input: doc.Name, Counts: redact.Counts{}}

	limit := s.MaxLineBytes
	if limit <= 0 {
		limit = DefaultMaxLineBytes
	}
	initial := 64 * 1024
	if initial > limit {
		initial = limit
	}
	sc := bufio.NewScanner(skipByteOrderMark(doc.Body))
	sc.Buffer(make([]byte, 0, initial), limit)
	sc.Split(ScanLines)

	var b strings.Builder
	for sc.Scan() {
		b.WriteString(redact.LineCounted(sc.Text(), st.Counts))
		b.WriteByte('\n')
		st.Lines++
	}
	if err := sc.Err(); err != nil {
		return "", st, &InputReadError{Name: doc.Name, Err: err}
	}
	st.Bytes = b.Len()
	st.Duration = time.Since(started)
	return b.String(), st, nil
}

// skipByteOrderMark drops one leading UTF-8 byte order mark from r. Read
// errors are left for the caller's next read.
func skipByteOrderMark(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if p, err := br.Peek(len(ByteOrderMark)); err == nil && string(p) == ByteOrderMark {
		_, _ = br.Discard(len(p))
	}
	return br
}

// OutputName derives the output name for an input: any directory is dropped,
// the last extension is removed and OutputSuffix is appended. Both '/' and
// '\' are treated as separators since upload names come from any client.
func OutputName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	return strings.TrimSuffix(base, path.Ext(base)) + OutputSuffix
}

var defaultSanitizer Sanitizer

// Sanitize runs doc through a zero-value Sanitizer.
func Sanitize(ctx context.Context, doc Document, sink Sink) (Stats, error) {
	return defaultSanitizer.Sanitize(ctx, doc, sink)
}

// String sanitizes text held in memory. Lines are not length-limited.
func String(text string) string {
	s := Sanitizer{MaxLineBytes: len(text) + 1}
	out, _, _ := s.Text(Document{Body: strings.NewReader(text)})
	return out
}
