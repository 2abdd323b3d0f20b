package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/redactyl/labscrub/internal/sanitize"
)

// ErrNotFound is returned by Get for an unknown name.
var ErrNotFound = errors.New("output not found")

// FileSink writes each output to a file under Dir. Names may contain '/'
// separated subdirectories but must stay inside Dir.
type FileSink struct {
	Dir string
}

// NewFileSink returns a sink rooted at dir, creating it if needed. An empty
// dir means the working directory.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

func (f *FileSink) resolve(name string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(name))
	if clean == "/" || strings.Contains(name, "\x00") {
		return "", fmt.Errorf("invalid output name %q", name)
	}
	return filepath.Join(f.Dir, filepath.FromSlash(clean[1:])), nil
}

// Save writes content to a temporary file and renames it into place, so a
// reader never sees a partial output.
func (f *FileSink) Save(ctx context.Context, name, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".labscrub-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Path returns where name is written.
func (f *FileSink) Path(name string) string {
	p, err := f.resolve(name)
	if err != nil {
		return ""
	}
	return p
}

func (f *FileSink) Get(_ context.Context, name string) (string, error) {
	p, err := f.resolve(name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return string(b), err
}

// List returns every sanitized output under Dir, sorted by name.
func (f *FileSink) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	err := f.walkOutputs(ctx, func(rel string, info fs.FileInfo) error {
		out = append(out, Entry{Name: rel, Bytes: info.Size(), CreatedAt: info.ModTime()})
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// Prune removes sanitized outputs whose modification time is before cutoff.
// Other files in Dir are left alone.
func (f *FileSink) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	n := 0
	err := f.walkOutputs(ctx, func(rel string, info fs.FileInfo) error {
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(filepath.Join(f.Dir, filepath.FromSlash(rel))); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func (f *FileSink) walkOutputs(ctx context.Context, fn func(rel string, info fs.FileInfo) error) error {
	return filepath.WalkDir(f.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), sanitize.OutputSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(f.Dir, p)
		if err != nil {
			return nil
		}
		return fn(filepath.ToSlash(rel), info)
	})
}

func (f *FileSink) Close() error { return nil }
