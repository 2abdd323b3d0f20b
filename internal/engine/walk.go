package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/redactyl/labscrub/internal/ignore"
)

// Walk traverses cfg.Root and invokes handle for each eligible file with its
// slash-separated path relative to the root. Unreadable entries are skipped.
// Walk stops early when ctx is cancelled.
func Walk(ctx context.Context, cfg Config, ign ignore.Matcher, handle func(rel string, data []byte)) error {
	return filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != cfg.Root && cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, ok := eligible(cfg, ign, p, d)
		if !ok {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		if looksBinary(b) {
			return nil
		}
		handle(rel, b)
		return nil
	})
}

// eligible applies every path-based filter to p and returns its relative
// slash path.
func eligible(cfg Config, ign ignore.Matcher, p string, d fs.DirEntry) (string, bool) {
	if !d.Type().IsRegular() {
		return "", false
	}
	rel, err := filepath.Rel(cfg.Root, p)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ignore.FileName || isStateFile(rel) {
		return "", false
	}
	if !allowedByGlobs(rel, cfg) {
		return "", false
	}
	if ign.Match(rel) {
		return "", false
	}
	if cfg.DefaultExcludes && isDefaultFileExcluded(strings.ToLower(rel)) {
		return "", false
	}
	if cfg.MaxBytes > 0 {
		if info, err := d.Info(); err == nil && info.Size() > cfg.MaxBytes {
			return "", false
		}
	}
	return rel, true
}

func looksBinary(b []byte) bool {
	const sniff = 800
	n := sniff
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if b[i] == 0 {
			return true
		}
	}
	return false
}

// CountTargets returns the number of files a run over cfg would consider,
// without reading them.
func CountTargets(cfg Config) (int, error) {
	ign, _ := ignore.Load(filepath.Join(cfg.Root, ignore.FileName))
	count := 0
	err := filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != cfg.Root && cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := eligible(cfg, ign, p, d); ok {
			count++
		}
		return nil
	})
	return count, err
}
