package engine

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/redactyl/labscrub/internal/cache"
	"github.com/redactyl/labscrub/internal/detectors"
	"github.com/redactyl/labscrub/internal/ignore"
	"github.com/redactyl/labscrub/internal/redact"
	"github.com/redactyl/labscrub/internal/sanitize"
	"github.com/redactyl/labscrub/internal/types"
)

// Config controls batch runs: scope, filters and parallelism.
type Config struct {
	Root            string
	IncludeGlobs    string
	ExcludeGlobs    string
	MaxBytes        int64 // 0 means no limit
	MaxLineBytes    int
	Threads         int
	DefaultExcludes bool
	NoCache         bool
	Progress        func()
	Logger          *slog.Logger
}

type job struct {
	rel  string
	data []byte
}

func normalizeThreads(threads int) int {
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads > 32 {
		threads = 32
	}
	return threads
}

// runPool walks cfg.Root and hands every file that passes skip to one of
// cfg.Threads workers.
func runPool(ctx context.Context, cfg Config, skip func(rel string, data []byte) bool, work func(job)) error {
	ign, _ := ignore.Load(filepath.Join(cfg.Root, ignore.FileName))
	jobs := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < normalizeThreads(cfg.Threads); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				work(j)
				if cfg.Progress != nil {
					cfg.Progress()
				}
			}
		}()
	}
	err := Walk(ctx, cfg, ign, func(rel string, data []byte) {
		if skip != nil && skip(rel, data) {
			return
		}
		select {
		case jobs <- job{rel: rel, data: data}:
		case <-ctx.Done():
		}
	})
	close(jobs)
	wg.Wait()
	return err
}

// Result contains findings and basic scan statistics.
type Result struct {
	Findings     []types.Finding
	FilesScanned int
	Duration     time.Duration
}

// Scan runs the detectors and returns only findings.
func Scan(ctx context.Context, cfg Config) ([]types.Finding, error) {
	res, err := ScanWithStats(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return res.Findings, nil
}

// ScanWithStats runs the detectors over every eligible file. Findings are
// ordered by path, then line, then column.
func ScanWithStats(ctx context.Context, cfg Config) (Result, error) {
	var (
		mu  sync.Mutex
		res Result
	)
	started := time.Now()
	err := runPool(ctx, cfg, nil, func(j job) {
		fs := detectors.RunAll(j.rel, j.data)
		mu.Lock()
		res.Findings = append(res.Findings, fs...)
		res.FilesScanned++
		mu.Unlock()
	})
	sortFindings(res.Findings)
	res.Duration = time.Since(started)
	return res, err
}

func sortFindings(fs []types.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// FileResult is the outcome of sanitizing one file of a batch.
type FileResult struct {
	Input  string
	Output string
	Stats  sanitize.Stats
	Err    error
}

// BatchResult summarizes a SanitizeTree run.
type BatchResult struct {
	Files    []FileResult
	Skipped  int
	Duration time.Duration
}

// Failed counts files whose sanitize failed.
func (b BatchResult) Failed() int {
	n := 0
	for _, f := range b.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// storedGetter is implemented by sinks that can read an output back.
type storedGetter interface {
	Get(ctx context.Context, name string) (string, error)
}

// SanitizeTree sanitizes every eligible file under cfg.Root into sink. An
// output keeps the directory of its input relative to the root, so
// "site/a.txt" is saved as "site/a_sanitized.txt". A failed file does not
// stop the run; its error is recorded in the result and reported to each.
// each may be nil; it is never called concurrently.
//
// An input is skipped as unchanged only when its cached hash matches and
// sink still holds its output. Sinks without a Get method never skip.
func SanitizeTree(ctx context.Context, cfg Config, sink sanitize.Sink, each func(FileResult)) (BatchResult, error) {
	rules := RulesFingerprint()
	db := cache.DB{Rules: rules, Entries: map[string]string{}}
	if !cfg.NoCache {
		db = cache.LoadFor(cfg.Root, rules)
	}
	s := &sanitize.Sanitizer{MaxLineBytes: cfg.MaxLineBytes, Logger: cfg.Logger}

	var (
		mu      sync.Mutex
		res     BatchResult
		updated = map[string]string{}
	)
	started := time.Now()
	getter, canGet := sink.(storedGetter)
	skip := func(rel string, data []byte) bool {
		if cfg.NoCache || !canGet || db.Entries[rel] != fastHash(data) {
			return false
		}
		if _, err := getter.Get(ctx, OutputFor(rel)); err != nil {
			return false
		}
		mu.Lock()
		res.Skipped++
		mu.Unlock()
		return true
	}
	err := runPool(ctx, cfg, skip, func(j job) {
		st, err := s.Sanitize(ctx, sanitize.Document{Name: j.rel, Body: bytes.NewReader(j.data)}, dirSink{dir: path.Dir(j.rel), next: sink})
		fr := FileResult{Input: j.rel, Output: OutputFor(j.rel), Stats: st, Err: err}
		if err != nil && cfg.Logger != nil {
			cfg.Logger.Warn("sanitize failed", "input", j.rel, "error", err)
		}
		mu.Lock()
		defer mu.Unlock()
		res.Files = append(res.Files, fr)
		if err == nil {
			updated[j.rel] = fastHash(j.data)
		}
		if each != nil {
			each(fr)
		}
	})
	sort.Slice(res.Files, func(i, k int) bool { return res.Files[i].Input < res.Files[k].Input })
	res.Duration = time.Since(started)

	if !cfg.NoCache && len(updated) > 0 {
		for k, v := range updated {
			db.Entries[k] = v
		}
		if serr := cache.Save(cfg.Root, db); serr != nil && cfg.Logger != nil {
			cfg.Logger.Warn("cache not saved", "error", serr)
		}
	}
	return res, err
}

// dirSink saves into a subdirectory of the wrapped sink.
type dirSink struct {
	dir  string
	next sanitize.Sink
}

func (d dirSink) Save(ctx context.Context, name, content string) error {
	return d.next.Save(ctx, joinDir(d.dir, name), content)
}

// OutputFor is the name a batch input relative to the root is stored under.
func OutputFor(rel string) string {
	return joinDir(path.Dir(rel), sanitize.OutputName(rel))
}

func joinDir(dir, name string) string {
	if name == "" || dir == "." || dir == "" {
		return name
	}
	return path.Join(dir, name)
}

// RulesFingerprint identifies the redaction rule set. Cached batch entries
// are discarded when it changes.
func RulesFingerprint() string {
	var b strings.Builder
	b.WriteString(redact.Token)
	for _, k := range redact.Keys() {
		b.WriteString("\x00" + k)
	}
	for _, r := range redact.Rules() {
		b.WriteString("\x00" + r.Name + "=" + r.Pattern.String())
	}
	return fastHash([]byte(b.String()))
}

func fastHash(b []byte) string {
	if len(b) == 0 {
		return "0000000000000000"
	}
	sum := xxhash.Sum64(b)
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[sum&0xF]
		sum >>= 4
	}
	return string(buf[:])
}
