// Package watch sanitizes lab orders dropped into an inbox directory.
// Each .txt file is processed once its writes settle for the debounce
// interval; rewriting a file sanitizes it again.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redactyl/labscrub/internal/audit"
	"github.com/redactyl/labscrub/internal/metrics"
	"github.com/redactyl/labscrub/internal/sanitize"
	"github.com/redactyl/labscrub/internal/validate"
)

// DefaultDebounce is the quiet period after the last write to a file.
const DefaultDebounce = 250 * time.Millisecond

type Config struct {
	Dir       string
	Debounce  time.Duration
	Sink      sanitize.Sink
	Sanitizer *sanitize.Sanitizer
	Audit     *audit.AuditLog
	Metrics   *metrics.Collector
	Logger    *slog.Logger
	// OnResult, when set, is called after every processed file.
	OnResult func(sanitize.Stats, error)
}

type Watcher struct {
	cfg     Config
	watcher *fsnotify.Watcher
	log     *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func New(cfg Config) (*Watcher, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("watch: sink is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", cfg.Dir)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Sanitizer == nil {
		cfg.Sanitizer = &sanitize.Sanitizer{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(cfg.Dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Dir, err)
	}
	return &Watcher{
		cfg:     cfg,
		watcher: fw,
		log:     log.With("component", "watch"),
		pending: map[string]*time.Timer{},
	}, nil
}

// Run processes events until ctx is cancelled. Files already being
// sanitized finish before Run returns; pending ones are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()
	w.log.Info("watching inbox", "dir", w.cfg.Dir, "debounce_ms", w.cfg.Debounce.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !wanted(ev) {
				continue
			}
			w.schedule(ctx, ev.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	for name, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, name)
	}
	w.mu.Unlock()
	w.wg.Wait()
	_ = w.watcher.Close()
}

// wanted keeps create and write events for visible .txt inputs. Outputs are
// skipped so an inbox that doubles as the output directory does not loop.
func wanted(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, sanitize.OutputSuffix) {
		return false
	}
	return validate.IsText(base)
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(w.cfg.Debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.process(ctx, path)
	})
}

func (w *Watcher) process(ctx context.Context, path string) {
	st, err := w.sanitizeFile(ctx, path)
	w.cfg.Metrics.RecordSanitize(audit.SourceWatch, st, err)
	if w.cfg.Audit != nil {
		if aerr := w.cfg.Audit.Log(audit.NewRecord(audit.SourceWatch, st, err)); aerr != nil {
			w.log.Warn("audit write failed", "error", aerr)
		}
	}
	if err != nil {
		w.log.Error("sanitize failed", "file", path, "error", err)
	} else {
		w.log.Info("sanitized", "file", path, "output", st.Output, "redactions", st.Redactions())
	}
	if w.cfg.OnResult != nil {
		w.cfg.OnResult(st, err)
	}
}

func (w *Watcher) sanitizeFile(ctx context.Context, path string) (sanitize.Stats, error) {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return sanitize.Stats{Input: name}, &sanitize.InputReadError{Name: name, Err: err}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return sanitize.Stats{Input: name}, &sanitize.InputReadError{Name: name, Err: err}
	}
	if err := validate.File(validate.Upload{Name: name, Size: info.Size()}); err != nil {
		return sanitize.Stats{Input: name}, err
	}
	return w.cfg.Sanitizer.Sanitize(ctx, sanitize.Document{Name: name, Body: f}, w.cfg.Sink)
}
