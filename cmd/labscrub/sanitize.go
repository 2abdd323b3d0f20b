package labscrub

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redactyl/labscrub/internal/audit"
	"github.com/redactyl/labscrub/internal/engine"
	"github.com/redactyl/labscrub/internal/sanitize"
	"github.com/redactyl/labscrub/internal/store"
	"github.com/redactyl/labscrub/internal/watch"
	"github.com/spf13/cobra"
)

var (
	flagOut          string
	flagStdout       bool
	flagDir          string
	flagWatch        string
	flagDebounce     time.Duration
	flagInclude      string
	flagExclude      string
	flagMaxBytes     int64
	flagMaxLineBytes int
	flagStore        string
	flagSQLitePath   string
)

func init() {
	cmd := &cobra.Command{
		Use:   "sanitize [FILE...]",
		Short: "Redact PHI from lab order files",
		Long: `Redact PHI from lab order files. Each input FILE is written to the store as
<name>_sanitized.txt. With no FILE and no --dir/--watch, stdin is sanitized to stdout.`,
		Example: `  labscrub sanitize order.txt --out sanitized/
  labscrub sanitize --dir inbox/ --threads 8
  labscrub sanitize --watch inbox/ --store sqlite --sqlite-path labscrub.db
  cat order.txt | labscrub sanitize`,
		RunE: runSanitize,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagOut, "out", "o", "", "output directory for the file store (default .)")
	cmd.Flags().BoolVar(&flagStdout, "stdout", false, "write sanitized text to stdout instead of the store")
	cmd.Flags().StringVar(&flagDir, "dir", "", "sanitize every eligible file under this directory")
	cmd.Flags().StringVar(&flagWatch, "watch", "", "sanitize .txt files dropped into this directory until interrupted")
	cmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "quiet period before a watched file is sanitized")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs for --dir (default **/*.txt)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs for --dir")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 0, "skip --dir inputs larger than this (0 = no limit)")
	cmd.Flags().IntVar(&flagMaxLineBytes, "max-line-bytes", 0, "longest accepted input line (default 1MiB)")
	cmd.Flags().StringVar(&flagStore, "store", "", "output store: file|sqlite")
	cmd.Flags().StringVar(&flagSQLitePath, "sqlite-path", "", "SQLite database for --store sqlite")

	_ = cmd.RegisterFlagCompletionFunc("store", completeWords(store.KindFile, store.KindSQLite))
	for _, name := range []string{"out", "dir", "watch"} {
		_ = cmd.RegisterFlagCompletionFunc(name, completeDirs)
	}
}

func runSanitize(cmd *cobra.Command, args []string) error {
	modes := 0
	for _, set := range []bool{len(args) > 0, flagDir != "", flagWatch != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("use only one of FILE arguments, --dir or --watch")
	}
	if flagStdout && (flagDir != "" || flagWatch != "") {
		return fmt.Errorf("--stdout only applies to FILE arguments or stdin")
	}

	root := "."
	if flagDir != "" {
		root = flagDir
	}
	s, err := loadSettings(root)
	if err != nil {
		return err
	}
	log, err := s.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	san := &sanitize.Sanitizer{
		MaxLineBytes: pickInt(flagMaxLineBytes, s.local.MaxLineBytes, s.global.MaxLineBytes),
		Logger:       log,
	}

	if len(args) == 0 && flagDir == "" && flagWatch == "" {
		return sanitizeStdin(cmd, san)
	}
	if flagStdout {
		return sanitizeToStdout(cmd, san, s.auditLog(), args)
	}

	st, err := s.openStore(flagStore, flagOut, flagSQLitePath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case flagWatch != "":
		return runWatch(ctx, st, san, s.auditLog(), log)
	case flagDir != "":
		return runBatch(ctx, cmd, s, st, s.auditLog(), log)
	default:
		return sanitizeFiles(ctx, cmd, san, st, s.auditLog(), args)
	}
}

func sanitizeStdin(cmd *cobra.Command, san *sanitize.Sanitizer) error {
	out, _, err := san.Text(sanitize.Document{Name: "stdin", Body: cmd.InOrStdin()})
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), out)
	return err
}

func sanitizeToStdout(cmd *cobra.Command, san *sanitize.Sanitizer, al *audit.AuditLog, args []string) error {
	w := cmd.OutOrStdout()
	sink := sanitize.SinkFunc(func(_ context.Context, _, content string) error {
		_, err := io.WriteString(w, content)
		return err
	})
	for _, p := range args {
		if _, err := sanitizeFile(cmd.Context(), san, sink, al, p); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeFiles(ctx context.Context, cmd *cobra.Command, san *sanitize.Sanitizer, st store.Store, al *audit.AuditLog, args []string) error {
	failed := 0
	for _, p := range args {
		stats, err := sanitizeFile(ctx, san, st, al, p)
		if err != nil {
			warnf("%s: %v", p, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d redactions)\n", p, outputLocation(st, stats.Output), stats.Redactions())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

// sanitizeFile sanitizes one named file into sink and audits the run.
func sanitizeFile(ctx context.Context, san *sanitize.Sanitizer, sink sanitize.Sink, al *audit.AuditLog, p string) (sanitize.Stats, error) {
	name := filepath.Base(p)
	var (
		stats sanitize.Stats
		err   error
	)
	f, oerr := os.Open(p)
	if oerr != nil {
		stats, err = sanitize.Stats{Input: name}, &sanitize.InputReadError{Name: name, Err: oerr}
	} else {
		stats, err = san.Sanitize(ctx, sanitize.Document{Name: name, Body: f}, sink)
		_ = f.Close()
	}
	if al != nil {
		if aerr := al.Log(audit.NewRecord(audit.SourceCLI, stats, err)); aerr != nil {
			warnf("audit: %v", aerr)
		}
	}
	return stats, err
}

func runBatch(ctx context.Context, cmd *cobra.Command, s settings, st store.Store, al *audit.AuditLog, log *slog.Logger) error {
	abs, err := filepath.Abs(flagDir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", flagDir, err)
	}
	include := pickString(flagInclude, s.local.Include, s.global.Include)
	if include == "" {
		include = "**/*.txt"
	}
	cfg := engine.Config{
		Root:            abs,
		IncludeGlobs:    include,
		ExcludeGlobs:    pickString(flagExclude, s.local.Exclude, s.global.Exclude),
		MaxBytes:        pickInt64(flagMaxBytes, s.local.MaxBytes, s.global.MaxBytes),
		MaxLineBytes:    pickInt(flagMaxLineBytes, s.local.MaxLineBytes, s.global.MaxLineBytes),
		Threads:         pickInt(flagThreads, s.local.Threads, s.global.Threads),
		DefaultExcludes: defaultExcludes(cmd, s),
		NoCache:         pickBool(flagNoCache, s.local.NoCache, s.global.NoCache),
		Logger:          log,
	}
	w := cmd.OutOrStdout()
	res, err := engine.SanitizeTree(ctx, cfg, st, func(fr engine.FileResult) {
		if al != nil {
			if aerr := al.Log(audit.NewRecord(audit.SourceBatch, fr.Stats, fr.Err)); aerr != nil {
				warnf("audit: %v", aerr)
			}
		}
		if fr.Err != nil {
			warnf("%s: %v", fr.Input, fr.Err)
			return
		}
		fmt.Fprintf(w, "%s -> %s (%d redactions)\n", fr.Input, outputLocation(st, fr.Output), fr.Stats.Redactions())
	})
	if err != nil {
		return fmt.Errorf("batch error: %w", err)
	}
	fmt.Fprintf(w, "\nSanitized %d files (%d unchanged, %d failed) in %.2fs\n",
		len(res.Files)-res.Failed(), res.Skipped, res.Failed(), res.Duration.Seconds())
	if n := res.Failed(); n > 0 {
		return fmt.Errorf("%d files failed", n)
	}
	return nil
}

func runWatch(ctx context.Context, st store.Store, san *sanitize.Sanitizer, al *audit.AuditLog, log *slog.Logger) error {
	w, err := watch.New(watch.Config{
		Dir:       flagWatch,
		Debounce:  flagDebounce,
		Sink:      st,
		Sanitizer: san,
		Audit:     al,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	warnf("Watching %s for lab orders (Ctrl+C to stop)...", flagWatch)
	return w.Run(ctx)
}

// outputLocation is where a stored output can be found: a file path for the
// file store, the bare name otherwise.
func outputLocation(st store.Store, name string) string {
	if fs, ok := st.(*store.FileSink); ok {
		return fs.Path(name)
	}
	return name
}

// defaultExcludes resolves --default-excludes, which defaults to on.
func defaultExcludes(cmd *cobra.Command, s settings) bool {
	if cmd.Flags().Changed("default-excludes") {
		return flagDefaultExcludes
	}
	for _, v := range []*bool{s.local.DefaultExcludes, s.global.DefaultExcludes} {
		if v != nil {
			return *v
		}
	}
	return true
}
