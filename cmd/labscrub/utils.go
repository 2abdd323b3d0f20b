package labscrub

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redactyl/labscrub/internal/audit"
	"github.com/redactyl/labscrub/internal/config"
	"github.com/redactyl/labscrub/internal/logging"
	"github.com/redactyl/labscrub/internal/store"
)

// settings holds the local and global config files. Values resolve as
// CLI > local > global.
type settings struct {
	local, global config.FileConfig
}

// loadSettings reads the global config and the local one in dir. Missing
// files are fine; malformed ones are errors.
func loadSettings(dir string) (settings, error) {
	var s settings
	var err error
	if s.global, err = config.LoadGlobal(); err != nil && !errors.Is(err, config.ErrNotFound) {
		return s, err
	}
	if s.local, err = config.LoadLocal(dir); err != nil && !errors.Is(err, config.ErrNotFound) {
		return s, err
	}
	return s, nil
}

func (s settings) logger(w io.Writer) (*slog.Logger, error) {
	return logging.New(logging.Config{
		Level:  pickString(flagLogLevel, s.local.LogLevel, s.global.LogLevel),
		Format: pickString(flagLogFormat, s.local.LogFormat, s.global.LogFormat),
		Writer: w,
	})
}

// auditLog returns nil when auditing is disabled.
func (s settings) auditLog() *audit.AuditLog {
	if flagNoAudit {
		return nil
	}
	return audit.NewAuditLog(pickString(flagAudit, s.local.Audit, s.global.Audit))
}

// openStore opens the configured store. cliKind, cliDir and cliSQLite are
// flag values and win when set.
func (s settings) openStore(cliKind, cliDir, cliSQLite string) (store.Store, error) {
	cfg := store.Config{
		Kind:       pickString(cliKind, s.local.Store, s.global.Store),
		Dir:        pickString(cliDir, s.local.OutputDir, s.global.OutputDir),
		SQLitePath: pickString(cliSQLite, s.local.SQLitePath, s.global.SQLitePath),
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Kind == store.KindSQLite && cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.Dir, "labscrub.db")
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}
