// Package store holds the output sinks sanitized documents are written to:
// a directory on disk or a SQLite database. Both support pruning outputs
// older than a retention window.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redactyl/labscrub/internal/sanitize"
)

// Kinds of store selectable from configuration.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Entry describes one stored output.
type Entry struct {
	Name      string
	Bytes     int64
	CreatedAt time.Time
}

// Store is a sink that can also list, read and prune its outputs.
type Store interface {
	sanitize.Sink
	Get(ctx context.Context, name string) (string, error)
	List(ctx context.Context) ([]Entry, error)
	// Prune removes outputs created before cutoff and returns how many were
	// removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Kind       string
	Dir        string
	SQLitePath string
}

// Open returns the store described by cfg. An empty kind means KindFile.
func Open(cfg Config) (Store, error) {
	switch cfg.Kind {
	case "", KindFile:
		return NewFileSink(cfg.Dir)
	case KindSQLite:
		return NewSQLiteSink(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store %q (want %s or %s)", cfg.Kind, KindFile, KindSQLite)
	}
}
