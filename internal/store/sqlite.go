package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteSink stores sanitized outputs as rows of a SQLite database. Saving a
// name twice replaces the earlier content.
type SQLiteSink struct {
	db        *sql.DB
	path      string
	mu        sync.RWMutex
	closeOnce sync.Once

	saveStmt  *sql.Stmt
	getStmt   *sql.Stmt
	listStmt  *sql.Stmt
	pruneStmt *sql.Stmt
}

// NewSQLiteSink opens (creating if needed) the database at dbPath.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports a single writer
	db.SetMaxIdleConns(1)

	s := &SQLiteSink{db: db, path: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS sanitized_documents (
		name TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sanitized_created_at ON sanitized_documents(created_at);
	`)
	return err
}

func (s *SQLiteSink) prepareStatements() error {
	var err error
	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO sanitized_documents (name, content, bytes, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			content = excluded.content,
			bytes = excluded.bytes,
			created_at = excluded.created_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}
	s.getStmt, err = s.db.Prepare(`SELECT content FROM sanitized_documents WHERE name = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}
	s.listStmt, err = s.db.Prepare(`SELECT name, bytes, created_at FROM sanitized_documents ORDER BY name`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}
	s.pruneStmt, err = s.db.Prepare(`DELETE FROM sanitized_documents WHERE created_at < ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}
	return nil
}

// Save stores content under name.
func (s *SQLiteSink) Save(ctx context.Context, name, content string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.saveStmt.ExecContext(ctx, name, content, len(content), time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteSink) Get(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var content string
	err := s.getStmt.QueryRowContext(ctx, name).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", name, err)
	}
	return content, nil
}

func (s *SQLiteSink) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.Name, &e.Bytes, &created); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Prune deletes rows created before cutoff.
func (s *SQLiteSink) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.pruneStmt.ExecContext(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// Close releases the database. It is safe to call more than once.
func (s *SQLiteSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, st := range []*sql.Stmt{s.saveStmt, s.getStmt, s.listStmt, s.pruneStmt} {
			if st != nil {
				st.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}
