package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"TiskyPipeline/internal/ports"
)

// SQLite keeps all artifacts in a single database file, for deployments
// where the data directory cannot be a plain directory tree.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
}

var _ ports.ArtifactStore = (*SQLite)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	key      TEXT PRIMARY KEY,
	data     BLOB NOT NULL,
	mod_time INTEGER NOT NULL
);`

// NewSQLite opens (creating if needed) the artifact database at path.
func NewSQLite(path string, log *slog.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLite{db: db, log: log}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get returns the artifact bytes or ports.ErrNotFound.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("data").From("artifacts").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var data []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get %s: %w", key, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Put inserts or replaces the artifact in one statement.
func (s *SQLite) Put(ctx context.Context, key string, data []byte) error {
	query, args, err := sq.Insert("artifacts").
		Columns("key", "data", "mod_time").
		Values(key, data, time.Now().UnixNano()).
		Suffix("ON CONFLICT(key) DO UPDATE SET data = excluded.data, mod_time = excluded.mod_time").
		ToSql()
	if err != nil {
		return fmt.Errorf("build put query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the artifact is present.
func (s *SQLite) Exists(ctx context.Context, key string) (bool, error) {
	query, args, err := sq.Select("1").From("artifacts").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return true, nil
}

// Delete removes the artifact. Deleting a missing key is not an error.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	query, args, err := sq.Delete("artifacts").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// likeEscaper neutralizes the LIKE wildcards in key prefixes; "_" occurs in
// regular keys like related_bills and sub-version stems.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns all keys under prefix, sorted.
func (s *SQLite) List(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := sq.Select("key").From("artifacts").
		Where(sq.Expr(`key LIKE ? ESCAPE '\'`, likeEscaper.Replace(prefix)+"%")).
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}

// ModTime returns when the artifact was last written, or ports.ErrNotFound.
func (s *SQLite) ModTime(ctx context.Context, key string) (time.Time, error) {
	query, args, err := sq.Select("mod_time").From("artifacts").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return time.Time{}, fmt.Errorf("build modtime query: %w", err)
	}

	var nanos int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&nanos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("modtime %s: %w", key, ports.ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("modtime %s: %w", key, err)
	}
	return time.Unix(0, nanos), nil
}
