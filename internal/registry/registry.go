package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrPathNotFound is returned when a path is not found in the registry.
var ErrPathNotFound = errors.New("path not found")

// Registry persists FileState rows backing the directory watcher's
// incremental indexer across restarts.
type Registry interface {
	UpsertFileState(ctx context.Context, state FileState) error
	GetFileState(ctx context.Context, path string) (*FileState, error)
	DeleteFileState(ctx context.Context, path string) error
	ListFileStates(ctx context.Context, rootPath string) ([]FileState, error)
	DeleteFileStatesUnder(ctx context.Context, rootPath string) (int64, error)
	Close() error
}

// SQLiteRegistry is the SQLite implementation of Registry.
type SQLiteRegistry struct {
	db *sql.DB
}

// Open creates or opens a SQLiteRegistry at dbPath, running any pending
// migrations.
func Open(ctx context.Context, dbPath string) (*SQLiteRegistry, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating registry directory; %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening registry database; %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode; %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations; %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

// Close closes the underlying database connection.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// UpsertFileState inserts or replaces the tracked state for state.Path.
func (r *SQLiteRegistry) UpsertFileState(ctx context.Context, state FileState) error {
	path := filepath.Clean(state.Path)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO file_state (path, size, mod_time, hash, extension, mime_type, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			hash = excluded.hash,
			extension = excluded.extension,
			mime_type = excluded.mime_type,
			last_seen_at = excluded.last_seen_at`,
		path, state.Size, state.ModTime, state.Hash, state.Extension, state.MimeType, state.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("upserting file state; %w", err)
	}

	return nil
}

// GetFileState returns the tracked state for path, or ErrPathNotFound.
func (r *SQLiteRegistry) GetFileState(ctx context.Context, path string) (*FileState, error) {
	path = filepath.Clean(path)

	row := r.db.QueryRowContext(ctx,
		`SELECT path, size, mod_time, hash, extension, mime_type, last_seen_at
		 FROM file_state WHERE path = ?`, path)

	var s FileState
	if err := row.Scan(&s.Path, &s.Size, &s.ModTime, &s.Hash, &s.Extension, &s.MimeType, &s.LastSeenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPathNotFound
		}
		return nil, fmt.Errorf("reading file state; %w", err)
	}

	return &s, nil
}

// DeleteFileState removes the tracked state for path.
func (r *SQLiteRegistry) DeleteFileState(ctx context.Context, path string) error {
	path = filepath.Clean(path)

	if _, err := r.db.ExecContext(ctx, "DELETE FROM file_state WHERE path = ?", path); err != nil {
		return fmt.Errorf("deleting file state; %w", err)
	}

	return nil
}

// ListFileStates returns every tracked file whose path is rootPath or lies
// beneath it.
func (r *SQLiteRegistry) ListFileStates(ctx context.Context, rootPath string) ([]FileState, error) {
	rootPath = filepath.Clean(rootPath)
	prefix := rootPath + string(filepath.Separator)

	rows, err := r.db.QueryContext(ctx,
		`SELECT path, size, mod_time, hash, extension, mime_type, last_seen_at
		 FROM file_state WHERE path = ? OR path LIKE ? ESCAPE '\'`,
		rootPath, escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("listing file states; %w", err)
	}
	defer rows.Close()

	var states []FileState
	for rows.Next() {
		var s FileState
		if err := rows.Scan(&s.Path, &s.Size, &s.ModTime, &s.Hash, &s.Extension, &s.MimeType, &s.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scanning file state; %w", err)
		}
		states = append(states, s)
	}

	return states, rows.Err()
}

// DeleteFileStatesUnder removes every tracked file beneath rootPath,
// returning the number of rows removed.
func (r *SQLiteRegistry) DeleteFileStatesUnder(ctx context.Context, rootPath string) (int64, error) {
	rootPath = filepath.Clean(rootPath)
	prefix := rootPath + string(filepath.Separator)

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM file_state WHERE path = ? OR path LIKE ? ESCAPE '\'`,
		rootPath, escapeLike(prefix)+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("deleting file states; %w", err)
	}

	return result.RowsAffected()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
