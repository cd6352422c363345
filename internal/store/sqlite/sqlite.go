// Package sqlite persists the tree in a local SQLite database, one row per
// node keyed by its full path. Subtree reads use path-prefix queries.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"timelog/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Read(ctx context.Context, path string) (store.Snapshot, error) {
	if err := store.ValidatePath(path); err != nil {
		return store.Snapshot{}, err
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM nodes WHERE path = ?`, path).Scan(&value)
	switch {
	case err == nil:
		return store.NewSnapshot(json.RawMessage(value)), nil
	case err != sql.ErrNoRows:
		return store.Snapshot{}, fmt.Errorf("read node %s: %w", path, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, value FROM nodes WHERE path LIKE ? ESCAPE '\'`,
		likePrefix(path))
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read subtree %s: %w", path, err)
	}
	defer rows.Close()

	children := make(map[string]json.RawMessage)
	for rows.Next() {
		var p, v string
		if err := rows.Scan(&p, &v); err != nil {
			return store.Snapshot{}, fmt.Errorf("scan subtree row: %w", err)
		}
		children[strings.TrimPrefix(p, path+"/")] = json.RawMessage(v)
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, fmt.Errorf("iterate subtree %s: %w", path, err)
	}

	raw, err := store.Assemble(children)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.NewSnapshot(raw), nil
}

func (s *Store) Write(ctx context.Context, path string, value any) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", path, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write tx: %w", err)
	}
	defer tx.Rollback()

	// Full-subtree replace: drop descendants before setting the node.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM nodes WHERE path LIKE ? ESCAPE '\'`, likePrefix(path)); err != nil {
		return fmt.Errorf("clear subtree %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO nodes (path, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(path) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		path, string(raw)); err != nil {
		return fmt.Errorf("write node %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write %s: %w", path, err)
	}

	slog.DebugContext(ctx, "Node written", "path", path, "bytes", len(raw))
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE path = ? OR path LIKE ? ESCAPE '\'`,
		path, likePrefix(path)); err != nil {
		return fmt.Errorf("delete subtree %s: %w", path, err)
	}
	return nil
}

// likePrefix builds a LIKE pattern matching strict descendants of path,
// escaping the LIKE metacharacters that may appear in path segments.
func likePrefix(path string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(path)
	return escaped + "/%"
}
