package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS memory (
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (scope, key)
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create memory table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, scope memory.Scope) (map[string][]byte, error) {
	return loadScope(ctx, s.db, `SELECT key, payload FROM memory WHERE scope = ?`, scope)
}

func (s *SQLite) Commit(ctx context.Context, writes []memory.Write) error {
	return commitWrites(ctx, s.db, writes,
		`INSERT INTO memory(scope, key, payload) VALUES(?, ?, ?)
		 ON CONFLICT(scope, key) DO UPDATE SET payload = excluded.payload`,
		`DELETE FROM memory WHERE scope = ? AND key = ?`,
	)
}

func (s *SQLite) Close() error { return s.db.Close() }

func loadScope(ctx context.Context, db *sql.DB, query string, scope memory.Scope) (map[string][]byte, error) {
	rows, err := db.QueryContext(ctx, query, string(scope))
	if err != nil {
		return nil, fmt.Errorf("select memory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string][]byte{}
	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		out[key] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory: %w", err)
	}
	return out, nil
}

func commitWrites(ctx context.Context, db *sql.DB, writes []memory.Write, upsert, del string) (retErr error) {
	if len(writes) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, w := range writes {
		if w.Delete {
			if _, err := tx.ExecContext(ctx, del, string(w.Scope), w.Key); err != nil {
				return fmt.Errorf("delete %s/%s: %w", w.Scope, w.Key, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, upsert, string(w.Scope), w.Key, w.Payload); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", w.Scope, w.Key, err)
		}
	}
	return tx.Commit()
}
