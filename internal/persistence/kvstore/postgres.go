package kvstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

const defaultPostgresDSN = "postgres://localhost/colony?sslmode=disable"

type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects using dsn (falls back to a localhost default) and ensures the memory table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS memory (
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (scope, key)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure memory table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Load(ctx context.Context, scope memory.Scope) (map[string][]byte, error) {
	return loadScope(ctx, p.db, `SELECT key, payload FROM memory WHERE scope = $1`, scope)
}

func (p *Postgres) Commit(ctx context.Context, writes []memory.Write) error {
	return commitWrites(ctx, p.db, writes,
		`INSERT INTO memory(scope, key, payload) VALUES($1, $2, $3)
		 ON CONFLICT(scope, key) DO UPDATE SET payload = EXCLUDED.payload`,
		`DELETE FROM memory WHERE scope = $1 AND key = $2`,
	)
}

func (p *Postgres) Close() error { return p.db.Close() }
