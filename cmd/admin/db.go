package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	colonyID := fs.String("colony", "", "colony id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	worker := fs.String("worker", "", "worker name filter (failures)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*colonyID) == "" {
			fmt.Fprintln(os.Stderr, "missing -colony or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "colonies", *colonyID, "index.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runQuery(db, q, *worker, *limit, printJSON); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if strings.HasPrefix(err.Error(), "unknown query") {
			fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-colony ID|-db PATH] [-limit N] [-worker NAME] snapshots|ticks|failures|spawns|tuning")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// runQuery runs one of the named index queries and hands each row to emit.
func runQuery(db *sql.DB, q, worker string, limit int, emit func(any)) error {
	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,snapshot_id,path,rooms,objects,units,agents FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick       int64  `json:"tick"`
				SnapshotID string `json:"snapshot_id"`
				Path       string `json:"path"`
				Rooms      int    `json:"rooms"`
				Objects    int    `json:"objects"`
				Units      int    `json:"units"`
				Agents     int    `json:"agents"`
			}
			if err := rows.Scan(&r.Tick, &r.SnapshotID, &r.Path, &r.Rooms, &r.Objects, &r.Units, &r.Agents); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	case "ticks":
		rows, err := db.Query(`SELECT tick,digest,spawns,failures,reaped FROM ticks ORDER BY tick DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64  `json:"tick"`
				Digest   string `json:"digest"`
				Spawns   int    `json:"spawns"`
				Failures int    `json:"failures"`
				Reaped   int    `json:"reaped"`
			}
			if err := rows.Scan(&r.Tick, &r.Digest, &r.Spawns, &r.Failures, &r.Reaped); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	case "failures":
		query := `SELECT tick,worker,err FROM failures ORDER BY tick DESC LIMIT ?`
		args := []any{limit}
		if strings.TrimSpace(worker) != "" {
			query = `SELECT tick,worker,err FROM failures WHERE worker=? ORDER BY tick DESC LIMIT ?`
			args = []any{strings.TrimSpace(worker), limit}
		}
		rows, err := db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick   int64  `json:"tick"`
				Worker string `json:"worker"`
				Err    string `json:"err"`
			}
			if err := rows.Scan(&r.Tick, &r.Worker, &r.Err); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	case "spawns":
		rows, err := db.Query(`SELECT tick,name,role,room,queue_index,request_id FROM spawns ORDER BY tick DESC, name LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick      int64  `json:"tick"`
				Name      string `json:"name"`
				Role      string `json:"role"`
				Room      string `json:"room"`
				Index     int    `json:"index"`
				RequestID string `json:"request_id,omitempty"`
			}
			if err := rows.Scan(&r.Tick, &r.Name, &r.Role, &r.Room, &r.Index, &r.RequestID); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	case "tuning":
		var r struct {
			Digest string          `json:"digest"`
			Tuning json.RawMessage `json:"tuning"`
		}
		var raw string
		if err := db.QueryRow(`SELECT value FROM meta WHERE key='tuning_digest'`).Scan(&r.Digest); err != nil {
			return fmt.Errorf("tuning digest: %w", err)
		}
		if err := db.QueryRow(`SELECT value FROM meta WHERE key='tuning_json'`).Scan(&raw); err != nil {
			return fmt.Errorf("tuning json: %w", err)
		}
		r.Tuning = json.RawMessage(raw)
		emit(r)
		return nil

	default:
		return fmt.Errorf("unknown query: %s", q)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
