// Package indexdb keeps a queryable SQLite read model of the tick log and the
// snapshots. It never feeds back into the loop; the JSONL tick logs and the
// snapshot files stay the source of truth.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
	"github.com/Soulycoris/ts-screep/internal/sim/colony"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ colony.TickLogger = (*SQLiteIndex)(nil)

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     colony.TickLogEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick       uint64
	SnapshotID string
	Path       string
	Rooms      int
	Objects    int
	Units      int
	Agents     int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
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

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			spawns INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			reaped INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS spawns (
			tick INTEGER NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL,
			room TEXT NOT NULL,
			queue_index INTEGER NOT NULL,
			request_id TEXT NOT NULL,
			PRIMARY KEY (tick, name)
		);`,
		`CREATE TABLE IF NOT EXISTS failures (
			tick INTEGER NOT NULL,
			worker TEXT NOT NULL,
			err TEXT NOT NULL,
			PRIMARY KEY (tick, worker)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_failures_worker_tick ON failures(worker, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			snapshot_id TEXT NOT NULL,
			path TEXT NOT NULL,
			rooms INTEGER NOT NULL,
			objects INTEGER NOT NULL,
			units INTEGER NOT NULL,
			agents INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains pending writes and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped counts writes skipped because the indexer fell behind.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) WriteTick(entry colony.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.send(req{kind: reqTick, tick: entry})
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	s.send(req{kind: reqSnapshot, snapshot: snapshotRow{
		Tick:       snap.Header.Tick,
		SnapshotID: snap.Header.SnapshotID,
		Path:       path,
		Rooms:      len(snap.World.Rooms),
		Objects:    len(snap.World.Objects),
		Units:      len(snap.World.Units),
		Agents:     len(snap.Memory[string(memory.ScopeAgent)]),
	}})
}

func (s *SQLiteIndex) send(r req) {
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropped.Add(1)
	}
}

// UpsertTuning records the tuning in effect, keyed by its digest.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	rows := [][2]string{
		{"schema_version", "1"},
		{"tuning_digest", hex.EncodeToString(sum[:])},
		{"tuning_json", string(b)},
		{"tuning_updated_at", now},
	}
	for _, r := range rows {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, r[0], r[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FailuresOf lists the ticks at which worker failed, oldest first.
func (s *SQLiteIndex) FailuresOf(ctx context.Context, worker string) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tick FROM failures WHERE worker = ? ORDER BY tick`, worker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var tick int64
		if err := rows.Scan(&tick); err != nil {
			return nil, err
		}
		out = append(out, uint64(tick))
	}
	return out, rows.Err()
}

// LatestSnapshot returns the path of the newest indexed snapshot.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (string, uint64, error) {
	var (
		path string
		tick int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT path, tick FROM snapshots ORDER BY tick DESC LIMIT 1`).Scan(&path, &tick)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	return path, uint64(tick), err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,spawns,failures,reaped,raw_json) VALUES(?,?,?,?,?,?)`)
	insertSpawn, _ := s.db.Prepare(`INSERT OR REPLACE INTO spawns(tick,name,role,room,queue_index,request_id) VALUES(?,?,?,?,?,?)`)
	insertFailure, _ := s.db.Prepare(`INSERT OR REPLACE INTO failures(tick,worker,err) VALUES(?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,snapshot_id,path,rooms,objects,units,agents) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertSpawn, insertFailure, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			b, _ := json.Marshal(e)
			if !exec(insertTick, int64(e.Tick), e.Digest, len(e.Spawns), len(e.Failures), len(e.Reaped), string(b)) {
				continue
			}
			for _, sp := range e.Spawns {
				if !exec(insertSpawn, int64(e.Tick), sp.Name, sp.Role, sp.Room, sp.Index, sp.RequestID) {
					break
				}
			}
			for _, f := range e.Failures {
				if !exec(insertFailure, int64(e.Tick), f.Worker, f.Err) {
					break
				}
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Tick), sn.SnapshotID, sn.Path, sn.Rooms, sn.Objects, sn.Units, sn.Agents)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
