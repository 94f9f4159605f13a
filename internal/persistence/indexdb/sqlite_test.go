package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
	"github.com/Soulycoris/ts-screep/internal/sim/colony"
	"github.com/Soulycoris/ts-screep/internal/sim/tuning"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

func TestSQLiteIndex_IndexesTicksAndSnapshots(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	entries := []colony.TickLogEntry{
		{Tick: 1, Digest: "a", Spawns: []colony.RecordedSpawn{{Name: "h1", Role: "harvester", Room: "W1N1", RequestID: "req-h1"}}},
		{Tick: 2, Digest: "b", Failures: []colony.Failure{{Worker: "b-boom", Err: "panic: boom"}}},
		{Tick: 3, Digest: "c", Failures: []colony.Failure{{Worker: "b-boom", Err: "panic: boom"}}, Reaped: []string{"h1"}},
	}
	for _, e := range entries {
		if err := idx.WriteTick(e); err != nil {
			t.Fatalf("write tick: %v", err)
		}
	}
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, ColonyID: "c1", SnapshotID: "s1", Tick: 4},
		World:  world.State{Rooms: map[string][][2]int{"W1N1": nil}},
		Memory: map[string]map[string][]byte{"agent": {"h1": nil, "h2": nil}},
	}
	idx.RecordSnapshot("/data/snapshots/000000000004.snap.zst", snap)
	if err := idx.UpsertTuning(tuning.Defaults()); err != nil {
		t.Fatalf("tuning: %v", err)
	}
	// Close drains the writer.
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	ticks, err := idx.FailuresOf(ctx, "b-boom")
	if err != nil || len(ticks) != 2 || ticks[0] != 2 || ticks[1] != 3 {
		t.Fatalf("failures=%v err=%v", ticks, err)
	}
	path, tick, err := idx.LatestSnapshot(ctx)
	if err != nil || tick != 4 || filepath.Base(path) != "000000000004.snap.zst" {
		t.Fatalf("latest=%s tick=%d err=%v", path, tick, err)
	}

	var agents, spawns int
	if err := idx.db.QueryRow(`SELECT agents FROM snapshots WHERE tick = 4`).Scan(&agents); err != nil || agents != 2 {
		t.Fatalf("agents=%d err=%v", agents, err)
	}
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM spawns`).Scan(&spawns); err != nil || spawns != 1 {
		t.Fatalf("spawns=%d err=%v", spawns, err)
	}
	var reqID string
	if err := idx.db.QueryRow(`SELECT request_id FROM spawns WHERE name = 'h1'`).Scan(&reqID); err != nil || reqID != "req-h1" {
		t.Fatalf("request_id=%q err=%v", reqID, err)
	}
	var digest string
	if err := idx.db.QueryRow(`SELECT value FROM meta WHERE key = 'tuning_digest'`).Scan(&digest); err != nil || len(digest) != 64 {
		t.Fatalf("tuning digest=%q err=%v", digest, err)
	}
}

func TestSQLiteIndex_EmptyLatestSnapshot(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	path, tick, err := idx.LatestSnapshot(context.Background())
	if err != nil || path != "" || tick != 0 {
		t.Fatalf("path=%q tick=%d err=%v", path, tick, err)
	}
}
