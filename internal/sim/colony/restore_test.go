package colony

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Soulycoris/ts-screep/internal/persistence/kvstore"
	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

func TestRestoreResumesFromSnapshot(t *testing.T) {
	c, _, refs := newTestColony(t, Config{ID: "test"})
	step(t, c, SpawnRequest{Name: "c1", Role: "collector", Room: "W1N1", Data: memory.RoleData{SourceID: refs["src"], TargetID: refs["home"]}})
	for i := 0; i < 5; i++ {
		step(t, c)
	}
	snap, err := c.ExportSnapshot(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	path := snapshot.Path(t.TempDir(), snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A stale key the snapshot never saw must not survive the restore.
	fresh := kvstore.NewMemory()
	stale := []memory.Write{{Scope: memory.ScopeAgent, Key: "stale", Payload: []byte(`{"role":"collector"}`)}}
	if err := fresh.Commit(context.Background(), stale); err != nil {
		t.Fatalf("commit: %v", err)
	}
	read, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read %s: %v", filepath.Base(path), err)
	}
	w, err := Restore(context.Background(), read, fresh)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	agents, _ := fresh.Load(context.Background(), memory.ScopeAgent)
	if _, ok := agents["stale"]; ok {
		t.Fatalf("stale key kept")
	}
	if _, ok := agents["c1"]; !ok {
		t.Fatalf("c1 memory missing after restore")
	}

	resumed, err := New(Config{ID: "test", Settings: agent.DefaultSettings()}, w, fresh, boomRoles{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if resumed.CurrentTick() != snap.Header.Tick {
		t.Fatalf("tick=%d want %d", resumed.CurrentTick(), snap.Header.Tick)
	}
	sum := step(t, resumed)
	if len(sum.Failures) != 0 || sum.Agents != 1 {
		t.Fatalf("resumed tick=%+v", sum)
	}
	if resumed.World().Unit("c1") == nil || resumed.CurrentTick() != snap.Header.Tick+1 {
		t.Fatalf("c1 lost or tick not advanced after resume")
	}
}
