package main

import (
	"context"
	"testing"

	"github.com/Soulycoris/ts-screep/internal/persistence/kvstore"
	persistlog "github.com/Soulycoris/ts-screep/internal/persistence/log"
	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/colony"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/roles"
	"github.com/Soulycoris/ts-screep/internal/sim/scenario"
)

const layout = `
rooms:
  - name: W1N1
    objects:
      - {ref: src, kind: source, at: [10, 10]}
      - {ref: home, kind: spawn, at: [14, 10], energy: 300}
      - {kind: controller, at: [30, 30]}
`

func TestVerifyReplaysTickLog(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sc, err := scenario.Parse([]byte(layout))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	w, refs, err := sc.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	c, err := colony.New(colony.Config{ID: "replay", Settings: agent.DefaultSettings()}, w, kvstore.NewMemory(), roles.Registry{}, nil)
	if err != nil {
		t.Fatalf("colony: %v", err)
	}

	exported, err := c.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := snapshot.WriteSnapshot(snapshot.Path(dir, exported.Header.Tick), exported); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	tickLog := persistlog.NewTickLogger(dir, persistlog.Options{RotateLayout: "2006"})
	c.SetTickLogger(tickLog)

	data := memory.RoleData{SourceID: refs["src"], TargetID: refs["home"]}
	if _, err := c.StepOnce(ctx, []colony.SpawnRequest{{Name: "c1", Role: "collector", Room: "W1N1", Data: data}}); err != nil {
		t.Fatalf("step: %v", err)
	}
	for i := 0; i < 20; i++ {
		if _, err := c.StepOnce(ctx, nil); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if err := tickLog.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	latest, err := snapshot.Latest(dir)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	snap, err := snapshot.ReadSnapshot(latest)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	res, err := verify(ctx, snap, dir, 0, 0)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Checked != 21 || res.Last != 20 {
		t.Fatalf("result=%+v", res)
	}

	res, err = verify(ctx, snap, dir, 5, 10)
	if err != nil || res.Checked != 6 || res.Last != 10 {
		t.Fatalf("bounded result=%+v err=%v", res, err)
	}
}
