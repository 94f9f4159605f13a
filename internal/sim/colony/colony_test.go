package colony

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Soulycoris/ts-screep/internal/persistence/kvstore"
	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/geo"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/roles"
	"github.com/Soulycoris/ts-screep/internal/sim/scenario"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

const layout = `
rooms:
  - name: W1N1
    objects:
      - {ref: src, kind: source, at: [10, 10]}
      - {ref: home, kind: spawn, at: [14, 10], energy: 300}
      - {kind: controller, at: [30, 30]}
`

// boomRoles adds a role whose target phase panics.
type boomRoles struct{ roles.Registry }

func (b boomRoles) Resolve(role string, data memory.RoleData) (agent.Behavior, error) {
	if role == "boom" {
		return agent.Behavior{Target: func(*agent.Unit) bool { panic("boom") }}, nil
	}
	return b.Registry.Resolve(role, data)
}

type recordingLogger struct{ entries []TickLogEntry }

func (r *recordingLogger) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

type recordingObserver struct{ ticks []uint64 }

func (r *recordingObserver) ObserveTick(s Summary) { r.ticks = append(r.ticks, s.Tick) }

func newTestColony(t *testing.T, cfg Config) (*Colony, *kvstore.Memory, map[string]string) {
	t.Helper()
	s, err := scenario.Parse([]byte(layout))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	w, refs, err := s.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	store := kvstore.NewMemory()
	if cfg.Settings == (agent.Settings{}) {
		cfg.Settings = agent.DefaultSettings()
	}
	c, err := New(cfg, w, store, boomRoles{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c, store, refs
}

func step(t *testing.T, c *Colony, reqs ...SpawnRequest) Summary {
	t.Helper()
	sum, err := c.StepOnce(context.Background(), reqs)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	return sum
}

func TestSpawnRequestBecomesUnitAndPersists(t *testing.T) {
	c, store, refs := newTestColony(t, Config{ID: "test"})
	resp := make(chan SpawnResult, 1)
	step(t, c, SpawnRequest{Name: "c1", Role: "collector", Room: "W1N1", Data: memory.RoleData{SourceID: refs["src"], TargetID: refs["home"]}, Resp: resp})

	res := <-resp
	if res.Err != nil || res.Index != 0 || res.RequestID == "" {
		t.Fatalf("spawn result=%+v", res)
	}
	if c.World().Unit("c1") == nil {
		t.Fatalf("unit not spawned")
	}
	agents, err := store.Load(context.Background(), memory.ScopeAgent)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(string(agents["c1"]), `"role":"collector"`) {
		t.Fatalf("agent memory not flushed: %q", agents["c1"])
	}

	// Grow, walk to the source and start harvesting.
	var sum Summary
	for i := 0; i < 20; i++ {
		sum = step(t, c)
	}
	if len(sum.Failures) != 0 {
		t.Fatalf("failures=%+v", sum.Failures)
	}
	u := c.World().Unit("c1")
	if u.Spawning || !u.Pos.IsNear(c.World().Object(refs["src"]).Pos) {
		t.Fatalf("collector not at source: %+v", u.Pos)
	}
	if u.Store.Get(world.Energy) == 0 {
		t.Fatalf("collector has not harvested")
	}
}

// flakyStore fails the next fail commits.
type flakyStore struct {
	*kvstore.Memory
	fail int
}

func (f *flakyStore) Commit(ctx context.Context, writes []memory.Write) error {
	if f.fail > 0 {
		f.fail--
		return errors.New("store down")
	}
	return f.Memory.Commit(ctx, writes)
}

func TestFailedFlushIsRetriedBeforeNextTick(t *testing.T) {
	s, err := scenario.Parse([]byte(layout))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	w, refs, err := s.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	store := &flakyStore{Memory: kvstore.NewMemory(), fail: 2}
	c, err := New(Config{ID: "test", Settings: agent.DefaultSettings()}, w, store, boomRoles{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	sum := step(t, c, SpawnRequest{Name: "c1", Role: "collector", Room: "W1N1", Data: memory.RoleData{SourceID: refs["src"], TargetID: refs["home"]}})
	if len(sum.Failures) != 1 || sum.Failures[0].Worker != "memory" {
		t.Fatalf("failures=%+v", sum.Failures)
	}
	agents, _ := store.Load(ctx, memory.ScopeAgent)
	if _, ok := agents["c1"]; ok {
		t.Fatalf("c1 persisted through a failed commit")
	}
	tick := c.World().Tick()

	// Still down: the tick must not run on top of unsaved memory.
	if _, err := c.StepOnce(ctx, nil); err == nil {
		t.Fatalf("step ran with unflushed memory")
	}
	if c.World().Tick() != tick {
		t.Fatalf("tick advanced to %d, want %d", c.World().Tick(), tick)
	}
	snap, err := c.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, ok := snap.Memory[string(memory.ScopeAgent)]["c1"]; !ok {
		t.Fatalf("snapshot lost unflushed memory: %+v", snap.Memory)
	}

	sum = step(t, c)
	if len(sum.Failures) != 0 {
		t.Fatalf("failures after recovery=%+v", sum.Failures)
	}
	agents, _ = store.Load(ctx, memory.ScopeAgent)
	if !strings.Contains(string(agents["c1"]), `"role":"collector"`) {
		t.Fatalf("c1 not persisted after retry: %q", agents["c1"])
	}
}

func TestFailingAgentsDoNotStopTheTick(t *testing.T) {
	c, store, refs := newTestColony(t, Config{})
	w := c.World()
	body := []world.Part{world.Work, world.Carry, world.Move}
	for _, name := range []string{"a-ghost", "b-boom", "c-ok"} {
		if _, err := w.AddUnit(name, body, geo.Pos{X: 20, Y: 20 + len(name), Room: "W1N1"}); err != nil {
			t.Fatalf("add unit: %v", err)
		}
	}
	writes := []memory.Write{
		{Scope: memory.ScopeAgent, Key: "a-ghost", Payload: []byte(`{"role":"ghost","room":"W1N1"}`)},
		{Scope: memory.ScopeAgent, Key: "b-boom", Payload: []byte(`{"role":"boom","room":"W1N1"}`)},
		{Scope: memory.ScopeAgent, Key: "c-ok", Payload: []byte(`{"role":"collector","room":"W1N1","data":{"sourceId":"` + refs["src"] + `"}}`)},
	}
	if err := store.Commit(context.Background(), writes); err != nil {
		t.Fatalf("commit: %v", err)
	}

	sum := step(t, c)
	if len(sum.Failures) != 2 {
		t.Fatalf("failures=%+v", sum.Failures)
	}
	if sum.Phases["preparing"] != 1 {
		t.Fatalf("healthy agent did not step: %+v", sum.Phases)
	}

	sum = step(t, c)
	if len(sum.Failures) != 1 || sum.Failures[0].Worker != "b-boom" {
		t.Fatalf("second tick failures=%+v", sum.Failures)
	}
	if sum.Phases["inert"] != 1 {
		t.Fatalf("unknown role should be inert: %+v", sum.Phases)
	}
}

func TestDeadUnitIsReapedAndRespawned(t *testing.T) {
	c, store, refs := newTestColony(t, Config{})
	data := memory.RoleData{SourceID: refs["src"], TargetID: "missing"}
	step(t, c, SpawnRequest{Name: "c1", Role: "collector", Room: "W1N1", Data: data})

	// Suicide on the first target phase, then the respawn is queued.
	u := c.World().Unit("c1")
	u.Spawning = false
	u.Store.Add(world.Energy, u.Store.Capacity)
	var reaped bool
	for i := 0; i < 30 && !reaped; i++ {
		sum := step(t, c)
		for _, name := range sum.Reaped {
			reaped = reaped || name == "c1"
		}
	}
	if !reaped {
		t.Fatalf("c1 never reaped")
	}
	rooms, err := store.Load(context.Background(), memory.ScopeRoom)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(string(rooms["W1N1"]), `"spawnList":["c1"]`) && c.World().Unit("c1") == nil {
		t.Fatalf("respawn not queued: %s", rooms["W1N1"])
	}
}

func TestLoggerObserverAndSnapshotCadence(t *testing.T) {
	c, _, _ := newTestColony(t, Config{ID: "test", SnapshotEveryTicks: 2})
	logger := &recordingLogger{}
	obs := &recordingObserver{}
	snaps := make(chan snapshot.SnapshotV1, 4)
	c.SetTickLogger(logger)
	c.AddObserver(obs)
	c.SetSnapshotSink(snaps)

	for i := 0; i < 5; i++ {
		step(t, c)
	}
	if len(logger.entries) != 5 || logger.entries[4].Tick != 4 || logger.entries[0].Digest == "" {
		t.Fatalf("tick log=%+v", logger.entries)
	}
	if len(obs.ticks) != 5 {
		t.Fatalf("observer ticks=%v", obs.ticks)
	}
	if len(snaps) != 2 {
		t.Fatalf("snapshots=%d, want after ticks 2 and 4", len(snaps))
	}
	snap := <-snaps
	if snap.Header.Tick != 3 || snap.Header.ColonyID != "test" || snap.Header.SnapshotID == "" {
		t.Fatalf("header=%+v", snap.Header)
	}
	if c.CurrentTick() != 5 {
		t.Fatalf("tick=%d", c.CurrentTick())
	}
}

func TestDigestIsDeterministic(t *testing.T) {
	run := func() []string {
		c, _, refs := newTestColony(t, Config{})
		var digests []string
		req := SpawnRequest{Name: "c1", Role: "collector", Room: "W1N1", Data: memory.RoleData{SourceID: refs["src"], TargetID: refs["home"]}}
		digests = append(digests, step(t, c, req).Digest)
		for i := 0; i < 15; i++ {
			digests = append(digests, step(t, c).Digest)
		}
		return digests
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d digest differs", i)
		}
	}
}
