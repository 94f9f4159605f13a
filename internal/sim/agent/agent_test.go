package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Soulycoris/ts-screep/internal/persistence/kvstore"
	"github.com/Soulycoris/ts-screep/internal/sim/geo"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

const roomName = "W1N1"

func at(x, y int) geo.Pos { return geo.Pos{X: x, Y: y, Room: roomName} }

type stubRoles map[string]Behavior

func (s stubRoles) Resolve(role string, _ memory.RoleData) (Behavior, error) {
	b, ok := s[role]
	if !ok {
		return Behavior{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return b, nil
}

func newTestEnv(t *testing.T, roles stubRoles) *Env {
	t.Helper()
	w := world.New()
	w.AddRoom(roomName, nil)
	s, err := memory.Begin(context.Background(), kvstore.NewMemory())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return NewEnv(w, s, &Machine{Roles: roles}, DefaultSettings(), nil)
}

func addUnit(t *testing.T, e *Env, name, role string, pos geo.Pos) *Unit {
	t.Helper()
	if _, err := e.World.AddUnit(name, []world.Part{world.Work, world.Carry, world.Move}, pos); err != nil {
		t.Fatalf("add unit: %v", err)
	}
	e.Mem.PutAgent(name, &memory.Agent{Role: role, Room: roomName})
	u := e.Unit(name)
	if u == nil {
		t.Fatalf("unit %s not resolvable", name)
	}
	return u
}

// standedMatchesRegistry checks the two-way link between the standed flag and the reservation.
func standedMatchesRegistry(t *testing.T, u *Unit) {
	t.Helper()
	if u.Mem.Standed != u.Room.Reserve.Has(u.Name) {
		t.Fatalf("%s standed=%v reservation=%v", u.Name, u.Mem.Standed, u.Room.Reserve.Has(u.Name))
	}
}

func TestStepUnknownRoleGoesInert(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	u := addUnit(t, e, "x", "ghost", at(5, 5))

	_, err := u.env.Machine.Step(u)
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if !u.Mem.Inert {
		t.Fatalf("unit not marked inert")
	}
	res, err := u.env.Machine.Step(u)
	if err != nil || res.Phase != PhaseInert {
		t.Fatalf("second step res=%+v err=%v", res, err)
	}
}

func TestStepSpawningBindsIdentityOnly(t *testing.T) {
	calls := 0
	e := newTestEnv(t, stubRoles{"r": {Prepare: func(*Unit) bool { calls++; return true }}})
	u := addUnit(t, e, "s", "r", at(5, 5))
	u.Body.Spawning = true

	res, err := e.Machine.Step(u)
	if err != nil || res.Phase != PhaseSpawning {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if u.Mem.UnitID != u.Body.ID {
		t.Fatalf("identity not bound: %q", u.Mem.UnitID)
	}
	if calls != 0 || u.Mem.Ready {
		t.Fatalf("prepare ran while spawning")
	}
}

func TestPrepareRetriedUntilReady(t *testing.T) {
	attempts := 0
	sourceRan := false
	e := newTestEnv(t, stubRoles{"r": {
		Prepare: func(*Unit) bool { attempts++; return attempts >= 2 },
		Source:  func(*Unit) bool { sourceRan = true; return false },
		Target:  func(*Unit) bool { return false },
	}})
	u := addUnit(t, e, "p", "r", at(5, 5))

	if res, _ := e.Machine.Step(u); res.Phase != PhasePreparing || u.Mem.Ready {
		t.Fatalf("first step res=%+v ready=%v", res, u.Mem.Ready)
	}
	if sourceRan {
		t.Fatalf("source ran before ready")
	}
	res, _ := e.Machine.Step(u)
	if !u.Mem.Ready || res.Phase != PhaseSource || !sourceRan {
		t.Fatalf("second step res=%+v ready=%v source=%v", res, u.Mem.Ready, sourceRan)
	}
	e.Machine.Step(u)
	if attempts != 2 {
		t.Fatalf("prepare ran after ready: %d", attempts)
	}
}

func TestPhaseTransitionFlipsWorkingAndVacates(t *testing.T) {
	e := newTestEnv(t, stubRoles{"r": {
		Source: func(u *Unit) bool { u.Stand(); return true },
		Target: func(u *Unit) bool { return true },
	}})
	u := addUnit(t, e, "w", "r", at(5, 5))

	for i, wantWorking := range []bool{true, false, true} {
		res, err := e.Machine.Step(u)
		if err != nil || !res.Transitioned {
			t.Fatalf("step %d res=%+v err=%v", i, res, err)
		}
		if u.Mem.Working != wantWorking {
			t.Fatalf("step %d working=%v", i, u.Mem.Working)
		}
		if u.Mem.Standed {
			t.Fatalf("step %d still standed after transition", i)
		}
		standedMatchesRegistry(t, u)
	}
}

func TestTargetOnlyRoleAlwaysRunsTarget(t *testing.T) {
	targets := 0
	e := newTestEnv(t, stubRoles{"r": {Target: func(*Unit) bool { targets++; return targets == 1 }}})
	u := addUnit(t, e, "t", "r", at(5, 5))
	for i := 0; i < 3; i++ {
		if res, _ := e.Machine.Step(u); res.Phase != PhaseTarget {
			t.Fatalf("step %d phase=%s", i, res.Phase)
		}
	}
	if targets != 3 {
		t.Fatalf("targets=%d", targets)
	}
}

func TestLowLifetimeReleasesReservation(t *testing.T) {
	e := newTestEnv(t, stubRoles{"r": {Target: func(*Unit) bool { return false }}})
	u := addUnit(t, e, "old", "r", at(5, 5))
	u.Stand()
	u.Body.TicksToLive = 3

	e.Machine.Step(u)
	if u.Mem.Standed || u.Room.Reserve.Has("old") {
		t.Fatalf("reservation kept at low lifetime")
	}
}

func TestMutualCrossAcceptedSwaps(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	a := addUnit(t, e, "a", "r", at(5, 5))
	b := addUnit(t, e, "b", "r", at(6, 5))

	if res := a.MutualCross(geo.Right); res != CrossAccepted {
		t.Fatalf("res=%s", res)
	}
	e.World.EndTick()
	if a.Body.Pos != at(6, 5) || b.Body.Pos != at(5, 5) {
		t.Fatalf("a=%v b=%v", a.Body.Pos, b.Body.Pos)
	}
}

func TestMutualCrossOverridesBlockerMove(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	e.World.Room(roomName).Walls[[2]int{6, 4}] = true
	a := addUnit(t, e, "a", "r", at(5, 5))
	b := addUnit(t, e, "b", "r", at(6, 5))
	if code := e.World.Move(b.Body, geo.Top); code != world.OK {
		t.Fatalf("blocker move: %s", code)
	}

	if res := a.MutualCross(geo.Right); res != CrossAccepted {
		t.Fatalf("res=%s", res)
	}
	if d, ok := e.World.Intent("b"); !ok || d != geo.Left {
		t.Fatalf("blocker intent=%d ok=%v, want left", d, ok)
	}
	e.World.EndTick()
	if a.Body.Pos != at(6, 5) || b.Body.Pos != at(5, 5) {
		t.Fatalf("a=%v b=%v", a.Body.Pos, b.Body.Pos)
	}
}

func TestMutualCrossRefusedByStandedBlocker(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	a := addUnit(t, e, "a", "r", at(5, 5))
	b := addUnit(t, e, "b", "r", at(6, 5))
	b.Stand()

	if res := a.MutualCross(geo.Right); res != CrossRefused {
		t.Fatalf("res=%s", res)
	}
	e.World.EndTick()
	if a.Body.Pos != at(5, 5) || b.Body.Pos != at(6, 5) {
		t.Fatalf("positions changed: a=%v b=%v", a.Body.Pos, b.Body.Pos)
	}
	standedMatchesRegistry(t, b)
}

func TestMutualCrossNoTargetAndMemorylessBlocker(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	a := addUnit(t, e, "a", "r", at(5, 5))
	if res := a.MutualCross(geo.Top); res != CrossNoTarget {
		t.Fatalf("res=%s", res)
	}
	ghost, err := e.World.AddUnit("ghost", []world.Part{world.Move}, at(5, 6))
	if err != nil {
		t.Fatalf("add ghost: %v", err)
	}
	if res := a.MutualCross(geo.Bottom); res != CrossAccepted {
		t.Fatalf("memoryless blocker res=%s", res)
	}
	e.World.EndTick()
	if ghost.Pos != at(5, 5) {
		t.Fatalf("ghost=%v", ghost.Pos)
	}
}

func TestMoveExRefusalDropsCachedPath(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	a := addUnit(t, e, "a", "r", at(5, 5))
	b := addUnit(t, e, "b", "r", at(6, 5))
	b.Stand()
	a.Mem.Move = &memory.MoveCache{Dest: "9/5/W1N1", Pos: "5/5/W1N1", Path: "3333"}

	if code := a.MoveEx(geo.Right); code != world.ErrInvalidTarget {
		t.Fatalf("code=%s", code)
	}
	if a.Mem.Move != nil {
		t.Fatalf("cached path kept after refusal")
	}
}

func TestMoveExStuckTwiceDropsCachedPath(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	e.World.Room(roomName).Walls[[2]int{6, 5}] = true
	a := addUnit(t, e, "a", "r", at(5, 5))
	a.Mem.Move = &memory.MoveCache{Dest: "9/5/W1N1", Pos: "5/5/W1N1", Path: "3333"}

	if code := a.MoveEx(geo.Right); code != world.OK {
		t.Fatalf("first move: %s", code)
	}
	e.World.EndTick()
	if a.Body.Pos != at(5, 5) {
		t.Fatalf("walked into a wall: %v", a.Body.Pos)
	}
	if a.Mem.Move == nil {
		t.Fatalf("cached path dropped after one blocked tick")
	}
	if code := a.MoveEx(geo.Right); code != world.ErrInvalidTarget {
		t.Fatalf("second move: %s", code)
	}
	if a.Mem.Move != nil {
		t.Fatalf("cached path kept after two ticks without moving: %+v", a.Mem.Move)
	}
}

func TestGoToAvoidsReservedCellAndCachesPath(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	a := addUnit(t, e, "a", "r", at(5, 5))
	addUnit(t, e, "c", "r", at(6, 5)).Stand()

	if code := a.GoTo(at(8, 5), 0); code != world.OK {
		t.Fatalf("goto: %s", code)
	}
	d, ok := e.World.Intent("a")
	if !ok || a.Body.Pos.Step(d) == at(6, 5) {
		t.Fatalf("first step enters reserved cell (dir=%d ok=%v)", d, ok)
	}
	if a.Mem.Move == nil || a.Mem.Move.Dest != "8/5/W1N1" {
		t.Fatalf("path not cached: %+v", a.Mem.Move)
	}
	e.World.EndTick()
	for i := 0; i < 5 && a.Body.Pos != at(8, 5); i++ {
		a.GoTo(at(8, 5), 0)
		e.World.EndTick()
	}
	if a.Body.Pos != at(8, 5) {
		t.Fatalf("did not arrive: %v", a.Body.Pos)
	}
	if code := a.GoTo(at(8, 5), 0); code != world.OK || a.Mem.Move != nil {
		t.Fatalf("arrived code=%s move=%+v", code, a.Mem.Move)
	}
}

func TestRoomSourcesSelfHeal(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	s1 := e.World.AddObject(world.KindSource, at(10, 10))
	r := e.Room(roomName)
	if got := r.Sources(); len(got) != 1 || r.Mem.SourceIDs[0] != s1.ID {
		t.Fatalf("sources=%v ids=%v", got, r.Mem.SourceIDs)
	}
	e.World.RemoveObject(s1.ID)
	s2 := e.World.AddObject(world.KindSource, at(20, 20))
	if got := r.Sources(); len(got) != 1 || got[0].ID != s2.ID {
		t.Fatalf("stale cache not healed: %v", r.Mem.SourceIDs)
	}

	c := e.World.AddObject(world.KindContainer, at(11, 11))
	r.RegisterContainer(c)
	r.RegisterContainer(c)
	if len(r.Mem.SourceContainerIDs) != 1 {
		t.Fatalf("container registered twice")
	}
	e.World.RemoveObject(c.ID)
	if len(r.SourceContainers()) != 0 || len(r.Mem.SourceContainerIDs) != 0 {
		t.Fatalf("dead container kept")
	}
}

func TestAvailableSourcePreference(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	r := e.Room(roomName)
	src := e.World.AddObject(world.KindSource, at(10, 10))
	if got := r.AvailableSource(); got != src {
		t.Fatalf("want source, got %+v", got)
	}
	c1 := e.World.AddObject(world.KindContainer, at(11, 11))
	c2 := e.World.AddObject(world.KindContainer, at(9, 9))
	c1.Store.Add(world.Energy, 100)
	c2.Store.Add(world.Energy, 900)
	r.RegisterContainer(c1)
	r.RegisterContainer(c2)
	if got := r.AvailableSource(); got != c2 {
		t.Fatalf("want fullest container, got %+v", got)
	}
	st := e.World.AddObject(world.KindStorage, at(25, 25))
	st.Store.Add(world.Energy, 100001)
	if got := r.AvailableSource(); got != st {
		t.Fatalf("want storage, got %+v", got)
	}
	term := e.World.AddObject(world.KindTerminal, at(26, 26))
	term.Store.Add(world.Energy, 10001)
	if got := r.AvailableSource(); got != term {
		t.Fatalf("want terminal, got %+v", got)
	}
}

func TestBuildStructureRegistersSourceContainer(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	src := e.World.AddObject(world.KindSource, at(10, 10))
	id, code := e.World.CreateConstructionSite(at(10, 11), world.KindContainer)
	if code != world.OK {
		t.Fatalf("site: %s", code)
	}
	u := addUnit(t, e, "b", "builder", at(10, 12))
	site := e.World.Object(id)
	site.Progress = site.ProgressTotal - 5
	u.Body.Store.Add(world.Energy, 50)

	if code := u.BuildStructure(); code != world.OK {
		t.Fatalf("build: %s", code)
	}
	if u.Room.Mem.ConstructionSiteID != id {
		t.Fatalf("build target not cached")
	}
	if code := u.BuildStructure(); code != world.ErrNotFound {
		t.Fatalf("after completion: %s", code)
	}
	got := u.Room.SourceContainers()
	if len(got) != 1 || got[0].ID != id || !got[0].Pos.IsNear(src.Pos) {
		t.Fatalf("container not registered: %v", u.Room.Mem.SourceContainerIDs)
	}
	if u.Room.Mem.ConstructionSiteID != "" {
		t.Fatalf("room build target not cleared")
	}
}

func TestUpgradeStandsInRange(t *testing.T) {
	e := newTestEnv(t, stubRoles{})
	e.World.AddObject(world.KindController, at(20, 20))
	u := addUnit(t, e, "up", "upgrader", at(18, 18))
	u.Body.Store.Add(world.Energy, 10)

	if code := u.Upgrade(); code != world.OK {
		t.Fatalf("upgrade: %s", code)
	}
	if !u.Mem.Standed {
		t.Fatalf("upgrader should stand while upgrading")
	}
	standedMatchesRegistry(t, u)
}
