package reserve

import (
	"errors"
	"testing"

	"github.com/Soulycoris/ts-screep/internal/sim/geo"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

func TestReserveOverwritesOwnClaim(t *testing.T) {
	room := &memory.Room{}
	r := For(room, nil)
	a := geo.Pos{X: 1, Y: 1, Room: "W1N1"}
	b := geo.Pos{X: 2, Y: 2, Room: "W1N1"}

	if err := r.Reserve("u1", a); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := r.Reserve("u1", b); err != nil {
		t.Fatalf("re-reserve: %v", err)
	}
	got := r.List()
	if len(got) != 1 || got["u1"] != b {
		t.Fatalf("List=%v", got)
	}
	if room.RestrictedPos["u1"] != "2/2/W1N1" {
		t.Fatalf("stored=%q", room.RestrictedPos["u1"])
	}
}

func TestReserveRejectsOtherHolder(t *testing.T) {
	r := For(&memory.Room{}, nil)
	p := geo.Pos{X: 5, Y: 5, Room: "W1N1"}
	if err := r.Reserve("u1", p); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := r.Reserve("u2", p); !errors.Is(err, ErrTaken) {
		t.Fatalf("expected ErrTaken, got %v", err)
	}
	if !r.Blocked(p, "u2") {
		t.Fatalf("cell should be blocked for u2")
	}
	if r.Blocked(p, "u1") {
		t.Fatalf("cell must stay passable for its own holder")
	}
}

func TestOrphansReclaimedLazily(t *testing.T) {
	room := &memory.Room{RestrictedPos: map[string]string{
		"dead":  "3/3/W1N1",
		"alive": "4/4/W1N1",
		"bad":   "garbage",
	}}
	r := For(room, func(name string) bool { return name != "dead" })

	p := geo.Pos{X: 3, Y: 3, Room: "W1N1"}
	if r.Blocked(p, "someone") {
		t.Fatalf("orphaned reservation must not block")
	}
	if _, ok := room.RestrictedPos["dead"]; ok {
		t.Fatalf("orphan should be removed on access")
	}
	got := r.List()
	if len(got) != 1 {
		t.Fatalf("List=%v", got)
	}
	if _, ok := room.RestrictedPos["bad"]; ok {
		t.Fatalf("unparsable entry should be dropped")
	}
	if err := r.Reserve("newcomer", p); err != nil {
		t.Fatalf("reserve freed cell: %v", err)
	}
}

func TestSweep(t *testing.T) {
	room := &memory.Room{RestrictedPos: map[string]string{"a": "1/1/W1N1", "b": "2/1/W1N1"}}
	r := For(room, func(name string) bool { return name == "a" })
	dropped := r.Sweep()
	if len(dropped) != 1 || dropped[0] != "b" {
		t.Fatalf("dropped=%v", dropped)
	}
	if r.Len() != 1 {
		t.Fatalf("Len=%d", r.Len())
	}
}

func TestStandAndVacateKeepStandedInSync(t *testing.T) {
	r := For(&memory.Room{}, nil)
	a := &memory.Agent{}
	p := geo.Pos{X: 9, Y: 9, Room: "W1N1"}
	if err := Stand(r, "u1", a, p); err != nil {
		t.Fatalf("stand: %v", err)
	}
	if !a.Standed || !r.Has("u1") {
		t.Fatalf("standed=%v has=%v", a.Standed, r.Has("u1"))
	}
	Vacate(r, "u1", a)
	if a.Standed || r.Has("u1") {
		t.Fatalf("after vacate standed=%v has=%v", a.Standed, r.Has("u1"))
	}
}
