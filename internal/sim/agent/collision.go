package agent

import (
	"github.com/Soulycoris/ts-screep/internal/sim/geo"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

type CrossResult int

const (
	CrossAccepted CrossResult = iota
	// CrossRefused means the unit in the way is standing on its reserved cell.
	CrossRefused
	// CrossNoTarget means nobody is in the way.
	CrossNoTarget
)

func (r CrossResult) String() string {
	switch r {
	case CrossAccepted:
		return "accepted"
	case CrossRefused:
		return "refused"
	case CrossNoTarget:
		return "no_target"
	}
	return "unknown"
}

// MutualCross asks the unit in dir to trade places. On acceptance both moves
// are recorded and resolve together at the end of the tick.
func (u *Unit) MutualCross(dir geo.Direction) CrossResult {
	w := u.env.World
	other := w.UnitAt(u.Body.Pos.Step(dir))
	if other == nil || other.Name == u.Name {
		return CrossNoTarget
	}
	w.Say(u.Body, "👉")
	if !RequireCross(w, u.env.Mem.Agent(other.Name), other, dir.Opposite()) {
		return CrossRefused
	}
	w.Move(u.Body, dir)
	return CrossAccepted
}

// RequireCross is the blocker's side of a cross: it steps in dir unless it
// holds a reservation. A blocker without memory always accepts. An accepted
// cross replaces any move the blocker already recorded this tick.
func RequireCross(w *world.World, mem *memory.Agent, other *world.Unit, dir geo.Direction) bool {
	if mem == nil {
		w.Move(other, dir)
		return true
	}
	if mem.Standed {
		w.Say(other, "👊")
		return false
	}
	if w.Move(other, dir) != world.OK {
		return false
	}
	w.Say(other, "👌")
	return true
}
