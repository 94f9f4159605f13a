package agent

import (
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/reserve"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

// Unit is the handle behaviors act through: the unit's memory record, its
// body in the world and the room it works in.
type Unit struct {
	Name string
	Mem  *memory.Agent
	Body *world.Unit
	Room *Room

	// Last is the result of the most recent Work call.
	Last Result

	env *Env
}

var _ WorkCapable = (*Unit)(nil)

func (u *Unit) WorkerName() string { return u.Name }

func (u *Unit) Work() error {
	res, err := u.env.Machine.Step(u)
	u.Last = res
	return err
}

func (u *Unit) World() *world.World { return u.env.World }

func (u *Unit) Settings() Settings { return u.env.Settings }

// Object resolves id, returning nil when it no longer exists.
func (u *Unit) Object(id string) *world.Object { return u.env.World.Object(id) }

func (u *Unit) Say(text string) { u.env.World.Say(u.Body, text) }

func (u *Unit) Energy() int { return u.Body.Store.Get(world.Energy) }

func (u *Unit) FreeCapacity() int { return u.Body.Store.Free(world.Energy) }

func (u *Unit) Used() int { return u.Body.Store.Used() }

// Stand claims the unit's current cell and marks it standed.
func (u *Unit) Stand() {
	if err := reserve.Stand(u.Room.Reserve, u.Name, u.Mem, u.Body.Pos); err != nil {
		u.env.logf("stand %s: %v", u.Name, err)
	}
}

// Vacate releases the unit's standing cell, if any.
func (u *Unit) Vacate() { reserve.Vacate(u.Room.Reserve, u.Name, u.Mem) }
