package agent

import (
	"fmt"
)

type Phase string

const (
	PhaseInert     Phase = "inert"
	PhaseSpawning  Phase = "spawning"
	PhasePreparing Phase = "preparing"
	PhaseSource    Phase = "source"
	PhaseTarget    Phase = "target"
)

// Result describes what one Step did.
type Result struct {
	Phase Phase
	// Transitioned is set when the phase reported completion and working flipped.
	Transitioned bool
}

// Machine runs the per-tick state machine of a unit. It keeps no state of its
// own: everything it reads and writes is the unit's memory record.
type Machine struct {
	Roles       Resolver
	LowLifetime int
}

func (m *Machine) lowLifetime() int {
	if m.LowLifetime <= 0 {
		return 3
	}
	return m.LowLifetime
}

// Step advances u by one tick. It returns an error wrapping ErrUnknownRole the
// first time a role fails to resolve; the unit is inert from then on.
func (m *Machine) Step(u *Unit) (Result, error) {
	if u.Mem.Inert {
		return Result{Phase: PhaseInert}, nil
	}
	b, err := m.Roles.Resolve(u.Mem.Role, u.Mem.Data)
	if err != nil {
		u.Mem.Inert = true
		u.Say("💀")
		return Result{Phase: PhaseInert}, fmt.Errorf("unit %s: %w", u.Name, err)
	}

	if u.Mem.UnitID == "" {
		u.Mem.UnitID = u.Body.ID
	}
	if u.Body.Spawning {
		return Result{Phase: PhaseSpawning}, nil
	}

	if u.Body.TicksToLive <= m.lowLifetime() && u.Mem.Standed {
		u.Vacate()
	}

	if !u.Mem.Ready {
		u.Mem.Ready = b.Prepare == nil || b.Prepare(u)
		if !u.Mem.Ready {
			return Result{Phase: PhasePreparing}, nil
		}
	}

	phase, run := PhaseTarget, b.Target
	if b.Source != nil && !u.Mem.Working {
		phase, run = PhaseSource, b.Source
	}
	res := Result{Phase: phase}
	if run == nil || !run(u) {
		return res, nil
	}

	u.Mem.Working = !u.Mem.Working
	if u.Mem.Standed || u.Room.Reserve.Has(u.Name) {
		u.Vacate()
	}
	res.Transitioned = true
	return res, nil
}
