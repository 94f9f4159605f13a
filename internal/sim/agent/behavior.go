// Package agent drives a single unit through its role each tick: it resolves
// the role's behavior, runs the prepare step once, then alternates between the
// source and target phases. Everything the machine needs between ticks lives
// in the unit's durable memory record.
package agent

import (
	"errors"

	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

var ErrUnknownRole = errors.New("agent: unknown role")

// Behavior is the callback set of one role. Every callback is optional.
//
// Prepare, Source and Target return true when their step is complete. They
// may be called any number of times before that and must be safe to repeat.
type Behavior struct {
	IsNeed  func(r *Room) bool
	Prepare func(u *Unit) bool
	Source  func(u *Unit) bool
	Target  func(u *Unit) bool
	Body    []world.Part
}

// Resolver maps a role id and its spawn-time data to a behavior.
// Unknown roles return an error wrapping ErrUnknownRole.
type Resolver interface {
	Resolve(role string, data memory.RoleData) (Behavior, error)
}

// WorkCapable is anything the driver runs once per tick: units and spawn structures.
type WorkCapable interface {
	WorkerName() string
	Work() error
}

// Settings are the numeric knobs behaviors and the machine read.
type Settings struct {
	// LowLifetime is the remaining lifetime at which a unit gives up its standing cell.
	LowLifetime int
	// ContainerFloor is the energy a container keeps before upgraders may withdraw.
	ContainerFloor int
	TerminalFloor  int
	StorageFloor   int
	// MinWallHits is the hit count new walls are steadied to.
	MinWallHits int
	PathOps     int
}

func DefaultSettings() Settings {
	return Settings{
		LowLifetime:    3,
		ContainerFloor: 500,
		TerminalFloor:  10000,
		StorageFloor:   100000,
		MinWallHits:    8000,
		PathOps:        2000,
	}
}
