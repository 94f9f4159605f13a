// Package roles is the closed set of unit roles and their behaviors.
package roles

import (
	"fmt"

	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

type Role string

const (
	Harvester Role = "harvester"
	Collector Role = "collector"
	Miner     Role = "miner"
	Filler    Role = "filler"
	Upgrader  Role = "upgrader"
	Builder   Role = "builder"
	Repairer  Role = "repairer"
)

var All = []Role{Harvester, Collector, Miner, Filler, Upgrader, Builder, Repairer}

var (
	bodyHarvester = []world.Part{world.Work, world.Work, world.Carry, world.Move}
	bodyWorker    = []world.Part{world.Work, world.Carry, world.Move}
	bodyManager   = []world.Part{world.Carry, world.Carry, world.Move}
	bodyUpgrader  = []world.Part{world.Work, world.Carry, world.Carry, world.Move}
)

// Registry resolves role ids. The zero value is ready to use.
type Registry struct{}

var _ agent.Resolver = Registry{}

func (Registry) Resolve(role string, data memory.RoleData) (agent.Behavior, error) {
	switch Role(role) {
	case Harvester:
		return harvester(data), nil
	case Collector:
		return collector(data), nil
	case Miner:
		return miner(data), nil
	case Filler:
		return filler(data), nil
	case Upgrader:
		return upgrader(data), nil
	case Builder:
		return builder(data), nil
	case Repairer:
		return repairer(data), nil
	}
	return agent.Behavior{}, fmt.Errorf("%w: %q", agent.ErrUnknownRole, role)
}

// Known reports whether role is one of the registered roles.
func Known(role string) bool {
	for _, r := range All {
		if string(r) == role {
			return true
		}
	}
	return false
}
