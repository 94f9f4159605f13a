package roles

import (
	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

// filler moves energy from a source container into spawns, extensions and towers.
func filler(data memory.RoleData) agent.Behavior {
	return agent.Behavior{
		IsNeed: func(r *agent.Room) bool {
			for _, c := range r.SourceContainers() {
				if c.ID == data.SourceID {
					return true
				}
			}
			return false
		},
		Source: func(u *agent.Unit) bool {
			if u.Energy() > 0 {
				return true
			}
			src := u.Object(data.SourceID)
			if src == nil || src.Store.Get(world.Energy) <= 0 {
				if s := u.Room.Storage(); s != nil && s.Store.Get(world.Energy) > 0 {
					src = s
				}
			}
			if src == nil {
				u.Say("💤")
				return false
			}
			u.GetEnergyFrom(src)
			return false
		},
		Target: func(u *agent.Unit) bool {
			if u.Energy() <= 0 {
				return true
			}
			if t := fillTarget(u); t != nil {
				u.TransferTo(t, world.Energy)
				return false
			}
			storage := u.Room.Storage()
			src := u.Object(data.SourceID)
			if storage != nil && src != nil && src.ID != storage.ID && src.Store.Get(world.Energy) > 0 {
				u.TransferTo(storage, world.Energy)
				return false
			}
			u.Say("💤")
			return false
		},
		Body: bodyManager,
	}
}

func fillTarget(u *agent.Unit) *world.Object {
	want := u.World().FindFunc(u.Room.Name, func(o *world.Object) bool {
		switch o.Kind {
		case world.KindSpawn, world.KindExtension, world.KindTower:
			return o.Store != nil && o.Store.Free(world.Energy) > 0
		}
		return false
	})
	return world.Closest(u.Body.Pos, want)
}

// upgrader feeds the controller from a container, storage or terminal.
func upgrader(data memory.RoleData) agent.Behavior {
	return agent.Behavior{
		Source: func(u *agent.Unit) bool {
			if u.Energy() > 0 {
				return true
			}
			src := u.Object(data.SourceID)
			if src == nil {
				u.Say("❓")
				return false
			}
			if src.Kind == world.KindContainer && src.Store.Get(world.Energy) <= u.Settings().ContainerFloor {
				u.Say("💤")
				return false
			}
			code := u.GetEnergyFrom(src)
			if (src.Kind == world.KindTerminal || src.Kind == world.KindStorage) &&
				(code == world.ErrNotEnoughResources || code == world.ErrInvalidTarget) {
				u.World().Suicide(u.Body)
			}
			return false
		},
		Target: func(u *agent.Unit) bool {
			return u.Upgrade() == world.ErrNotEnoughResources
		},
		Body: bodyUpgrader,
	}
}
