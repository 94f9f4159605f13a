package roles

import (
	"maps"
	"slices"

	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

// harvester sits on a container next to its source and harvests forever.
// Surplus energy overflows into the container below.
func harvester(data memory.RoleData) agent.Behavior {
	return agent.Behavior{
		// Walk onto the source's container or container site. With neither,
		// the source phase builds one wherever the unit ends up harvesting.
		Prepare: func(u *agent.Unit) bool {
			target := u.Object(u.Mem.TargetID)
			src := u.Object(data.SourceID)
			if target == nil && src != nil {
				target = nearSource(u, src, func(o *world.Object) bool { return o.Kind == world.KindContainer })
			}
			if target == nil && src != nil {
				target = nearSource(u, src, func(o *world.Object) bool {
					return o.Kind == world.KindConstructionSite && o.StructureType == world.KindContainer
				})
			}
			if target == nil {
				u.Mem.TargetID = ""
				return src != nil
			}
			u.Mem.TargetID = target.ID
			if u.Body.Pos == target.Pos {
				return true
			}
			u.GoTo(target.Pos, 0)
			return false
		},
		// Keep a registered container under the unit, building it first when missing.
		Source: func(u *agent.Unit) bool {
			u.Say("🚧")
			src := u.Object(data.SourceID)
			if u.Energy() <= 0 && src != nil {
				u.GetEnergyFrom(src)
				return false
			}
			if src != nil && !u.Body.Pos.IsNear(src.Pos) {
				u.GoTo(src.Pos, 1)
				return false
			}

			if target := u.Object(u.Mem.TargetID); target != nil && target.Kind == world.KindContainer && target.Pos == u.Body.Pos {
				u.Room.RegisterContainer(target)
				u.World().Repair(u.Body, target)
				return target.Hits >= target.HitsMax
			}

			var site *world.Object
			if u.Mem.ConstructionSiteID == "" {
				u.World().CreateConstructionSite(u.Body.Pos, world.KindContainer)
			} else if o := u.Object(u.Mem.ConstructionSiteID); o != nil && o.Kind == world.KindConstructionSite {
				site = o
			}
			if site == nil {
				site = lookAt(u, func(o *world.Object) bool {
					return o.Kind == world.KindConstructionSite && o.StructureType == world.KindContainer
				})
			}
			if site == nil {
				u.Mem.ConstructionSiteID = ""
				if c := lookAt(u, func(o *world.Object) bool { return o.Kind == world.KindContainer }); c != nil {
					u.Room.RegisterContainer(c)
					u.Mem.TargetID = c.ID
					return true
				}
				return false
			}
			u.Mem.ConstructionSiteID = site.ID
			u.World().Build(u.Body, site)
			return false
		},
		Target: func(u *agent.Unit) bool {
			if src := u.Object(data.SourceID); src != nil {
				u.GetEnergyFrom(src)
			}
			if u.Body.TicksToLive < 2 {
				u.World().Drop(u.Body, world.Energy)
			}
			return false
		},
		Body: bodyHarvester,
	}
}

// collector harvests a source and carries the energy to a target structure.
func collector(data memory.RoleData) agent.Behavior {
	return agent.Behavior{
		Prepare: func(u *agent.Unit) bool {
			src := u.Object(data.SourceID)
			if src == nil {
				return false
			}
			if u.Body.Pos.IsNear(src.Pos) {
				return true
			}
			u.GoTo(src.Pos, 1)
			return false
		},
		Source: func(u *agent.Unit) bool {
			if u.FreeCapacity() == 0 {
				return true
			}
			src := u.Object(data.SourceID)
			if src == nil {
				u.Say("❓")
				return false
			}
			if u.World().Harvest(u.Body, src) == world.ErrNotInRange {
				u.GoTo(src.Pos, 1)
			}
			return u.Body.TicksToLive <= u.Settings().LowLifetime
		},
		Target: func(u *agent.Unit) bool {
			target := u.Object(data.TargetID)
			if target == nil {
				u.Say("❓")
				u.World().Suicide(u.Body)
				return false
			}
			u.Transfer(target, world.Energy)
			return u.Used() == 0
		},
		Body: bodyWorker,
	}
}

// miner harvests the room mineral and delivers it to the terminal.
func miner(data memory.RoleData) agent.Behavior {
	return agent.Behavior{
		IsNeed: func(r *agent.Room) bool {
			m := r.Mineral()
			return m != nil && m.Store.Get(m.MineralType) > 0 && r.Terminal() != nil
		},
		Prepare: func(u *agent.Unit) bool {
			m := u.Room.Mineral()
			if m == nil {
				return false
			}
			if u.Body.Pos.IsNear(m.Pos) {
				return true
			}
			u.GoTo(m.Pos, 1)
			return false
		},
		Source: func(u *agent.Unit) bool {
			m := u.Room.Mineral()
			if m == nil || u.Body.Store.Free(m.MineralType) == 0 {
				return true
			}
			switch u.World().Harvest(u.Body, m) {
			case world.OK:
				if !u.Mem.Standed {
					u.Stand()
				}
			case world.ErrNotInRange:
				u.GoTo(m.Pos, 1)
			case world.ErrNotEnoughResources:
				return u.Used() > 0
			}
			return u.Body.TicksToLive <= u.Settings().LowLifetime
		},
		Target: func(u *agent.Unit) bool {
			target := u.Object(data.TargetID)
			if target == nil {
				target = u.Room.Terminal()
			}
			if target == nil {
				return false
			}
			if held := slices.Sorted(maps.Keys(u.Body.Store.Res)); len(held) > 0 {
				u.TransferTo(target, held[0])
			}
			return u.Used() == 0
		},
		Body: bodyWorker,
	}
}

func nearSource(u *agent.Unit, src *world.Object, keep func(*world.Object) bool) *world.Object {
	for _, o := range u.World().FindFunc(src.Pos.Room, keep) {
		if o.Pos.IsNear(src.Pos) {
			return o
		}
	}
	return nil
}

func lookAt(u *agent.Unit, keep func(*world.Object) bool) *world.Object {
	for _, o := range u.World().LookAt(u.Body.Pos) {
		if keep(o) {
			return o
		}
	}
	return nil
}
