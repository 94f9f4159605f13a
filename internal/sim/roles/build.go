package roles

import (
	"math"

	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

// builder works through the room's construction sites and upgrades the
// controller once none are left.
func builder(data memory.RoleData) agent.Behavior {
	return agent.Behavior{
		IsNeed: func(r *agent.Room) bool {
			return len(r.World.Find(r.Name, world.KindConstructionSite)) > 0
		},
		Prepare: func(u *agent.Unit) bool {
			u.Mem.SourceID = data.SourceID
			return true
		},
		Source: fetchEnergy,
		Target: func(u *agent.Unit) bool {
			if u.Mem.FillWallID != "" {
				u.SteadyWall()
			} else if u.BuildStructure() == world.ErrNotFound {
				u.Upgrade()
			}
			return u.Used() == 0
		},
		Body: bodyWorker,
	}
}

// repairer keeps walls and ramparts above the minimum hits.
func repairer(data memory.RoleData) agent.Behavior {
	return agent.Behavior{
		IsNeed: func(r *agent.Room) bool {
			return len(weakWalls(r.World, r.Name, r.Settings().MinWallHits)) > 0
		},
		Prepare: func(u *agent.Unit) bool {
			u.Mem.SourceID = data.SourceID
			return true
		},
		Source: fetchEnergy,
		Target: func(u *agent.Unit) bool {
			if u.Used() == 0 {
				return true
			}
			target := u.Object(u.Mem.TargetID)
			if target == nil || target.Hits >= target.HitsMax {
				target = weakest(weakWalls(u.World(), u.Room.Name, repairCeiling(u)))
				if target == nil {
					u.Mem.TargetID = ""
					u.Say("💤")
					return false
				}
				u.Mem.TargetID = target.ID
			}
			if u.World().Repair(u.Body, target) == world.ErrNotInRange {
				u.GoTo(target.Pos, 3)
			}
			return false
		},
		Body: bodyWorker,
	}
}

// repairCeiling widens the search once every wall passed the minimum.
func repairCeiling(u *agent.Unit) int {
	if len(weakWalls(u.World(), u.Room.Name, u.Settings().MinWallHits)) > 0 {
		return u.Settings().MinWallHits
	}
	return math.MaxInt
}

func weakWalls(w *world.World, room string, below int) []*world.Object {
	return w.FindFunc(room, func(o *world.Object) bool {
		return (o.Kind == world.KindWall || o.Kind == world.KindRampart) && o.Hits < below && o.Hits < o.HitsMax
	})
}

func weakest(objs []*world.Object) *world.Object {
	var best *world.Object
	for _, o := range objs {
		if best == nil || o.Hits < best.Hits {
			best = o
		}
	}
	return best
}

// fetchEnergy fills up from the cached energy source, picking a new one
// through the room when the cache goes stale or runs dry.
func fetchEnergy(u *agent.Unit) bool {
	if u.FreeCapacity() == 0 {
		return true
	}
	src := u.Object(u.Mem.SourceID)
	if src == nil {
		src = u.Room.AvailableSource()
		if src == nil {
			u.Mem.SourceID = ""
			u.Say("💤")
			return u.Used() > 0
		}
		u.Mem.SourceID = src.ID
	}
	code := u.GetEnergyFrom(src)
	if src.IsStructure() && code == world.ErrNotEnoughResources {
		u.Mem.SourceID = ""
		return u.Used() > 0
	}
	return false
}
