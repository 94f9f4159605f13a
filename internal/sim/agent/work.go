package agent

import (
	"github.com/Soulycoris/ts-screep/internal/sim/geo"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

// Upgrade works on the room controller, standing once in range.
func (u *Unit) Upgrade() world.Code {
	ctrl := u.Room.Controller()
	if ctrl == nil {
		return world.ErrInvalidTarget
	}
	code := u.env.World.UpgradeController(u.Body, ctrl)
	switch code {
	case world.OK:
		if !u.Mem.Standed {
			u.Stand()
		}
	case world.ErrNotInRange:
		u.GoTo(ctrl.Pos, 3)
	}
	return code
}

// GetEnergyFrom withdraws from a structure or harvests a source. Harvesting
// occupies the cell for a long time, so it stands; withdrawing does not.
func (u *Unit) GetEnergyFrom(target *world.Object) world.Code {
	if target == nil {
		return world.ErrInvalidTarget
	}
	var code world.Code
	if target.IsStructure() {
		code = u.env.World.Withdraw(u.Body, target, world.Energy, 0)
	} else {
		code = u.env.World.Harvest(u.Body, target)
		if code == world.OK && !u.Mem.Standed {
			u.Stand()
		}
	}
	if code == world.ErrNotInRange {
		u.GoTo(target.Pos, 1)
	}
	return code
}

// TransferTo walks next to target and hands over resource.
func (u *Unit) TransferTo(target *world.Object, resource string) world.Code {
	if target == nil {
		return world.ErrInvalidTarget
	}
	u.GoTo(target.Pos, 1)
	return u.env.World.Transfer(u.Body, target, resource, 0)
}

// Transfer hands over resource, walking closer when out of range.
func (u *Unit) Transfer(target *world.Object, resource string) world.Code {
	code := u.env.World.Transfer(u.Body, target, resource, 0)
	if code == world.ErrNotInRange {
		u.GoTo(target.Pos, 1)
	}
	return code
}

// BuildStructure works on the room's current build target. The target is
// shared through room memory so builders finish one site before the next;
// when it completes, new walls are remembered for steadying and containers
// next to a source are registered.
func (u *Unit) BuildStructure() world.Code {
	mem := u.Room.Mem
	var site *world.Object
	if mem.ConstructionSiteID != "" {
		site = u.Object(mem.ConstructionSiteID)
		if site == nil || site.Kind != world.KindConstructionSite {
			u.onSiteGone(site)
			site = u.nextSite()
		}
	} else {
		site = u.nextSite()
	}
	if site == nil {
		return world.ErrNotFound
	}
	code := u.env.World.Build(u.Body, site)
	if code == world.ErrNotInRange {
		u.GoTo(site.Pos, 3)
	}
	return code
}

// onSiteGone looks for the structure the cached site turned into.
func (u *Unit) onSiteGone(built *world.Object) {
	mem := u.Room.Mem
	if built == nil && mem.ConstructionSitePos != nil {
		at := geo.Pos{X: mem.ConstructionSitePos[0], Y: mem.ConstructionSitePos[1], Room: u.Room.Name}
		for _, o := range u.env.World.LookAt(at) {
			if string(o.Kind) == mem.ConstructionSiteType {
				built = o
				break
			}
		}
	}
	if built == nil || string(built.Kind) != mem.ConstructionSiteType {
		return
	}
	switch built.Kind {
	case world.KindWall, world.KindRampart:
		u.Mem.FillWallID = built.ID
	case world.KindContainer:
		for _, s := range u.Room.Sources() {
			if built.Pos.IsNear(s.Pos) {
				u.Room.RegisterContainer(built)
				break
			}
		}
	}
}

// nextSite picks the next build target: spawns, then extensions, then the closest site.
func (u *Unit) nextSite() *world.Object {
	mem := u.Room.Mem
	sites := u.env.World.Find(u.Room.Name, world.KindConstructionSite)
	if len(sites) == 0 {
		mem.ConstructionSiteID = ""
		mem.ConstructionSiteType = ""
		mem.ConstructionSitePos = nil
		return nil
	}
	var target *world.Object
	for _, kind := range []world.Kind{world.KindSpawn, world.KindExtension} {
		for _, s := range sites {
			if s.StructureType == kind {
				target = s
				break
			}
		}
		if target != nil {
			break
		}
	}
	if target == nil {
		target = world.Closest(u.Body.Pos, sites)
	}
	mem.ConstructionSiteID = target.ID
	mem.ConstructionSiteType = string(target.StructureType)
	mem.ConstructionSitePos = &[2]int{target.Pos.X, target.Pos.Y}
	return target
}

// SteadyWall repairs the wall remembered in FillWallID up to the minimum
// wall hits, then forgets it.
func (u *Unit) SteadyWall() world.Code {
	if u.Mem.FillWallID == "" {
		return world.OK
	}
	wall := u.Object(u.Mem.FillWallID)
	if wall == nil {
		u.Mem.FillWallID = ""
		return world.ErrNotFound
	}
	if wall.Hits >= u.env.Settings.MinWallHits {
		u.Mem.FillWallID = ""
		return world.OK
	}
	if u.env.World.Repair(u.Body, wall) == world.ErrNotInRange {
		u.GoTo(wall.Pos, 3)
	}
	return world.OK
}
