package agent

import (
	"slices"

	"github.com/Soulycoris/ts-screep/internal/sim/geo"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/queue"
	"github.com/Soulycoris/ts-screep/internal/sim/reserve"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

// Room bundles one room's memory with the registries and queues built on it.
type Room struct {
	Name  string
	Mem   *memory.Room
	World *world.World

	Reserve   *reserve.Registry
	Center    *queue.Center
	Spawns    *queue.Spawn
	Power     *queue.Power
	Transfers *queue.Transfer

	settings Settings
}

func newRoom(name string, mem *memory.Room, w *world.World, settings Settings) *Room {
	r := &Room{
		Name:     name,
		Mem:      mem,
		World:    w,
		Reserve:  reserve.For(mem, w.Alive),
		Spawns:   queue.NewSpawn(mem),
		settings: settings,
	}
	r.Center = queue.NewCenter(mem, r.freeCapacity)
	r.Power = queue.NewPower(mem, r.powerEnabled)
	r.Transfers = queue.NewTransfer(mem)
	return r
}

// freeCapacity resolves target as an object id first, then as a structure kind in this room.
func (r *Room) freeCapacity(target, resource string) int {
	o := r.World.Object(target)
	if o == nil {
		o = r.first(world.Kind(target))
	}
	if o == nil || o.Store == nil {
		return 0
	}
	return o.Store.Free(resource)
}

func (r *Room) powerEnabled() bool {
	c := r.Controller()
	return c != nil && c.PowerEnabled
}

func (r *Room) first(kind world.Kind) *world.Object {
	if found := r.World.Find(r.Name, kind); len(found) > 0 {
		return found[0]
	}
	return nil
}

func (r *Room) Settings() Settings { return r.settings }

func (r *Room) Controller() *world.Object { return r.World.Controller(r.Name) }
func (r *Room) Storage() *world.Object    { return r.first(world.KindStorage) }
func (r *Room) Terminal() *world.Object   { return r.first(world.KindTerminal) }

// Sources returns the room's sources from the memory cache, searching again
// when every cached id has gone stale.
func (r *Room) Sources() []*world.Object {
	live := r.resolve(&r.Mem.SourceIDs)
	if len(live) > 0 {
		return live
	}
	live = r.World.Find(r.Name, world.KindSource)
	r.Mem.SourceIDs = ids(live)
	return live
}

func (r *Room) Mineral() *world.Object {
	if o := r.World.Object(r.Mem.MineralID); o != nil {
		return o
	}
	r.Mem.MineralID = ""
	o := r.first(world.KindMineral)
	if o != nil {
		r.Mem.MineralID = o.ID
	}
	return o
}

// SourceContainers returns registered containers. Destroyed ones are forgotten.
func (r *Room) SourceContainers() []*world.Object {
	return r.resolve(&r.Mem.SourceContainerIDs)
}

func (r *Room) RegisterContainer(c *world.Object) {
	if c == nil || slices.Contains(r.Mem.SourceContainerIDs, c.ID) {
		return
	}
	r.Mem.SourceContainerIDs = append(r.Mem.SourceContainerIDs, c.ID)
}

func (r *Room) resolve(cache *[]string) []*world.Object {
	var live []*world.Object
	kept := (*cache)[:0:0]
	for _, id := range *cache {
		if o := r.World.Object(id); o != nil {
			live = append(live, o)
			kept = append(kept, id)
		}
	}
	if len(kept) != len(*cache) {
		*cache = kept
	}
	return live
}

// AvailableSource picks where a worker should get energy: a well stocked
// terminal or storage, else the fullest source container, else a source with
// a free harvesting spot.
func (r *Room) AvailableSource() *world.Object {
	if t := r.Terminal(); t != nil && t.Store.Get(world.Energy) > r.settings.TerminalFloor {
		return t
	}
	if s := r.Storage(); s != nil && s.Store.Get(world.Energy) > r.settings.StorageFloor {
		return s
	}
	var best *world.Object
	for _, c := range r.SourceContainers() {
		if best == nil || c.Store.Get(world.Energy) > best.Store.Get(world.Energy) {
			best = c
		}
	}
	if best != nil {
		return best
	}
	for _, s := range r.Sources() {
		if r.freeSpots(s.Pos) > 0 {
			return s
		}
	}
	return nil
}

// freeSpots counts walkable cells around pos not occupied by a unit.
func (r *Room) freeSpots(pos geo.Pos) int {
	n := 0
	for _, d := range geo.All {
		p := pos.Step(d)
		if r.World.Walkable(p) && r.World.UnitAt(p) == nil {
			n++
		}
	}
	return n
}

func ids(objs []*world.Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.ID
	}
	return out
}
