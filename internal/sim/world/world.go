// Package world is the in-memory host world the colony acts in: rooms with
// terrain, structures, resource nodes and units. Unit actions take effect
// immediately except movement, which is recorded as an intent and resolved
// when the tick ends so two units can trade places in one tick.
//
// World is single-threaded. All state must be accessed only from the tick
// loop goroutine.
package world

import (
	"fmt"
	"sort"

	"github.com/Soulycoris/ts-screep/internal/sim/geo"
)

type Room struct {
	Name  string          `json:"name"`
	Walls map[[2]int]bool `json:"-"`
}

type World struct {
	tick uint64

	rooms   map[string]*Room
	objects map[string]*Object
	units   map[string]*Unit // by name
	byID    map[string]*Unit

	intents map[string]geo.Direction
	died    []string

	nextID uint64
}

func New() *World {
	return &World{
		rooms:   map[string]*Room{},
		objects: map[string]*Object{},
		units:   map[string]*Unit{},
		byID:    map[string]*Unit{},
		intents: map[string]geo.Direction{},
	}
}

func (w *World) Tick() uint64 { return w.tick }

func (w *World) newID(prefix string) string {
	w.nextID++
	return fmt.Sprintf("%s%06d", prefix, w.nextID)
}

// AddRoom registers a room. walls are terrain cells no unit can enter.
func (w *World) AddRoom(name string, walls [][2]int) *Room {
	r := &Room{Name: name, Walls: map[[2]int]bool{}}
	for _, c := range walls {
		r.Walls[c] = true
	}
	w.rooms[name] = r
	return r
}

func (w *World) Room(name string) *Room { return w.rooms[name] }

func (w *World) RoomNames() []string { return sortedKeys(w.rooms) }

// AddObject places an object with default stats for its kind.
func (w *World) AddObject(kind Kind, pos geo.Pos) *Object {
	o := newObject(w.newID("o"), kind, pos)
	w.objects[o.ID] = o
	return o
}

// Object resolves id. A destroyed or completed object resolves to nil.
func (w *World) Object(id string) *Object {
	if id == "" {
		return nil
	}
	return w.objects[id]
}

func (w *World) RemoveObject(id string) { delete(w.objects, id) }

// Find returns a room's objects of kind, ordered by id.
func (w *World) Find(room string, kind Kind) []*Object {
	return w.FindFunc(room, func(o *Object) bool { return o.Kind == kind })
}

func (w *World) FindFunc(room string, keep func(*Object) bool) []*Object {
	var out []*Object
	for _, o := range w.objects {
		if o.Pos.Room == room && keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Closest returns the candidate nearest to from, ties broken by id.
func Closest(from geo.Pos, candidates []*Object) *Object {
	var best *Object
	bestD := 0
	for _, o := range candidates {
		d := from.Range(o.Pos)
		if best == nil || d < bestD || (d == bestD && o.ID < best.ID) {
			best, bestD = o, d
		}
	}
	return best
}

// LookAt returns the objects on pos, ordered by id.
func (w *World) LookAt(pos geo.Pos) []*Object {
	return w.FindFunc(pos.Room, func(o *Object) bool { return o.Pos == pos })
}

func (w *World) Controller(room string) *Object {
	if cs := w.Find(room, KindController); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// AddUnit places a fully grown unit. It fails when the name is taken.
func (w *World) AddUnit(name string, body []Part, pos geo.Pos) (*Unit, error) {
	if _, ok := w.units[name]; ok {
		return nil, fmt.Errorf("world: unit %q already exists", name)
	}
	u := &Unit{
		ID:          w.newID("u"),
		Name:        name,
		Pos:         pos,
		Body:        append([]Part(nil), body...),
		TicksToLive: UnitLifetime,
	}
	u.Store = &Store{Capacity: u.Parts(Carry) * CarryCapacity}
	w.units[name] = u
	w.byID[u.ID] = u
	return u, nil
}

func (w *World) Unit(name string) *Unit { return w.units[name] }

func (w *World) UnitByID(id string) *Unit { return w.byID[id] }

func (w *World) Alive(name string) bool {
	_, ok := w.units[name]
	return ok
}

func (w *World) UnitNames() []string { return sortedKeys(w.units) }

func (w *World) UnitAt(pos geo.Pos) *Unit {
	for _, name := range w.UnitNames() {
		if u := w.units[name]; u.Pos == pos {
			return u
		}
	}
	return nil
}

// Died lists the units removed by the last EndTick.
func (w *World) Died() []string { return append([]string(nil), w.died...) }

// Walkable reports whether pos is inside its room, not terrain wall and not
// covered by an obstructing structure. Units are not considered.
func (w *World) Walkable(pos geo.Pos) bool {
	if !pos.InBounds() {
		return false
	}
	r := w.rooms[pos.Room]
	if r == nil || r.Walls[[2]int{pos.X, pos.Y}] {
		return false
	}
	for _, o := range w.objects {
		if o.Pos == pos && !o.Walkable() {
			return false
		}
	}
	return true
}

// CreateConstructionSite places a site for kind at pos.
func (w *World) CreateConstructionSite(pos geo.Pos, kind Kind) (string, Code) {
	if !Buildable(kind) {
		return "", ErrInvalidArgs
	}
	if !pos.InBounds() || w.rooms[pos.Room] == nil || w.rooms[pos.Room].Walls[[2]int{pos.X, pos.Y}] {
		return "", ErrInvalidTarget
	}
	for _, o := range w.LookAt(pos) {
		if o.Kind == KindConstructionSite || o.Kind == kind || !o.Walkable() {
			return "", ErrInvalidTarget
		}
	}
	o := w.AddObject(KindConstructionSite, pos)
	o.StructureType = kind
	o.ProgressTotal = kinds[kind].buildCost
	return o.ID, OK
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
