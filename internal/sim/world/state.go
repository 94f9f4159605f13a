package world

import (
	"fmt"
	"sort"
)

// State is a serializable copy of the world.
type State struct {
	Tick    uint64              `json:"tick"`
	NextID  uint64              `json:"nextId"`
	Rooms   map[string][][2]int `json:"rooms"`
	Objects []Object            `json:"objects"`
	Units   []Unit              `json:"units"`
}

func (w *World) Export() State {
	s := State{Tick: w.tick, NextID: w.nextID, Rooms: map[string][][2]int{}}
	for name, r := range w.rooms {
		walls := make([][2]int, 0, len(r.Walls))
		for c := range r.Walls {
			walls = append(walls, c)
		}
		sort.Slice(walls, func(i, j int) bool {
			if walls[i][1] != walls[j][1] {
				return walls[i][1] < walls[j][1]
			}
			return walls[i][0] < walls[j][0]
		})
		s.Rooms[name] = walls
	}
	for _, id := range sortedKeys(w.objects) {
		s.Objects = append(s.Objects, cloneObject(*w.objects[id]))
	}
	for _, name := range w.UnitNames() {
		u := *w.units[name]
		u.Body = append([]Part(nil), u.Body...)
		u.Store = cloneStore(u.Store)
		s.Units = append(s.Units, u)
	}
	return s
}

// Import rebuilds a world from an exported state.
func Import(s State) (*World, error) {
	w := New()
	w.tick = s.Tick
	w.nextID = s.NextID
	for name, walls := range s.Rooms {
		w.AddRoom(name, walls)
	}
	for _, o := range s.Objects {
		if _, ok := w.rooms[o.Pos.Room]; !ok {
			return nil, fmt.Errorf("world: object %s in unknown room %q", o.ID, o.Pos.Room)
		}
		o := cloneObject(o)
		w.objects[o.ID] = &o
	}
	for _, u := range s.Units {
		if _, ok := w.units[u.Name]; ok {
			return nil, fmt.Errorf("world: duplicate unit %q", u.Name)
		}
		u := u
		u.Store = cloneStore(u.Store)
		if u.Store == nil {
			u.Store = &Store{Capacity: u.Parts(Carry) * CarryCapacity}
		}
		w.units[u.Name] = &u
		w.byID[u.ID] = &u
	}
	return w, nil
}

func cloneObject(o Object) Object {
	o.Store = cloneStore(o.Store)
	return o
}

func cloneStore(s *Store) *Store {
	if s == nil {
		return nil
	}
	c := *s
	if s.Res != nil {
		c.Res = make(map[string]int, len(s.Res))
		for k, v := range s.Res {
			c.Res[k] = v
		}
	}
	return &c
}
