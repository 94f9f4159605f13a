// Package reserve tracks the standing cells units claim while doing stationary work.
// Reservations live in room memory, keyed by the reserving unit's name, so a unit
// always overwrites its own previous claim and never touches anyone else's.
package reserve

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Soulycoris/ts-screep/internal/sim/geo"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

var ErrTaken = errors.New("reserve: position held by another unit")

// Registry is a view over one room's reservations.
// Alive, when set, lets readers reclaim entries whose owner no longer exists.
type Registry struct {
	room  *memory.Room
	Alive func(name string) bool
}

func For(room *memory.Room, alive func(name string) bool) *Registry {
	return &Registry{room: room, Alive: alive}
}

func (r *Registry) Reserve(name string, pos geo.Pos) error {
	if holder, ok := r.Holder(pos); ok && holder != name {
		return fmt.Errorf("%w: %s at %s", ErrTaken, holder, geo.Serialize(pos))
	}
	if r.room.RestrictedPos == nil {
		r.room.RestrictedPos = map[string]string{}
	}
	r.room.RestrictedPos[name] = geo.Serialize(pos)
	return nil
}

func (r *Registry) Release(name string) {
	delete(r.room.RestrictedPos, name)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.room.RestrictedPos[name]
	return ok
}

// List returns every live reservation. Orphaned and unparsable entries are dropped on the way.
func (r *Registry) List() map[string]geo.Pos {
	out := make(map[string]geo.Pos, len(r.room.RestrictedPos))
	for _, name := range r.names() {
		if r.orphan(name) {
			continue
		}
		pos, err := geo.Parse(r.room.RestrictedPos[name])
		if err != nil {
			delete(r.room.RestrictedPos, name)
			continue
		}
		out[name] = pos
	}
	return out
}

func (r *Registry) Holder(pos geo.Pos) (string, bool) {
	key := geo.Serialize(pos)
	for _, name := range r.names() {
		if r.room.RestrictedPos[name] != key {
			continue
		}
		if r.orphan(name) {
			continue
		}
		return name, true
	}
	return "", false
}

// Blocked reports whether pos is reserved by someone other than self.
func (r *Registry) Blocked(pos geo.Pos, self string) bool {
	holder, ok := r.Holder(pos)
	return ok && holder != self
}

// Sweep drops every reservation whose owner is no longer alive and returns their names.
func (r *Registry) Sweep() []string {
	var dropped []string
	for _, name := range r.names() {
		if r.orphan(name) {
			dropped = append(dropped, name)
		}
	}
	return dropped
}

func (r *Registry) Len() int { return len(r.room.RestrictedPos) }

func (r *Registry) orphan(name string) bool {
	if r.Alive == nil || r.Alive(name) {
		return false
	}
	delete(r.room.RestrictedPos, name)
	return true
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.room.RestrictedPos))
	for name := range r.room.RestrictedPos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stand claims pos for the unit and marks it standed. It is a no-op when already standed.
func Stand(r *Registry, name string, a *memory.Agent, pos geo.Pos) error {
	if a.Standed && r.Has(name) {
		return nil
	}
	if err := r.Reserve(name, pos); err != nil {
		return err
	}
	a.Standed = true
	return nil
}

// Vacate releases the unit's claim and clears standed.
func Vacate(r *Registry, name string, a *memory.Agent) {
	r.Release(name)
	a.Standed = false
}
