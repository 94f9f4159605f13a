// Package spawn turns unit requests into units. A request is a standing
// config keyed by unit name plus an entry on its room's spawn queue; spawn
// structures work the queue head each tick.
package spawn

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/queue"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

var ErrBadRequest = errors.New("spawn: bad request")

// Add stores the request for name and enqueues it on room's spawn queue.
// It returns the queue index, or -1 with queue.ErrDuplicate when name is
// already waiting in any room; a rejected request leaves the stored config
// untouched. A request for a living unit replaces its config and returns -1.
func Add(e *agent.Env, name, role string, data memory.RoleData, room string) (int, error) {
	if name == "" || room == "" {
		return -1, fmt.Errorf("%w: name and room are required", ErrBadRequest)
	}
	if _, err := e.Machine.Roles.Resolve(role, data); err != nil {
		return -1, err
	}
	cfg := e.Mem.Spawn(name)
	if cfg != nil && cfg.SpawnRoom != "" && cfg.SpawnRoom != room && e.Room(cfg.SpawnRoom).Spawns.Has(name) {
		return -1, fmt.Errorf("%w: %s waits in %s", queue.ErrDuplicate, name, cfg.SpawnRoom)
	}

	idx := -1
	if e.World.Unit(name) == nil {
		var err error
		if idx, err = e.Room(room).Spawns.Add(name); err != nil {
			return -1, err
		}
	}
	if cfg == nil {
		cfg = &memory.SpawnConfig{RequestID: uuid.NewString()}
		e.Mem.PutSpawn(name, cfg)
	}
	cfg.Role, cfg.Data, cfg.SpawnRoom = role, data, room
	return idx, nil
}

// Remove drops the standing config so the unit is not spawned again.
func Remove(e *agent.Env, name string) bool {
	cfg := e.Mem.Spawn(name)
	if cfg == nil {
		return false
	}
	e.Mem.DeleteSpawn(name)
	e.Room(cfg.SpawnRoom).Spawns.Remove(name)
	return true
}

// Spawner works one spawn structure.
type Spawner struct {
	ID  string
	env *agent.Env
}

// Spawners lists every spawn structure in the world, by id.
func Spawners(e *agent.Env) []*Spawner {
	var out []*Spawner
	for _, room := range e.World.RoomNames() {
		for _, o := range e.World.Find(room, world.KindSpawn) {
			out = append(out, &Spawner{ID: o.ID, env: e})
		}
	}
	return out
}

func (s *Spawner) WorkerName() string { return s.ID }

// Work spawns the head of the room's queue when it is still wanted.
// Unwanted requests and requests short of energy go to the back.
func (s *Spawner) Work() error {
	obj := s.env.World.Object(s.ID)
	if obj == nil || obj.Spawning != "" {
		return nil
	}
	room := s.env.Room(obj.Pos.Room)
	name, ok := room.Spawns.Peek()
	if !ok {
		return nil
	}
	cfg := s.env.Mem.Spawn(name)
	if cfg == nil || s.env.World.Unit(name) != nil {
		room.Spawns.Pop()
		return nil
	}
	b, err := s.env.Machine.Roles.Resolve(cfg.Role, cfg.Data)
	if err != nil {
		room.Spawns.Pop()
		return fmt.Errorf("spawn %s: %w", name, err)
	}
	if b.IsNeed != nil && !b.IsNeed(room) {
		room.Spawns.Hang()
		return nil
	}
	switch code := s.env.World.SpawnUnit(obj, name, b.Body); code {
	case world.OK:
		s.env.Mem.PutAgent(name, &memory.Agent{Role: cfg.Role, Room: cfg.SpawnRoom, Data: cfg.Data})
		room.Spawns.Pop()
	case world.ErrNotEnoughResources, world.ErrBusy:
		room.Spawns.Hang()
	default:
		return fmt.Errorf("spawn %s: %s", name, code)
	}
	return nil
}

// Reap deletes the memory of agents whose unit no longer exists and queues
// a respawn for those with a standing config. It returns the reaped names.
func Reap(e *agent.Env) []string {
	var reaped []string
	for _, name := range e.Mem.AgentNames() {
		if e.World.Unit(name) != nil {
			continue
		}
		mem := e.Mem.Agent(name)
		if mem.Room != "" {
			e.Room(mem.Room).Reserve.Release(name)
		}
		e.Mem.DeleteAgent(name)
		reaped = append(reaped, name)
		if cfg := e.Mem.Spawn(name); cfg != nil {
			_, _ = e.Room(cfg.SpawnRoom).Spawns.Add(name)
		}
	}
	return reaped
}
