package agent

import (
	"log"

	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

// Env is the per-tick view agents act through: the world, the memory session
// loaded for this tick and the room handles built from it.
type Env struct {
	World    *world.World
	Mem      *memory.Session
	Machine  *Machine
	Settings Settings
	Logger   *log.Logger

	rooms map[string]*Room
}

func NewEnv(w *world.World, mem *memory.Session, m *Machine, settings Settings, logger *log.Logger) *Env {
	return &Env{
		World:    w,
		Mem:      mem,
		Machine:  m,
		Settings: settings,
		Logger:   logger,
		rooms:    map[string]*Room{},
	}
}

// Room returns the handle for name, creating its memory record on first use.
func (e *Env) Room(name string) *Room {
	if r, ok := e.rooms[name]; ok {
		return r
	}
	r := newRoom(name, e.Mem.Room(name), e.World, e.Settings)
	e.rooms[name] = r
	return r
}

// Unit returns the handle for a unit that has both memory and a body, or nil.
func (e *Env) Unit(name string) *Unit {
	mem := e.Mem.Agent(name)
	body := e.World.Unit(name)
	if mem == nil || body == nil {
		return nil
	}
	room := mem.Room
	if room == "" {
		room = body.Room()
	}
	return &Unit{
		Name: name,
		Mem:  mem,
		Body: body,
		Room: e.Room(room),
		env:  e,
	}
}

func (e *Env) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}
