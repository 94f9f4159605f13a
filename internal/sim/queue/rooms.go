package queue

import (
	"fmt"
	"strconv"

	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

// Spawn is the room's queue of unit names waiting for a spawn structure.
type Spawn struct {
	*Queue[string]
}

func NewSpawn(room *memory.Room) *Spawn {
	return &Spawn{Queue: New(&room.SpawnList, func(name string) string { return name })}
}

// Add appends name and returns its index, or -1 when it is already queued.
func (s *Spawn) Add(name string) (int, error) { return s.Push(name) }

func (s *Spawn) Hang() int { return s.RequeueToEnd() }

func (s *Spawn) Clear() int {
	n := s.Len()
	*s.items = nil
	return n
}

// PowerInit is the room initialisation task every power queue starts with.
const PowerInit = -1

// Power is the room's queue of power-ability tasks, keyed by power type.
type Power struct {
	*Queue[int]
	room    *memory.Room
	enabled func() bool
}

func NewPower(room *memory.Room, enabled func() bool) *Power {
	return &Power{
		Queue:   New(&room.PowerTasks, strconv.Itoa),
		room:    room,
		enabled: enabled,
	}
}

func (p *Power) seed() {
	if p.room.PowerSeeded {
		return
	}
	p.room.PowerSeeded = true
	if !p.Has(strconv.Itoa(PowerInit)) {
		*p.items = append([]int{PowerInit}, *p.items...)
	}
}

func (p *Power) Add(task int) (int, error) {
	if p.enabled != nil && !p.enabled() {
		return -1, ErrPowerDisabled
	}
	p.seed()
	return p.Push(task)
}

func (p *Power) AddAt(task, priority int) (int, error) {
	if p.enabled != nil && !p.enabled() {
		return -1, ErrPowerDisabled
	}
	p.seed()
	return p.PushAt(task, priority)
}

func (p *Power) Current() (int, bool) {
	p.seed()
	return p.Peek()
}

func (p *Power) Hang() int {
	p.seed()
	return p.RequeueToEnd()
}

func (p *Power) DeleteCurrent() {
	p.seed()
	p.Pop()
}

// Transfer is the room logistics queue, one task per type. Completed tasks are
// counted per type in room memory.
type Transfer struct {
	*Queue[memory.RoomTransferTask]
	room *memory.Room
}

func NewTransfer(room *memory.Room) *Transfer {
	return &Transfer{
		Queue: New(&room.TransferTasks, func(t memory.RoomTransferTask) string { return t.Type }),
		room:  room,
	}
}

func (t *Transfer) Add(task memory.RoomTransferTask) (int, error) {
	if task.Type == "" {
		return -1, fmt.Errorf("queue: transfer task without type")
	}
	return t.Push(task)
}

func (t *Transfer) AddAt(task memory.RoomTransferTask, priority int) (int, error) {
	if task.Type == "" {
		return -1, fmt.Errorf("queue: transfer task without type")
	}
	return t.PushAt(task, priority)
}

// Complete pops the head and bumps its type's completion count.
func (t *Transfer) Complete() bool {
	head, ok := t.Pop()
	if !ok {
		return false
	}
	if t.room.TaskStats == nil {
		t.room.TaskStats = map[string]int{}
	}
	t.room.TaskStats[head.Type]++
	return true
}

func (t *Transfer) Hang() int { return t.RequeueToEnd() }
