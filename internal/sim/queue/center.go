package queue

import (
	"errors"
	"fmt"

	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

// FreeCapacity reports how much of resource the structure named target can still take.
type FreeCapacity func(target, resource string) int

// Center is the room's center transfer queue. One task per submitting structure.
type Center struct {
	*Queue[memory.TransferTask]
	free FreeCapacity
}

func NewCenter(room *memory.Room, free FreeCapacity) *Center {
	return &Center{
		Queue: New(&room.CenterTransferTasks, func(t memory.TransferTask) string { return t.Submit }),
		free:  free,
	}
}

// Add appends task. It returns -1 with ErrDuplicate when the submitter already
// has a task queued and -2 with ErrNoCapacity when the target cannot take it.
func (c *Center) Add(task memory.TransferTask) (int, error) {
	if err := c.check(task); err != nil {
		return codeFor(err), err
	}
	return c.Push(task)
}

// AddAt inserts task at priority (0 runs next).
func (c *Center) AddAt(task memory.TransferTask, priority int) (int, error) {
	if err := c.check(task); err != nil {
		return codeFor(err), err
	}
	return c.PushAt(task, priority)
}

func (c *Center) check(task memory.TransferTask) error {
	if c.Has(task.Submit) {
		return ErrDuplicate
	}
	if c.free != nil {
		if free := c.free(task.Target, task.ResourceType); free < task.Amount {
			return fmt.Errorf("%w: %s has %d free, task needs %d", ErrNoCapacity, task.Target, free, task.Amount)
		}
	}
	return nil
}

// Current returns the head task, if any.
func (c *Center) Current() (memory.TransferTask, bool) { return c.Peek() }

// Handle records that amount was moved for the head task and pops it once nothing remains.
func (c *Center) Handle(amount int) {
	head := c.Head()
	if head == nil {
		return
	}
	head.Amount -= amount
	if head.Amount <= 0 {
		c.Pop()
	}
}

// Hang moves the head to the tail and returns its new index.
func (c *Center) Hang() int { return c.RequeueToEnd() }

// DeleteCurrent drops the head task outright.
func (c *Center) DeleteCurrent() { c.Pop() }

func codeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNoCapacity):
		return -2
	default:
		return -1
	}
}
