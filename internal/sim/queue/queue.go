// Package queue implements the room task queues: an ordered list with FIFO
// consumption, priority insertion and one-entry-per-key deduplication. The
// backing slice lives in room memory, so a Queue is only a view and holds no
// state of its own between ticks.
package queue

import (
	"errors"
)

var (
	ErrDuplicate     = errors.New("queue: task with the same key already queued")
	ErrNoCapacity    = errors.New("queue: target cannot hold the task amount")
	ErrPowerDisabled = errors.New("queue: power is not enabled in this room")
)

type Queue[T any] struct {
	items *[]T
	key   func(T) string
}

func New[T any](items *[]T, key func(T) string) *Queue[T] {
	return &Queue[T]{items: items, key: key}
}

func (q *Queue[T]) Len() int { return len(*q.items) }

func (q *Queue[T]) Items() []T { return append([]T(nil), *q.items...) }

func (q *Queue[T]) Has(key string) bool {
	for _, it := range *q.items {
		if q.key(it) == key {
			return true
		}
	}
	return false
}

// Push appends task and returns its index.
func (q *Queue[T]) Push(task T) (int, error) {
	if q.Has(q.key(task)) {
		return -1, ErrDuplicate
	}
	*q.items = append(*q.items, task)
	return len(*q.items) - 1, nil
}

// PushAt inserts task at index at (0 is the immediate next task) and returns the index used.
func (q *Queue[T]) PushAt(task T, at int) (int, error) {
	if q.Has(q.key(task)) {
		return -1, ErrDuplicate
	}
	items := *q.items
	at = min(max(at, 0), len(items))
	var zero T
	items = append(items, zero)
	copy(items[at+1:], items[at:])
	items[at] = task
	*q.items = items
	return at, nil
}

func (q *Queue[T]) Peek() (T, bool) {
	if len(*q.items) == 0 {
		var zero T
		return zero, false
	}
	return (*q.items)[0], true
}

// Head returns a pointer to the head task so callers can record partial progress in place.
func (q *Queue[T]) Head() *T {
	if len(*q.items) == 0 {
		return nil
	}
	return &(*q.items)[0]
}

// Pop removes exactly the head.
func (q *Queue[T]) Pop() (T, bool) {
	head, ok := q.Peek()
	if !ok {
		return head, false
	}
	*q.items = (*q.items)[1:]
	if len(*q.items) == 0 {
		*q.items = nil
	}
	return head, true
}

// RequeueToEnd moves the head to the tail and returns its new index.
// The relative order of the remaining tasks is unchanged.
func (q *Queue[T]) RequeueToEnd() int {
	head, ok := q.Pop()
	if !ok {
		return -1
	}
	*q.items = append(*q.items, head)
	return len(*q.items) - 1
}

// Remove drops the task with key, wherever it is.
func (q *Queue[T]) Remove(key string) bool {
	items := *q.items
	for i, it := range items {
		if q.key(it) == key {
			*q.items = append(items[:i:i], items[i+1:]...)
			return true
		}
	}
	return false
}

// Prune removes every task for which live returns false and reports how many went.
func (q *Queue[T]) Prune(live func(T) bool) int {
	items := *q.items
	kept := items[:0:0]
	for _, it := range items {
		if live(it) {
			kept = append(kept, it)
		}
	}
	dropped := len(items) - len(kept)
	if dropped > 0 {
		*q.items = kept
	}
	return dropped
}
