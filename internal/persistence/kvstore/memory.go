// Package kvstore holds the durable key/value backends behind memory.Store:
// an in-process map, SQLite and Postgres. The SQL backends share one table,
// memory(scope, key, payload), and commit a tick's writes in one transaction.
package kvstore

import (
	"context"
	"sync"

	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

var (
	_ memory.Store = (*Memory)(nil)
	_ memory.Store = (*SQLite)(nil)
	_ memory.Store = (*Postgres)(nil)
)

// Memory keeps everything in process. Used by tests and by -store=memory.
type Memory struct {
	mu   sync.Mutex
	data map[memory.Scope]map[string][]byte

	commits int
}

func NewMemory() *Memory {
	return &Memory{data: map[memory.Scope]map[string][]byte{}}
}

func (m *Memory) Load(_ context.Context, scope memory.Scope) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.data[scope]))
	for k, v := range m.data[scope] {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *Memory) Commit(_ context.Context, writes []memory.Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range writes {
		if w.Delete {
			delete(m.data[w.Scope], w.Key)
			continue
		}
		bucket := m.data[w.Scope]
		if bucket == nil {
			bucket = map[string][]byte{}
			m.data[w.Scope] = bucket
		}
		bucket[w.Key] = append([]byte(nil), w.Payload...)
	}
	m.commits++
	return nil
}

// Commits reports how many non-empty commits were applied.
func (m *Memory) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

func (m *Memory) Close() error { return nil }
