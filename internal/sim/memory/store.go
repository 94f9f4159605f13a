package memory

import (
	"context"
	"errors"
	"fmt"
)

// Scope partitions the durable key space.
type Scope string

const (
	ScopeAgent Scope = "agent"
	ScopeRoom  Scope = "room"
	ScopeSpawn Scope = "spawn"
)

var Scopes = []Scope{ScopeAgent, ScopeRoom, ScopeSpawn}

var ErrNotFound = errors.New("memory: not found")

// Write is one pending mutation. Payload is ignored when Delete is set.
type Write struct {
	Scope   Scope
	Key     string
	Payload []byte
	Delete  bool
}

// Store is the durable key/value store the colony persists into.
// Implementations live in internal/persistence/kvstore.
type Store interface {
	// Load returns every payload in scope, keyed by key.
	Load(ctx context.Context, scope Scope) (map[string][]byte, error)
	// Commit applies writes atomically.
	Commit(ctx context.Context, writes []Write) error
	Close() error
}

// Get reads one committed record. A missing key is ErrNotFound.
func Get(ctx context.Context, store Store, scope Scope, key string) ([]byte, error) {
	entries, err := store.Load(ctx, scope)
	if err != nil {
		return nil, err
	}
	raw, ok := entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, scope, key)
	}
	return raw, nil
}
