package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Session is the working copy of durable memory for one tick.
// It is loaded at tick start, mutated in place by the tick, and flushed at tick end.
// A Session is not safe for concurrent use.
type Session struct {
	store Store

	agents map[string]*Agent
	rooms  map[string]*Room
	spawns map[string]*SpawnConfig

	// Loaded payloads, used to write only what changed.
	orig map[Scope]map[string][]byte
}

func Begin(ctx context.Context, store Store) (*Session, error) {
	s := &Session{
		store:  store,
		agents: map[string]*Agent{},
		rooms:  map[string]*Room{},
		spawns: map[string]*SpawnConfig{},
		orig:   map[Scope]map[string][]byte{},
	}
	for _, scope := range Scopes {
		raw, err := store.Load(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", scope, err)
		}
		s.orig[scope] = raw
		for key, payload := range raw {
			if err := s.decode(scope, key, payload); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Session) decode(scope Scope, key string, payload []byte) error {
	var err error
	switch scope {
	case ScopeAgent:
		var a Agent
		err = json.Unmarshal(payload, &a)
		s.agents[key] = &a
	case ScopeRoom:
		var r Room
		err = json.Unmarshal(payload, &r)
		s.rooms[key] = &r
	case ScopeSpawn:
		var c SpawnConfig
		err = json.Unmarshal(payload, &c)
		s.spawns[key] = &c
	default:
		return fmt.Errorf("unknown scope %q", scope)
	}
	if err != nil {
		return fmt.Errorf("decode %s/%s: %w", scope, key, err)
	}
	return nil
}

// Agent returns the memory of the named unit, or nil when it has none.
func (s *Session) Agent(name string) *Agent { return s.agents[name] }

func (s *Session) PutAgent(name string, a *Agent) { s.agents[name] = a }

func (s *Session) DeleteAgent(name string) { delete(s.agents, name) }

func (s *Session) AgentNames() []string { return sortedKeys(s.agents) }

// Room returns the memory of the named room, creating an empty record on first use.
func (s *Session) Room(name string) *Room {
	r := s.rooms[name]
	if r == nil {
		r = &Room{}
		s.rooms[name] = r
	}
	return r
}

func (s *Session) RoomNames() []string { return sortedKeys(s.rooms) }

func (s *Session) Spawn(name string) *SpawnConfig { return s.spawns[name] }

func (s *Session) PutSpawn(name string, c *SpawnConfig) { s.spawns[name] = c }

func (s *Session) DeleteSpawn(name string) { delete(s.spawns, name) }

func (s *Session) SpawnNames() []string { return sortedKeys(s.spawns) }

// Flush writes every record that changed since Begin (or the previous Flush) and
// deletes records that were removed. It returns the number of writes committed.
func (s *Session) Flush(ctx context.Context) (int, error) {
	var writes []Write
	next := map[Scope]map[string][]byte{}
	for _, scope := range Scopes {
		cur, err := s.encodeScope(scope)
		if err != nil {
			return 0, err
		}
		next[scope] = cur
		prev := s.orig[scope]
		for _, key := range sortedKeys(cur) {
			if old, ok := prev[key]; ok && bytes.Equal(old, cur[key]) {
				continue
			}
			writes = append(writes, Write{Scope: scope, Key: key, Payload: cur[key]})
		}
		for _, key := range sortedKeys(prev) {
			if _, ok := cur[key]; !ok {
				writes = append(writes, Write{Scope: scope, Key: key, Delete: true})
			}
		}
	}
	if len(writes) == 0 {
		return 0, nil
	}
	if err := s.store.Commit(ctx, writes); err != nil {
		return 0, fmt.Errorf("commit memory: %w", err)
	}
	s.orig = next
	return len(writes), nil
}

// Export returns the encoded form of every record, for snapshots.
func (s *Session) Export() (map[Scope]map[string][]byte, error) {
	out := map[Scope]map[string][]byte{}
	for _, scope := range Scopes {
		cur, err := s.encodeScope(scope)
		if err != nil {
			return nil, err
		}
		out[scope] = cur
	}
	return out, nil
}

func (s *Session) encodeScope(scope Scope) (map[string][]byte, error) {
	out := map[string][]byte{}
	var err error
	put := func(key string, v any) {
		if err != nil {
			return
		}
		var b []byte
		b, err = json.Marshal(v)
		if err != nil {
			err = fmt.Errorf("encode %s/%s: %w", scope, key, err)
			return
		}
		out[key] = b
	}
	switch scope {
	case ScopeAgent:
		for k, v := range s.agents {
			put(k, v)
		}
	case ScopeRoom:
		for k, v := range s.rooms {
			put(k, v)
		}
	case ScopeSpawn:
		for k, v := range s.spawns {
			put(k, v)
		}
	}
	return out, err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
