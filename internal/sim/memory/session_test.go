package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Soulycoris/ts-screep/internal/persistence/kvstore"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

func TestSessionFlushWritesOnlyChanges(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()

	s, err := memory.Begin(ctx, store)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	s.PutAgent("h1", &memory.Agent{Role: "harvester", Room: "W1N1", Data: memory.RoleData{SourceID: "S1"}})
	s.Room("W1N1").SpawnList = []string{"h2"}
	n, err := s.Flush(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n != 2 {
		t.Fatalf("first flush writes=%d want 2", n)
	}
	if n, _ := s.Flush(ctx); n != 0 {
		t.Fatalf("unchanged flush writes=%d want 0", n)
	}

	// Next tick: reload from the store.
	s2, err := memory.Begin(ctx, store)
	if err != nil {
		t.Fatalf("begin 2: %v", err)
	}
	a := s2.Agent("h1")
	if a == nil || a.Data.SourceID != "S1" || a.Role != "harvester" {
		t.Fatalf("agent not restored: %+v", a)
	}
	a.Working = true
	s2.DeleteAgent("missing")
	n, err = s2.Flush(ctx)
	if err != nil {
		t.Fatalf("flush 2: %v", err)
	}
	if n != 1 {
		t.Fatalf("second flush writes=%d want 1", n)
	}

	s3, _ := memory.Begin(ctx, store)
	if !s3.Agent("h1").Working {
		t.Fatalf("working flag not persisted")
	}
	s3.DeleteAgent("h1")
	if _, err := s3.Flush(ctx); err != nil {
		t.Fatalf("flush 3: %v", err)
	}
	s4, _ := memory.Begin(ctx, store)
	if s4.Agent("h1") != nil {
		t.Fatalf("deleted agent came back")
	}
	if got := s4.Room("W1N1").SpawnList; len(got) != 1 || got[0] != "h2" {
		t.Fatalf("room memory lost: %v", got)
	}
}

func TestSessionNamesSorted(t *testing.T) {
	s, err := memory.Begin(context.Background(), kvstore.NewMemory())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, n := range []string{"c", "a", "b"} {
		s.PutAgent(n, &memory.Agent{Role: "builder"})
	}
	got := s.AgentNames()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("AgentNames=%v", got)
	}
}

func TestGetCommittedRecord(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	if err := store.Commit(ctx, []memory.Write{{Scope: memory.ScopeAgent, Key: "h1", Payload: []byte(`{"role":"harvester"}`)}}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	raw, err := memory.Get(ctx, store, memory.ScopeAgent, "h1")
	if err != nil || string(raw) != `{"role":"harvester"}` {
		t.Fatalf("get=%s err=%v", raw, err)
	}
	if _, err := memory.Get(ctx, store, memory.ScopeAgent, "h2"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("missing key err=%v", err)
	}
}
