package queue

import (
	"errors"
	"testing"

	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

func TestCenterDedupeBySubmitter(t *testing.T) {
	room := &memory.Room{}
	c := NewCenter(room, nil)
	task := memory.TransferTask{Submit: "terminal", Target: "storage", ResourceType: "energy", Amount: 1000}

	if idx, err := c.Add(task); err != nil || idx != 0 {
		t.Fatalf("first add idx=%d err=%v", idx, err)
	}
	idx, err := c.Add(task)
	if idx != -1 || !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate add idx=%d err=%v", idx, err)
	}
	if c.Len() != 1 || len(room.CenterTransferTasks) != 1 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestCenterRejectsWithoutCapacity(t *testing.T) {
	c := NewCenter(&memory.Room{}, func(target, resource string) int { return 50 })
	idx, err := c.Add(memory.TransferTask{Submit: "link", Target: "storage", ResourceType: "energy", Amount: 100})
	if idx != -2 || !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("idx=%d err=%v", idx, err)
	}
	if c.Len() != 0 {
		t.Fatalf("queue changed on rejection")
	}
}

func TestCenterHandlePopsOnlyWhenDone(t *testing.T) {
	c := NewCenter(&memory.Room{}, nil)
	c.Add(memory.TransferTask{Submit: "a", Amount: 100})
	c.Add(memory.TransferTask{Submit: "b", Amount: 10})

	c.Handle(60)
	head, _ := c.Current()
	if head.Submit != "a" || head.Amount != 40 {
		t.Fatalf("head=%+v", head)
	}
	c.Handle(40)
	head, _ = c.Current()
	if head.Submit != "b" {
		t.Fatalf("expected b at head, got %+v", head)
	}
}

func TestPushAtPriority(t *testing.T) {
	var items []string
	q := New(&items, func(s string) string { return s })
	q.Push("a")
	q.Push("b")
	if idx, _ := q.PushAt("c", 0); idx != 0 {
		t.Fatalf("idx=%d", idx)
	}
	if idx, _ := q.PushAt("d", 99); idx != 3 {
		t.Fatalf("clamped idx=%d", idx)
	}
	want := []string{"c", "a", "b", "d"}
	for i, w := range want {
		if items[i] != w {
			t.Fatalf("items=%v", items)
		}
	}
}

func TestRequeueToEndKeepsRelativeOrder(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	q := New(&items, func(s string) string { return s })
	if idx := q.RequeueToEnd(); idx != 3 {
		t.Fatalf("idx=%d", idx)
	}
	want := []string{"b", "c", "d", "a"}
	for i, w := range want {
		if items[i] != w {
			t.Fatalf("items=%v", items)
		}
	}
	var empty []string
	if idx := New(&empty, func(s string) string { return s }).RequeueToEnd(); idx != -1 {
		t.Fatalf("empty requeue idx=%d", idx)
	}
}

func TestPruneAndRemove(t *testing.T) {
	items := []string{"a", "gone", "b"}
	q := New(&items, func(s string) string { return s })
	if n := q.Prune(func(s string) bool { return s != "gone" }); n != 1 {
		t.Fatalf("pruned=%d", n)
	}
	if !q.Remove("a") || q.Remove("a") {
		t.Fatalf("remove semantics")
	}
	if q.Len() != 1 || items[0] != "b" {
		t.Fatalf("items=%v", items)
	}
}

func TestSpawnQueue(t *testing.T) {
	room := &memory.Room{}
	s := NewSpawn(room)
	if idx, _ := s.Add("h1"); idx != 0 {
		t.Fatalf("idx=%d", idx)
	}
	if idx, err := s.Add("h1"); idx != -1 || !errors.Is(err, ErrDuplicate) {
		t.Fatalf("dup idx=%d err=%v", idx, err)
	}
	s.Add("h2")
	s.Hang()
	if room.SpawnList[0] != "h2" {
		t.Fatalf("spawnList=%v", room.SpawnList)
	}
	if n := s.Clear(); n != 2 || s.Len() != 0 {
		t.Fatalf("clear n=%d len=%d", n, s.Len())
	}
}

func TestPowerQueue(t *testing.T) {
	room := &memory.Room{}
	enabled := false
	p := NewPower(room, func() bool { return enabled })

	if _, err := p.Add(7); !errors.Is(err, ErrPowerDisabled) {
		t.Fatalf("expected ErrPowerDisabled, got %v", err)
	}
	enabled = true
	if idx, err := p.Add(7); err != nil || idx != 1 {
		t.Fatalf("idx=%d err=%v", idx, err)
	}
	if cur, _ := p.Current(); cur != PowerInit {
		t.Fatalf("head should be the init task, got %d", cur)
	}
	if _, err := p.Add(7); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	p.DeleteCurrent()
	p.DeleteCurrent()
	if p.Len() != 0 {
		t.Fatalf("len=%d", p.Len())
	}
	// Once drained the init task is not re-seeded.
	if _, ok := p.Current(); ok {
		t.Fatalf("init task came back")
	}
}

func TestTransferStats(t *testing.T) {
	room := &memory.Room{}
	tr := NewTransfer(room)
	tr.Add(memory.RoomTransferTask{Type: "fillExtension"})
	tr.Add(memory.RoomTransferTask{Type: "fillTower", TargetID: "t1"})
	if _, err := tr.Add(memory.RoomTransferTask{Type: "fillTower"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate")
	}
	tr.Complete()
	if room.TaskStats["fillExtension"] != 1 || tr.Len() != 1 {
		t.Fatalf("stats=%v len=%d", room.TaskStats, tr.Len())
	}
}
