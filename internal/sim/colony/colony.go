// Package colony drives the tick loop: load durable memory, run every unit
// and spawn structure, clean up after the dead, resolve the world and flush.
package colony

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/spawn"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

type Config struct {
	ID                 string
	TickRateHz         int
	SnapshotEveryTicks int
	Settings           agent.Settings
}

// SpawnRequest asks the loop to file a unit request. The answer is sent on
// Resp, which should have room for one value.
type SpawnRequest struct {
	Name string
	Role string
	Room string
	Data memory.RoleData
	Resp chan SpawnResult
}

type SpawnResult struct {
	Index     int
	RequestID string
	Err       error
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// Observer receives the summary of every finished tick.
type Observer interface {
	ObserveTick(s Summary)
}

// Colony is a single-threaded authoritative loop.
// World and memory must be accessed only from the loop goroutine.
type Colony struct {
	cfg    Config
	world  *world.World
	store  memory.Store
	roles  agent.Resolver
	logger *log.Logger

	spawnReqs chan SpawnRequest
	stop      chan struct{}
	tick      atomic.Uint64

	// Memory of a finished tick whose flush failed. No tick runs until it
	// is committed.
	unflushed *memory.Session

	// Optional sinks (may be nil).
	tickLogger   TickLogger
	snapshotSink chan<- snapshot.SnapshotV1
	observers    []Observer
}

func New(cfg Config, w *world.World, store memory.Store, roles agent.Resolver, logger *log.Logger) (*Colony, error) {
	if w == nil || store == nil || roles == nil {
		return nil, fmt.Errorf("colony: world, store and roles are required")
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 5
	}
	c := &Colony{
		cfg:       cfg,
		world:     w,
		store:     store,
		roles:     roles,
		logger:    logger,
		spawnReqs: make(chan SpawnRequest, 64),
		stop:      make(chan struct{}),
	}
	c.tick.Store(w.Tick())
	return c, nil
}

func (c *Colony) SetTickLogger(l TickLogger)                    { c.tickLogger = l }
func (c *Colony) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { c.snapshotSink = ch }
func (c *Colony) AddObserver(o Observer)                        { c.observers = append(c.observers, o) }
func (c *Colony) ID() string                                    { return c.cfg.ID }
func (c *Colony) CurrentTick() uint64                           { return c.tick.Load() }
func (c *Colony) SpawnRequests() chan<- SpawnRequest            { return c.spawnReqs }
func (c *Colony) World() *world.World                           { return c.world }

func (c *Colony) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(c.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []SpawnRequest
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		case req := <-c.spawnReqs:
			pending = append(pending, req)
		case <-ticker.C:
			if _, err := c.step(ctx, pending); err != nil {
				c.logf("tick %d: %v", c.tick.Load(), err)
			}
			pending = pending[:0]
		}
	}
}

func (c *Colony) Stop() { close(c.stop) }

// StepOnce advances the colony by a single tick using the same ordering as Run.
// It is primarily intended for tests and replays.
func (c *Colony) StepOnce(ctx context.Context, reqs []SpawnRequest) (Summary, error) {
	return c.step(ctx, reqs)
}

func (c *Colony) step(ctx context.Context, reqs []SpawnRequest) (Summary, error) {
	if err := c.flushPending(ctx); err != nil {
		answer(reqs, err)
		return Summary{}, err
	}
	nowTick := c.world.Tick()
	started := time.Now()

	mem, err := memory.Begin(ctx, c.store)
	if err != nil {
		answer(reqs, err)
		return Summary{}, fmt.Errorf("begin memory: %w", err)
	}
	machine := &agent.Machine{Roles: c.roles, LowLifetime: c.cfg.Settings.LowLifetime}
	env := agent.NewEnv(c.world, mem, machine, c.cfg.Settings, c.logger)
	sum := Summary{Tick: nowTick, Phases: map[string]int{}}

	var recorded []RecordedSpawn
	for _, req := range reqs {
		idx, err := spawn.Add(env, req.Name, req.Role, req.Data, req.Room)
		var reqID string
		if cfg := mem.Spawn(req.Name); err == nil && cfg != nil {
			reqID = cfg.RequestID
		}
		recorded = append(recorded, RecordedSpawn{Name: req.Name, Role: req.Role, Room: req.Room, Data: req.Data, Index: idx, RequestID: reqID})
		reply(req, SpawnResult{Index: idx, RequestID: reqID, Err: err})
	}

	for _, name := range mem.AgentNames() {
		u := env.Unit(name)
		if u == nil {
			continue
		}
		sum.Agents++
		if err := c.work(u); err != nil {
			sum.Failures = append(sum.Failures, Failure{Worker: name, Err: err.Error()})
			continue
		}
		sum.Phases[string(u.Last.Phase)]++
		if u.Last.Transitioned {
			sum.Transitions++
		}
		if u.Body.Said != "" {
			sum.Said = append(sum.Said, Said{Name: name, Text: u.Body.Said})
		}
	}
	for _, s := range spawn.Spawners(env) {
		if err := c.work(s); err != nil {
			sum.Failures = append(sum.Failures, Failure{Worker: s.WorkerName(), Err: err.Error()})
		}
	}

	sum.Reaped = spawn.Reap(env)
	for _, room := range mem.RoomNames() {
		r := env.Room(room)
		sum.Swept += len(r.Reserve.Sweep())
		sum.Rooms = append(sum.Rooms, roomSummary(r))
	}

	c.world.EndTick()
	sum.Died = c.world.Died()

	writes, err := mem.Flush(ctx)
	if err != nil {
		// The world has already advanced; keep the memory and commit it
		// before the next tick instead of reloading a stale store.
		c.unflushed = mem
		c.logf("tick %d: flush memory: %v", nowTick, err)
		sum.Failures = append(sum.Failures, Failure{Worker: "memory", Err: err.Error()})
	}
	sum.Writes = writes
	sum.Duration = time.Since(started)
	sum.Digest = c.digest(nowTick)

	if c.tickLogger != nil {
		_ = c.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Spawns: recorded, Failures: sum.Failures, Reaped: sum.Reaped, Digest: sum.Digest})
	}
	for _, o := range c.observers {
		o.ObserveTick(sum)
	}

	if c.snapshotSink != nil && c.cfg.SnapshotEveryTicks > 0 && nowTick != 0 && nowTick%uint64(c.cfg.SnapshotEveryTicks) == 0 {
		snap, err := c.exportSnapshot(c.world.Tick(), mem)
		if err != nil {
			c.logf("snapshot %d: %v", nowTick, err)
		} else {
			select {
			case c.snapshotSink <- snap:
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	c.tick.Store(c.world.Tick())
	return sum, nil
}

func (c *Colony) flushPending(ctx context.Context) error {
	if c.unflushed == nil {
		return nil
	}
	if _, err := c.unflushed.Flush(ctx); err != nil {
		return fmt.Errorf("flush memory of tick %d: %w", c.world.Tick()-1, err)
	}
	c.unflushed = nil
	return nil
}

// work runs one worker. A panic is turned into its error so the rest of the tick still runs.
func (c *Colony) work(w agent.WorkCapable) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			c.logf("%s: %v", w.WorkerName(), err)
		}
	}()
	return w.Work()
}

// ExportSnapshot captures the world and the durable memory as of now.
// Call it only while Run is not running.
func (c *Colony) ExportSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	if c.unflushed != nil {
		return c.exportSnapshot(c.world.Tick(), c.unflushed)
	}
	mem, err := memory.Begin(ctx, c.store)
	if err != nil {
		return snapshot.SnapshotV1{}, err
	}
	return c.exportSnapshot(c.world.Tick(), mem)
}

func (c *Colony) exportSnapshot(nowTick uint64, mem *memory.Session) (snapshot.SnapshotV1, error) {
	raw, err := mem.Export()
	if err != nil {
		return snapshot.SnapshotV1{}, err
	}
	m := make(map[string]map[string][]byte, len(raw))
	for scope, entries := range raw {
		m[string(scope)] = entries
	}
	return snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, ColonyID: c.cfg.ID, SnapshotID: uuid.NewString(), Tick: nowTick},
		World:    c.world.Export(),
		Settings: c.cfg.Settings,
		Memory:   m,
	}, nil
}

// digest hashes the exported world, which is deterministic for a given history.
func (c *Colony) digest(nowTick uint64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\n", nowTick)
	_ = json.NewEncoder(h).Encode(c.world.Export())
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Colony) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func answer(reqs []SpawnRequest, err error) {
	for _, req := range reqs {
		reply(req, SpawnResult{Index: -1, Err: err})
	}
}

// reply never blocks the loop; callers pass a buffered Resp.
func reply(req SpawnRequest, res SpawnResult) {
	if req.Resp == nil {
		return
	}
	select {
	case req.Resp <- res:
	default:
	}
}
