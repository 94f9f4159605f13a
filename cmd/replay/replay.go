package main

import (
	"context"
	"fmt"

	"github.com/Soulycoris/ts-screep/internal/persistence/kvstore"
	persistlog "github.com/Soulycoris/ts-screep/internal/persistence/log"
	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
	"github.com/Soulycoris/ts-screep/internal/sim/colony"
	"github.com/Soulycoris/ts-screep/internal/sim/roles"
)

type result struct {
	Checked uint64
	Last    uint64
}

// verify restores snap into a scratch store, re-applies the spawn requests
// recorded in the tick log and checks every tick digest against the log.
func verify(ctx context.Context, snap snapshot.SnapshotV1, colonyDir string, verifyFrom, toTick uint64) (result, error) {
	var res result
	store := kvstore.NewMemory()
	w, err := colony.Restore(ctx, snap, store)
	if err != nil {
		return res, err
	}
	c, err := colony.New(colony.Config{ID: snap.Header.ColonyID, Settings: snap.Settings}, w, store, roles.Registry{}, nil)
	if err != nil {
		return res, err
	}

	files, err := persistlog.TickFiles(colonyDir)
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		return res, fmt.Errorf("no tick logs found in %s", colonyDir)
	}
	for _, path := range files {
		entries, err := persistlog.ReadTicks(path)
		if err != nil {
			return res, err
		}
		for _, entry := range entries {
			if entry.Tick < snap.Header.Tick {
				continue
			}
			if toTick != 0 && entry.Tick > toTick {
				return res, nil
			}
			if entry.Tick != c.CurrentTick() {
				return res, fmt.Errorf("tick mismatch: want=%d got=%d", c.CurrentTick(), entry.Tick)
			}
			reqs := make([]colony.SpawnRequest, 0, len(entry.Spawns))
			for _, s := range entry.Spawns {
				reqs = append(reqs, colony.SpawnRequest{Name: s.Name, Role: s.Role, Room: s.Room, Data: s.Data})
			}
			sum, err := c.StepOnce(ctx, reqs)
			if err != nil {
				return res, fmt.Errorf("tick %d: %w", entry.Tick, err)
			}
			res.Last = sum.Tick
			if sum.Tick >= verifyFrom {
				res.Checked++
				if sum.Digest != entry.Digest {
					return res, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", sum.Tick, sum.Digest, entry.Digest)
				}
			}
		}
	}
	return res, nil
}
