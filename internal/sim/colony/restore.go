package colony

import (
	"context"
	"fmt"

	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
)

// Restore rebuilds the world from snap and makes store hold exactly the
// snapshot's memory. Keys written after the snapshot are deleted.
func Restore(ctx context.Context, snap snapshot.SnapshotV1, store memory.Store) (*world.World, error) {
	w, err := world.Import(snap.World)
	if err != nil {
		return nil, fmt.Errorf("restore world: %w", err)
	}
	var writes []memory.Write
	for _, scope := range memory.Scopes {
		want := snap.Memory[string(scope)]
		have, err := store.Load(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("restore load %s: %w", scope, err)
		}
		for key := range have {
			if _, ok := want[key]; !ok {
				writes = append(writes, memory.Write{Scope: scope, Key: key, Delete: true})
			}
		}
		for key, payload := range want {
			writes = append(writes, memory.Write{Scope: scope, Key: key, Payload: payload})
		}
	}
	if err := store.Commit(ctx, writes); err != nil {
		return nil, fmt.Errorf("restore commit: %w", err)
	}
	return w, nil
}
