package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		colonyDir = flag.String("colony_dir", "", "colony data dir containing ticks/ticks-*.jsonl.zst (optional)")
		fromTick  = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick    = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	describe(snap)

	if *colonyDir == "" {
		return
	}
	res, err := verify(context.Background(), snap, *colonyDir, *fromTick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks (from snapshot tick=%d, last=%d)\n", res.Checked, snap.Header.Tick, res.Last)
}

func describe(snap snapshot.SnapshotV1) {
	fmt.Printf("snapshot v%d colony=%s id=%s tick=%d rooms=%d objects=%d units=%d\n",
		snap.Header.Version, snap.Header.ColonyID, snap.Header.SnapshotID, snap.Header.Tick,
		len(snap.World.Rooms), len(snap.World.Objects), len(snap.World.Units))
	scopes := make([]string, 0, len(snap.Memory))
	for scope := range snap.Memory {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	for _, scope := range scopes {
		fmt.Printf("  memory %-6s keys=%d\n", scope, len(snap.Memory[scope]))
	}
}
