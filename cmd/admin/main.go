package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "memory":
			memoryCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	colonyID := fs.String("colony", "", "colony id (optional; lists its snapshots)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "colonies")
	if *colonyID != "" {
		base = filepath.Join(base, *colonyID, "snapshots")
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// memoryCmd prints durable memory records held by a snapshot.
func memoryCmd(args []string) {
	fs := flag.NewFlagSet("memory", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	colonyID := fs.String("colony", "", "colony id (used when -snapshot is empty)")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	scope := fs.String("scope", "agent", "memory scope: agent|room|colony")
	key := fs.String("key", "", "record key (optional; lists keys when empty)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*colonyID) == "" {
			fmt.Fprintln(os.Stderr, "missing -colony or -snapshot")
			os.Exit(2)
		}
		p, err := snapshot.Latest(filepath.Join(*dataDir, "colonies", *colonyID))
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest snapshot:", err)
			os.Exit(1)
		}
		if p == "" {
			fmt.Fprintln(os.Stderr, "no snapshots found")
			os.Exit(2)
		}
		path = p
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	out, err := memoryRecords(snap, *scope, *key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Println(out)
}

func memoryRecords(snap snapshot.SnapshotV1, scope, key string) (string, error) {
	entries, ok := snap.Memory[scope]
	if !ok {
		return "", fmt.Errorf("scope %q not in snapshot", scope)
	}
	if key == "" {
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return strings.Join(keys, "\n"), nil
	}
	raw, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("%s/%s not in snapshot", scope, key)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw), nil
	}
	return buf.String(), nil
}
