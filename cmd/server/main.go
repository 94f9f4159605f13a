package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Soulycoris/ts-screep/internal/metrics"
	"github.com/Soulycoris/ts-screep/internal/persistence/indexdb"
	"github.com/Soulycoris/ts-screep/internal/persistence/kvstore"
	persistlog "github.com/Soulycoris/ts-screep/internal/persistence/log"
	"github.com/Soulycoris/ts-screep/internal/persistence/snapshot"
	"github.com/Soulycoris/ts-screep/internal/protocol"
	"github.com/Soulycoris/ts-screep/internal/sim/colony"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/roles"
	"github.com/Soulycoris/ts-screep/internal/sim/scenario"
	"github.com/Soulycoris/ts-screep/internal/sim/tuning"
	"github.com/Soulycoris/ts-screep/internal/sim/world"
	"github.com/Soulycoris/ts-screep/internal/transport/observer"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		colonyID     = flag.String("colony", "colony_1", "colony id")
		configDir    = flag.String("configs", "./configs", "config directory")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		scenarioPath = flag.String("scenario", "", "path to scenario.yaml (default: <configs>/scenario.yaml)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		storeKind    = flag.String("store", "sqlite", "memory store: memory|sqlite|postgres")
		pgDSN        = flag.String("pg_dsn", "", "postgres dsn for -store=postgres (or set COLONY_PG_DSN)")
		remoteObs    = flag.Bool("observer_remote", false, "accept observer connections from non-loopback addresses")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite tick/snapshot index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	colonyDir := filepath.Join(*dataDir, "colonies", *colonyID)
	_ = os.MkdirAll(colonyDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	sp := strings.TrimSpace(*scenarioPath)
	if sp == "" {
		sp = filepath.Join(*configDir, "scenario.yaml")
	}

	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, err := openStore(ctx, *storeKind, colonyDir, *pgDSN)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer store.Close()

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		if p, err := snapshot.Latest(colonyDir); err == nil {
			snapshotToLoad = p
		}
	}

	// Create world (fresh from the scenario or resumed from a snapshot).
	var (
		w       *world.World
		initial []colony.SpawnRequest
	)
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.ColonyID != "" && snap.Header.ColonyID != *colonyID {
			logger.Fatalf("snapshot colony id mismatch: flag=%s snap=%s", *colonyID, snap.Header.ColonyID)
		}
		w, err = colony.Restore(ctx, snap, store)
		if err != nil {
			logger.Fatalf("restore: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.Tick())
	} else {
		sc, err := scenario.Load(sp)
		if err != nil {
			logger.Fatalf("load scenario: %v", err)
		}
		var refs map[string]string
		w, refs, err = sc.Build()
		if err != nil {
			logger.Fatalf("build scenario: %v", err)
		}
		for _, r := range sc.Requests {
			initial = append(initial, colony.SpawnRequest{Name: r.Name, Role: r.Role, Room: r.Room, Data: r.RoleData(refs)})
		}
		logger.Printf("fresh colony from scenario=%s rooms=%d requests=%d", filepath.Base(sp), len(sc.Rooms), len(initial))
	}

	c, err := colony.New(colony.Config{
		ID:                 *colonyID,
		TickRateHz:         tune.TickRateHz,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		Settings:           tune.Settings(),
	}, w, store, roles.Registry{}, log.New(os.Stdout, "[colony] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		logger.Fatalf("colony: %v", err)
	}

	mirrorRT, err := buildMirrorRuntime(ctx, *dataDir, logger)
	if err != nil {
		logger.Fatalf("init mirror: %v", err)
	}
	defer mirrorRT.Close()

	logOpts := persistlog.Options{}
	if mirrorRT.enabled {
		logOpts.RotateLayout = mirrorRT.rotateLayout
		logOpts.OnClose = mirrorRT.Enqueue
	}
	tickLog := persistlog.NewTickLogger(colonyDir, logOpts)
	defer tickLog.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(colonyDir, "index.sqlite"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index tuning: %v", err)
		}
		c.SetTickLogger(multiTickLogger{tickLog, idx})
	} else {
		c.SetTickLogger(tickLog)
	}

	rec := metrics.New(*colonyID)
	if mirrorRT.enabled {
		rec.WatchMirror(mirrorRT.mirror)
	}
	obsSrv := observer.NewServer(*colonyID, *remoteObs, logger)
	c.AddObserver(rec)
	c.AddObserver(obsSrv)

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	c.SetSnapshotSink(snapCh)
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				writeSnapshot(colonyDir, snap, mirrorRT, idx, logger)
			}
		}
	}()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("colony stopped: %v", err)
		}
	}()
	go submitInitial(ctx, c, initial, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", rec.Handler())
	mux.HandleFunc("/v1/spawn", spawnHandler(c, 5*time.Second))
	mux.HandleFunc("/v1/observe", obsSrv.WSHandler())
	mux.HandleFunc("GET /v1/agents/{name}", agentHandler(store))
	mux.HandleFunc("/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(protocol.StateMsg{
			ColonyID:        *colonyID,
			Tick:            c.CurrentTick(),
			ProtocolVersion: protocol.Version,
			Observers:       obsSrv.Subscribers(),
		})
	})
	if envBool("COLONY_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (COLONY_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// The loop is stopped; take a final snapshot so a restart resumes here.
	<-runDone
	<-snapDone
	final, err := c.ExportSnapshot(context.Background())
	if err != nil {
		logger.Printf("final snapshot: %v", err)
		return
	}
	writeSnapshot(colonyDir, final, mirrorRT, idx, logger)
}

func writeSnapshot(colonyDir string, snap snapshot.SnapshotV1, m *mirrorRuntime, idx *indexdb.SQLiteIndex, logger *log.Logger) {
	path := snapshot.Path(colonyDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Printf("snapshot write: %v", err)
		return
	}
	logger.Printf("snapshot tick=%d id=%s", snap.Header.Tick, snap.Header.SnapshotID)
	idx.RecordSnapshot(path, snap)
	m.Enqueue(path)
}

type multiTickLogger []colony.TickLogger

func (m multiTickLogger) WriteTick(e colony.TickLogEntry) error {
	var errs []error
	for _, l := range m {
		if err := l.WriteTick(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// submitInitial files the scenario requests once the loop is running.
func submitInitial(ctx context.Context, c *colony.Colony, reqs []colony.SpawnRequest, logger *log.Logger) {
	for _, req := range reqs {
		req.Resp = make(chan colony.SpawnResult, 1)
		select {
		case c.SpawnRequests() <- req:
		case <-ctx.Done():
			return
		}
		select {
		case res := <-req.Resp:
			if res.Err != nil {
				logger.Printf("scenario request %s: %v", req.Name, res.Err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func openStore(ctx context.Context, kind, colonyDir, dsn string) (memory.Store, error) {
	switch kind {
	case "memory":
		return kvstore.NewMemory(), nil
	case "sqlite":
		return kvstore.OpenSQLite(filepath.Join(colonyDir, "memory.sqlite"))
	case "postgres":
		if dsn == "" {
			dsn = os.Getenv("COLONY_PG_DSN")
		}
		if dsn == "" {
			return nil, fmt.Errorf("-store=postgres needs -pg_dsn or COLONY_PG_DSN")
		}
		return kvstore.OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
