package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"starcell.sim/internal/logging"
	"starcell.sim/internal/observability"
	"starcell.sim/internal/persistence/archive"
	persistlog "starcell.sim/internal/persistence/log"
	"starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/catalogs"
	"starcell.sim/internal/sim/tuning"
	"starcell.sim/internal/sim/world"
	"starcell.sim/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 0, "world seed override (fresh worlds only; 0 keeps tuning seed)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
		spawn      = flag.Int("spawn_per_zone", 4, "seed population of freshly generated zones")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
		keepSnaps  = flag.Int("keep_snapshots", 24, "snapshots kept on disk (0 keeps all)")
		epochTicks = flag.Int64("epoch_ticks", 216000, "ticks per archived epoch (0 disables archiving)")

		logLevel  = flag.String("log_level", envOr("STARCELL_LOG_LEVEL", "info"), "log level")
		logFormat = flag.String("log_format", envOr("STARCELL_LOG_FORMAT", "console"), "log format: console | json")

		traceOn       = flag.Bool("trace", envBool("STARCELL_TRACE", false), "enable tracing")
		traceExporter = flag.String("trace_exporter", envOr("STARCELL_TRACE_EXPORTER", "stdout"), "trace exporter: stdout | otlp")
		traceEndpoint = flag.String("trace_endpoint", envOr("OTEL_EXPORTER_OTLP_ENDPOINT", ""), "otlp grpc endpoint")
		traceRatio    = flag.Float64("trace_ratio", 1, "trace sample ratio")
	)
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("world", *worldID))

	ctx, cancel := signalContext()
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     *traceOn,
		ServiceName: "starcell",
		Exporter:    *traceExporter,
		Endpoint:    *traceEndpoint,
		SampleRatio: *traceRatio,
	}, logger)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatal("load catalogs", zap.Error(err))
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	// Optional: read-model index backend (does not affect the simulation).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatal("open index backend", zap.Error(err))
	}
	if idx != nil {
		defer idx.Close()
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(ctx, worldDir, idx, logger)
	}

	// Tuning is required for fresh worlds; snapshot resumes fall back to defaults.
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if snapshotToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatal("load tuning", zap.Error(tuneErr))
		}
		logger.Warn("tuning not found; using defaults", zap.String("path", tp))
		tune = tuning.Defaults()
	}

	if idx != nil {
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Warn("index backend: upsert catalogs", zap.Error(err))
		}
	}

	cfg := world.WorldConfig{ID: *worldID, Tuning: tune, SpawnPerZone: *spawn}
	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatal("read snapshot", zap.Error(err))
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatal("snapshot world id mismatch", zap.String("snapshot_world", snap.Header.WorldID))
		}
		w, err = world.NewFromSnapshot(cfg, cats, snap)
		if err != nil {
			logger.Fatal("resume world", zap.Error(err))
		}
		logger.Info("resumed from snapshot",
			zap.String("snapshot", filepath.Base(snapshotToLoad)),
			zap.Int64("tick", w.CurrentTick()))
	} else {
		if *seed != 0 {
			cfg.Tuning.Seed = *seed
		}
		w, err = world.New(cfg, cats)
		if err != nil {
			logger.Fatal("world", zap.Error(err))
		}
		logger.Info("fresh world", zap.Int64("seed", cfg.Tuning.Seed))
	}
	w.SetLogger(logger.Named("world"))
	w.SetTracer(otel.Tracer("starcell.sim/world"))

	reg := prometheus.NewRegistry()
	collector, err := observability.NewSimCollector(reg)
	if err != nil {
		logger.Fatal("metrics", zap.Error(err))
	}
	w.SetMetrics(collector)
	if idx != nil {
		registerIndexGauges(reg, idx, logger)
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	incidentLog := persistlog.NewIncidentLogger(worldDir)
	defer tickLog.Close()
	defer incidentLog.Close()
	fan := persistlog.Fanout{Ticks: []world.TickLogger{tickLog}, Incidents: incidentLog}
	if idx != nil {
		fan.Ticks = append(fan.Ticks, idx)
	}
	w.SetTickLogger(fan)

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				writeSnapshot(worldDir, snap, idx, *epochTicks, *keepSnaps, logger)
			}
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("world stopped", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/v1/stats", func(rw http.ResponseWriter, r *http.Request) {
		ctx2, cancel2 := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel2()
		st, err := w.QueryStats(ctx2)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(st)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger.Named("ws")).Handler())
	if envBool("STARCELL_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
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

	logger.Info("listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("ListenAndServe", zap.Error(err))
	}
	<-worldDone
	<-snapDone
	if idx != nil {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		if err := idx.Flush(ctx2); err != nil {
			logger.Warn("index flush", zap.Error(err))
		}
		cancel2()
	}
	logger.Info("shutdown complete", zap.Int64("tick", w.CurrentTick()))
}

// writeSnapshot persists snap, indexes it, archives epoch boundaries and
// prunes old snapshots.
func writeSnapshot(worldDir string, snap snapshot.SnapshotV1, idx runtimeIndex, epochTicks int64, keep int, logger *zap.Logger) {
	dir := filepath.Join(worldDir, "snapshots")
	path := filepath.Join(dir, fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Error("snapshot write", zap.Error(err))
		return
	}
	logger.Info("snapshot written",
		zap.Uint64("tick", snap.Header.Tick),
		zap.Int("zones", len(snap.Zones)),
		zap.Int("actors", len(snap.Actors)))
	if idx != nil {
		idx.RecordSnapshot(path, snap)
	}

	if epochTicks > 0 {
		if epoch, archivedPath, ok, err := archive.ArchiveEpochSnapshot(worldDir, path, snap, epochTicks); err != nil {
			logger.Warn("archive epoch snapshot", zap.Error(err))
		} else if ok {
			logger.Info("epoch archived", zap.Int("epoch", epoch), zap.String("path", archivedPath))
		}
	}
	if keep > 0 {
		if n, err := archive.PruneSnapshots(dir, keep); err != nil {
			logger.Warn("prune snapshots", zap.Error(err))
		} else if n > 0 {
			logger.Debug("snapshots pruned", zap.Int("removed", n))
		}
	}
}

func registerIndexGauges(reg prometheus.Registerer, idx runtimeIndex, logger *zap.Logger) {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "starcell_index_queue_depth",
			Help: "Pending writes in the sqlite index queue.",
		}, func() float64 { return float64(idx.Stats().QueueDepth) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "starcell_index_dropped_passes_total",
			Help: "Pass rows dropped because the index queue was full.",
		}, func() float64 { return float64(idx.Stats().DropPassTotal) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "starcell_index_dropped_snapshots_total",
			Help: "Snapshot rows dropped because the index queue was full.",
		}, func() float64 { return float64(idx.Stats().DropSnapshotTotal) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			logger.Warn("register index metric", zap.Error(err))
		}
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

// latestSnapshot prefers the index's record and falls back to scanning the
// snapshot directory.
func latestSnapshot(ctx context.Context, worldDir string, idx runtimeIndex, logger *zap.Logger) string {
	if idx != nil {
		path, _, ok, err := idx.LatestSnapshot(ctx)
		if err != nil {
			logger.Warn("index latest snapshot", zap.Error(err))
		} else if ok {
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
