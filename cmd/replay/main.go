package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"starcell.sim/internal/logging"
	persistlog "starcell.sim/internal/persistence/log"
	"starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/catalogs"
	"starcell.sim/internal/sim/tuning"
	"starcell.sim/internal/sim/world"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst")
		passesDir  = flag.String("passes", "", "pass log dir containing passes-*.jsonl.zst (optional)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		steps      = flag.Int("steps", 0, "ticks to step headless after loading the snapshot")
		logLevel   = flag.String("log_level", "info", "log level")
	)
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: *logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *snapPath == "" && *passesDir == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot or -passes")
		os.Exit(2)
	}

	if *passesDir != "" {
		if err := summarizePasses(*passesDir); err != nil {
			logger.Fatal("summarize passes", zap.Error(err))
		}
	}
	if *snapPath == "" {
		return
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		logger.Fatal("read snapshot", zap.Error(err))
	}
	fmt.Printf("snapshot v%d world=%s run=%s tick=%d seed=%d grid=%dx%d zones=%d actors=%d pending=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.RunID, snap.Header.Tick, snap.Seed,
		snap.GridW, snap.GridH, len(snap.Zones), len(snap.Actors), len(snap.PendingCatchUps))

	if *steps <= 0 {
		return
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatal("load catalogs", zap.Error(err))
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatal("load tuning", zap.Error(err))
		}
		logger.Info("tuning not found, using defaults", zap.String("path", tp))
		tune = tuning.Defaults()
	}

	w, err := world.NewFromSnapshot(world.WorldConfig{ID: snap.Header.WorldID, RunID: snap.Header.RunID, Tuning: tune}, cats, snap)
	if err != nil {
		logger.Fatal("restore world", zap.Error(err))
	}
	w.SetLogger(logger)

	var (
		tick   int64
		digest string
		passes int
	)
	ch, cancel := w.Subscribe(64)
	defer cancel()
	for i := 0; i < *steps; i++ {
		tick, digest = w.StepOnce()
		for drained := false; !drained; {
			select {
			case <-ch:
				passes++
			default:
				drained = true
			}
		}
	}
	stats := w.LastStats()
	fmt.Printf("replay ok: stepped=%d passes=%d tick=%d actors=%d zones=%d last_catchups=%d digest=%s\n",
		*steps, passes, tick, w.ActorCount(), len(w.ZoneKeys()), len(stats.CatchUps), digest)
}

// summarizePasses prints per-file counts from the pass log.
func summarizePasses(dir string) error {
	files, err := listPassFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no pass files found in %s", dir)
	}
	for _, path := range files {
		var passes, catchUps, incidents, deaths int
		var first, last int64 = -1, -1
		err := persistlog.ReadJSONL(path, func(e world.TickLogEntry) error {
			if first < 0 {
				first = e.Tick
			}
			if e.Tick < last {
				return fmt.Errorf("%s: pass tick went backwards: %d after %d", filepath.Base(path), e.Tick, last)
			}
			last = e.Tick
			passes++
			catchUps += len(e.CatchUps)
			incidents += len(e.Incidents)
			deaths += e.Deaths
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s passes=%d ticks=%d..%d catchups=%d incidents=%d deaths=%d\n",
			filepath.Base(path), passes, first, last, catchUps, incidents, deaths)
	}
	return nil
}

func listPassFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "passes-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}
