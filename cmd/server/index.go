package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"starcell.sim/internal/persistence/indexdb"
	"starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/catalogs"
	"starcell.sim/internal/sim/tuning"
	"starcell.sim/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	Close() error
	Flush(ctx context.Context) error
	Stats() indexdb.Stats
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	LatestSnapshot(ctx context.Context) (path string, tick uint64, ok bool, err error)
}

// openRuntimeIndex opens the read-model index. It never affects the simulation.
func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("STARCELL_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(worldDir, "index", "world.sqlite")
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported STARCELL_INDEX_BACKEND: %s", backend)
	}
}
