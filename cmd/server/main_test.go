package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"starcell.sim/internal/persistence/snapshot"
)

func TestWriteSnapshotArchivesAndPrunes(t *testing.T) {
	worldDir := t.TempDir()
	log := zap.NewNop()
	for _, tick := range []uint64{100, 200, 300, 400} {
		snap := snapshot.SnapshotV1{
			Header: snapshot.Header{Version: snapshot.Version, WorldID: "w", Tick: tick},
			Seed:   9,
			GridW:  24,
			GridH:  18,
		}
		writeSnapshot(worldDir, snap, nil, 250, 2, log)
	}

	ents, err := os.ReadDir(filepath.Join(worldDir, "snapshots"))
	if err != nil {
		t.Fatalf("read snapshots dir: %v", err)
	}
	if len(ents) != 2 {
		t.Fatalf("expected 2 retained snapshots, got %d", len(ents))
	}
	if got := latestSnapshot(context.Background(), worldDir, nil, log); filepath.Base(got) != "400.snap.zst" {
		t.Fatalf("expected latest 400.snap.zst, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(worldDir, "archives", "epoch_001", "300.snap.zst")); err != nil {
		t.Fatalf("expected epoch 1 archive of tick 300: %v", err)
	}
	if _, err := os.Stat(filepath.Join(worldDir, "archives", "epoch_001", "400.snap.zst")); err == nil {
		t.Fatalf("expected only the first snapshot of the epoch to be archived")
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("STARCELL_TEST_BOOL", "true")
	if !envBool("STARCELL_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("STARCELL_TEST_BOOL", "nope")
	if envBool("STARCELL_TEST_BOOL", false) {
		t.Fatalf("expected default on parse error")
	}
}
