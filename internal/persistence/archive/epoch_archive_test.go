package archive

import (
	"os"
	"path/filepath"
	"testing"

	"starcell.sim/internal/persistence/snapshot"
)

func TestArchiveEpochSnapshot_CopiesFirstSnapshotOfEpoch(t *testing.T) {
	worldDir := filepath.Join(t.TempDir(), "worlds", "w1")
	src := filepath.Join(worldDir, "snapshots", "3600.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: "w1", Tick: 3600},
		Seed:   42,
	}

	epoch, archivedPath, ok, err := ArchiveEpochSnapshot(worldDir, src, snap, 1800)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok || epoch != 2 {
		t.Fatalf("expected epoch 2 archived, got epoch=%d ok=%v", epoch, ok)
	}
	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", string(got), string(want))
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(archivedPath), "meta.json")); err != nil {
		t.Fatalf("expected meta.json to exist: %v", err)
	}

	snap.Header.Tick = 3700
	if _, _, ok, err := ArchiveEpochSnapshot(worldDir, src, snap, 1800); err != nil || ok {
		t.Fatalf("expected second snapshot in epoch to be skipped, got ok=%v err=%v", ok, err)
	}
}

func TestArchiveEpochSnapshot_SkipsEpochZero(t *testing.T) {
	snap := snapshot.SnapshotV1{Header: snapshot.Header{Tick: 90}}
	if _, _, ok, err := ArchiveEpochSnapshot(t.TempDir(), "x.snap.zst", snap, 1800); err != nil || ok {
		t.Fatalf("expected no archive in epoch 0, got ok=%v err=%v", ok, err)
	}
}

func TestPruneSnapshots_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"90.snap.zst", "1800.snap.zst", "270.snap.zst", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	removed, err := PruneSnapshots(dir, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "90.snap.zst")); !os.IsNotExist(err) {
		t.Fatalf("expected oldest snapshot removed, stat err=%v", err)
	}
	for _, name := range []string{"270.snap.zst", "1800.snap.zst", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s kept: %v", name, err)
		}
	}
}
