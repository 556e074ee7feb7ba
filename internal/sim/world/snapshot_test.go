package world

import (
	"strings"
	"testing"

	"starcell.sim/internal/sim/world/kernel/model"
)

func TestSnapshotRoundTripKeepsDigest(t *testing.T) {
	w := newTestWorld(t, nil)
	home := model.Overworld(0, 0)
	mustZone(t, w, model.Overworld(1, 0))
	mustSpawn(t, w, "WOLF", home, 3, 3)
	mustSpawn(t, w, "SHEEP", home, 9, 9)
	mustSpawn(t, w, "FARMER", model.Overworld(1, 0), 4, 4)
	w.PlaceQuestTarget(&QuestTarget{Zone: model.Overworld(1, 0), Cell: model.Cell{X: 5, Y: 5}})
	for tick := int64(30); tick <= 300; tick += 30 {
		w.RunTick(tick)
	}

	snap := w.ExportSnapshot(w.CurrentTick())
	w2, err := NewFromSnapshot(WorldConfig{ID: "test", Tuning: w.tun}, w.cats, snap)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got, want := w2.stateDigest(), w.stateDigest(); got != want {
		t.Fatalf("digest mismatch after round trip: %s vs %s", got, want)
	}
	if w2.CurrentTick() != w.CurrentTick() || w2.RunID() != w.RunID() {
		t.Fatalf("expected tick and run id restored")
	}
	if w2.quest == nil || w2.quest.Cell != (model.Cell{X: 5, Y: 5}) {
		t.Fatalf("expected quest target restored, got %+v", w2.quest)
	}
	if w2.nextActor != w.nextActor {
		t.Fatalf("expected actor id counter %d, got %d", w.nextActor, w2.nextActor)
	}
}

func TestImportSnapshotRejectsMismatches(t *testing.T) {
	w := newTestWorld(t, nil)
	mustSpawn(t, w, "SHEEP", model.Overworld(0, 0), 4, 4)
	base := w.ExportSnapshot(0)

	seed := base
	seed.Seed++
	if err := w.ImportSnapshot(seed); err == nil || !strings.Contains(err.Error(), "seed") {
		t.Fatalf("expected seed mismatch, got %v", err)
	}

	grid := base
	grid.GridW++
	if err := w.ImportSnapshot(grid); err == nil || !strings.Contains(err.Error(), "grid") {
		t.Fatalf("expected grid mismatch, got %v", err)
	}

	species := base
	species.Actors = append(species.Actors[:0:0], base.Actors...)
	species.Actors[0].Species = "DRAGON"
	if err := w.ImportSnapshot(species); err == nil || !strings.Contains(err.Error(), "unknown species") {
		t.Fatalf("expected unknown species, got %v", err)
	}
}
