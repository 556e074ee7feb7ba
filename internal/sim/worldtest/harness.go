package worldtest

import (
	"testing"

	"starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/catalogs"
	"starcell.sim/internal/sim/tuning"
	world "starcell.sim/internal/sim/world"
	"starcell.sim/internal/sim/world/kernel/model"
	genpkg "starcell.sim/internal/sim/world/terrain/gen"
)

// Harness is a small black-box test helper for driving a world via exported APIs:
// - Spawn() places actors; Pass() runs one scheduling pass
// - Effects and Drops record presentation and inventory hooks
// - Snapshot/Restore round-trip the world through SnapshotV1
//
// It intentionally avoids touching world internals so tests can live outside the world package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	Effects []Effect
	Drops   []Drop
}

type Effect struct {
	Zone   model.ZoneKey
	At     model.Cell
	Effect string
}

type Drop struct {
	Zone  model.ZoneKey
	At    model.Cell
	Items []world.ItemStack
}

// FlatGenerator fills every zone with a single cell id.
type FlatGenerator struct{ Fill uint16 }

func (g FlatGenerator) Overworld(z *model.Zone) []genpkg.Feature {
	for i := range z.Cells {
		z.Cells[i] = g.Fill
	}
	return nil
}

func (g FlatGenerator) Interior(z *model.Zone, _ string) {
	for i := range z.Cells {
		z.Cells[i] = g.Fill
	}
}

func LoadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

// TestTuning is the default tuning with zone discovery, move cooldowns and
// incidents switched off.
func TestTuning() tuning.Tuning {
	tun := tuning.Defaults()
	tun.Seed = 42
	tun.Scheduler.NewZoneChance = 0
	tun.Movement.BaseMoveCooldown = 0
	tun.Incidents.Enabled = false
	return tun
}

// NewHarness builds a flat grass world with the player at the far corner
// of zone 0,0.
func NewHarness(t *testing.T, tun tuning.Tuning) *Harness {
	t.Helper()
	cats := LoadCatalogs(t)
	w, err := world.New(world.WorldConfig{ID: "test", Tuning: tun}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	h := NewHarnessWithWorld(t, w, cats)
	w.SetZoneGenerator(FlatGenerator{Fill: cats.Cells.MustID("GRASS")})
	if err := w.PlacePlayer(model.Overworld(0, 0), model.Cell{X: 20, Y: 15}); err != nil {
		t.Fatalf("place player: %v", err)
	}
	return h
}

// NewHarnessWithWorld wraps an already-constructed world, e.g. one restored from a snapshot.
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{T: t, Cats: cats, W: w}
	w.SetPresenter(recorder{h})
	w.SetInventorySink(recorder{h})
	return h
}

func (h *Harness) Spawn(species string, zone model.ZoneKey, x, y int) *model.Actor {
	h.T.Helper()
	a, err := h.W.SpawnActor(species, zone, model.Cell{X: x, Y: y}, world.SpawnOptions{})
	if err != nil {
		h.T.Fatalf("spawn %s: %v", species, err)
	}
	return a
}

func (h *Harness) MustActor(id model.ActorID) *model.Actor {
	h.T.Helper()
	a, ok := h.W.Actor(id)
	if !ok {
		h.T.Fatalf("actor %d not found", id)
	}
	return a
}

func (h *Harness) MustZone(key model.ZoneKey) *model.Zone {
	h.T.Helper()
	z, ok := h.W.Zone(key)
	if !ok {
		h.T.Fatalf("zone %v not found", key)
	}
	return z
}

// Pass runs the scheduling pass for tick.
func (h *Harness) Pass(tick int64) world.TickStats {
	return h.W.RunTick(tick)
}

// Passes runs every stride-aligned pass in (from, to].
func (h *Harness) Passes(from, to int64) {
	stride := int64(h.W.Tuning().Scheduler.StrideTicks)
	for t := (from/stride + 1) * stride; t <= to; t += stride {
		h.W.RunTick(t)
	}
}

func (h *Harness) Snapshot() snapshot.SnapshotV1 {
	return h.W.ExportSnapshot(h.W.CurrentTick())
}

// Restore builds a second harness from snap with the same tuning.
func (h *Harness) Restore(snap snapshot.SnapshotV1) *Harness {
	h.T.Helper()
	w, err := world.NewFromSnapshot(world.WorldConfig{ID: h.W.ID(), Tuning: h.W.Tuning()}, h.Cats, snap)
	if err != nil {
		h.T.Fatalf("NewFromSnapshot: %v", err)
	}
	return NewHarnessWithWorld(h.T, w, h.Cats)
}

func (h *Harness) EffectCount(kind string) int {
	n := 0
	for _, e := range h.Effects {
		if e.Effect == kind {
			n++
		}
	}
	return n
}

type recorder struct{ h *Harness }

func (recorder) FaceToward(*model.Actor, model.Cell) {}
func (recorder) Animate(*model.Actor, string)        {}

func (r recorder) Effect(zone model.ZoneKey, at model.Cell, effect string) {
	r.h.Effects = append(r.h.Effects, Effect{Zone: zone, At: at, Effect: effect})
}

func (recorder) AddItem(model.ActorID, string, int) {}
func (recorder) HasTool(model.ActorID, string) bool { return false }

func (r recorder) EmitDrop(zone model.ZoneKey, at model.Cell, items []world.ItemStack) {
	r.h.Drops = append(r.h.Drops, Drop{Zone: zone, At: at, Items: items})
}
