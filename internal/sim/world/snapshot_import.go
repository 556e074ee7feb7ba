package world

import (
	"fmt"

	"starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/catalogs"
	"starcell.sim/internal/sim/world/kernel/model"
	"starcell.sim/internal/sim/world/terrain/store"
)

func targetFromV1(t snapshot.TargetV1) model.Target {
	return model.Target{
		Kind:     model.TargetKind(t.Kind),
		ActorID:  model.ActorID(t.ActorID),
		Zone:     store.KeyFromV1(t.Zone),
		Cell:     model.Cell{X: t.X, Y: t.Y},
		Category: model.Category(t.Category),
	}
}

func actorFromV1(av snapshot.ActorV1) *model.Actor {
	a := &model.Actor{
		ID:                 model.ActorID(av.ID),
		Species:            av.Species,
		Name:               av.Name,
		Zone:               store.KeyFromV1(av.Zone),
		X:                  av.X,
		Y:                  av.Y,
		WorldX:             av.WorldX,
		WorldY:             av.WorldY,
		Facing:             model.Dir(av.Facing),
		Health:             av.Health,
		MaxHealth:          av.MaxHealth,
		Hunger:             av.Hunger,
		MaxHunger:          av.MaxHunger,
		Thirst:             av.Thirst,
		MaxThirst:          av.MaxThirst,
		State:              model.State(av.State),
		StateTimer:         av.StateTimer,
		Target:             targetFromV1(av.Target),
		TargetCategory:     model.Category(av.TargetCategory),
		AttackedBy:         targetFromV1(av.AttackedBy),
		FleeFrom:           targetFromV1(av.FleeFrom),
		KilledBy:           targetFromV1(av.KilledBy),
		Faction:            av.Faction,
		MemoryMax:          av.MemoryMax,
		Stuck:              av.Stuck,
		MoveCooldown:       av.MoveCooldown,
		LastAITick:         av.LastAITick,
		LastTransitionTick: av.LastTransitionTick,
		NeedsToolForDrops:  av.NeedsToolForDrops,
	}
	for _, m := range av.Memory {
		a.Memory = append(a.Memory, model.Cell{X: m[0], Y: m[1]})
	}
	return a
}

// ImportSnapshot replaces the in-memory world with s. The next tick to
// simulate is the snapshot tick plus one.
//
// This must be called only when the world is stopped or from the world loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if w.tun.Seed != s.Seed {
		return fmt.Errorf("snapshot seed mismatch: cfg=%d snap=%d", w.tun.Seed, s.Seed)
	}
	if w.zones.W != s.GridW || w.zones.H != s.GridH {
		return fmt.Errorf("snapshot grid mismatch: cfg=%dx%d snap=%dx%d", w.zones.W, w.zones.H, s.GridW, s.GridH)
	}
	if s.PaletteDigest != "" && s.PaletteDigest != w.cats.Cells.PaletteDigest {
		return fmt.Errorf("snapshot palette digest mismatch: cfg=%s snap=%s", w.cats.Cells.PaletteDigest, s.PaletteDigest)
	}

	zs, err := store.ImportZones(s.GridW, s.GridH, w.zones.Gen, s.Zones)
	if err != nil {
		return err
	}
	if s.Counters.NextInterior > zs.NextInterior {
		zs.NextInterior = s.Counters.NextInterior
	}

	actors := make(map[model.ActorID]*model.Actor, len(s.Actors))
	next := s.Counters.NextActor
	for _, av := range s.Actors {
		a := actorFromV1(av)
		if _, ok := w.species(a.Species); !ok {
			return fmt.Errorf("snapshot actor %d: unknown species %q", a.ID, a.Species)
		}
		if !a.State.Valid() {
			return fmt.Errorf("snapshot actor %d: invalid state %d", a.ID, av.State)
		}
		z, ok := zs.Get(a.Zone)
		if !ok || !z.HasActor(a.ID) {
			return fmt.Errorf("snapshot actor %d: not resident in zone %v", a.ID, a.Zone)
		}
		actors[a.ID] = a
		next = max(next, int64(a.ID)+1)
	}
	for _, k := range zs.Keys() {
		z, _ := zs.Get(k)
		for _, id := range z.Actors {
			if a, ok := actors[id]; !ok || a.Zone != k {
				return fmt.Errorf("snapshot zone %v lists actor %d it does not own", k, id)
			}
		}
	}

	w.zones = zs
	w.actors = actors
	w.nextActor = max(next, 1)
	w.player = Player{Zone: store.KeyFromV1(s.Player.Zone), Cell: model.Cell{X: s.Player.X, Y: s.Player.Y}}
	w.quest = nil
	if q := s.Quest; q != nil {
		w.quest = &QuestTarget{Zone: store.KeyFromV1(q.Zone), Cell: model.Cell{X: q.X, Y: q.Y}}
	}
	w.pendingCatchUps = w.pendingCatchUps[:0]
	for _, k := range s.PendingCatchUps {
		w.pendingCatchUps = append(w.pendingCatchUps, store.KeyFromV1(k))
	}
	w.res.Reset()
	w.tick.Store(int64(s.Header.Tick))
	w.lastPassTick = int64(s.Header.Tick)
	w.pass = TickStats{Tick: int64(s.Header.Tick)}
	if s.Header.RunID != "" {
		w.cfg.RunID = s.Header.RunID
	}
	return nil
}

// NewFromSnapshot builds a world from cfg and restores s into it.
func NewFromSnapshot(cfg WorldConfig, cats *catalogs.Catalogs, s snapshot.SnapshotV1) (*World, error) {
	if cfg.ID == "" {
		cfg.ID = s.Header.WorldID
	}
	cfg.Tuning.Seed = s.Seed
	w, err := New(cfg, cats)
	if err != nil {
		return nil, err
	}
	if err := w.ImportSnapshot(s); err != nil {
		return nil, err
	}
	return w, nil
}
