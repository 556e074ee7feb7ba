package world

import (
	"sort"

	"starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/world/kernel/model"
	"starcell.sim/internal/sim/world/terrain/store"
)

func targetV1(t model.Target) snapshot.TargetV1 {
	return snapshot.TargetV1{
		Kind:     uint8(t.Kind),
		ActorID:  int64(t.ActorID),
		Zone:     store.KeyV1(t.Zone),
		X:        t.Cell.X,
		Y:        t.Cell.Y,
		Category: uint8(t.Category),
	}
}

func actorV1(a *model.Actor) snapshot.ActorV1 {
	av := snapshot.ActorV1{
		ID:                 int64(a.ID),
		Species:            a.Species,
		Name:               a.Name,
		Zone:               store.KeyV1(a.Zone),
		X:                  a.X,
		Y:                  a.Y,
		WorldX:             a.WorldX,
		WorldY:             a.WorldY,
		Facing:             uint8(a.Facing),
		Health:             a.Health,
		MaxHealth:          a.MaxHealth,
		Hunger:             a.Hunger,
		MaxHunger:          a.MaxHunger,
		Thirst:             a.Thirst,
		MaxThirst:          a.MaxThirst,
		State:              uint8(a.State),
		StateTimer:         a.StateTimer,
		Target:             targetV1(a.Target),
		TargetCategory:     uint8(a.TargetCategory),
		AttackedBy:         targetV1(a.AttackedBy),
		FleeFrom:           targetV1(a.FleeFrom),
		KilledBy:           targetV1(a.KilledBy),
		Faction:            a.Faction,
		MemoryMax:          a.MemoryMax,
		Stuck:              a.Stuck,
		MoveCooldown:       a.MoveCooldown,
		LastAITick:         a.LastAITick,
		LastTransitionTick: a.LastTransitionTick,
		NeedsToolForDrops:  a.NeedsToolForDrops,
	}
	for _, c := range a.Memory {
		av.Memory = append(av.Memory, [2]int{c.X, c.Y})
	}
	return av
}

// ExportSnapshot captures the full world state at nowTick. Loop goroutine only.
func (w *World) ExportSnapshot(nowTick int64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			RunID:   w.cfg.RunID,
			Tick:    uint64(nowTick),
		},
		Seed:          w.tun.Seed,
		TickRate:      w.tun.TickRateHz,
		StrideTicks:   w.tun.Scheduler.StrideTicks,
		GridW:         w.zones.W,
		GridH:         w.zones.H,
		PaletteDigest: w.cats.Cells.PaletteDigest,
		SpeciesDigest: w.cats.Species.Digest,
		Player: snapshot.PlayerV1{
			Zone: store.KeyV1(w.player.Zone),
			X:    w.player.Cell.X,
			Y:    w.player.Cell.Y,
		},
		Zones: w.zones.ExportZones(),
		Counters: snapshot.CountersV1{
			NextActor:    w.nextActor,
			NextInterior: w.zones.NextInterior,
		},
	}
	if q := w.quest; q != nil {
		snap.Quest = &snapshot.CellV1{Zone: store.KeyV1(q.Zone), X: q.Cell.X, Y: q.Cell.Y}
	}

	ids := make([]model.ActorID, 0, len(w.actors))
	for id := range w.actors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	snap.Actors = make([]snapshot.ActorV1, 0, len(ids))
	for _, id := range ids {
		snap.Actors = append(snap.Actors, actorV1(w.actors[id]))
	}
	for _, k := range w.pendingCatchUps {
		snap.PendingCatchUps = append(snap.PendingCatchUps, store.KeyV1(k))
	}
	return snap
}
