package world

import (
	"fmt"

	"go.uber.org/zap"

	"starcell.sim/internal/sim/world/kernel/model"
)

type SpawnOptions struct {
	Name    string
	Faction string
	// Timer is the initial state timer; fresh spawns from zone generation
	// get a random one instead.
	Timer int
	// NeedsToolForDrops marks proxies that collect drops only with the right tool.
	NeedsToolForDrops bool
}

// SpawnActor places a new actor of speciesID at c in zone. Loop goroutine only.
func (w *World) SpawnActor(speciesID string, zone model.ZoneKey, c model.Cell, opts SpawnOptions) (*model.Actor, error) {
	sp, ok := w.species(speciesID)
	if !ok {
		return nil, fmt.Errorf("unknown species %q", speciesID)
	}
	z, ok := w.zones.Get(zone)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrMissingZone, zone)
	}
	if !z.InBounds(c.X, c.Y) {
		return nil, fmt.Errorf("spawn cell %d,%d outside zone %v", c.X, c.Y, zone)
	}
	a := w.newActor(sp, z, c)
	a.Name = opts.Name
	a.Faction = opts.Faction
	a.NeedsToolForDrops = opts.NeedsToolForDrops
	a.StateTimer = max(0, opts.Timer)
	return a, nil
}

func (w *World) newActor(sp *model.Species, z *model.Zone, c model.Cell) *model.Actor {
	id := model.ActorID(w.nextActor)
	w.nextActor++
	a := model.NewActor(id, sp, z.Key, c.X, c.Y, w.tun.Movement.MemoryMax)
	w.actors[id] = a
	z.AddActor(id)
	return a
}

// RemoveActor despawns id without drops, as external lifecycle code does.
func (w *World) RemoveActor(id model.ActorID) bool {
	a, ok := w.actors[id]
	if !ok {
		return false
	}
	if z, ok := w.zones.Get(a.Zone); ok {
		z.RemoveActor(id)
	}
	delete(w.actors, id)
	return true
}

// killActor removes a dead actor and emits its drops.
func (w *World) killActor(a *model.Actor, cause string) {
	if _, ok := w.actors[a.ID]; !ok {
		return
	}
	a.Health = 0
	w.RemoveActor(a.ID)
	w.pass.Deaths++
	w.presenter.Animate(a, "death")
	w.presenter.Effect(a.Zone, a.Pos(), "death")

	sp, ok := w.species(a.Species)
	if !ok {
		return
	}
	var killer *model.Actor
	if id, ok := a.KilledBy.Actor(); ok {
		killer = w.actors[id]
	}
	var items []ItemStack
	for _, d := range sp.Drops {
		if d.Count <= 0 || w.rng.Float64() >= d.Chance {
			continue
		}
		if killer != nil && killer.NeedsToolForDrops && !w.inventory.HasTool(killer.ID, d.Item) {
			continue
		}
		items = append(items, ItemStack{Item: d.Item, Count: d.Count})
	}
	if len(items) > 0 {
		w.inventory.EmitDrop(a.Zone, a.Pos(), items)
	}
	w.log.Debug("actor died",
		zap.Int64("actor", int64(a.ID)),
		zap.String("species", a.Species),
		zap.String("cause", cause),
		zap.Stringer("zone", a.Zone))
}

// zoneForEntry returns the zone at key, generating and populating it when it
// is a new overworld zone.
func (w *World) zoneForEntry(key model.ZoneKey, now int64) (*model.Zone, bool) {
	z, created, ok := w.zones.GetOrGen(key)
	if !ok {
		return nil, false
	}
	if created {
		z.LastUpdate = now
		w.populate(z)
		for _, l := range z.Links {
			if in, ok := w.zones.Get(l); ok && in.LastUpdate < 0 {
				in.LastUpdate = now
			}
		}
	}
	return z, true
}

// populate seeds a fresh overworld zone with species drawn by spawn weight.
func (w *World) populate(z *model.Zone) {
	ids := w.cats.Species.IDs
	total := 0.0
	for _, id := range ids {
		total += w.cats.Species.Defs[id].SpawnWeight
	}
	if total <= 0 {
		return
	}
	for i := 0; i < w.cfg.SpawnPerZone; i++ {
		r := w.rng.Float64() * total
		var pick string
		for _, id := range ids {
			r -= w.cats.Species.Defs[id].SpawnWeight
			if r < 0 {
				pick = id
				break
			}
		}
		sp, ok := w.species(pick)
		if !ok {
			continue
		}
		c, ok := w.freeCell(z, sp.Flying)
		if !ok {
			return
		}
		a := w.newActor(sp, z, c)
		if n := w.tun.Behavior.SpawnTimerMax; n > 0 {
			a.StateTimer = w.rng.Intn(n + 1)
		}
	}
}

// freeCell picks a random walkable unoccupied cell, falling back to a scan.
func (w *World) freeCell(z *model.Zone, flying bool) (model.Cell, bool) {
	env := &zoneEnv{w: w, z: z}
	for i := 0; i < 32; i++ {
		c := model.Cell{X: w.rng.Intn(z.W), Y: w.rng.Intn(z.H)}
		if !env.Blocked(c, flying) && !env.Occupied(c, 0) {
			return c, true
		}
	}
	for y := 0; y < z.H; y++ {
		for x := 0; x < z.W; x++ {
			c := model.Cell{X: x, Y: y}
			if !env.Blocked(c, flying) && !env.Occupied(c, 0) {
				return c, true
			}
		}
	}
	return model.Cell{}, false
}
