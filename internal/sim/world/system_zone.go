package world

import (
	schedpkg "starcell.sim/internal/sim/world/feature/scheduler/runtime"
	survivalpkg "starcell.sim/internal/sim/world/feature/survival/runtime"
	"starcell.sim/internal/sim/world/kernel/model"
)

// updateZone runs the ordinary per-pass update of z at coverage c: cell
// growth and decay over a c-fraction of cells, then needs and behavior for
// a c-fraction of resident actors. Both fractions rotate through the zone.
func (w *World) updateZone(z *model.Zone, coverage float64, now int64) (actors, cells int) {
	cells = w.growCells(z, coverage)

	ids := coverageSlice(z.Actors, &z.ActorCursor, schedpkg.CoverageCount(len(z.Actors), coverage))
	batch := make([]*model.Actor, 0, len(ids))
	for _, id := range ids {
		a := w.actors[id]
		if a == nil || !a.Alive() || a.Zone != z.Key || a.LastAITick == now {
			continue
		}
		batch = append(batch, a)
	}

	survivalpkg.Tick(survivalpkg.TickInput{NowTick: now, Actors: batch, Params: w.needsParams()}, survivalpkg.TickHooks{
		Species:        w.species,
		HealMultiplier: w.healMultiplier,
		OnDeath: func(_ int64, a *model.Actor, cause string) {
			w.killActor(a, cause)
		},
	})
	for _, a := range batch {
		if !a.Alive() || w.actors[a.ID] == nil {
			continue
		}
		w.updateActor(a, now)
	}
	z.LastUpdate = now
	return len(batch), cells
}

// coverageSlice copies n entries of ids starting at *cursor, wrapping, and
// advances the cursor.
func coverageSlice(ids []model.ActorID, cursor *int, n int) []model.ActorID {
	if len(ids) == 0 || n <= 0 {
		return nil
	}
	n = min(n, len(ids))
	start := *cursor % len(ids)
	out := make([]model.ActorID, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ids[(start+i)%len(ids)])
	}
	*cursor = (start + n) % len(ids)
	return out
}

// growCells applies the cell table's growth and decay probabilities to a
// coverage fraction of z. Cells never turn solid under an actor.
func (w *World) growCells(z *model.Zone, coverage float64) int {
	total := z.W * z.H
	n := schedpkg.CoverageCount(total, coverage)
	if n <= 0 {
		return 0
	}
	start := z.CellCursor % total
	for i := 0; i < n; i++ {
		idx := (start + i) % total
		x, y := idx%z.W, idx/z.W
		def := w.cats.Cells.Cell(z.Cells[idx])
		var to string
		switch {
		case def.GrowsTo != "" && w.rng.Float64() < def.GrowthRate:
			to = def.GrowsTo
		case def.DegradesTo != "" && w.rng.Float64() < def.DegradeRate:
			to = def.DegradesTo
		default:
			continue
		}
		id, ok := w.cats.Cells.ID(to)
		if !ok {
			continue
		}
		if w.cats.Cells.Solid(id) && w.occupant(z, model.Cell{X: x, Y: y}, 0) {
			continue
		}
		z.Set(x, y, id)
	}
	z.CellCursor = (start + n) % total
	return n
}

// healMultiplier is the best shelter bonus within the heal radius of a.
func (w *World) healMultiplier(a *model.Actor) float64 {
	z, ok := w.zones.Get(a.Zone)
	if !ok {
		return 1
	}
	return w.shelterBonus(z, a.Pos(), w.tun.Needs.HealRadius)
}

func (w *World) shelterBonus(z *model.Zone, at model.Cell, radius int) float64 {
	best := 1.0
	for y := max(0, at.Y-radius); y <= min(z.H-1, at.Y+radius); y++ {
		for x := max(0, at.X-radius); x <= min(z.W-1, at.X+radius); x++ {
			if model.Manhattan(at, model.Cell{X: x, Y: y}) > radius {
				continue
			}
			if m := w.cats.Cells.Cell(z.Get(x, y)).HealMultiplier; m > best {
				best = m
			}
		}
	}
	return best
}

// occupant reports whether a live actor other than self, or the player,
// stands on c in z.
func (w *World) occupant(z *model.Zone, c model.Cell, self model.ActorID) bool {
	if w.player.Zone == z.Key && w.player.Cell == c {
		return true
	}
	for _, id := range z.Actors {
		if id == self {
			continue
		}
		if a := w.actors[id]; a != nil && a.Alive() && a.X == c.X && a.Y == c.Y {
			return true
		}
	}
	return false
}
