package world

import (
	behaviorpkg "starcell.sim/internal/sim/world/feature/behavior/runtime"
	movementpkg "starcell.sim/internal/sim/world/feature/movement/runtime"
	"starcell.sim/internal/sim/world/kernel/model"
)

// zoneEnv is the pathfinder's view of one zone.
type zoneEnv struct {
	w *World
	z *model.Zone
}

func (e *zoneEnv) Zone() model.ZoneKey { return e.z.Key }

func (e *zoneEnv) InBounds(c model.Cell) bool { return e.z.InBounds(c.X, c.Y) }

func (e *zoneEnv) Blocked(c model.Cell, flying bool) bool {
	if !e.z.InBounds(c.X, c.Y) {
		return true
	}
	id := e.z.Get(c.X, c.Y)
	if flying {
		return e.w.flyBlocked[id]
	}
	return e.w.cats.Cells.Solid(id)
}

func (e *zoneEnv) Occupied(c model.Cell, self model.ActorID) bool {
	return e.w.occupant(e.z, c, self)
}

func (e *zoneEnv) Reservations() *movementpkg.Reservations { return e.w.res }

// behaviorEnv answers the state machine's queries against the actor's zone.
type behaviorEnv struct {
	zoneEnv
}

func (w *World) envFor(z *model.Zone) *behaviorEnv {
	return &behaviorEnv{zoneEnv{w: w, z: z}}
}

func (e *behaviorEnv) NearestHostile(a *model.Actor, sp *model.Species, radius int) (model.Target, int, bool) {
	best, bestDist := e.nearestHostile(a, sp)
	if best.IsNone() || bestDist > radius {
		return model.NoTarget(), 0, false
	}
	return best, bestDist, true
}

// nearestHostile scans the zone for the closest enemy of a, ties by actor id
// with the player last.
func (e *behaviorEnv) nearestHostile(a *model.Actor, sp *model.Species) (model.Target, int) {
	best, bestDist := model.NoTarget(), 0
	var bestID model.ActorID
	for _, id := range e.z.Actors {
		b := e.w.actors[id]
		if b == nil || !b.Alive() || b.ID == a.ID {
			continue
		}
		bs, ok := e.w.species(b.Species)
		if !ok || !behaviorpkg.Hostile(a, sp, b, bs) {
			continue
		}
		d := model.Manhattan(a.Pos(), b.Pos())
		if best.IsNone() || d < bestDist || (d == bestDist && b.ID < bestID) {
			best, bestDist, bestID = model.ActorTarget(b.ID), d, b.ID
		}
	}
	if e.w.player.Zone == e.z.Key && behaviorpkg.HostileToPlayer(sp) {
		d := model.Manhattan(a.Pos(), e.w.player.Cell)
		if best.IsNone() || d < bestDist {
			best, bestDist = model.PlayerTarget(), d
		}
	}
	return best, bestDist
}

func (e *behaviorEnv) FindTarget(a *model.Actor, sp *model.Species, cat model.Category) (model.Target, bool) {
	switch cat {
	case model.CategoryHostile:
		t, _ := e.nearestHostile(a, sp)
		return t, !t.IsNone()
	case model.CategoryFood:
		cellT, cellD, cellOK := e.nearestCell(a, sp, cat)
		preyT, preyD, preyOK := e.nearestPrey(a, sp)
		switch {
		case cellOK && (!preyOK || cellD <= preyD):
			return cellT, true
		case preyOK:
			return preyT, true
		}
		return model.NoTarget(), false
	case model.CategoryWater, model.CategoryStructure, model.CategoryResource:
		t, _, ok := e.nearestCell(a, sp, cat)
		return t, ok
	case model.CategoryQuest:
		q := e.w.quest
		if q == nil {
			return model.NoTarget(), false
		}
		return model.CellTarget(q.Zone, q.Cell, model.CategoryQuest), true
	case model.CategoryExit:
		return e.exitTarget(a)
	}
	return model.NoTarget(), false
}

func (e *behaviorEnv) exitTarget(a *model.Actor) (model.Target, bool) {
	if e.z.Key.IsInterior() {
		return model.CellTarget(e.z.Key, movementpkg.ExitCell(model.DirDown, e.z.W, e.z.H), model.CategoryExit), true
	}
	sides := make([]model.Dir, 0, len(model.Cardinals))
	for _, d := range model.Cardinals {
		c := movementpkg.ExitCell(d, e.z.W, e.z.H)
		if !e.Blocked(c, false) && !e.Occupied(c, a.ID) {
			sides = append(sides, d)
		}
	}
	if len(sides) == 0 {
		return model.NoTarget(), false
	}
	d := sides[e.w.rng.Intn(len(sides))]
	return model.CellTarget(e.z.Key, movementpkg.ExitCell(d, e.z.W, e.z.H), model.CategoryExit), true
}

// nearestCell finds the closest cell matching cat in row-major order.
func (e *behaviorEnv) nearestCell(a *model.Actor, sp *model.Species, cat model.Category) (model.Target, int, bool) {
	found := false
	var best model.Cell
	bestDist := 0
	for y := 0; y < e.z.H; y++ {
		for x := 0; x < e.z.W; x++ {
			c := model.Cell{X: x, Y: y}
			if !e.w.cellMatches(e.z, c, sp, cat) {
				continue
			}
			d := model.Manhattan(a.Pos(), c)
			if !found || d < bestDist {
				found, best, bestDist = true, c, d
			}
		}
	}
	if !found {
		return model.NoTarget(), 0, false
	}
	return model.CellTarget(e.z.Key, best, cat), bestDist, true
}

func (e *behaviorEnv) nearestPrey(a *model.Actor, sp *model.Species) (model.Target, int, bool) {
	found := false
	var best model.ActorID
	bestDist := 0
	for _, id := range e.z.Actors {
		b := e.w.actors[id]
		if b == nil || !b.Alive() || b.ID == a.ID || !sp.Hunts(b.Species) {
			continue
		}
		d := model.Manhattan(a.Pos(), b.Pos())
		if !found || d < bestDist || (d == bestDist && b.ID < best) {
			found, best, bestDist = true, b.ID, d
		}
	}
	if !found {
		return model.NoTarget(), 0, false
	}
	return model.ActorTarget(best), bestDist, true
}

// cellMatches reports whether the cell at c still serves cat for sp.
func (w *World) cellMatches(z *model.Zone, c model.Cell, sp *model.Species, cat model.Category) bool {
	if !z.InBounds(c.X, c.Y) {
		return false
	}
	def := w.cats.Cells.Cell(z.Get(c.X, c.Y))
	switch cat {
	case model.CategoryFood:
		return sp.EatsCell(def.ID)
	case model.CategoryWater:
		return sp.DrinksCell(def.ID)
	case model.CategoryStructure:
		return def.Structure
	case model.CategoryResource:
		return def.Resource
	case model.CategoryExit:
		return !def.Solid
	case model.CategoryQuest:
		return w.quest != nil && w.quest.Zone == z.Key && w.quest.Cell == c
	}
	return false
}

func (e *behaviorEnv) Resolve(a *model.Actor, sp *model.Species, t model.Target) behaviorpkg.TargetStatus {
	switch t.Kind {
	case model.TargetPlayer:
		p := e.w.player
		if p.Zone != a.Zone {
			return behaviorpkg.TargetStatus{Valid: true, Dist: behaviorpkg.Infinite, Pos: p.Cell, Hostile: behaviorpkg.HostileToPlayer(sp)}
		}
		return behaviorpkg.TargetStatus{
			Valid:   true,
			InZone:  true,
			Pos:     p.Cell,
			Dist:    model.Manhattan(a.Pos(), p.Cell),
			Hostile: behaviorpkg.HostileToPlayer(sp),
		}
	case model.TargetActor:
		b := e.w.actors[t.ActorID]
		if b == nil || !b.Alive() {
			return behaviorpkg.TargetStatus{}
		}
		bs, _ := e.w.species(b.Species)
		st := behaviorpkg.TargetStatus{Valid: true, Pos: b.Pos(), Dist: behaviorpkg.Infinite, Hostile: behaviorpkg.Hostile(a, sp, b, bs)}
		if b.Zone == a.Zone {
			st.InZone = true
			st.Dist = model.Manhattan(a.Pos(), b.Pos())
		}
		return st
	case model.TargetCell:
		z, ok := e.w.zones.Get(t.Zone)
		if !ok {
			// Overworld zones appear on first entry; a quest there stays valid.
			if t.Category == model.CategoryQuest && !t.Zone.IsInterior() && e.w.quest != nil && e.w.quest.Zone == t.Zone {
				return behaviorpkg.TargetStatus{Valid: true, Pos: t.Cell, Dist: behaviorpkg.Infinite}
			}
			return behaviorpkg.TargetStatus{}
		}
		if !e.w.cellMatches(z, t.Cell, sp, t.Category) {
			return behaviorpkg.TargetStatus{}
		}
		if t.Zone != a.Zone {
			return behaviorpkg.TargetStatus{Valid: true, Pos: t.Cell, Dist: behaviorpkg.Infinite}
		}
		return behaviorpkg.TargetStatus{Valid: true, InZone: true, Pos: t.Cell, Dist: model.Manhattan(a.Pos(), t.Cell)}
	}
	return behaviorpkg.TargetStatus{}
}
