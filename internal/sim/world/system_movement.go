package world

import (
	"fmt"

	movementpkg "starcell.sim/internal/sim/world/feature/movement/runtime"
	"starcell.sim/internal/sim/world/kernel/model"
	genpkg "starcell.sim/internal/sim/world/terrain/gen"
)

// stepToward moves a one cell toward to when its move cooldown allows.
func (w *World) stepToward(env *behaviorEnv, a *model.Actor, sp *model.Species, to model.Cell, ready bool) error {
	if !ready || a.Pos() == to {
		return nil
	}
	res := movementpkg.Step(env, a, sp.Flying, to, w.moveParams(), w.rng)
	if !res.Moved {
		return fmt.Errorf("%w: actor %d at %d,%d toward %d,%d", ErrBlockedMovement, a.ID, a.X, a.Y, to.X, to.Y)
	}
	a.MoveCooldown = movementpkg.MoveCooldown(w.tun.Movement.BaseMoveCooldown, sp.Speed)
	w.presenter.FaceToward(a, to)
	return nil
}

// exitSide reports the exit band a stands in. Interiors only open at the bottom.
func (w *World) exitSide(z *model.Zone, a *model.Actor) (model.Dir, bool) {
	side, ok := movementpkg.ExitSide(a.Pos(), z.W, z.H, w.tun.Movement.ExitBand)
	if !ok || (z.Key.IsInterior() && side != model.DirDown) {
		return model.DirNone, false
	}
	return side, true
}

func rejected(a *model.Actor, r movementpkg.RejectReason) error {
	return fmt.Errorf("%w: actor %d: %s", ErrTransitionRejected, a.ID, r)
}

// transition crosses the zone edge a stands at. The destination overworld
// zone is generated on demand.
func (w *World) transition(env *behaviorEnv, a *model.Actor, sp *model.Species, now int64) error {
	z := env.z
	if z.Key.IsInterior() {
		return w.leaveInterior(z, a, sp, now)
	}
	var dest *model.Zone
	_, entry, reason := movementpkg.CheckTransition(a, sp.Flying, z.W, z.H, w.tun.Movement.ExitBand, now, w.tun.Movement.TransitionCooldown,
		func(d model.Dir) (movementpkg.EntryEnv, bool) {
			dz, ok := w.zoneForEntry(z.Key.Neighbor(d), now)
			if !ok {
				return nil, false
			}
			dest = dz
			return &zoneEnv{w: w, z: dz}, true
		})
	if reason != movementpkg.RejectNone {
		return rejected(a, reason)
	}
	w.moveToZone(a, z, dest, entry, now)
	return nil
}

// leaveInterior walks a out of an interior onto a free cell next to its
// overworld doorway.
func (w *World) leaveInterior(in *model.Zone, a *model.Actor, sp *model.Species, now int64) error {
	if _, ok := w.exitSide(in, a); !ok {
		return rejected(a, movementpkg.RejectNotInExitBand)
	}
	if movementpkg.CooldownActive(a, now, w.tun.Movement.TransitionCooldown) {
		return rejected(a, movementpkg.RejectCooldown)
	}
	ent, ok := w.zones.Entrances[in.Key]
	if !ok {
		return fmt.Errorf("%w: no doorway for %v", ErrMissingZone, in.Key)
	}
	parent, ok := w.zoneForEntry(ent.Zone, now)
	if !ok {
		return fmt.Errorf("%w: %v", ErrMissingZone, ent.Zone)
	}
	env := &zoneEnv{w: w, z: parent}
	for _, d := range [4]model.Dir{model.DirDown, model.DirLeft, model.DirRight, model.DirUp} {
		c := ent.Cell.Add(d)
		if env.Blocked(c, sp.Flying) || env.Occupied(c, a.ID) {
			continue
		}
		w.moveToZone(a, in, parent, c, now)
		return nil
	}
	return rejected(a, movementpkg.RejectEntryBlocked)
}

// enterInterior moves a, standing next to door, into the interior behind it.
func (w *World) enterInterior(z *model.Zone, a *model.Actor, sp *model.Species, door model.Cell, now int64) error {
	if model.Manhattan(a.Pos(), door) > 1 {
		return rejected(a, movementpkg.RejectNotInExitBand)
	}
	if movementpkg.CooldownActive(a, now, w.tun.Movement.TransitionCooldown) {
		return rejected(a, movementpkg.RejectCooldown)
	}
	key, ok := w.zones.InteriorAt(z.Key, door)
	if !ok {
		return rejected(a, movementpkg.RejectNoDestination)
	}
	in, ok := w.zones.Get(key)
	if !ok {
		return fmt.Errorf("%w: %v", ErrMissingZone, key)
	}
	entry := genpkg.InteriorEntry(in.W, in.H)
	env := &zoneEnv{w: w, z: in}
	if env.Blocked(entry, sp.Flying) || env.Occupied(entry, a.ID) {
		return rejected(a, movementpkg.RejectEntryBlocked)
	}
	w.moveToZone(a, z, in, entry, now)
	return nil
}

// moveToZone commits a crossing: residency, position and bookkeeping change
// together.
func (w *World) moveToZone(a *model.Actor, from, to *model.Zone, entry model.Cell, now int64) {
	left := a.Pos()
	from.RemoveActor(a.ID)
	to.AddActor(a.ID)
	a.Zone = to.Key
	a.X, a.Y = entry.X, entry.Y
	a.WorldX, a.WorldY = float64(entry.X), float64(entry.Y)
	a.ClearMemory()
	a.Stuck = 0
	a.LastTransitionTick = now
	w.res.Reserve(to.Key, entry, a.ID)
	w.pass.Transitions++
	w.presenter.Effect(from.Key, left, "leave")
	w.presenter.Effect(to.Key, entry, "arrive")
}

// headFor takes one step of a multi-zone trip toward dest.
func (w *World) headFor(env *behaviorEnv, a *model.Actor, sp *model.Species, dest model.ZoneKey, ready bool, now int64) error {
	z := env.z
	switch {
	case z.Key == dest:
		return nil
	case z.Key.IsInterior():
		if _, ok := w.exitSide(z, a); ok {
			return w.transition(env, a, sp, now)
		}
		return w.stepToward(env, a, sp, movementpkg.ExitCell(model.DirDown, z.W, z.H), ready)
	case dest.IsInterior() && dest.Parent() == z.Key:
		ent, ok := w.zones.Entrances[dest]
		if !ok {
			return fmt.Errorf("%w: no doorway for %v", ErrMissingZone, dest)
		}
		if model.Manhattan(a.Pos(), ent.Cell) <= 1 {
			return w.enterInterior(z, a, sp, ent.Cell, now)
		}
		return w.stepToward(env, a, sp, ent.Cell, ready)
	}
	side := movementpkg.SideToward(z.Key, dest.Parent())
	if side == model.DirNone {
		return nil
	}
	if at, ok := w.exitSide(z, a); ok && at == side {
		return w.transition(env, a, sp, now)
	}
	return w.stepToward(env, a, sp, movementpkg.ExitCell(side, z.W, z.H), ready)
}
