package world

import (
	"fmt"

	behaviorpkg "starcell.sim/internal/sim/world/feature/behavior/runtime"
	movementpkg "starcell.sim/internal/sim/world/feature/movement/runtime"
	survivalpkg "starcell.sim/internal/sim/world/feature/survival/runtime"
	"starcell.sim/internal/sim/world/kernel/model"
)

// updateActor runs one behavior step for a and executes the chosen action.
func (w *World) updateActor(a *model.Actor, now int64) {
	sp, ok := w.species(a.Species)
	if !ok {
		return
	}
	z, ok := w.zones.Get(a.Zone)
	if !ok {
		w.absorb(fmt.Errorf("%w: actor %d in %v", ErrMissingZone, a.ID, a.Zone))
		return
	}
	env := w.envFor(z)
	out := behaviorpkg.Update(env, a, sp, w.behaviorParams(), w.rng, now)
	if out.Skipped {
		return
	}
	if out.Stale {
		w.absorb(fmt.Errorf("%w: actor %d dropped its target", ErrStaleTarget, a.ID))
	}

	ready := a.MoveCooldown <= 0
	if !ready {
		a.MoveCooldown--
	}
	switch out.Action {
	case behaviorpkg.ActAttack:
		w.attack(env, a, sp)
	case behaviorpkg.ActApproach:
		w.approach(env, a, sp, ready, now)
	case behaviorpkg.ActFlee:
		w.flee(env, a, sp, ready, now)
	case behaviorpkg.ActWander:
		w.wander(env, a, sp, ready, now)
	case behaviorpkg.ActInteract:
		w.interact(env, a, sp, now)
	}
}

// attack lands one hit on an adjacent target.
func (w *World) attack(env *behaviorEnv, a *model.Actor, sp *model.Species) {
	st := env.Resolve(a, sp, a.Target)
	if !st.Valid || !st.InZone || st.Dist > 1 {
		return
	}
	w.presenter.FaceToward(a, st.Pos)
	w.presenter.Animate(a, "attack")
	dmg := survivalpkg.AttackDamage(sp, w.needsParams())

	switch a.Target.Kind {
	case model.TargetPlayer:
		w.presenter.Effect(a.Zone, st.Pos, "hit")
	case model.TargetActor:
		b := w.actors[a.Target.ActorID]
		b.AdjustVitals(-dmg, 0, 0)
		b.AttackedBy = model.ActorTarget(a.ID)
		w.presenter.Effect(b.Zone, b.Pos(), "hit")
		if !b.Alive() {
			b.KilledBy = model.ActorTarget(a.ID)
			if bs, ok := w.species(b.Species); ok && bs.Edible && sp.Hunts(b.Species) {
				a.AdjustVitals(0, w.tun.Needs.EatGain, 0)
				w.presenter.Animate(a, "eat")
			}
			w.killActor(b, "combat")
			a.ClearTarget()
			a.SetState(model.StateWandering, 2)
			return
		}
	}

	if sp.Flying && w.rng.Float64() < w.tun.Behavior.FlyingDisengage {
		a.ClearTarget()
		a.SetState(model.StateWandering, 2)
	}
}

func (w *World) approach(env *behaviorEnv, a *model.Actor, sp *model.Species, ready bool, now int64) {
	st := env.Resolve(a, sp, a.Target)
	if !st.Valid {
		return
	}
	if st.InZone {
		if st.Dist <= 1 {
			w.presenter.FaceToward(a, st.Pos)
			return
		}
		w.absorb(w.stepToward(env, a, sp, st.Pos, ready))
		return
	}
	if a.Target.Kind == model.TargetCell {
		w.absorb(w.headFor(env, a, sp, a.Target.Zone, ready, now))
	}
}

func (w *World) flee(env *behaviorEnv, a *model.Actor, sp *model.Species, ready bool, now int64) {
	st := env.Resolve(a, sp, a.FleeFrom)
	if !st.Valid || !st.InZone {
		return
	}
	z := env.z
	if !ready {
		return
	}
	if _, ok := w.exitSide(z, a); ok {
		if err := w.transition(env, a, sp, now); err == nil {
			return
		}
	}
	away := movementpkg.AwayTarget(a.Pos(), st.Pos, max(z.W, z.H))
	away.X = min(max(away.X, 0), z.W-1)
	away.Y = min(max(away.Y, 0), z.H-1)
	w.absorb(w.stepToward(env, a, sp, away, ready))
}

// wander takes a random step now and then, crossing the zone edge when the
// step points out of an exit band.
func (w *World) wander(env *behaviorEnv, a *model.Actor, sp *model.Species, ready bool, now int64) {
	if !ready || w.rng.Float64() >= w.tun.Behavior.WanderStepChance {
		return
	}
	z := env.z
	d := model.Cardinals[w.rng.Intn(len(model.Cardinals))]
	next := a.Pos().Add(d)
	if !z.InBounds(next.X, next.Y) {
		if side, ok := w.exitSide(z, a); ok && side == d {
			w.absorb(w.transition(env, a, sp, now))
		}
		return
	}
	w.absorb(w.stepToward(env, a, sp, next, ready))
}

// interact performs the adjacent action the actor went idle for.
func (w *World) interact(env *behaviorEnv, a *model.Actor, sp *model.Species, now int64) {
	t := a.Target
	switch t.Kind {
	case model.TargetActor:
		if b := w.actors[t.ActorID]; b != nil && sp.Hunts(b.Species) {
			w.attack(env, a, sp)
		}
		return
	case model.TargetCell:
	default:
		return
	}
	z := env.z
	def := w.cats.Cells.Cell(z.Get(t.Cell.X, t.Cell.Y))
	w.presenter.FaceToward(a, t.Cell)

	switch t.Category {
	case model.CategoryFood:
		gain := def.FoodValue
		if gain <= 0 {
			gain = w.tun.Needs.EatGain
		}
		a.AdjustVitals(0, gain, 0)
		w.presenter.Animate(a, "eat")
		if def.Harvest != nil {
			w.replaceHarvested(z, t.Cell, def.Harvest.ReplaceWith)
		}
	case model.CategoryWater:
		a.AdjustVitals(0, 0, w.tun.Needs.DrinkGain)
		w.presenter.Animate(a, "drink")
	case model.CategoryResource:
		w.harvest(z, a, t.Cell)
	case model.CategoryStructure:
		if def.Enterable {
			if err := w.enterInterior(z, a, sp, t.Cell, now); err == nil {
				a.ClearTarget()
				return
			}
		}
		// Resting keeps the target; the shelter bonus heals while idle.
		w.presenter.Animate(a, "rest")
		return
	case model.CategoryExit:
		w.absorb(w.transition(env, a, sp, now))
	case model.CategoryQuest:
		w.presenter.Animate(a, "interact")
	}
	a.ClearTarget()
}

func (w *World) harvest(z *model.Zone, a *model.Actor, c model.Cell) {
	def := w.cats.Cells.Cell(z.Get(c.X, c.Y))
	h := def.Harvest
	if h == nil {
		return
	}
	if a.NeedsToolForDrops && !w.inventory.HasTool(a.ID, h.Item) {
		return
	}
	w.presenter.Animate(a, "harvest")
	w.inventory.AddItem(a.ID, h.Item, h.Count)
	w.replaceHarvested(z, c, h.ReplaceWith)
}

func (w *World) replaceHarvested(z *model.Zone, c model.Cell, with string) {
	if with == "" {
		with = w.tun.Needs.HarvestReplaceWith
	}
	id, ok := w.cats.Cells.ID(with)
	if !ok {
		return
	}
	z.Set(c.X, c.Y, id)
	w.presenter.Effect(z.Key, c, "harvest")
}

// settleCombat re-checks every engaged actor at the end of a pass, so the
// pass never ends with an actor in combat against a dead or distant target.
func (w *World) settleCombat() {
	for _, a := range w.actors {
		if a.State != model.StateCombat {
			continue
		}
		sp, ok := w.species(a.Species)
		z, zok := w.zones.Get(a.Zone)
		if !ok || !zok {
			a.ClearTarget()
			a.SetState(model.StateWandering, 2)
			continue
		}
		if a.Target.Kind != model.TargetPlayer && a.Target.Kind != model.TargetActor {
			a.ClearTarget()
			a.SetState(model.StateWandering, 2)
			continue
		}
		st := w.envFor(z).Resolve(a, sp, a.Target)
		switch {
		case !st.Valid:
			a.ClearTarget()
			a.SetState(model.StateWandering, 2)
		case !st.InZone || st.Dist > 1:
			a.SetState(model.StateTargeting, 1)
		}
	}
}
