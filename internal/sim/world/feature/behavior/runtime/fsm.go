package runtime

import (
	"math"

	modelpkg "starcell.sim/internal/sim/world/kernel/model"
)

// Infinite is the distance reported for targets outside the actor's zone.
const Infinite = math.MaxInt32

type Params struct {
	DetectionRadius  int
	FleeRadius       int
	ReactTimer       int
	SearchCooldown   int
	IdleTimerMin     int
	IdleTimerMax     int
	SurvivalFraction float64
	HealthFraction   float64
}

// TargetStatus is the re-validated view of a target reference.
type TargetStatus struct {
	// Valid is false when the referenced actor is dead or gone, or a cell
	// target's zone no longer exists.
	Valid   bool
	InZone  bool
	Pos     modelpkg.Cell
	Dist    int
	Hostile bool
}

// Env answers the zone queries the state machine needs. Implementations
// must never fail on a missing zone; they report "not found" instead.
type Env interface {
	NearestHostile(a *modelpkg.Actor, sp *modelpkg.Species, radius int) (modelpkg.Target, int, bool)
	FindTarget(a *modelpkg.Actor, sp *modelpkg.Species, cat modelpkg.Category) (modelpkg.Target, bool)
	Resolve(a *modelpkg.Actor, sp *modelpkg.Species, t modelpkg.Target) TargetStatus
}

// Action is what the world should execute for the actor after the update.
type Action uint8

const (
	ActNone Action = iota
	ActAttack
	ActApproach
	ActFlee
	ActWander
	ActInteract
)

func (a Action) String() string {
	switch a {
	case ActAttack:
		return "attack"
	case ActApproach:
		return "approach"
	case ActFlee:
		return "flee"
	case ActWander:
		return "wander"
	case ActInteract:
		return "interact"
	}
	return "none"
}

type Outcome struct {
	Skipped  bool
	From     modelpkg.State
	To       modelpkg.State
	Action   Action
	Reacted  bool
	Stale    bool
	NotFound bool
}

// Update runs one FSM step for a. It is a no-op if a was already updated at now.
func Update(env Env, a *modelpkg.Actor, sp *modelpkg.Species, p Params, rng modelpkg.Rand, now int64) Outcome {
	if a.LastAITick == now {
		return Outcome{Skipped: true, From: a.State, To: a.State}
	}
	a.LastAITick = now
	if !a.State.Valid() {
		a.SetState(modelpkg.StateWandering, 0)
	}
	out := Outcome{From: a.State}
	attacker := a.AttackedBy
	a.AttackedBy = modelpkg.NoTarget()

	if a.State != modelpkg.StateCombat && a.State != modelpkg.StateFlee {
		if react(env, a, sp, p, rng, attacker) {
			out.Reacted = true
			return finish(env, a, sp, out)
		}
	}

	if a.StateTimer > 0 {
		a.StateTimer--
	}

	switch a.State {
	case modelpkg.StateTargeting:
		evalTargeting(env, a, sp, p, rng, &out)
	case modelpkg.StateCombat:
		evalCombat(env, a, sp, &out)
	}

	if a.StateTimer == 0 {
		switch a.State {
		case modelpkg.StateIdle:
			evalIdle(env, a, sp, p, rng, &out)
		case modelpkg.StateWandering:
			evalWandering(env, a, sp, p, rng, &out)
		case modelpkg.StateFlee:
			a.FleeFrom = modelpkg.NoTarget()
			a.SetState(modelpkg.StateWandering, 2)
		}
	}
	return finish(env, a, sp, out)
}

func finish(env Env, a *modelpkg.Actor, sp *modelpkg.Species, out Outcome) Outcome {
	out.To = a.State
	switch a.State {
	case modelpkg.StateCombat:
		out.Action = ActAttack
	case modelpkg.StateFlee:
		out.Action = ActFlee
	case modelpkg.StateTargeting:
		out.Action = ActApproach
	case modelpkg.StateWandering:
		out.Action = ActWander
	case modelpkg.StateIdle:
		if !a.Target.IsNone() {
			if st := env.Resolve(a, sp, a.Target); st.Valid && st.InZone && st.Dist <= 1 {
				out.Action = ActInteract
			}
		}
	}
	return out
}

// engage enters combat with t when adjacent, otherwise starts approaching it.
func engage(a *modelpkg.Actor, t modelpkg.Target, dist, timer int) {
	a.Target = t
	a.TargetCategory = modelpkg.CategoryHostile
	a.FleeFrom = modelpkg.NoTarget()
	if dist <= 1 {
		a.SetState(modelpkg.StateCombat, timer)
		return
	}
	a.SetState(modelpkg.StateTargeting, timer)
}

func flee(a *modelpkg.Actor, from modelpkg.Target, timer int) {
	a.ClearTarget()
	a.FleeFrom = from
	a.SetState(modelpkg.StateFlee, timer)
}

func react(env Env, a *modelpkg.Actor, sp *modelpkg.Species, p Params, rng modelpkg.Rand, attacker modelpkg.Target) bool {
	if !attacker.IsNone() {
		if st := env.Resolve(a, sp, attacker); st.Valid && st.InZone {
			if rng.Float64() < sp.Traits.FleeChance {
				flee(a, attacker, p.ReactTimer)
			} else {
				engage(a, attacker, st.Dist, p.ReactTimer)
			}
			return true
		}
	}

	t, dist, ok := env.NearestHostile(a, sp, p.DetectionRadius)
	if !ok {
		return false
	}
	if sp.Traits.Has(modelpkg.CategoryHostile) {
		engage(a, t, dist, p.ReactTimer)
		return true
	}
	if dist <= p.FleeRadius && rng.Float64() < 1-sp.Traits.CombatChance {
		flee(a, t, p.ReactTimer)
		return true
	}
	return false
}

func dropToWandering(a *modelpkg.Actor, timer int) {
	a.ClearTarget()
	a.SetState(modelpkg.StateWandering, timer)
}

func evalTargeting(env Env, a *modelpkg.Actor, sp *modelpkg.Species, p Params, rng modelpkg.Rand, out *Outcome) {
	if a.Target.IsNone() {
		if !acquire(env, a, sp, p, rng, a.TargetCategory) {
			out.NotFound = true
			dropToWandering(a, p.SearchCooldown)
			return
		}
	}
	st := env.Resolve(a, sp, a.Target)
	if !st.Valid {
		out.Stale = true
		dropToWandering(a, 2)
		return
	}
	if !st.InZone && a.Target.Kind != modelpkg.TargetCell {
		// Off-zone actors are out of reach; search again next update.
		a.Target = modelpkg.NoTarget()
		return
	}
	if !st.InZone || st.Dist > 1 {
		return
	}
	if st.Hostile {
		a.SetState(modelpkg.StateCombat, p.ReactTimer)
		return
	}
	a.SetState(modelpkg.StateIdle, 2)
}

func evalCombat(env Env, a *modelpkg.Actor, sp *modelpkg.Species, out *Outcome) {
	if a.Target.Kind == modelpkg.TargetCell || a.Target.IsNone() {
		dropToWandering(a, 2)
		return
	}
	st := env.Resolve(a, sp, a.Target)
	if !st.Valid {
		out.Stale = true
		dropToWandering(a, 2)
		return
	}
	if !st.InZone || st.Dist > 1 {
		a.SetState(modelpkg.StateTargeting, 1)
	}
}

// acquire resolves a target for cat, or walks the category order when cat is
// none. It reports whether a target was found.
func acquire(env Env, a *modelpkg.Actor, sp *modelpkg.Species, p Params, rng modelpkg.Rand, cat modelpkg.Category) bool {
	cats := []modelpkg.Category{cat}
	if cat == modelpkg.CategoryNone {
		cats = CategoryOrder(a, sp, p, rng)
	}
	for _, c := range cats {
		if t, ok := env.FindTarget(a, sp, c); ok {
			a.Target = t
			a.TargetCategory = c
			return true
		}
	}
	return false
}

func idleTimer(p Params, rng modelpkg.Rand) int {
	span := p.IdleTimerMax - p.IdleTimerMin
	if span <= 0 {
		return p.IdleTimerMin
	}
	return p.IdleTimerMin + rng.Intn(span+1)
}

func evalIdle(env Env, a *modelpkg.Actor, sp *modelpkg.Species, p Params, rng modelpkg.Rand, out *Outcome) {
	tr := sp.Traits
	r := rng.Float64()
	switch {
	case r < tr.Aggressiveness:
		a.ClearTarget()
		if acquire(env, a, sp, p, rng, modelpkg.CategoryNone) {
			a.SetState(modelpkg.StateTargeting, 2)
			return
		}
		out.NotFound = true
		a.SetState(modelpkg.StateWandering, 3)
	case r < tr.Aggressiveness+tr.Passiveness:
		a.ClearTarget()
		a.SetState(modelpkg.StateWandering, 2)
	default:
		a.ClearTarget()
		a.SetState(modelpkg.StateIdle, idleTimer(p, rng))
	}
}

func evalWandering(env Env, a *modelpkg.Actor, sp *modelpkg.Species, p Params, rng modelpkg.Rand, out *Outcome) {
	tr := sp.Traits
	r := rng.Float64()
	switch {
	case r < tr.Aggressiveness:
		if acquire(env, a, sp, p, rng, modelpkg.CategoryNone) {
			a.SetState(modelpkg.StateTargeting, 2)
			return
		}
		out.NotFound = true
		a.SetState(modelpkg.StateWandering, 3)
	case r < tr.Aggressiveness+tr.Idleness:
		a.SetState(modelpkg.StateIdle, idleTimer(p, rng))
	default:
		a.SetState(modelpkg.StateWandering, 2)
	}
}
