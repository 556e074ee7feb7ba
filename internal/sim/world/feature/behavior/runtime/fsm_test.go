package runtime

import (
	"math/rand"
	"testing"

	modelpkg "starcell.sim/internal/sim/world/kernel/model"
)

type scriptRand struct {
	floats []float64
	ints   []int
}

func (r *scriptRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func (r *scriptRand) Shuffle(int, func(i, j int)) {}

type stubEnv struct {
	hostile     modelpkg.Target
	hostileDist int
	found       map[modelpkg.Category]modelpkg.Target
	status      map[modelpkg.Target]TargetStatus
	searched    []modelpkg.Category
}

func (e *stubEnv) NearestHostile(_ *modelpkg.Actor, _ *modelpkg.Species, radius int) (modelpkg.Target, int, bool) {
	if e.hostile.IsNone() || e.hostileDist > radius {
		return modelpkg.NoTarget(), 0, false
	}
	return e.hostile, e.hostileDist, true
}

func (e *stubEnv) FindTarget(_ *modelpkg.Actor, _ *modelpkg.Species, cat modelpkg.Category) (modelpkg.Target, bool) {
	e.searched = append(e.searched, cat)
	t, ok := e.found[cat]
	return t, ok
}

func (e *stubEnv) Resolve(_ *modelpkg.Actor, _ *modelpkg.Species, t modelpkg.Target) TargetStatus {
	return e.status[t]
}

var testParams = Params{
	DetectionRadius:  8,
	FleeRadius:       4,
	ReactTimer:       3,
	SearchCooldown:   5,
	IdleTimerMin:     2,
	IdleTimerMax:     4,
	SurvivalFraction: 0.3,
	HealthFraction:   0.5,
}

func guardSpecies() *modelpkg.Species {
	return &modelpkg.Species{
		ID: "GUARD", MaxHealth: 100,
		Traits: modelpkg.Traits{
			Aggressiveness: 0.95, Passiveness: 0.02, Idleness: 0.01, FleeChance: 0.1, CombatChance: 0.9,
			Categories: []modelpkg.Category{modelpkg.CategoryHostile, modelpkg.CategoryWater, modelpkg.CategoryFood},
		},
	}
}

func sheepSpecies() *modelpkg.Species {
	return &modelpkg.Species{
		ID: "SHEEP", MaxHealth: 20,
		Traits: modelpkg.Traits{
			Aggressiveness: 0.02, Passiveness: 0.7, Idleness: 0.25, FleeChance: 0.95, CombatChance: 0.05,
			Categories: []modelpkg.Category{modelpkg.CategoryFood, modelpkg.CategoryWater},
		},
	}
}

func newTestActor(sp *modelpkg.Species, state modelpkg.State, timer int) *modelpkg.Actor {
	a := modelpkg.NewActor(1, sp, modelpkg.Overworld(0, 0), 5, 5, 8)
	a.MaxHunger, a.Hunger, a.MaxThirst, a.Thirst = 100, 100, 100, 100
	a.SetState(state, timer)
	return a
}

func newStubEnv() *stubEnv {
	return &stubEnv{found: map[modelpkg.Category]modelpkg.Target{}, status: map[modelpkg.Target]TargetStatus{}}
}

func TestHostileAdjacentEntersCombat(t *testing.T) {
	sp := guardSpecies()
	a := newTestActor(sp, modelpkg.StateIdle, 0)
	env := newStubEnv()
	wolf := modelpkg.ActorTarget(7)
	env.hostile, env.hostileDist = wolf, 1
	env.status[wolf] = TargetStatus{Valid: true, InZone: true, Dist: 1, Hostile: true}

	out := Update(env, a, sp, testParams, &scriptRand{}, 10)
	if a.State != modelpkg.StateCombat {
		t.Fatalf("expected combat, got %v", a.State)
	}
	if id, ok := a.Target.Actor(); !ok || id != 7 {
		t.Fatalf("expected target actor 7, got %#v", a.Target)
	}
	if !out.Reacted || out.Action != ActAttack {
		t.Fatalf("expected reactive attack, got %+v", out)
	}
}

func TestHostileAtRangeStartsTargeting(t *testing.T) {
	sp := guardSpecies()
	a := newTestActor(sp, modelpkg.StateWandering, 4)
	env := newStubEnv()
	env.hostile, env.hostileDist = modelpkg.ActorTarget(7), 6
	Update(env, a, sp, testParams, &scriptRand{}, 10)
	if a.State != modelpkg.StateTargeting || a.StateTimer != 3 {
		t.Fatalf("expected targeting timer 3, got %v %d", a.State, a.StateTimer)
	}
}

func TestVanishedTargetFallsBackToWandering(t *testing.T) {
	sp := guardSpecies()
	a := newTestActor(sp, modelpkg.StateTargeting, 2)
	a.Target = modelpkg.ActorTarget(42)
	a.TargetCategory = modelpkg.CategoryFood
	env := newStubEnv()

	out := Update(env, a, sp, testParams, &scriptRand{}, 10)
	if a.State != modelpkg.StateWandering {
		t.Fatalf("expected wandering, got %v", a.State)
	}
	if !a.Target.IsNone() {
		t.Fatalf("expected target cleared, got %#v", a.Target)
	}
	if !out.Stale {
		t.Fatalf("expected stale target reported")
	}
}

func TestFleeIsNotInterrupted(t *testing.T) {
	sp := sheepSpecies()
	a := newTestActor(sp, modelpkg.StateFlee, 2)
	env := newStubEnv()
	env.hostile, env.hostileDist = modelpkg.ActorTarget(7), 1
	Update(env, a, sp, testParams, &scriptRand{floats: []float64{0}}, 10)
	if a.State != modelpkg.StateFlee || a.StateTimer != 1 {
		t.Fatalf("expected flee timer 1, got %v %d", a.State, a.StateTimer)
	}
	Update(env, a, sp, testParams, &scriptRand{}, 11)
	if a.State != modelpkg.StateWandering || a.StateTimer != 2 {
		t.Fatalf("expected wandering after flee, got %v %d", a.State, a.StateTimer)
	}
}

func TestAttackedRollsFleeOrFight(t *testing.T) {
	sp := guardSpecies()
	env := newStubEnv()
	attacker := modelpkg.ActorTarget(9)
	env.status[attacker] = TargetStatus{Valid: true, InZone: true, Dist: 1, Hostile: true}

	a := newTestActor(sp, modelpkg.StateIdle, 3)
	a.AttackedBy = attacker
	Update(env, a, sp, testParams, &scriptRand{floats: []float64{0.05}}, 10)
	if a.State != modelpkg.StateFlee || a.FleeFrom != attacker {
		t.Fatalf("expected flee from attacker, got %v %#v", a.State, a.FleeFrom)
	}

	b := newTestActor(sp, modelpkg.StateIdle, 3)
	b.AttackedBy = attacker
	Update(env, b, sp, testParams, &scriptRand{floats: []float64{0.5}}, 10)
	if b.State != modelpkg.StateCombat || b.Target != attacker {
		t.Fatalf("expected combat with attacker, got %v %#v", b.State, b.Target)
	}
	if !b.AttackedBy.IsNone() {
		t.Fatalf("expected attack marker consumed")
	}
}

func TestPeacefulFleesNearbyHostile(t *testing.T) {
	sp := sheepSpecies()
	env := newStubEnv()
	env.hostile, env.hostileDist = modelpkg.ActorTarget(7), 3

	a := newTestActor(sp, modelpkg.StateIdle, 2)
	Update(env, a, sp, testParams, &scriptRand{floats: []float64{0.5}}, 10)
	if a.State != modelpkg.StateFlee {
		t.Fatalf("expected flee, got %v", a.State)
	}

	env.hostileDist = 6
	b := newTestActor(sp, modelpkg.StateIdle, 2)
	Update(env, b, sp, testParams, &scriptRand{}, 10)
	if b.State != modelpkg.StateIdle || b.StateTimer != 1 {
		t.Fatalf("expected idle countdown outside flee radius, got %v %d", b.State, b.StateTimer)
	}
}

func TestIdleRolls(t *testing.T) {
	sp := sheepSpecies()
	env := newStubEnv()

	a := newTestActor(sp, modelpkg.StateIdle, 0)
	Update(env, a, sp, testParams, &scriptRand{floats: []float64{0.5}}, 10)
	if a.State != modelpkg.StateWandering || a.StateTimer != 2 {
		t.Fatalf("expected wandering timer 2, got %v %d", a.State, a.StateTimer)
	}

	b := newTestActor(sp, modelpkg.StateIdle, 0)
	Update(env, b, sp, testParams, &scriptRand{floats: []float64{0.9}, ints: []int{1}}, 10)
	if b.State != modelpkg.StateIdle || b.StateTimer != 3 {
		t.Fatalf("expected idle timer 3, got %v %d", b.State, b.StateTimer)
	}

	c := newTestActor(sp, modelpkg.StateIdle, 0)
	out := Update(env, c, sp, testParams, &scriptRand{floats: []float64{0.01}}, 10)
	if c.State != modelpkg.StateWandering || c.StateTimer != 3 || !out.NotFound {
		t.Fatalf("expected wandering timer 3 after failed search, got %v %d %+v", c.State, c.StateTimer, out)
	}

	grass := modelpkg.CellTarget(modelpkg.Overworld(0, 0), modelpkg.Cell{X: 8, Y: 5}, modelpkg.CategoryFood)
	env.found[modelpkg.CategoryFood] = grass
	d := newTestActor(sp, modelpkg.StateIdle, 0)
	Update(env, d, sp, testParams, &scriptRand{floats: []float64{0.01}}, 10)
	if d.State != modelpkg.StateTargeting || d.Target != grass || d.TargetCategory != modelpkg.CategoryFood {
		t.Fatalf("expected targeting grass, got %v %#v", d.State, d.Target)
	}
}

func TestTargetingSearchFailureCoolsDown(t *testing.T) {
	sp := sheepSpecies()
	env := newStubEnv()
	a := newTestActor(sp, modelpkg.StateTargeting, 0)
	out := Update(env, a, sp, testParams, &scriptRand{}, 10)
	if a.State != modelpkg.StateWandering || a.StateTimer != testParams.SearchCooldown || !out.NotFound {
		t.Fatalf("expected wandering with search cooldown, got %v %d", a.State, a.StateTimer)
	}
}

func TestTargetingAdjacentResource(t *testing.T) {
	sp := sheepSpecies()
	env := newStubEnv()
	water := modelpkg.CellTarget(modelpkg.Overworld(0, 0), modelpkg.Cell{X: 5, Y: 6}, modelpkg.CategoryWater)
	env.status[water] = TargetStatus{Valid: true, InZone: true, Dist: 1}
	a := newTestActor(sp, modelpkg.StateTargeting, 0)
	a.Target, a.TargetCategory = water, modelpkg.CategoryWater
	out := Update(env, a, sp, testParams, &scriptRand{}, 10)
	if a.State != modelpkg.StateIdle || out.Action != ActInteract {
		t.Fatalf("expected idle interact, got %v %v", a.State, out.Action)
	}
}

func TestTargetingOffZoneActorResearches(t *testing.T) {
	sp := guardSpecies()
	env := newStubEnv()
	far := modelpkg.ActorTarget(3)
	env.status[far] = TargetStatus{Valid: true, InZone: false, Dist: Infinite}
	a := newTestActor(sp, modelpkg.StateTargeting, 1)
	a.Target, a.TargetCategory = far, modelpkg.CategoryFood
	Update(env, a, sp, testParams, &scriptRand{}, 10)
	if a.State != modelpkg.StateTargeting || !a.Target.IsNone() || a.TargetCategory != modelpkg.CategoryFood {
		t.Fatalf("expected re-search with category kept, got %v %#v %v", a.State, a.Target, a.TargetCategory)
	}
}

func TestCombatTargetMovesAway(t *testing.T) {
	sp := guardSpecies()
	env := newStubEnv()
	foe := modelpkg.ActorTarget(7)
	env.status[foe] = TargetStatus{Valid: true, InZone: true, Dist: 3, Hostile: true}
	a := newTestActor(sp, modelpkg.StateCombat, 2)
	a.Target = foe
	Update(env, a, sp, testParams, &scriptRand{}, 10)
	if a.State != modelpkg.StateTargeting || a.StateTimer != 1 {
		t.Fatalf("expected targeting timer 1, got %v %d", a.State, a.StateTimer)
	}

	delete(env.status, foe)
	b := newTestActor(sp, modelpkg.StateCombat, 2)
	b.Target = foe
	Update(env, b, sp, testParams, &scriptRand{}, 10)
	if b.State != modelpkg.StateWandering || !b.Target.IsNone() {
		t.Fatalf("expected wandering after target died, got %v %#v", b.State, b.Target)
	}
}

func TestUpdateOncePerTick(t *testing.T) {
	sp := sheepSpecies()
	env := newStubEnv()
	a := newTestActor(sp, modelpkg.StateIdle, 3)
	Update(env, a, sp, testParams, &scriptRand{}, 10)
	out := Update(env, a, sp, testParams, &scriptRand{}, 10)
	if !out.Skipped || a.StateTimer != 2 {
		t.Fatalf("expected second visit skipped with timer 2, got %+v timer=%d", out, a.StateTimer)
	}
}

func TestInvalidStateRepaired(t *testing.T) {
	sp := sheepSpecies()
	a := newTestActor(sp, modelpkg.State(42), 0)
	Update(newStubEnv(), a, sp, testParams, &scriptRand{}, 1)
	if !a.State.Valid() {
		t.Fatalf("expected valid state, got %v", a.State)
	}
}

func TestStateInvariantsUnderRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sp := guardSpecies()
	targets := []modelpkg.Target{modelpkg.ActorTarget(2), modelpkg.ActorTarget(3), modelpkg.PlayerTarget()}
	a := newTestActor(sp, modelpkg.StateWandering, 1)
	for tick := int64(0); tick < 2000; tick++ {
		env := newStubEnv()
		for _, tg := range targets {
			if rng.Intn(4) > 0 {
				env.status[tg] = TargetStatus{Valid: true, InZone: rng.Intn(5) > 0, Dist: rng.Intn(10), Hostile: rng.Intn(2) == 0}
			}
		}
		if rng.Intn(3) == 0 {
			h, d := targets[rng.Intn(len(targets))], rng.Intn(10)
			env.hostile, env.hostileDist = h, d
			env.status[h] = TargetStatus{Valid: true, InZone: true, Dist: d, Hostile: true}
		}
		if rng.Intn(2) == 0 {
			env.found[modelpkg.CategoryFood] = targets[rng.Intn(len(targets))]
		}
		if rng.Intn(6) == 0 {
			a.AttackedBy = targets[rng.Intn(len(targets))]
		}
		Update(env, a, sp, testParams, rng, tick)

		if !a.State.Valid() {
			t.Fatalf("tick %d: invalid state %v", tick, a.State)
		}
		if a.StateTimer < 0 {
			t.Fatalf("tick %d: negative timer", tick)
		}
		if a.State == modelpkg.StateCombat {
			st := env.status[a.Target]
			if a.Target.IsNone() || !st.Valid || !st.InZone || st.Dist > 1 {
				t.Fatalf("tick %d: combat without live adjacent target: %#v %+v", tick, a.Target, st)
			}
		}
	}
}
