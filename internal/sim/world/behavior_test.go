package world

import (
	"errors"
	"testing"

	"starcell.sim/internal/sim/world/kernel/model"
	genpkg "starcell.sim/internal/sim/world/terrain/gen"
)

func TestCombatInvariantAcrossPasses(t *testing.T) {
	w := newTestWorld(t, nil)
	home := model.Overworld(0, 0)
	mustSpawn(t, w, "WOLF", home, 3, 3)
	mustSpawn(t, w, "WOLF", home, 15, 4)
	mustSpawn(t, w, "GOBLIN", home, 8, 8)
	mustSpawn(t, w, "GUARD", home, 9, 8)
	for i := 0; i < 5; i++ {
		mustSpawn(t, w, "SHEEP", home, 2+i*4, 12)
	}

	for tick := int64(30); tick <= 3000; tick += 30 {
		w.RunTick(tick)
		for id, a := range w.actors {
			if !a.State.Valid() {
				t.Fatalf("tick %d: actor %d in invalid state %d", tick, id, a.State)
			}
			if len(a.Memory) > a.MemoryMax {
				t.Fatalf("tick %d: actor %d memory %d exceeds %d", tick, id, len(a.Memory), a.MemoryMax)
			}
			if a.State != model.StateCombat {
				continue
			}
			switch a.Target.Kind {
			case model.TargetActor:
				bid, _ := a.Target.Actor()
				b, ok := w.actors[bid]
				if !ok || !b.Alive() || b.Zone != a.Zone || model.Manhattan(a.Pos(), b.Pos()) > 1 {
					t.Fatalf("tick %d: actor %d in combat with unreachable target %d", tick, id, bid)
				}
			case model.TargetPlayer:
				if w.player.Zone != a.Zone || model.Manhattan(a.Pos(), w.player.Cell) > 1 {
					t.Fatalf("tick %d: actor %d in combat with distant player", tick, id)
				}
			default:
				t.Fatalf("tick %d: actor %d in combat without an actor target", tick, id)
			}
		}
	}
}

func TestHostileNeighbourEntersCombat(t *testing.T) {
	w := newTestWorld(t, nil)
	home := model.Overworld(0, 0)
	guard := mustSpawn(t, w, "GUARD", home, 5, 5)
	guard.SetState(model.StateIdle, 0)
	goblin := mustSpawn(t, w, "GOBLIN", home, 6, 5)
	w.SetRand(fixedRand{f: 0.99})

	w.RunTick(30)
	if guard.State != model.StateCombat {
		t.Fatalf("expected combat, got %v", guard.State)
	}
	if id, ok := guard.Target.Actor(); !ok || id != goblin.ID {
		t.Fatalf("expected target %d, got %+v", goblin.ID, guard.Target)
	}
	if goblin.Health >= goblin.MaxHealth {
		t.Fatalf("expected the guard to land a hit, goblin health %v", goblin.Health)
	}
}

func TestStaleTargetIsAbsorbed(t *testing.T) {
	w := newTestWorld(t, nil)
	home := model.Overworld(0, 0)
	wolf := mustSpawn(t, w, "WOLF", home, 3, 3)
	sheep := mustSpawn(t, w, "SHEEP", home, 10, 3)
	wolf.Target = model.ActorTarget(sheep.ID)
	wolf.TargetCategory = model.CategoryFood
	wolf.SetState(model.StateTargeting, 3)
	w.RemoveActor(sheep.ID)

	pass := w.RunTick(30)
	if wolf.State != model.StateWandering || !wolf.Target.IsNone() {
		t.Fatalf("expected wandering with no target, got %v %+v", wolf.State, wolf.Target)
	}
	if pass.Absorbed["stale_target"] != 1 {
		t.Fatalf("expected one absorbed stale target, got %v", pass.Absorbed)
	}
}

func TestReservedCellGoesToFirstMover(t *testing.T) {
	w := newTestWorld(t, nil)
	home := model.Overworld(0, 0)
	z := mustZone(t, w, home)
	a := mustSpawn(t, w, "SHEEP", home, 4, 5)
	b := mustSpawn(t, w, "SHEEP", home, 6, 5)
	sp, _ := w.species("SHEEP")
	env := w.envFor(z)
	w.res.Reset()

	to := model.Cell{X: 5, Y: 5}
	if err := w.stepToward(env, a, sp, to, true); err != nil {
		t.Fatalf("first step: %v", err)
	}
	_ = w.stepToward(env, b, sp, to, true)
	if a.Pos() != to {
		t.Fatalf("expected first mover on %v, got %v", to, a.Pos())
	}
	if b.Pos() == to {
		t.Fatalf("expected second mover to take another direction")
	}
}

func TestTransitionCrossesZoneEdge(t *testing.T) {
	w := newTestWorld(t, nil)
	home := model.Overworld(0, 0)
	z := mustZone(t, w, home)
	a := mustSpawn(t, w, "SHEEP", home, 22, 9)
	sp, _ := w.species("SHEEP")
	w.pass = TickStats{Tick: 30}

	if err := w.transition(w.envFor(z), a, sp, 30); err != nil {
		t.Fatalf("transition: %v", err)
	}
	east := model.Overworld(1, 0)
	if a.Zone != east || a.Pos() != (model.Cell{X: 2, Y: 9}) {
		t.Fatalf("expected arrival at %v 2,9, got %v %v", east, a.Zone, a.Pos())
	}
	dest, ok := w.zones.Get(east)
	if !ok || !dest.HasActor(a.ID) || z.HasActor(a.ID) {
		t.Fatalf("expected residency moved to %v", east)
	}
	if a.LastTransitionTick != 30 || len(a.Memory) != 0 || w.pass.Transitions != 1 {
		t.Fatalf("expected crossing bookkeeping, got tick=%d memory=%d transitions=%d", a.LastTransitionTick, len(a.Memory), w.pass.Transitions)
	}

	a.X = 1
	err := w.transition(w.envFor(dest), a, sp, 60)
	if !errors.Is(err, ErrTransitionRejected) {
		t.Fatalf("expected cooldown rejection, got %v", err)
	}
	if a.Zone != east {
		t.Fatalf("expected rejected crossing to leave the actor in place")
	}
}

func TestEnterAndLeaveInterior(t *testing.T) {
	w := newTestWorld(t, nil)
	home := model.Overworld(0, 0)
	z := mustZone(t, w, home)
	door := model.Cell{X: 10, Y: 10}
	z.Set(door.X, door.Y, w.cats.Cells.MustID("HOUSE"))
	in, ok := w.zones.AddInterior(home, door, genpkg.BiomeHouse)
	if !ok {
		t.Fatalf("add interior failed")
	}
	a := mustSpawn(t, w, "TRADER", home, 10, 11)
	sp, _ := w.species("TRADER")

	if err := w.enterInterior(z, a, sp, door, 30); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if a.Zone != in.Key || a.Pos() != genpkg.InteriorEntry(in.W, in.H) {
		t.Fatalf("expected interior entry, got %v %v", a.Zone, a.Pos())
	}

	a.Y = in.H - 2
	later := 30 + w.tun.Movement.TransitionCooldown
	if err := w.leaveInterior(in, a, sp, later); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if a.Zone != home || a.Pos() != door.Add(model.DirDown) {
		t.Fatalf("expected exit below the door, got %v %v", a.Zone, a.Pos())
	}
}
