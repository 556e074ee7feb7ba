package runtime

import (
	"testing"

	modelpkg "starcell.sim/internal/sim/world/kernel/model"
)

var testParams = Params{
	HungerDecay: 0.02, ThirstDecay: 0.015, StarveDamage: 0.1, DehydrateDamage: 0.15,
	BaseHeal: 1.5, PeacefulDamage: 0.25, HostileDamage: 1.2,
}

func sheep() *modelpkg.Species {
	return &modelpkg.Species{ID: "SHEEP", Strength: 6, FoodSources: []string{"GRASS"}, WaterSources: []string{"WATER"}}
}

func TestNeedsDeltaDecay(t *testing.T) {
	a := &modelpkg.Actor{Health: 20, MaxHealth: 20, Hunger: 50, MaxHunger: 100, Thirst: 50, MaxThirst: 100}
	dh, dhu, dth := NeedsDelta(a, sheep(), 1, testParams)
	if dh != 0 || dhu != -0.02 || dth != -0.015 {
		t.Fatalf("unexpected delta %v %v %v", dh, dhu, dth)
	}
}

func TestNeedsDeltaStarvation(t *testing.T) {
	a := &modelpkg.Actor{Health: 20, MaxHealth: 20, Hunger: 0, MaxHunger: 100, Thirst: 0, MaxThirst: 100}
	dh, _, _ := NeedsDelta(a, sheep(), 1, testParams)
	if dh > -0.2499 || dh < -0.2501 {
		t.Fatalf("expected -0.25, got %v", dh)
	}
}

func TestNeedsDeltaShelterHeal(t *testing.T) {
	a := &modelpkg.Actor{Health: 10, MaxHealth: 20, Hunger: 100, MaxHunger: 100, Thirst: 100, MaxThirst: 100}
	dh, _, _ := NeedsDelta(a, sheep(), 3, testParams)
	if dh != 4.5 {
		t.Fatalf("expected house heal 4.5, got %v", dh)
	}
	wolf := &modelpkg.Species{ID: "WOLF", Hostile: true, FoodSources: []string{"SHEEP"}}
	dh, _, _ = NeedsDelta(a, wolf, 3, testParams)
	if dh != 1.5 {
		t.Fatalf("expected hostile base heal 1.5, got %v", dh)
	}
}

func TestNeedsDeltaNoWaterSpecies(t *testing.T) {
	bat := &modelpkg.Species{ID: "BAT", FoodSources: []string{"TERMITE"}}
	a := &modelpkg.Actor{Health: 5, MaxHealth: 5, Hunger: 50, MaxHunger: 100, Thirst: 0, MaxThirst: 100}
	dh, _, dth := NeedsDelta(a, bat, 1, testParams)
	if dh != 0 || dth != 0 {
		t.Fatalf("expected no thirst effects, got dh=%v dth=%v", dh, dth)
	}
}

func TestAttackDamage(t *testing.T) {
	if got := AttackDamage(sheep(), testParams); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}
	wolf := &modelpkg.Species{Strength: 15, Hostile: true}
	if got := AttackDamage(wolf, testParams); got != 18 {
		t.Fatalf("expected 18, got %v", got)
	}
}

func TestTickReportsDeaths(t *testing.T) {
	sp := sheep()
	dying := &modelpkg.Actor{ID: 1, Species: "SHEEP", Health: 0.05, MaxHealth: 20, MaxHunger: 100, Thirst: 50, MaxThirst: 100}
	healthy := &modelpkg.Actor{ID: 2, Species: "SHEEP", Health: 20, MaxHealth: 20, Hunger: 50, MaxHunger: 100, Thirst: 50, MaxThirst: 100}
	var causes []string
	n := Tick(TickInput{NowTick: 5, Actors: []*modelpkg.Actor{dying, healthy}, Params: testParams}, TickHooks{
		Species: func(string) (*modelpkg.Species, bool) { return sp, true },
		OnDeath: func(_ int64, a *modelpkg.Actor, cause string) { causes = append(causes, cause) },
	})
	if n != 1 || len(causes) != 1 || causes[0] != "starvation" {
		t.Fatalf("expected one starvation death, got %d %v", n, causes)
	}
	if !healthy.Alive() {
		t.Fatalf("expected healthy actor alive")
	}
}
