package runtime

import modelpkg "starcell.sim/internal/sim/world/kernel/model"

type TickInput struct {
	NowTick int64
	Actors  []*modelpkg.Actor
	Params  Params
}

type TickHooks struct {
	Species        func(id string) (*modelpkg.Species, bool)
	HealMultiplier func(a *modelpkg.Actor) float64
	OnDeath        func(nowTick int64, a *modelpkg.Actor, cause string)
}

// Tick applies needs decay, starvation and regeneration to every listed actor
// and returns the number that died.
func Tick(in TickInput, hooks TickHooks) int {
	deaths := 0
	for _, a := range in.Actors {
		if a == nil || !a.Alive() {
			continue
		}
		sp, ok := hooks.Species(a.Species)
		if !ok {
			continue
		}
		mult := 1.0
		if hooks.HealMultiplier != nil {
			mult = hooks.HealMultiplier(a)
		}
		dh, dhu, dth := NeedsDelta(a, sp, mult, in.Params)
		a.AdjustVitals(dh, dhu, dth)
		if a.Alive() {
			continue
		}
		deaths++
		cause := "starvation"
		if sp.NeedsWater() && a.Thirst <= 0 {
			cause = "dehydration"
		}
		if hooks.OnDeath != nil {
			hooks.OnDeath(in.NowTick, a, cause)
		}
	}
	return deaths
}
