package runtime

import modelpkg "starcell.sim/internal/sim/world/kernel/model"

type NeedsParams struct {
	HungerDecay     float64
	ThirstDecay     float64
	NeedThreshold   float64
	EatChance       float64
	DrinkChance     float64
	WaterGain       float64
	StarveDamage    float64
	DehydrateDamage float64
	HealPerCycle    float64
}

// Local is what an actor can reach without moving. Catch-up actors never
// path, so this is computed once per actor and reused for every cycle.
type Local struct {
	HasFood  bool
	FoodGain float64
	HasWater bool
	// HealMultiplier is the best shelter bonus in range, 1 when none.
	HealMultiplier float64
}

type NeedsResult struct {
	Ate   int
	Drank int
	Died  bool
}

// AdvanceNeeds runs the simplified needs loop for cycles. Hunger only decays
// for species that eat, thirst only for species that drink. Hostile species
// get no shelter healing.
func AdvanceNeeds(a *modelpkg.Actor, sp *modelpkg.Species, loc Local, cycles int, p NeedsParams, rng modelpkg.Rand) NeedsResult {
	var res NeedsResult
	eats := len(sp.FoodSources) > 0
	drinks := sp.NeedsWater()
	for i := 0; i < cycles; i++ {
		dHunger, dThirst, dHealth := 0.0, 0.0, 0.0
		if eats {
			dHunger -= p.HungerDecay
			if a.Hunger < p.NeedThreshold && loc.HasFood && rng.Float64() < p.EatChance {
				dHunger += loc.FoodGain
				res.Ate++
			}
		}
		if drinks {
			dThirst -= p.ThirstDecay
			if a.Thirst < p.NeedThreshold && loc.HasWater && rng.Float64() < p.DrinkChance {
				dThirst += p.WaterGain
				res.Drank++
			}
		}
		if !sp.Hostile && loc.HealMultiplier > 1 {
			dHealth += p.HealPerCycle * loc.HealMultiplier
		}
		a.AdjustVitals(dHealth, dHunger, dThirst)
		if eats && a.Hunger <= 0 {
			a.AdjustVitals(-p.StarveDamage, 0, 0)
		}
		if drinks && a.Thirst <= 0 {
			a.AdjustVitals(-p.DehydrateDamage, 0, 0)
		}
		if !a.Alive() {
			res.Died = true
			break
		}
	}
	return res
}

// RaidVictim picks the living humanoid with the lowest health, ties by id.
func RaidVictim(actors []*modelpkg.Actor, humanoid func(*modelpkg.Actor) bool) *modelpkg.Actor {
	var best *modelpkg.Actor
	for _, a := range actors {
		if !a.Alive() || !humanoid(a) {
			continue
		}
		if best == nil || a.Health < best.Health || (a.Health == best.Health && a.ID < best.ID) {
			best = a
		}
	}
	return best
}
