package runtime

import modelpkg "starcell.sim/internal/sim/world/kernel/model"

type Params struct {
	HungerDecay     float64
	ThirstDecay     float64
	StarveDamage    float64
	DehydrateDamage float64
	BaseHeal        float64
	PeacefulDamage  float64
	HostileDamage   float64
}

// NeedsDelta returns the vitals change for one zone update of a.
// healMult is the shelter multiplier in range (1 when none).
func NeedsDelta(a *modelpkg.Actor, sp *modelpkg.Species, healMult float64, p Params) (dHealth, dHunger, dThirst float64) {
	eats := len(sp.FoodSources) > 0
	drinks := sp.NeedsWater()
	if eats {
		dHunger = -p.HungerDecay
		if a.Hunger <= 0 {
			dHealth -= p.StarveDamage
		}
	}
	if drinks {
		dThirst = -p.ThirstDecay
		if a.Thirst <= 0 {
			dHealth -= p.DehydrateDamage
		}
	}
	fed := !eats || a.Hunger >= a.MaxHunger
	watered := !drinks || a.Thirst >= a.MaxThirst
	if fed && watered && a.Health < a.MaxHealth {
		mult := 1.0
		if !sp.Hostile && healMult > 1 {
			mult = healMult
		}
		dHealth += p.BaseHeal * mult
	}
	return dHealth, dHunger, dThirst
}

// AttackDamage scales attacker strength. Peaceful species hit softly.
func AttackDamage(attacker *modelpkg.Species, p Params) float64 {
	if attacker == nil {
		return 0
	}
	if attacker.Hostile {
		return attacker.Strength * p.HostileDamage
	}
	return attacker.Strength * p.PeacefulDamage
}
