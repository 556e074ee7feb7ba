package runtime

import modelpkg "starcell.sim/internal/sim/world/kernel/model"

// Hostile reports whether a treats b as an enemy: exactly one side is a
// hostile species, or both are hostile species that differ, or both are
// peaceful but belong to different non-empty factions.
func Hostile(a *modelpkg.Actor, as *modelpkg.Species, b *modelpkg.Actor, bs *modelpkg.Species) bool {
	if a == nil || b == nil || as == nil || bs == nil || a.ID == b.ID {
		return false
	}
	if as.Hostile != bs.Hostile {
		return true
	}
	if as.Hostile {
		return as.ID != bs.ID
	}
	return a.Faction != "" && b.Faction != "" && a.Faction != b.Faction
}

// HostileToPlayer reports whether a species treats the player as an enemy.
func HostileToPlayer(sp *modelpkg.Species) bool {
	return sp != nil && sp.Hostile
}

// CategoryOrder lists the categories an actor should try, most urgent first:
// unmet survival needs, then shuffled specialties, then everything else shuffled.
func CategoryOrder(a *modelpkg.Actor, sp *modelpkg.Species, p Params, rng modelpkg.Rand) []modelpkg.Category {
	tr := sp.Traits
	out := make([]modelpkg.Category, 0, len(tr.Categories)+3)
	seen := map[modelpkg.Category]bool{}
	add := func(c modelpkg.Category) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	if tr.Has(modelpkg.CategoryWater) && a.MaxThirst > 0 && a.Thirst < a.MaxThirst*p.SurvivalFraction {
		add(modelpkg.CategoryWater)
	}
	if tr.Has(modelpkg.CategoryFood) && a.MaxHunger > 0 && a.Hunger < a.MaxHunger*p.SurvivalFraction {
		add(modelpkg.CategoryFood)
	}
	if tr.Has(modelpkg.CategoryStructure) && a.MaxHealth > 0 && a.Health < a.MaxHealth*p.HealthFraction {
		add(modelpkg.CategoryStructure)
	}

	var special, rest []modelpkg.Category
	for _, c := range tr.Categories {
		switch c {
		case modelpkg.CategoryFood, modelpkg.CategoryWater, modelpkg.CategoryStructure:
			rest = append(rest, c)
		default:
			special = append(special, c)
		}
	}
	shuffle(rng, special)
	for _, c := range special {
		add(c)
	}
	shuffle(rng, rest)
	for _, c := range rest {
		add(c)
	}
	return out
}

func shuffle(rng modelpkg.Rand, cs []modelpkg.Category) {
	if rng == nil || len(cs) < 2 {
		return
	}
	rng.Shuffle(len(cs), func(i, j int) { cs[i], cs[j] = cs[j], cs[i] })
}
