package world

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	catchuppkg "starcell.sim/internal/sim/world/feature/catchup/runtime"
	movementpkg "starcell.sim/internal/sim/world/feature/movement/runtime"
	"starcell.sim/internal/sim/world/kernel/model"
	genpkg "starcell.sim/internal/sim/world/terrain/gen"
)

// EnsureCaughtUp brings key up to the current tick, running the catch-up
// simulator if the zone is stale. Loop goroutine only.
func (w *World) EnsureCaughtUp(key model.ZoneKey) (CatchUpResult, error) {
	z, ok := w.zones.Get(key)
	if !ok {
		return CatchUpResult{Zone: key}, fmt.Errorf("%w: %v", ErrMissingZone, key)
	}
	now := w.tick.Load()
	if !w.needsCatchUp(z, now) {
		return CatchUpResult{Zone: key, Mode: catchuppkg.ModeNone.String()}, nil
	}
	return w.catchUp(z, now), nil
}

// catchUp compresses the ticks z missed into at most MaxCycles cycles and
// marks it current.
func (w *World) catchUp(z *model.Zone, now int64) CatchUpResult {
	_, span := w.tracer.Start(context.Background(), "catchup", trace.WithAttributes(attribute.String("zone", z.Key.String())))
	defer span.End()

	base, end := z.LastUpdate, now
	if z.DebtSince >= 0 {
		base = z.DebtSince
		if z.DebtUntil >= base && z.DebtUntil <= now {
			end = z.DebtUntil
		}
	}
	res := CatchUpResult{Zone: z.Key}
	if base >= 0 && end > base {
		res.Missed = end - base
	}
	p := w.catchupParams()
	res.Cycles, res.Capped = catchuppkg.Cycles(res.Missed, p)
	mode := catchuppkg.ModeFor(res.Cycles, p)
	res.Mode = mode.String()

	switch mode {
	case catchuppkg.ModeOrdinary:
		w.replayCycles(z, base, res.Cycles, &res)
	case catchuppkg.ModeApprox:
		w.approximate(z, res.Cycles, now, &res)
	}
	z.LastUpdate = now
	z.DebtSince = -1
	z.DebtUntil = -1

	span.SetAttributes(
		attribute.Int("cycles", res.Cycles),
		attribute.Bool("capped", res.Capped),
		attribute.String("mode", res.Mode))
	w.metrics.AddCatchUp(res.Mode, res.Cycles)
	if inc := res.Incident; inc != nil {
		w.pass.Incidents = append(w.pass.Incidents, *inc)
		w.metrics.AddIncident(inc.Kind)
		w.log.Info("incident",
			zap.String("id", inc.ID),
			zap.String("kind", inc.Kind),
			zap.Stringer("zone", inc.Zone),
			zap.Int("raiders", len(inc.Raiders)),
			zap.Int64("victim", int64(inc.Victim)))
	}
	w.log.Debug("zone caught up",
		zap.Stringer("zone", z.Key),
		zap.Int64("missed", res.Missed),
		zap.Int("cycles", res.Cycles),
		zap.String("mode", res.Mode))
	return res
}

// replayCycles runs the ordinary zone update once per cycle at full
// coverage, on synthetic ticks spaced one cycle apart after base. Replay
// claims go to a scratch reservation set.
func (w *World) replayCycles(z *model.Zone, base int64, cycles int, res *CatchUpResult) {
	saved := w.res
	w.res = movementpkg.NewReservations()
	defer func() { w.res = saved }()

	deaths := w.pass.Deaths
	step := int64(w.tun.Catchup.CycleTicks)
	for i := 1; i <= cycles; i++ {
		w.res.Reset()
		w.updateZone(z, 1, base+int64(i)*step)
	}
	res.Deaths = w.pass.Deaths - deaths
}

// approximate runs the compressed passes: terrain, then needs, then the
// incident branch, then travel.
func (w *World) approximate(z *model.Zone, cycles int, now int64, res *CatchUpResult) {
	res.TerrainChanged = w.catchupTerrain(z, cycles)

	cp := w.tun.Catchup
	np := catchuppkg.NeedsParams{
		HungerDecay:     cp.HungerDecay,
		ThirstDecay:     cp.ThirstDecay,
		NeedThreshold:   cp.NeedThreshold,
		EatChance:       cp.EatChance,
		DrinkChance:     cp.DrinkChance,
		WaterGain:       cp.WaterGain,
		StarveDamage:    cp.StarveDamage,
		DehydrateDamage: cp.DehydrateDamage,
		HealPerCycle:    cp.HealPerCycle,
	}
	for _, a := range w.residents(z) {
		sp, ok := w.species(a.Species)
		if !ok {
			continue
		}
		out := catchuppkg.AdvanceNeeds(a, sp, w.localSupply(z, a, sp), cycles, np, w.rng)
		res.Ate += out.Ate
		res.Drank += out.Drank
		if out.Died {
			cause := "dehydration"
			if a.Hunger <= 0 {
				cause = "starvation"
			}
			w.killActor(a, cause)
			res.Deaths++
		}
	}

	if inc := w.maybeRaid(z, cycles, now); inc != nil {
		res.Incident = inc
		if inc.Victim != 0 {
			res.Deaths++
		}
	}
	res.Travelled = w.catchupTravel(z, cycles, now)
}

// catchupTerrain applies the compressed terrain rules. A cell that turned
// solid under a resident is put back.
func (w *World) catchupTerrain(z *model.Zone, cycles int) int {
	under := map[model.Cell]uint16{}
	for _, a := range w.residents(z) {
		under[a.Pos()] = z.Get(a.X, a.Y)
	}
	if w.player.Zone == z.Key {
		under[w.player.Cell] = z.Get(w.player.Cell.X, w.player.Cell.Y)
	}
	changed := catchuppkg.ApplyTerrain(z, w.terrainClasses, w.terrainRules, cycles, w.protectedCell, w.rng)
	for c, id := range under {
		if cur := z.Get(c.X, c.Y); cur != id && w.cats.Cells.Solid(cur) {
			z.Set(c.X, c.Y, id)
			changed--
		}
	}
	return changed
}

func (w *World) protectedCell(id uint16) bool { return w.cats.Cells.Cell(id).Protected }

// residents returns the live actors of z in resident order.
func (w *World) residents(z *model.Zone) []*model.Actor {
	out := make([]*model.Actor, 0, len(z.Actors))
	for _, id := range z.Actors {
		if a := w.actors[id]; a.Alive() {
			out = append(out, a)
		}
	}
	return out
}

// localSupply describes what a can reach without moving during catch-up.
func (w *World) localSupply(z *model.Zone, a *model.Actor, sp *model.Species) catchuppkg.Local {
	r := w.tun.Catchup.LocalRadius
	loc := catchuppkg.Local{HealMultiplier: w.shelterBonus(z, a.Pos(), w.tun.Needs.HealRadius)}
	for y := max(0, a.Y-r); y <= min(z.H-1, a.Y+r); y++ {
		for x := max(0, a.X-r); x <= min(z.W-1, a.X+r); x++ {
			if model.Manhattan(a.Pos(), model.Cell{X: x, Y: y}) > r {
				continue
			}
			def := w.cats.Cells.Cell(z.Get(x, y))
			if sp.EatsCell(def.ID) {
				gain := def.FoodValue
				if gain <= 0 {
					gain = w.tun.Catchup.FoodGain
				}
				loc.HasFood = true
				loc.FoodGain = max(loc.FoodGain, gain)
			}
			if sp.DrinksCell(def.ID) {
				loc.HasWater = true
			}
		}
	}
	return loc
}

// maybeRaid resolves a raid on a long-neglected populous zone as one event:
// raiders arrive, the weakest humanoid dies and a lair appears.
func (w *World) maybeRaid(z *model.Zone, cycles int, now int64) *Incident {
	cfg := w.tun.Incidents
	if !cfg.Enabled || len(cfg.Raiders) == 0 {
		return nil
	}
	residents := w.residents(z)
	humanoid := func(a *model.Actor) bool {
		sp, ok := w.species(a.Species)
		return ok && sp.Humanoid
	}
	humanoids := 0
	for _, a := range residents {
		if humanoid(a) {
			humanoids++
		}
	}
	if !catchuppkg.RaidEligible(cycles, humanoids, cfg.MinCycles, cfg.MinHumanoids) || w.rng.Float64() >= cfg.Chance {
		return nil
	}

	inc := &Incident{ID: ulid.Make().String(), Kind: "raid", Zone: z.Key, Tick: now}
	victim := catchuppkg.RaidVictim(residents, humanoid)
	n := 1 + w.rng.Intn(max(1, cfg.MaxRaiders))
	for i := 0; i < n; i++ {
		sp, ok := w.species(cfg.Raiders[w.rng.Intn(len(cfg.Raiders))])
		if !ok {
			continue
		}
		c, ok := w.freeCell(z, sp.Flying)
		if !ok {
			break
		}
		a := w.newActor(sp, z, c)
		a.Faction = "raiders"
		inc.Raiders = append(inc.Raiders, a.ID)
	}
	if victim != nil {
		if len(inc.Raiders) > 0 {
			victim.KilledBy = model.ActorTarget(inc.Raiders[0])
		}
		inc.Victim = victim.ID
		w.killActor(victim, "raid")
	}
	inc.Lair = w.placeLair(z)
	return inc
}

// placeLair adds the lair cell to z unless one is already there.
func (w *World) placeLair(z *model.Zone) bool {
	id, ok := w.cats.Cells.ID(w.tun.Incidents.LairCell)
	if !ok {
		return false
	}
	for _, c := range z.Cells {
		if c == id {
			return false
		}
	}
	env := &zoneEnv{w: w, z: z}
	for i := 0; i < 32; i++ {
		c := model.Cell{X: 1 + w.rng.Intn(z.W-2), Y: 1 + w.rng.Intn(z.H-2)}
		if genpkg.NearExit(c.X, c.Y, z.W, z.H) || env.Blocked(c, false) || env.Occupied(c, 0) || w.protectedCell(z.Get(c.X, c.Y)) {
			continue
		}
		z.Set(c.X, c.Y, id)
		if !z.Key.IsInterior() && w.cats.Cells.Cell(id).Enterable {
			if in, ok := w.zones.AddInterior(z.Key, c, genpkg.BiomeCave); ok {
				in.LastUpdate = z.LastUpdate
			}
		}
		return true
	}
	return false
}

// catchupTravel moves a share of residents to existing neighbour zones at
// the mirrored entry cell.
func (w *World) catchupTravel(z *model.Zone, cycles int, now int64) int {
	if z.Key.IsInterior() {
		return 0
	}
	chance := catchuppkg.TravelChance(cycles, w.catchupParams())
	if chance <= 0 {
		return 0
	}
	moved := 0
	for _, a := range w.residents(z) {
		if w.rng.Float64() >= chance {
			continue
		}
		var sides []model.Dir
		for _, d := range model.Cardinals {
			if w.zones.Exists(z.Key.Neighbor(d)) {
				sides = append(sides, d)
			}
		}
		if len(sides) == 0 {
			return moved
		}
		d := sides[w.rng.Intn(len(sides))]
		dest, _ := w.zones.Get(z.Key.Neighbor(d))
		entry := movementpkg.EntryCell(d, a.Pos(), dest.W, dest.H)
		sp, ok := w.species(a.Species)
		if !ok {
			continue
		}
		env := &zoneEnv{w: w, z: dest}
		if env.Blocked(entry, sp.Flying) || env.Occupied(entry, a.ID) {
			continue
		}
		w.moveToZone(a, z, dest, entry, now)
		moved++
	}
	return moved
}

// catchupTerrainRules builds the compressed terrain rule set over the
// generator palette.
func catchupTerrainRules(pal genpkg.Palette) ([]catchuppkg.Class, []catchuppkg.Rule) {
	const (
		water = iota
		dirt
		tree
		sand
		flower
	)
	classes := []catchuppkg.Class{
		water:  {pal.Water, pal.DeepWater},
		dirt:   {pal.Dirt},
		tree:   {pal.Tree, pal.Tree2},
		sand:   {pal.Sand},
		flower: {pal.Flower},
	}
	atLeast := func(class, n int) catchuppkg.Cond { return catchuppkg.Cond{Class: class, Min: n, Max: -1} }
	between := func(class, lo, hi int) catchuppkg.Cond { return catchuppkg.Cond{Class: class, Min: lo, Max: hi} }
	rules := []catchuppkg.Rule{
		{From: pal.Dirt, To: pal.Ground, Conds: []catchuppkg.Cond{atLeast(water, 2)}, PerCycle: 0.03, Cap: 0.8},
		{From: pal.Ground, To: pal.Dirt, Conds: []catchuppkg.Cond{between(water, 0, 0), atLeast(dirt, 2)}, PerCycle: 0.02, Cap: 0.7},
		{From: pal.Ground, To: pal.Tree, Conds: []catchuppkg.Cond{between(tree, 1, 2), atLeast(water, 1)}, PerCycle: 0.01, Cap: 0.5},
		{From: pal.Dirt, To: pal.Sand, Conds: []catchuppkg.Cond{between(water, 0, 0), atLeast(sand, 2)}, PerCycle: 0.02, Cap: 0.7},
		{From: pal.Water, To: pal.DeepWater, Conds: []catchuppkg.Cond{atLeast(water, 4)}, PerCycle: 0.05, Cap: 0.8},
		{From: pal.Ground, To: pal.Flower, Conds: []catchuppkg.Cond{between(flower, 1, 2)}, PerCycle: 0.01, Cap: 0.3},
	}
	return classes, rules
}
