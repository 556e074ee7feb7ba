package world

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	schedpkg "starcell.sim/internal/sim/world/feature/scheduler/runtime"
	"starcell.sim/internal/sim/world/kernel/model"
)

// RunTick runs one scheduling pass for tick. Calling it again with the same
// or an earlier tick is a no-op that returns the last report.
func (w *World) RunTick(tick int64) TickStats {
	if tick <= w.lastPassTick {
		return w.pass
	}
	_, span := w.tracer.Start(context.Background(), "scheduler.pass", trace.WithAttributes(attribute.Int64("tick", tick)))
	defer span.End()
	start := time.Now()

	if tick > w.tick.Load() {
		w.tick.Store(tick)
	}
	w.lastPassTick = tick
	w.pass = TickStats{Tick: tick}
	w.res.Reset()

	if _, ok := w.zoneForEntry(w.player.Zone, tick); !ok {
		w.absorb(fmt.Errorf("%w: player zone %v", ErrMissingZone, w.player.Zone))
	}
	w.maybeDiscoverZone(tick)

	mandatory := schedpkg.Mandatory(w.player.Zone, w.zones.Exists, w.zones.Links)
	optional := w.optionalCandidates(tick, mandatory)
	plan := schedpkg.Plan(schedpkg.PlanInput{
		Mandatory:   mandatory,
		Optional:    optional,
		Cap:         w.tun.Scheduler.ZonesPerPass,
		QueueDepth:  w.tun.Scheduler.QueueDepth,
		MinCoverage: w.tun.Scheduler.MinCoverage,
	}, w.rng)
	w.pass.Mandatory = len(mandatory)
	picked := len(plan) - len(mandatory)
	if limit := w.tun.Scheduler.ZonesPerPass - len(mandatory); limit > 0 {
		w.pass.Skipped = min(limit, len(optional)) - picked
	}

	budget := w.drainPendingCatchUps(tick, w.tun.Scheduler.MaxCatchUpsPerPass)
	for _, sel := range plan {
		z, ok := w.zones.Get(sel.Key)
		if !ok {
			w.absorb(fmt.Errorf("%w: %v", ErrMissingZone, sel.Key))
			continue
		}
		if sel.Mandatory && w.needsCatchUp(z, tick) {
			switch {
			case sel.Key == w.player.Zone:
				w.pass.CatchUps = append(w.pass.CatchUps, w.catchUp(z, tick))
			case budget > 0:
				budget--
				w.pass.CatchUps = append(w.pass.CatchUps, w.catchUp(z, tick))
			default:
				// The catch-up waits for budget; the zone itself is still
				// updated live this pass.
				w.deferCatchUp(z, tick)
			}
		}
		actors, cells := w.updateZone(z, sel.Coverage, tick)
		w.pass.Actors += actors
		w.pass.Zones = append(w.pass.Zones, ZoneUpdate{
			Key:       sel.Key,
			Coverage:  sel.Coverage,
			Mandatory: sel.Mandatory,
			Score:     sel.Score,
			Actors:    actors,
			Cells:     cells,
		})
	}
	w.settleCombat()

	span.SetAttributes(
		attribute.Int("zones", len(w.pass.Zones)),
		attribute.Int("catchups", len(w.pass.CatchUps)),
		attribute.Int("actors", w.pass.Actors))
	w.metrics.ObservePass(time.Since(start), len(w.pass.Zones), w.pass.Mandatory)
	w.metrics.AddDeaths(w.pass.Deaths)
	w.metrics.SetPopulation(len(w.actors), w.zones.Len())
	w.publishPass()
	if every := int64(w.tun.Scheduler.SummaryEveryTicks); every > 0 && tick%every == 0 {
		w.log.Info("update cycle",
			zap.Int64("tick", tick),
			zap.Int("zones", len(w.pass.Zones)),
			zap.Int("mandatory", w.pass.Mandatory),
			zap.Int("catchups", len(w.pass.CatchUps)),
			zap.Int("actors", len(w.actors)),
			zap.Int("known_zones", w.zones.Len()))
	}
	return w.pass
}

// PriorityScore ranks key for the current player position.
func (w *World) PriorityScore(key model.ZoneKey) (float64, error) {
	z, ok := w.zones.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrMissingZone, key)
	}
	return schedpkg.PriorityScore(w.scoreInput(z, w.tick.Load())), nil
}

func (w *World) scoreInput(z *model.Zone, now int64) schedpkg.ScoreInput {
	in := schedpkg.ScoreInput{
		Key:       z.Key,
		Player:    w.player.Zone,
		Staleness: z.Staleness(now),
		HasLinks:  len(z.Links) > 0,
		Quest:     w.quest != nil && w.quest.Zone == z.Key,
	}
	playerParent := w.player.Zone.Parent()
	for _, l := range z.Links {
		if l == w.player.Zone {
			in.LinkedToPlayer = true
			break
		}
		if l.Parent().Distance(playerParent) <= 1 {
			in.LinkedNearPlayer = true
		}
	}
	if pz, ok := w.zones.Get(w.player.Zone); ok && pz.LinkedTo(z.Key) {
		in.LinkedToPlayer = true
	}
	return in
}

func (w *World) optionalCandidates(now int64, mandatory []model.ZoneKey) []schedpkg.Candidate {
	skip := make(map[model.ZoneKey]bool, len(mandatory))
	for _, k := range mandatory {
		skip[k] = true
	}
	keys := w.zones.Keys()
	out := make([]schedpkg.Candidate, 0, len(keys))
	for _, k := range keys {
		if skip[k] {
			continue
		}
		z, _ := w.zones.Get(k)
		out = append(out, schedpkg.Candidate{Key: k, Score: schedpkg.PriorityScore(w.scoreInput(z, now))})
	}
	return out
}

// maybeDiscoverZone occasionally generates an unvisited overworld zone near
// the player so the world fills in ahead of exploration.
func (w *World) maybeDiscoverZone(now int64) {
	sc := w.tun.Scheduler
	if sc.NewZoneChance <= 0 || w.rng.Float64() >= sc.NewZoneChance {
		return
	}
	r := sc.NewZoneRadius
	p := w.player.Zone.Parent()
	key := model.Overworld(p.X+w.rng.Intn(2*r+1)-r, p.Y+w.rng.Intn(2*r+1)-r)
	if w.zones.Exists(key) {
		return
	}
	w.zoneForEntry(key, now)
}

func (w *World) needsCatchUp(z *model.Zone, now int64) bool {
	if z.DebtSince >= 0 {
		return true
	}
	if z.LastUpdate < 0 {
		return false
	}
	return z.Staleness(now) > int64(w.tun.Catchup.StaleStrides*w.tun.Scheduler.StrideTicks)
}

func (w *World) deferCatchUp(z *model.Zone, now int64) {
	if z.DebtSince < 0 {
		z.DebtSince = max(z.LastUpdate, 0)
		z.DebtUntil = now
	}
	for _, k := range w.pendingCatchUps {
		if k == z.Key {
			w.pass.Deferred++
			return
		}
	}
	w.pendingCatchUps = append(w.pendingCatchUps, z.Key)
	w.pass.Deferred++
}

// drainPendingCatchUps runs deferred catch-ups oldest first and returns the
// remaining budget.
func (w *World) drainPendingCatchUps(now int64, budget int) int {
	rest := w.pendingCatchUps[:0]
	for _, k := range w.pendingCatchUps {
		z, ok := w.zones.Get(k)
		if !ok {
			w.absorb(fmt.Errorf("%w: deferred %v", ErrMissingZone, k))
			continue
		}
		if z.DebtSince < 0 {
			continue
		}
		if budget <= 0 {
			rest = append(rest, k)
			continue
		}
		budget--
		w.pass.CatchUps = append(w.pass.CatchUps, w.catchUp(z, now))
	}
	w.pendingCatchUps = rest
	return budget
}
