package world

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"starcell.sim/internal/sim/world/kernel/model"
)

type playerReq struct {
	Zone model.ZoneKey
	Cell model.Cell
	Resp chan error
}

type questReq struct {
	Target *QuestTarget
	Resp   chan struct{}
}

type priorityReq struct {
	Key  model.ZoneKey
	Resp chan priorityResp
}

type priorityResp struct {
	Score float64
	Err   error
}

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.Info("world loop started",
		zap.String("world", w.cfg.ID),
		zap.String("run", w.cfg.RunID),
		zap.Int64("tick", w.tick.Load()),
		zap.Int("tick_rate_hz", w.tun.TickRateHz))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.setPlayer:
			req.Resp <- w.PlacePlayer(req.Zone, req.Cell)
		case req := <-w.setQuest:
			w.quest = req.Target
			close(req.Resp)
		case req := <-w.priorityReq:
			s, err := w.PriorityScore(req.Key)
			req.Resp <- priorityResp{Score: s, Err: err}
		case resp := <-w.statsReq:
			resp <- w.pass
		case <-ticker.C:
			w.step()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

func (w *World) step() {
	now := w.tick.Add(1)
	w.interpolate()
	if now%int64(w.tun.Scheduler.StrideTicks) == 0 {
		w.RunTick(now)
	}
	if every := int64(w.tun.SnapshotEveryTicks); every > 0 && now%every == 0 && w.snapshotSink != nil {
		snap := w.ExportSnapshot(now)
		select {
		case w.snapshotSink <- snap:
		default:
			w.log.Warn("snapshot sink full, dropping snapshot", zap.Int64("tick", now))
		}
	}
}

// StepOnce advances the world by a single tick using the same ordering as Run.
// It is intended for replays and tests.
func (w *World) StepOnce() (tick int64, digest string) {
	w.step()
	tick = w.tick.Load()
	return tick, w.stateDigest()
}

// interpolate eases presentation coordinates toward grid positions for
// actors the player can see.
func (w *World) interpolate() {
	z, ok := w.zones.Get(w.player.Zone)
	if !ok {
		return
	}
	for _, id := range z.Actors {
		a := w.actors[id]
		if a == nil {
			continue
		}
		a.WorldX += (float64(a.X) - a.WorldX) * 0.25
		a.WorldY += (float64(a.Y) - a.WorldY) * 0.25
	}
}

// SetPlayer moves the player proxy from outside the loop goroutine.
func (w *World) SetPlayer(ctx context.Context, zone model.ZoneKey, at model.Cell) error {
	req := playerReq{Zone: zone, Cell: at, Resp: make(chan error, 1)}
	select {
	case w.setPlayer <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.Resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetQuestTarget marks the active quest target; nil clears it.
func (w *World) SetQuestTarget(ctx context.Context, t *QuestTarget) error {
	req := questReq{Target: t, Resp: make(chan struct{})}
	select {
	case w.setQuest <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.Resp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueryPriority asks the loop goroutine for the priority score of key.
func (w *World) QueryPriority(ctx context.Context, key model.ZoneKey) (float64, error) {
	req := priorityReq{Key: key, Resp: make(chan priorityResp, 1)}
	select {
	case w.priorityReq <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case r := <-req.Resp:
		return r.Score, r.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// QueryStats returns the last pass report from the loop goroutine.
func (w *World) QueryStats(ctx context.Context) (TickStats, error) {
	resp := make(chan TickStats, 1)
	select {
	case w.statsReq <- resp:
	case <-ctx.Done():
		return TickStats{}, ctx.Err()
	}
	select {
	case s := <-resp:
		return s, nil
	case <-ctx.Done():
		return TickStats{}, ctx.Err()
	}
}

// PlacePlayer moves the player proxy. Entering a different zone generates it
// if needed and brings it up to date. Loop goroutine only.
func (w *World) PlacePlayer(zone model.ZoneKey, at model.Cell) error {
	now := w.tick.Load()
	z, ok := w.zoneForEntry(zone, now)
	if !ok {
		return fmt.Errorf("%w: %v", ErrMissingZone, zone)
	}
	if !z.InBounds(at.X, at.Y) {
		return fmt.Errorf("player cell %d,%d outside zone %v", at.X, at.Y, zone)
	}
	entered := zone != w.player.Zone
	w.player = Player{Zone: zone, Cell: at}
	if entered && w.needsCatchUp(z, now) {
		res := w.catchUp(z, now)
		w.log.Info("player zone caught up",
			zap.Stringer("zone", zone),
			zap.Int("cycles", res.Cycles),
			zap.String("mode", res.Mode))
	}
	return nil
}

// PlaceQuestTarget sets or clears the quest target. Loop goroutine only.
func (w *World) PlaceQuestTarget(t *QuestTarget) { w.quest = t }
