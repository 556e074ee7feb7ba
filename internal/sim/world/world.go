package world

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/catalogs"
	"starcell.sim/internal/sim/tuning"
	behaviorpkg "starcell.sim/internal/sim/world/feature/behavior/runtime"
	catchuppkg "starcell.sim/internal/sim/world/feature/catchup/runtime"
	movementpkg "starcell.sim/internal/sim/world/feature/movement/runtime"
	survivalpkg "starcell.sim/internal/sim/world/feature/survival/runtime"
	"starcell.sim/internal/sim/world/kernel/model"
	genpkg "starcell.sim/internal/sim/world/terrain/gen"
	"starcell.sim/internal/sim/world/terrain/store"
)

// Player is the player proxy's position. It is not an Actor; actors refer
// to it through PlayerTarget.
type Player struct {
	Zone model.ZoneKey
	Cell model.Cell
}

type QuestTarget struct {
	Zone model.ZoneKey
	Cell model.Cell
}

// World is a single-threaded simulation of zones and the actors in them.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg  WorldConfig
	tun  tuning.Tuning
	cats *catalogs.Catalogs
	pal  genpkg.Palette

	rng     model.Rand
	log     *zap.Logger
	metrics Metrics
	tracer  trace.Tracer

	tick atomic.Int64

	zones     *store.ZoneStore
	actors    map[model.ActorID]*model.Actor
	nextActor int64

	player Player
	quest  *QuestTarget

	res             *movementpkg.Reservations
	pendingCatchUps []model.ZoneKey

	lastPassTick int64
	pass         TickStats

	presenter    Presenter
	inventory    InventorySink
	tickLogger   TickLogger
	snapshotSink chan<- snapshot.SnapshotV1
	hub          reportHub

	flyBlocked     map[uint16]bool
	terrainClasses []catchuppkg.Class
	terrainRules   []catchuppkg.Rule

	setPlayer   chan playerReq
	setQuest    chan questReq
	priorityReq chan priorityReq
	statsReq    chan chan TickStats
	stop        chan struct{}
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	cfg.applyDefaults()
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	pal, err := genpkg.ResolvePalette(cats.Cells.ID)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}

	w := &World{
		cfg:          cfg,
		tun:          cfg.Tuning,
		cats:         cats,
		pal:          pal,
		rng:          rand.New(rand.NewSource(cfg.Tuning.Seed)),
		log:          zap.NewNop(),
		metrics:      nopMetrics{},
		tracer:       otel.Tracer("starcell.sim/world"),
		actors:       map[model.ActorID]*model.Actor{},
		nextActor:    1,
		res:          movementpkg.NewReservations(),
		lastPassTick: -1,
		presenter:    nopPresenter{},
		inventory:    nopInventory{},
		flyBlocked:   map[uint16]bool{},
		setPlayer:    make(chan playerReq, 16),
		setQuest:     make(chan questReq, 16),
		priorityReq:  make(chan priorityReq, 16),
		statsReq:     make(chan chan TickStats, 16),
		stop:         make(chan struct{}),
	}
	for _, id := range cfg.Tuning.Movement.FlyBlocked {
		v, ok := cats.Cells.ID(id)
		if !ok {
			return nil, fmt.Errorf("world: fly_blocked cell %q not in palette", id)
		}
		w.flyBlocked[v] = true
	}
	w.terrainClasses, w.terrainRules = catchupTerrainRules(pal)
	w.zones = store.NewZoneStore(cfg.Tuning.Grid.Width, cfg.Tuning.Grid.Height, store.HashGenerator{
		Params:  genpkg.Params{Seed: cfg.Tuning.Seed, BiomeRegionSize: cfg.BiomeRegionSize},
		Palette: pal,
	})
	w.player = Player{
		Zone: model.Overworld(0, 0),
		Cell: model.Cell{X: cfg.PlayerStartX, Y: cfg.PlayerStartY},
	}
	return w, nil
}

func (w *World) SetLogger(l *zap.Logger) {
	if l != nil {
		w.log = l
	}
}

func (w *World) SetMetrics(m Metrics) {
	if m != nil {
		w.metrics = m
	}
}

func (w *World) SetTracer(t trace.Tracer) {
	if t != nil {
		w.tracer = t
	}
}

// SetRand replaces the randomness source; tests use it to script rolls.
func (w *World) SetRand(r model.Rand) {
	if r != nil {
		w.rng = r
	}
}

func (w *World) SetPresenter(p Presenter) {
	if p != nil {
		w.presenter = p
	}
}

func (w *World) SetInventorySink(s InventorySink) {
	if s != nil {
		w.inventory = s
	}
}

// SetZoneGenerator swaps the generator for zones not yet created.
func (w *World) SetZoneGenerator(g store.Generator) { w.zones.Gen = g }

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) RunID() string { return w.cfg.RunID }

func (w *World) Tuning() tuning.Tuning { return w.tun }

func (w *World) CurrentTick() int64 { return w.tick.Load() }

func (w *World) Player() Player { return w.player }

// Actor returns the live actor with id. Loop goroutine only.
func (w *World) Actor(id model.ActorID) (*model.Actor, bool) {
	a, ok := w.actors[id]
	return a, ok
}

// Zone returns the zone at key without generating it. Loop goroutine only.
func (w *World) Zone(key model.ZoneKey) (*model.Zone, bool) { return w.zones.Get(key) }

func (w *World) ZoneKeys() []model.ZoneKey { return w.zones.Keys() }

func (w *World) ActorCount() int { return len(w.actors) }

// LastStats returns the report of the most recent scheduling pass.
func (w *World) LastStats() TickStats { return w.pass }

func (w *World) species(id string) (*model.Species, bool) { return w.cats.Species.Get(id) }

func (w *World) behaviorParams() behaviorpkg.Params {
	b := w.tun.Behavior
	return behaviorpkg.Params{
		DetectionRadius:  b.DetectionRadius,
		FleeRadius:       b.FleeRadius,
		ReactTimer:       b.ReactTimer,
		SearchCooldown:   b.SearchCooldown,
		IdleTimerMin:     b.IdleTimerMin,
		IdleTimerMax:     b.IdleTimerMax,
		SurvivalFraction: b.SurvivalFraction,
		HealthFraction:   b.HealthFraction,
	}
}

func (w *World) moveParams() movementpkg.Params {
	m := w.tun.Movement
	return movementpkg.Params{
		MemoryCheck: m.MemoryCheck,
		StuckTrim:   m.StuckTrim,
		StuckClear:  m.StuckClear,
		StuckIgnore: m.StuckIgnore,
	}
}

func (w *World) needsParams() survivalpkg.Params {
	n := w.tun.Needs
	return survivalpkg.Params{
		HungerDecay:     n.HungerDecay,
		ThirstDecay:     n.ThirstDecay,
		StarveDamage:    n.StarveDamage,
		DehydrateDamage: n.DehydrateDamage,
		BaseHeal:        n.BaseHeal,
		PeacefulDamage:  n.PeacefulDamage,
		HostileDamage:   n.HostileDamage,
	}
}

func (w *World) catchupParams() catchuppkg.Params {
	c := w.tun.Catchup
	return catchuppkg.Params{
		CycleTicks:      c.CycleTicks,
		MaxCycles:       c.MaxCycles,
		ApproxThreshold: c.ApproxThreshold,
		TravelPerCycle:  c.TravelPerCycle,
		TravelCap:       c.TravelCap,
	}
}
