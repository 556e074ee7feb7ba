package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int   `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int   `yaml:"snapshot_every_ticks"`
	Seed               int64 `yaml:"seed"`

	Grid      Grid      `yaml:"grid"`
	Scheduler Scheduler `yaml:"scheduler"`
	Catchup   Catchup   `yaml:"catchup"`
	Behavior  Behavior  `yaml:"behavior"`
	Movement  Movement  `yaml:"movement"`
	Needs     Needs     `yaml:"needs"`
	Incidents Incidents `yaml:"incidents"`
}

type Grid struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Scheduler struct {
	StrideTicks  int `yaml:"stride_ticks"`
	ZonesPerPass int `yaml:"zones_per_pass"`
	// Optional zone i (1-based) gets coverage max(MinCoverage, (QueueDepth-i)/QueueDepth).
	QueueDepth         int     `yaml:"queue_depth"`
	MinCoverage        float64 `yaml:"min_coverage"`
	MaxCatchUpsPerPass int     `yaml:"max_catchups_per_pass"`
	NewZoneChance      float64 `yaml:"new_zone_chance"`
	NewZoneRadius      int     `yaml:"new_zone_radius"`
	SummaryEveryTicks  int     `yaml:"summary_every_ticks"`
}

type Catchup struct {
	CycleTicks      int `yaml:"cycle_ticks"`
	MaxCycles       int `yaml:"max_cycles"`
	ApproxThreshold int `yaml:"approx_threshold"`
	// StaleStrides is the staleness multiple of the stride that triggers a catch-up.
	StaleStrides    int     `yaml:"stale_strides"`
	LocalRadius     int     `yaml:"local_radius"`
	HungerDecay     float64 `yaml:"hunger_decay"`
	ThirstDecay     float64 `yaml:"thirst_decay"`
	NeedThreshold   float64 `yaml:"need_threshold"`
	EatChance       float64 `yaml:"eat_chance"`
	DrinkChance     float64 `yaml:"drink_chance"`
	FoodGain        float64 `yaml:"food_gain"`
	WaterGain       float64 `yaml:"water_gain"`
	StarveDamage    float64 `yaml:"starve_damage"`
	DehydrateDamage float64 `yaml:"dehydrate_damage"`
	HealPerCycle    float64 `yaml:"heal_per_cycle"`
	TravelPerCycle  float64 `yaml:"travel_per_cycle"`
	TravelCap       float64 `yaml:"travel_cap"`
}

type Behavior struct {
	DetectionRadius int `yaml:"detection_radius"`
	FleeRadius      int `yaml:"flee_radius"`
	ReactTimer      int `yaml:"react_timer"`
	SearchCooldown  int `yaml:"search_cooldown"`
	IdleTimerMin    int `yaml:"idle_timer_min"`
	IdleTimerMax    int `yaml:"idle_timer_max"`
	SpawnTimerMax   int `yaml:"spawn_timer_max"`
	// WanderStepChance is the chance a wandering actor takes a random step per update.
	WanderStepChance float64 `yaml:"wander_step_chance"`
	FlyingDisengage  float64 `yaml:"flying_disengage"`
	SurvivalFraction float64 `yaml:"survival_fraction"`
	HealthFraction   float64 `yaml:"health_fraction"`
}

type Movement struct {
	MemoryMax          int      `yaml:"memory_max"`
	MemoryCheck        int      `yaml:"memory_check"`
	StuckTrim          int      `yaml:"stuck_trim"`
	StuckClear         int      `yaml:"stuck_clear"`
	StuckIgnore        int      `yaml:"stuck_ignore"`
	TransitionCooldown int64    `yaml:"transition_cooldown"`
	ExitBand           int      `yaml:"exit_band"`
	BaseMoveCooldown   float64  `yaml:"base_move_cooldown"`
	FlyBlocked         []string `yaml:"fly_blocked"`
}

type Needs struct {
	HungerDecay        float64 `yaml:"hunger_decay"`
	ThirstDecay        float64 `yaml:"thirst_decay"`
	StarveDamage       float64 `yaml:"starve_damage"`
	DehydrateDamage    float64 `yaml:"dehydrate_damage"`
	BaseHeal           float64 `yaml:"base_heal"`
	HealRadius         int     `yaml:"heal_radius"`
	PeacefulDamage     float64 `yaml:"peaceful_damage"`
	HostileDamage      float64 `yaml:"hostile_damage"`
	EatGain            float64 `yaml:"eat_gain"`
	DrinkGain          float64 `yaml:"drink_gain"`
	HarvestReplaceWith string  `yaml:"harvest_replace_with"`
}

type Incidents struct {
	Enabled      bool     `yaml:"enabled"`
	MinCycles    int      `yaml:"min_cycles"`
	MinHumanoids int      `yaml:"min_humanoids"`
	Chance       float64  `yaml:"chance"`
	MaxRaiders   int      `yaml:"max_raiders"`
	Raiders      []string `yaml:"raiders"`
	LairCell     string   `yaml:"lair_cell"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         60,
		SnapshotEveryTicks: 18000,
		Seed:               1,
		Grid:               Grid{Width: 24, Height: 18},
		Scheduler: Scheduler{
			StrideTicks:        30,
			ZonesPerPass:       20,
			QueueDepth:         100,
			MinCoverage:        0.05,
			MaxCatchUpsPerPass: 2,
			NewZoneChance:      0.05,
			NewZoneRadius:      20,
			SummaryEveryTicks:  1800,
		},
		Catchup: Catchup{
			CycleTicks:      60,
			MaxCycles:       100,
			ApproxThreshold: 5,
			StaleStrides:    2,
			LocalRadius:     5,
			HungerDecay:     0.5,
			ThirstDecay:     0.3,
			NeedThreshold:   80,
			EatChance:       0.6,
			DrinkChance:     0.6,
			FoodGain:        30,
			WaterGain:       40,
			StarveDamage:    1,
			DehydrateDamage: 2,
			HealPerCycle:    1,
			TravelPerCycle:  0.005,
			TravelCap:       0.3,
		},
		Behavior: Behavior{
			DetectionRadius:  8,
			FleeRadius:       4,
			ReactTimer:       3,
			SearchCooldown:   5,
			IdleTimerMin:     2,
			IdleTimerMax:     4,
			SpawnTimerMax:    3,
			WanderStepChance: 0.6,
			FlyingDisengage:  0.4,
			SurvivalFraction: 0.3,
			HealthFraction:   0.5,
		},
		Movement: Movement{
			MemoryMax:          8,
			MemoryCheck:        6,
			StuckTrim:          2,
			StuckClear:         4,
			StuckIgnore:        6,
			TransitionCooldown: 1800,
			ExitBand:           1,
			BaseMoveCooldown:   1.5,
			FlyBlocked:         []string{"WALL", "CAVE_WALL", "DEEP_WATER"},
		},
		Needs: Needs{
			HungerDecay:        0.02,
			ThirstDecay:        0.015,
			StarveDamage:       0.1,
			DehydrateDamage:    0.15,
			BaseHeal:           1.5,
			HealRadius:         3,
			PeacefulDamage:     0.25,
			HostileDamage:      1.2,
			EatGain:            30,
			DrinkGain:          40,
			HarvestReplaceWith: "GRASS",
		},
		Incidents: Incidents{
			Enabled:      true,
			MinCycles:    20,
			MinHumanoids: 7,
			Chance:       0.2,
			MaxRaiders:   2,
			Raiders:      []string{"GOBLIN", "BANDIT", "WOLF"},
			LairCell:     "CAVE",
		},
	}
}

// Load reads path over Defaults. Fields absent from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %d", name, v))
		}
	}
	prob := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", name, v))
		}
	}
	positive("tick_rate_hz", t.TickRateHz)
	positive("grid.width", t.Grid.Width)
	positive("grid.height", t.Grid.Height)
	positive("scheduler.stride_ticks", t.Scheduler.StrideTicks)
	positive("scheduler.zones_per_pass", t.Scheduler.ZonesPerPass)
	positive("scheduler.queue_depth", t.Scheduler.QueueDepth)
	positive("catchup.cycle_ticks", t.Catchup.CycleTicks)
	positive("catchup.max_cycles", t.Catchup.MaxCycles)
	positive("catchup.stale_strides", t.Catchup.StaleStrides)
	positive("movement.memory_max", t.Movement.MemoryMax)
	if t.Grid.Width < 7 || t.Grid.Height < 7 {
		errs = append(errs, fmt.Errorf("grid must be at least 7x7, got %dx%d", t.Grid.Width, t.Grid.Height))
	}
	if t.Movement.MemoryCheck > t.Movement.MemoryMax {
		errs = append(errs, fmt.Errorf("movement.memory_check %d exceeds memory_max %d", t.Movement.MemoryCheck, t.Movement.MemoryMax))
	}
	if !(t.Movement.StuckTrim <= t.Movement.StuckClear && t.Movement.StuckClear <= t.Movement.StuckIgnore) {
		errs = append(errs, errors.New("movement stuck thresholds must be non-decreasing (trim <= clear <= ignore)"))
	}
	if t.Behavior.IdleTimerMin > t.Behavior.IdleTimerMax {
		errs = append(errs, errors.New("behavior.idle_timer_min exceeds idle_timer_max"))
	}
	prob("scheduler.min_coverage", t.Scheduler.MinCoverage)
	prob("scheduler.new_zone_chance", t.Scheduler.NewZoneChance)
	prob("catchup.eat_chance", t.Catchup.EatChance)
	prob("catchup.drink_chance", t.Catchup.DrinkChance)
	prob("catchup.travel_cap", t.Catchup.TravelCap)
	prob("behavior.wander_step_chance", t.Behavior.WanderStepChance)
	prob("behavior.flying_disengage", t.Behavior.FlyingDisengage)
	prob("incidents.chance", t.Incidents.Chance)
	return errors.Join(errs...)
}
