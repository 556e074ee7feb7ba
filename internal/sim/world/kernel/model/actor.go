package model

// State is the behavior FSM state. There are exactly five.
type State uint8

const (
	StateIdle State = iota
	StateWandering
	StateTargeting
	StateCombat
	StateFlee
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWandering:
		return "wandering"
	case StateTargeting:
		return "targeting"
	case StateCombat:
		return "combat"
	case StateFlee:
		return "flee"
	}
	return "invalid"
}

func (s State) Valid() bool { return s <= StateFlee }

// Traits are the per-species behavior scalars.
type Traits struct {
	Aggressiveness float64
	Passiveness    float64
	Idleness       float64
	FleeChance     float64
	CombatChance   float64
	Categories     []Category
}

func (t Traits) Has(c Category) bool {
	for _, x := range t.Categories {
		if x == c {
			return true
		}
	}
	return false
}

// Species is one row of the species trait table. Read-only at runtime.
type Species struct {
	ID        string
	MaxHealth float64
	MaxHunger float64
	MaxThirst float64
	Strength  float64
	Speed     float64
	Hostile   bool
	Humanoid  bool
	Flying    bool
	Edible    bool
	// FoodSources lists cell ids or species ids this species eats.
	FoodSources  []string
	WaterSources []string
	Traits       Traits
	Drops        []Drop
}

type Drop struct {
	Item   string
	Count  int
	Chance float64
}

func (s *Species) EatsCell(cellID string) bool { return contains(s.FoodSources, cellID) }
func (s *Species) DrinksCell(cellID string) bool { return contains(s.WaterSources, cellID) }
func (s *Species) Hunts(speciesID string) bool { return contains(s.FoodSources, speciesID) }
func (s *Species) NeedsWater() bool { return len(s.WaterSources) > 0 }

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

type Actor struct {
	ID      ActorID
	Species string
	Name    string

	Zone ZoneKey
	X, Y int
	// WorldX/WorldY are presentation-only interpolated coordinates.
	WorldX, WorldY float64
	Facing         Dir

	Health    float64
	MaxHealth float64
	Hunger    float64
	MaxHunger float64
	Thirst    float64
	MaxThirst float64

	State      State
	StateTimer int
	Target     Target
	// TargetCategory is the category the current Target was chosen for.
	TargetCategory Category

	// AttackedBy is set by an attack landing and consumed by the next behavior update.
	AttackedBy Target
	FleeFrom   Target
	KilledBy   Target

	Faction string

	Memory    []Cell
	MemoryMax int
	Stuck     int

	MoveCooldown int
	// LastAITick guards the once-per-tick behavior update and LastTransitionTick
	// gates zone crossings. Both are -1 until first set.
	LastAITick         int64
	LastTransitionTick int64

	// NeedsToolForDrops marks proxies that can only collect drops while
	// carrying the required tool.
	NeedsToolForDrops bool
}

func (a *Actor) Alive() bool { return a != nil && a.Health > 0 }

func (a *Actor) Pos() Cell { return Cell{X: a.X, Y: a.Y} }

// PushMemory records c as most recent, evicting the oldest entries past MemoryMax.
func (a *Actor) PushMemory(c Cell) {
	if a.MemoryMax <= 0 {
		return
	}
	a.Memory = append(a.Memory, c)
	if over := len(a.Memory) - a.MemoryMax; over > 0 {
		a.Memory = append(a.Memory[:0], a.Memory[over:]...)
	}
}

// InRecentMemory reports whether c is among the last n recorded cells.
func (a *Actor) InRecentMemory(c Cell, n int) bool {
	start := len(a.Memory) - n
	if start < 0 {
		start = 0
	}
	for _, m := range a.Memory[start:] {
		if m == c {
			return true
		}
	}
	return false
}

// TrimMemoryHalf drops the oldest half of the memory lane.
func (a *Actor) TrimMemoryHalf() {
	n := len(a.Memory) / 2
	if n == 0 {
		return
	}
	a.Memory = append(a.Memory[:0], a.Memory[n:]...)
}

func (a *Actor) ClearMemory() { a.Memory = a.Memory[:0] }

func (a *Actor) ClearTarget() {
	a.Target = NoTarget()
	a.TargetCategory = CategoryNone
}

func (a *Actor) SetState(s State, timer int) {
	a.State = s
	if timer < 0 {
		timer = 0
	}
	a.StateTimer = timer
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AdjustVitals adds deltas and clamps every vital to [0, max].
func (a *Actor) AdjustVitals(dHealth, dHunger, dThirst float64) {
	a.Health = clampf(a.Health+dHealth, 0, a.MaxHealth)
	a.Hunger = clampf(a.Hunger+dHunger, 0, a.MaxHunger)
	a.Thirst = clampf(a.Thirst+dThirst, 0, a.MaxThirst)
}

// NewActor builds a full-vitals actor of species sp in the wandering state.
// Callers randomize StateTimer to keep fresh spawns out of lockstep.
func NewActor(id ActorID, sp *Species, zone ZoneKey, x, y, memoryMax int) *Actor {
	return &Actor{
		ID:                 id,
		Species:            sp.ID,
		Zone:               zone,
		X:                  x,
		Y:                  y,
		WorldX:             float64(x),
		WorldY:             float64(y),
		Facing:             DirDown,
		Health:             sp.MaxHealth,
		MaxHealth:          sp.MaxHealth,
		Hunger:             sp.MaxHunger,
		MaxHunger:          sp.MaxHunger,
		Thirst:             sp.MaxThirst,
		MaxThirst:          sp.MaxThirst,
		State:              StateWandering,
		MemoryMax:          memoryMax,
		LastAITick:         -1,
		LastTransitionTick: -1,
	}
}
