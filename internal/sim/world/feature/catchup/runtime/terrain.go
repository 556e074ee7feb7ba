package runtime

import modelpkg "starcell.sim/internal/sim/world/kernel/model"

// Class is a set of palette ids counted together (e.g. water = WATER+DEEP_WATER).
type Class []uint16

func (c Class) Has(id uint16) bool {
	for _, x := range c {
		if x == id {
			return true
		}
	}
	return false
}

// Cond bounds the neighbour count of one class. Max < 0 means unbounded.
type Cond struct {
	Class int
	Min   int
	Max   int
}

// Rule converts From into To when every Cond holds, with probability
// min(cycles*PerCycle, Cap).
type Rule struct {
	From     uint16
	To       uint16
	Conds    []Cond
	PerCycle float64
	Cap      float64
}

// NeighborCounts holds, per cell, the count of each class among its eight
// neighbours. It is computed once and reused for every compressed cycle.
type NeighborCounts struct {
	w, h    int
	classes int
	counts  []uint8
}

func CountNeighbors(z *modelpkg.Zone, classes []Class) *NeighborCounts {
	nc := &NeighborCounts{w: z.W, h: z.H, classes: len(classes), counts: make([]uint8, z.W*z.H*len(classes))}
	for y := 0; y < z.H; y++ {
		for x := 0; x < z.W; x++ {
			base := (x + y*z.W) * len(classes)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if !z.InBounds(nx, ny) {
						continue
					}
					id := z.Get(nx, ny)
					for ci, c := range classes {
						if c.Has(id) {
							nc.counts[base+ci]++
						}
					}
				}
			}
		}
	}
	return nc
}

func (nc *NeighborCounts) Count(x, y, class int) int {
	return int(nc.counts[(x+y*nc.w)*nc.classes+class])
}

func (r Rule) matches(nc *NeighborCounts, x, y int) bool {
	for _, c := range r.Conds {
		n := nc.Count(x, y, c.Class)
		if n < c.Min {
			return false
		}
		if c.Max >= 0 && n > c.Max {
			return false
		}
	}
	return true
}

// ApplyTerrain runs the compressed terrain pass: one roll per cell against
// the first matching rule, using neighbour counts from before the pass.
// Protected cells are never touched. It returns the number of cells changed.
func ApplyTerrain(z *modelpkg.Zone, classes []Class, rules []Rule, cycles int, protected func(uint16) bool, rng modelpkg.Rand) int {
	if cycles <= 0 || len(rules) == 0 {
		return 0
	}
	nc := CountNeighbors(z, classes)
	changed := 0
	for y := 0; y < z.H; y++ {
		for x := 0; x < z.W; x++ {
			id := z.Get(x, y)
			if protected != nil && protected(id) {
				continue
			}
			for _, r := range rules {
				if r.From != id || !r.matches(nc, x, y) {
					continue
				}
				if rng.Float64() < ScaledChance(cycles, r.PerCycle, r.Cap) {
					z.Set(x, y, r.To)
					changed++
				}
				break
			}
		}
	}
	return changed
}
