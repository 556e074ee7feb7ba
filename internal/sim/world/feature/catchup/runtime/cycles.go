package runtime

import "math"

type Params struct {
	CycleTicks      int
	MaxCycles       int
	ApproxThreshold int
	TravelPerCycle  float64
	TravelCap       float64
}

type Mode uint8

const (
	// ModeNone: nothing missed worth a cycle.
	ModeNone Mode = iota
	// ModeOrdinary replays each cycle with the ordinary zone update.
	ModeOrdinary
	// ModeApprox runs the compressed terrain and needs passes.
	ModeApprox
)

func (m Mode) String() string {
	switch m {
	case ModeOrdinary:
		return "ordinary"
	case ModeApprox:
		return "approx"
	}
	return "none"
}

// Cycles converts missed ticks into a cycle count, capped at MaxCycles.
// Time beyond the cap is dropped.
func Cycles(missed int64, p Params) (cycles int, capped bool) {
	if missed <= 0 || p.CycleTicks <= 0 {
		return 0, false
	}
	n := missed / int64(p.CycleTicks)
	if p.MaxCycles > 0 && n > int64(p.MaxCycles) {
		return p.MaxCycles, true
	}
	return int(n), false
}

func ModeFor(cycles int, p Params) Mode {
	switch {
	case cycles <= 0:
		return ModeNone
	case cycles < p.ApproxThreshold:
		return ModeOrdinary
	}
	return ModeApprox
}

// ScaledChance is a per-cycle probability compounded over cycles, saturating at limit.
func ScaledChance(cycles int, perCycle, limit float64) float64 {
	return math.Min(float64(cycles)*perCycle, limit)
}

func TravelChance(cycles int, p Params) float64 {
	return ScaledChance(cycles, p.TravelPerCycle, p.TravelCap)
}

// RaidEligible: only long-neglected, populous zones can resolve a raid.
func RaidEligible(cycles, humanoids, minCycles, minHumanoids int) bool {
	return cycles > minCycles && humanoids >= minHumanoids
}
