package runtime

import (
	"math"

	modelpkg "starcell.sim/internal/sim/world/kernel/model"
)

// StepEnv is the view of one zone the pathfinder needs.
type StepEnv interface {
	Zone() modelpkg.ZoneKey
	InBounds(c modelpkg.Cell) bool
	// Blocked reports solidity; flying actors are only blocked by the fly-blocked set.
	Blocked(c modelpkg.Cell, flying bool) bool
	Occupied(c modelpkg.Cell, self modelpkg.ActorID) bool
	Reservations() *Reservations
}

type Params struct {
	MemoryCheck int
	StuckTrim   int
	StuckClear  int
	StuckIgnore int
}

type Recovery uint8

const (
	RecoveryNone Recovery = iota
	RecoveryTrimmed
	RecoveryCleared
	RecoveryIgnoredMemory
	RecoveryGaveUp
)

type StepResult struct {
	Moved    bool
	From     modelpkg.Cell
	To       modelpkg.Cell
	Dir      modelpkg.Dir
	Recovery Recovery
}

// Candidates returns the ordered, de-duplicated directions to try toward
// target: primary axis, secondary axis, the two perpendiculars in shuffled
// order, then backward.
func Candidates(from, target modelpkg.Cell, rng modelpkg.Rand) []modelpkg.Dir {
	dx := target.X - from.X
	dy := target.Y - from.Y
	horiz := modelpkg.DirFromDelta(sign(dx), 0)
	vert := modelpkg.DirFromDelta(0, sign(dy))

	var primary, secondary modelpkg.Dir
	if abs(dx) >= abs(dy) {
		primary, secondary = horiz, vert
	} else {
		primary, secondary = vert, horiz
	}

	var perp [2]modelpkg.Dir
	if primary == modelpkg.DirUp || primary == modelpkg.DirDown {
		perp = [2]modelpkg.Dir{modelpkg.DirLeft, modelpkg.DirRight}
	} else {
		perp = [2]modelpkg.Dir{modelpkg.DirUp, modelpkg.DirDown}
	}
	if rng != nil {
		rng.Shuffle(2, func(i, j int) { perp[i], perp[j] = perp[j], perp[i] })
	}

	out := make([]modelpkg.Dir, 0, 4)
	add := func(d modelpkg.Dir) {
		if d == modelpkg.DirNone {
			return
		}
		for _, x := range out {
			if x == d {
				return
			}
		}
		out = append(out, d)
	}
	add(primary)
	add(secondary)
	add(perp[0])
	add(perp[1])
	add(primary.Opposite())
	return out
}

func accept(env StepEnv, a *modelpkg.Actor, flying bool, c, target modelpkg.Cell, memCheck int, ignoreMemory bool) bool {
	if !env.InBounds(c) {
		return false
	}
	if env.Blocked(c, flying) {
		return false
	}
	if !ignoreMemory && c != target && a.InRecentMemory(c, memCheck) {
		return false
	}
	if env.Reservations().HeldByOther(env.Zone(), c, a.ID) {
		return false
	}
	if env.Occupied(c, a.ID) {
		return false
	}
	return true
}

func tryCandidates(env StepEnv, a *modelpkg.Actor, flying bool, from, target modelpkg.Cell, dirs []modelpkg.Dir, memCheck int, ignoreMemory bool) (modelpkg.Dir, modelpkg.Cell, bool) {
	for _, d := range dirs {
		c := from.Add(d)
		if !accept(env, a, flying, c, target, memCheck, ignoreMemory) {
			continue
		}
		if !env.Reservations().Reserve(env.Zone(), c, a.ID) {
			continue
		}
		return d, c, true
	}
	return modelpkg.DirNone, from, false
}

func commit(a *modelpkg.Actor, from, to modelpkg.Cell, d modelpkg.Dir) {
	a.PushMemory(from)
	a.X, a.Y = to.X, to.Y
	a.Facing = d
	a.Stuck = 0
}

// Step moves a at most one cell toward target. It never fails the caller:
// a blocked actor climbs the stuck ladder and stays put.
func Step(env StepEnv, a *modelpkg.Actor, flying bool, target modelpkg.Cell, p Params, rng modelpkg.Rand) StepResult {
	from := a.Pos()
	res := StepResult{From: from, To: from}
	if from == target {
		return res
	}
	dirs := Candidates(from, target, rng)
	if d, to, ok := tryCandidates(env, a, flying, from, target, dirs, p.MemoryCheck, false); ok {
		commit(a, from, to, d)
		res.Moved, res.To, res.Dir = true, to, d
		return res
	}

	a.Stuck++
	switch {
	case a.Stuck >= p.StuckIgnore:
		if d, to, ok := tryCandidates(env, a, flying, from, target, dirs, p.MemoryCheck, true); ok {
			commit(a, from, to, d)
			res.Moved, res.To, res.Dir = true, to, d
			res.Recovery = RecoveryIgnoredMemory
			return res
		}
		a.ClearMemory()
		a.Stuck = 0
		res.Recovery = RecoveryGaveUp
	case a.Stuck >= p.StuckClear:
		a.ClearMemory()
		res.Recovery = RecoveryCleared
	case a.Stuck >= p.StuckTrim:
		a.TrimMemoryHalf()
		res.Recovery = RecoveryTrimmed
	}
	return res
}

// AwayTarget returns a point in the direction directly away from threat.
// When the actor stands on the threat's cell it picks an arbitrary axis.
func AwayTarget(from, threat modelpkg.Cell, reach int) modelpkg.Cell {
	dx := from.X - threat.X
	dy := from.Y - threat.Y
	if dx == 0 && dy == 0 {
		dx = 1
	}
	l := math.Hypot(float64(dx), float64(dy))
	return modelpkg.Cell{
		X: from.X + int(math.Round(float64(dx)/l*float64(reach))),
		Y: from.Y + int(math.Round(float64(dy)/l*float64(reach))),
	}
}

// MoveCooldown is the number of updates an actor waits after acting.
func MoveCooldown(base, speed float64) int {
	if speed <= 0 {
		speed = 1
	}
	return int(base / speed)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
