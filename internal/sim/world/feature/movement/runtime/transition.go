package runtime

import modelpkg "starcell.sim/internal/sim/world/kernel/model"

type RejectReason uint8

const (
	RejectNone RejectReason = iota
	RejectNotInExitBand
	RejectCooldown
	RejectEntryBlocked
	RejectNoDestination
)

func (r RejectReason) String() string {
	switch r {
	case RejectNotInExitBand:
		return "not_in_exit_band"
	case RejectCooldown:
		return "cooldown"
	case RejectEntryBlocked:
		return "entry_blocked"
	case RejectNoDestination:
		return "no_destination"
	}
	return "none"
}

// ExitSide reports which edge exit band (if any) contains c. The band spans
// the edge's centre cell +/- band along the edge, two cells deep.
func ExitSide(c modelpkg.Cell, w, h, band int) (modelpkg.Dir, bool) {
	cx, cy := w/2, h/2
	switch {
	case c.Y <= 1 && abs(c.X-cx) <= band:
		return modelpkg.DirUp, true
	case c.Y >= h-2 && abs(c.X-cx) <= band:
		return modelpkg.DirDown, true
	case c.X <= 1 && abs(c.Y-cy) <= band:
		return modelpkg.DirLeft, true
	case c.X >= w-2 && abs(c.Y-cy) <= band:
		return modelpkg.DirRight, true
	}
	return modelpkg.DirNone, false
}

// ExitCell is the edge cell at the centre of side d, the cell an actor walks
// to when it wants to leave through that side.
func ExitCell(d modelpkg.Dir, w, h int) modelpkg.Cell {
	switch d {
	case modelpkg.DirUp:
		return modelpkg.Cell{X: w / 2, Y: 0}
	case modelpkg.DirDown:
		return modelpkg.Cell{X: w / 2, Y: h - 1}
	case modelpkg.DirLeft:
		return modelpkg.Cell{X: 0, Y: h / 2}
	case modelpkg.DirRight:
		return modelpkg.Cell{X: w - 1, Y: h / 2}
	}
	return modelpkg.Cell{X: w / 2, Y: h / 2}
}

// EntryCell mirrors an exit through side d onto the destination zone: leaving
// through the top lands near the bottom, and so on. The cross-axis coordinate
// is kept.
func EntryCell(d modelpkg.Dir, from modelpkg.Cell, w, h int) modelpkg.Cell {
	switch d {
	case modelpkg.DirUp:
		return modelpkg.Cell{X: from.X, Y: h - 3}
	case modelpkg.DirDown:
		return modelpkg.Cell{X: from.X, Y: 2}
	case modelpkg.DirLeft:
		return modelpkg.Cell{X: w - 3, Y: from.Y}
	case modelpkg.DirRight:
		return modelpkg.Cell{X: 2, Y: from.Y}
	}
	return from
}

// SideToward picks the exit side that heads from one zone toward another.
func SideToward(from, to modelpkg.ZoneKey) modelpkg.Dir {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 && dy == 0 {
		return modelpkg.DirNone
	}
	if abs(dx) >= abs(dy) {
		return modelpkg.DirFromDelta(sign(dx), 0)
	}
	return modelpkg.DirFromDelta(0, sign(dy))
}

// CooldownActive reports whether a transitioned too recently to cross again.
func CooldownActive(a *modelpkg.Actor, now, cooldown int64) bool {
	return a.LastTransitionTick >= 0 && now-a.LastTransitionTick < cooldown
}

// EntryEnv is the destination-zone view used to validate an entry cell.
type EntryEnv interface {
	InBounds(c modelpkg.Cell) bool
	Blocked(c modelpkg.Cell, flying bool) bool
	Occupied(c modelpkg.Cell, self modelpkg.ActorID) bool
}

// CheckTransition validates an edge crossing without committing it.
func CheckTransition(a *modelpkg.Actor, flying bool, w, h, band int, now, cooldown int64, dest func(modelpkg.Dir) (EntryEnv, bool)) (modelpkg.Dir, modelpkg.Cell, RejectReason) {
	side, ok := ExitSide(a.Pos(), w, h, band)
	if !ok {
		return modelpkg.DirNone, modelpkg.Cell{}, RejectNotInExitBand
	}
	if CooldownActive(a, now, cooldown) {
		return side, modelpkg.Cell{}, RejectCooldown
	}
	env, ok := dest(side)
	if !ok || env == nil {
		return side, modelpkg.Cell{}, RejectNoDestination
	}
	entry := EntryCell(side, a.Pos(), w, h)
	if !env.InBounds(entry) || env.Blocked(entry, flying) || env.Occupied(entry, a.ID) {
		return side, entry, RejectEntryBlocked
	}
	return side, entry, RejectNone
}
