package runtime

import modelpkg "starcell.sim/internal/sim/world/kernel/model"

type cellKey struct {
	Zone modelpkg.ZoneKey
	Cell modelpkg.Cell
}

// Reservations is the per-tick destination claim set. One writer per cell per
// tick; Reset at the start of every scheduling tick.
type Reservations struct {
	cells map[cellKey]modelpkg.ActorID
}

func NewReservations() *Reservations {
	return &Reservations{cells: map[cellKey]modelpkg.ActorID{}}
}

func (r *Reservations) Reset() {
	clear(r.cells)
}

func (r *Reservations) Len() int { return len(r.cells) }

// Reserve claims c for id. It fails if another actor holds the cell.
func (r *Reservations) Reserve(zone modelpkg.ZoneKey, c modelpkg.Cell, id modelpkg.ActorID) bool {
	k := cellKey{Zone: zone, Cell: c}
	if holder, ok := r.cells[k]; ok && holder != id {
		return false
	}
	r.cells[k] = id
	return true
}

func (r *Reservations) HeldByOther(zone modelpkg.ZoneKey, c modelpkg.Cell, id modelpkg.ActorID) bool {
	holder, ok := r.cells[cellKey{Zone: zone, Cell: c}]
	return ok && holder != id
}
