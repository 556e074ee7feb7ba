package model

// ActorID identifies a simulated actor. Zero is never assigned.
type ActorID int64

// Category is the class of thing an actor is seeking.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryHostile
	CategoryFood
	CategoryWater
	CategoryStructure
	CategoryResource
	CategoryQuest
	CategoryExit
)

var categoryNames = [...]string{
	CategoryNone:      "none",
	CategoryHostile:   "hostile",
	CategoryFood:      "food",
	CategoryWater:     "water",
	CategoryStructure: "structure",
	CategoryResource:  "resource",
	CategoryQuest:     "quest",
	CategoryExit:      "exit",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// ParseCategory maps a catalog name to a Category.
func ParseCategory(s string) (Category, bool) {
	for i, n := range categoryNames {
		if n == s {
			return Category(i), true
		}
	}
	return CategoryNone, false
}

type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetPlayer
	TargetActor
	TargetCell
)

func (k TargetKind) String() string {
	switch k {
	case TargetPlayer:
		return "player"
	case TargetActor:
		return "actor"
	case TargetCell:
		return "cell"
	}
	return "none"
}

// Target is a tagged union. Only the fields of the active Kind are meaningful:
// ActorID for TargetActor, Zone/Cell/Category for TargetCell.
type Target struct {
	Kind     TargetKind
	ActorID  ActorID
	Zone     ZoneKey
	Cell     Cell
	Category Category
}

func NoTarget() Target { return Target{} }

func PlayerTarget() Target { return Target{Kind: TargetPlayer} }

func ActorTarget(id ActorID) Target { return Target{Kind: TargetActor, ActorID: id} }

func CellTarget(zone ZoneKey, c Cell, cat Category) Target {
	return Target{Kind: TargetCell, Zone: zone, Cell: c, Category: cat}
}

func (t Target) IsNone() bool { return t.Kind == TargetNone }

func (t Target) IsPlayer() bool { return t.Kind == TargetPlayer }

func (t Target) Actor() (ActorID, bool) {
	if t.Kind != TargetActor {
		return 0, false
	}
	return t.ActorID, true
}

func (t Target) CellRef() (ZoneKey, Cell, Category, bool) {
	if t.Kind != TargetCell {
		return ZoneKey{}, Cell{}, CategoryNone, false
	}
	return t.Zone, t.Cell, t.Category, true
}
