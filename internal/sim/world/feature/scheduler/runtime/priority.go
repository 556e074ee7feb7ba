package runtime

import (
	"math"

	modelpkg "starcell.sim/internal/sim/world/kernel/model"
)

const (
	scorePlayerZone  = 100.0
	scoreSameCell    = 90.0
	scoreAdjacent    = 50.0
	scoreNear        = 25.0
	scoreMid         = 10.0
	stalenessCap     = 30.0
	stalenessPerUnit = 60.0
	bonusLinked      = 40.0
	bonusLinkedNear  = 20.0
	bonusInterior    = 15.0
	bonusHasLinks    = 5.0
	bonusQuest       = 20.0
)

// ScoreInput carries the facts PriorityScore needs about one zone.
type ScoreInput struct {
	Key    modelpkg.ZoneKey
	Player modelpkg.ZoneKey
	// Staleness is ticks since the zone was last updated.
	Staleness int64
	// LinkedToPlayer: a structural link joins this zone and the player's zone.
	LinkedToPlayer bool
	// LinkedNearPlayer: a link joins this zone and a zone adjacent to the player.
	LinkedNearPlayer bool
	HasLinks         bool
	Quest            bool
}

// DistanceScore maps zone distance from the player to the distance term.
// Interiors are measured from their parent coordinates.
func DistanceScore(key, player modelpkg.ZoneKey) float64 {
	if key == player {
		return scorePlayerZone
	}
	d := key.Parent().Distance(player.Parent())
	switch {
	case d == 0:
		return scoreSameCell
	case d <= 1:
		return scoreAdjacent
	case d <= 2:
		return scoreNear
	case d <= 3:
		return scoreMid
	}
	return math.Max(1, 5/float64(d))
}

func StalenessScore(ticks int64) float64 {
	if ticks <= 0 {
		return 0
	}
	return math.Min(stalenessCap, float64(ticks)/stalenessPerUnit)
}

func PriorityScore(in ScoreInput) float64 {
	s := DistanceScore(in.Key, in.Player) + StalenessScore(in.Staleness)
	switch {
	case in.LinkedToPlayer:
		s += bonusLinked
	case in.LinkedNearPlayer:
		s += bonusLinkedNear
	}
	switch {
	case in.Key.IsInterior():
		s += bonusInterior
	case in.HasLinks:
		s += bonusHasLinks
	}
	if in.Quest {
		s += bonusQuest
	}
	return s
}
