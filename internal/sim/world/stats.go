package world

import "starcell.sim/internal/sim/world/kernel/model"

// ZoneUpdate is one zone touched by a scheduling pass.
type ZoneUpdate struct {
	Key       model.ZoneKey `json:"zone" msgpack:"zone"`
	Coverage  float64       `json:"coverage" msgpack:"coverage"`
	Mandatory bool          `json:"mandatory,omitempty" msgpack:"mandatory,omitempty"`
	Score     float64       `json:"score,omitempty" msgpack:"score,omitempty"`
	Actors    int           `json:"actors" msgpack:"actors"`
	Cells     int           `json:"cells" msgpack:"cells"`
}

type CatchUpResult struct {
	Zone           model.ZoneKey `json:"zone" msgpack:"zone"`
	Missed         int64         `json:"missed" msgpack:"missed"`
	Cycles         int           `json:"cycles" msgpack:"cycles"`
	Capped         bool          `json:"capped,omitempty" msgpack:"capped,omitempty"`
	Mode           string        `json:"mode" msgpack:"mode"`
	TerrainChanged int           `json:"terrain_changed,omitempty" msgpack:"terrain_changed,omitempty"`
	Ate            int           `json:"ate,omitempty" msgpack:"ate,omitempty"`
	Drank          int           `json:"drank,omitempty" msgpack:"drank,omitempty"`
	Deaths         int           `json:"deaths,omitempty" msgpack:"deaths,omitempty"`
	Travelled      int           `json:"travelled,omitempty" msgpack:"travelled,omitempty"`
	Incident       *Incident     `json:"incident,omitempty" msgpack:"incident,omitempty"`
}

type Incident struct {
	ID      string          `json:"id" msgpack:"id"`
	Kind    string          `json:"kind" msgpack:"kind"`
	Zone    model.ZoneKey   `json:"zone" msgpack:"zone"`
	Tick    int64           `json:"tick" msgpack:"tick"`
	Raiders []model.ActorID `json:"raiders,omitempty" msgpack:"raiders,omitempty"`
	Victim  model.ActorID   `json:"victim,omitempty" msgpack:"victim,omitempty"`
	Lair    bool            `json:"lair,omitempty" msgpack:"lair,omitempty"`
}

// TickStats reports one scheduling pass.
type TickStats struct {
	Tick        int64           `json:"tick" msgpack:"tick"`
	Zones       []ZoneUpdate    `json:"zones" msgpack:"zones"`
	Mandatory   int             `json:"mandatory" msgpack:"mandatory"`
	Skipped     int             `json:"skipped,omitempty" msgpack:"skipped,omitempty"`
	Deferred    int             `json:"deferred,omitempty" msgpack:"deferred,omitempty"`
	CatchUps    []CatchUpResult `json:"catchups,omitempty" msgpack:"catchups,omitempty"`
	Incidents   []Incident      `json:"incidents,omitempty" msgpack:"incidents,omitempty"`
	Actors      int             `json:"actors_updated" msgpack:"actors_updated"`
	Deaths      int             `json:"deaths,omitempty" msgpack:"deaths,omitempty"`
	Transitions int             `json:"transitions,omitempty" msgpack:"transitions,omitempty"`
	Absorbed    map[string]int  `json:"absorbed,omitempty" msgpack:"absorbed,omitempty"`
}

// Coverage returns the coverage key was updated at in this pass, or 0.
func (s TickStats) Coverage(key model.ZoneKey) float64 {
	for _, z := range s.Zones {
		if z.Key == key {
			return z.Coverage
		}
	}
	return 0
}

// TickLogEntry is written once per scheduling pass.
type TickLogEntry struct {
	TickStats
	Population int    `json:"population" msgpack:"population"`
	Digest     string `json:"digest" msgpack:"digest"`
}
