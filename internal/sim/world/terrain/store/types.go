package store

import (
	"sort"

	"starcell.sim/internal/sim/world/kernel/model"
	genpkg "starcell.sim/internal/sim/world/terrain/gen"
)

// Generator fills a freshly allocated zone. Overworld zones may report
// enterable features; the store allocates and links an interior for each.
type Generator interface {
	Overworld(z *model.Zone) []genpkg.Feature
	Interior(z *model.Zone, kind string)
}

// HashGenerator is the default seed-deterministic generator.
type HashGenerator struct {
	Params  genpkg.Params
	Palette genpkg.Palette
}

func (g HashGenerator) Overworld(z *model.Zone) []genpkg.Feature {
	return genpkg.Overworld(z, g.Params, g.Palette)
}

func (g HashGenerator) Interior(z *model.Zone, kind string) {
	genpkg.Interior(z, g.Params, kind, g.Palette)
}

// Entrance records which overworld cell leads into an interior.
type Entrance struct {
	Zone model.ZoneKey
	Cell model.Cell
}

// ZoneStore is the arena of zones addressed by key.
type ZoneStore struct {
	W, H int
	Gen  Generator

	Zones map[model.ZoneKey]*model.Zone
	// Entrances maps interior keys to their overworld doorway.
	Entrances map[model.ZoneKey]Entrance

	NextInterior int
}

func NewZoneStore(w, h int, gen Generator) *ZoneStore {
	return &ZoneStore{
		W:            w,
		H:            h,
		Gen:          gen,
		Zones:        map[model.ZoneKey]*model.Zone{},
		Entrances:    map[model.ZoneKey]Entrance{},
		NextInterior: 1,
	}
}

func (s *ZoneStore) Get(k model.ZoneKey) (*model.Zone, bool) {
	z, ok := s.Zones[k]
	return z, ok
}

func (s *ZoneStore) Exists(k model.ZoneKey) bool {
	_, ok := s.Zones[k]
	return ok
}

func (s *ZoneStore) Len() int { return len(s.Zones) }

// Keys returns every loaded key in a stable order.
func (s *ZoneStore) Keys() []model.ZoneKey {
	keys := make([]model.ZoneKey, 0, len(s.Zones))
	for k := range s.Zones {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func (s *ZoneStore) Links(k model.ZoneKey) []model.ZoneKey {
	if z, ok := s.Zones[k]; ok {
		return z.Links
	}
	return nil
}

// InteriorAt returns the interior whose doorway is c in zone k.
func (s *ZoneStore) InteriorAt(k model.ZoneKey, c model.Cell) (model.ZoneKey, bool) {
	z, ok := s.Zones[k]
	if !ok {
		return model.ZoneKey{}, false
	}
	for _, l := range z.Links {
		if e, ok := s.Entrances[l]; ok && e.Zone == k && e.Cell == c {
			return l, true
		}
	}
	return model.ZoneKey{}, false
}
