package store

import (
	"starcell.sim/internal/sim/world/kernel/model"
	genpkg "starcell.sim/internal/sim/world/terrain/gen"
)

// GetOrGen returns the zone at k, generating it (and its interiors) on
// first access. Interior keys are never generated lazily; ok is false for
// an unknown interior.
func (s *ZoneStore) GetOrGen(k model.ZoneKey) (z *model.Zone, created bool, ok bool) {
	if z, found := s.Zones[k]; found {
		return z, false, true
	}
	if k.IsInterior() {
		return nil, false, false
	}
	z = model.NewZone(k, s.W, s.H)
	var feats []genpkg.Feature
	if s.Gen != nil {
		feats = s.Gen.Overworld(z)
	}
	_ = z.Digest()
	s.Zones[k] = z
	for _, f := range feats {
		s.addInterior(z, f.Cell, f.Biome)
	}
	return z, true, true
}

func (s *ZoneStore) addInterior(parent *model.Zone, door model.Cell, kind string) *model.Zone {
	key := model.ZoneKey{X: parent.Key.X, Y: parent.Key.Y, Interior: s.NextInterior}
	s.NextInterior++
	in := model.NewZone(key, s.W, s.H)
	if s.Gen != nil {
		s.Gen.Interior(in, kind)
	}
	_ = in.Digest()
	s.Zones[key] = in
	s.Entrances[key] = Entrance{Zone: parent.Key, Cell: door}
	parent.AddLink(key)
	in.AddLink(parent.Key)
	return in
}

// AddInterior places a new structure interior behind door in parent.
func (s *ZoneStore) AddInterior(parent model.ZoneKey, door model.Cell, kind string) (*model.Zone, bool) {
	p, ok := s.Zones[parent]
	if !ok || parent.IsInterior() {
		return nil, false
	}
	return s.addInterior(p, door, kind), true
}

// Put installs z as-is, replacing any zone with the same key.
func (s *ZoneStore) Put(z *model.Zone) {
	s.Zones[z.Key] = z
	if z.Key.IsInterior() && z.Key.Interior >= s.NextInterior {
		s.NextInterior = z.Key.Interior + 1
	}
}
