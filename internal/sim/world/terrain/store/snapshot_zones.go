package store

import (
	"fmt"

	snapv1 "starcell.sim/internal/persistence/snapshot"
	"starcell.sim/internal/sim/world/kernel/model"
)

func KeyV1(k model.ZoneKey) snapv1.ZoneKeyV1 {
	return snapv1.ZoneKeyV1{X: k.X, Y: k.Y, Interior: k.Interior}
}

func KeyFromV1(k snapv1.ZoneKeyV1) model.ZoneKey {
	return model.ZoneKey{X: k.X, Y: k.Y, Interior: k.Interior}
}

// ExportZones converts loaded zones into snapshot zones in key order.
func (s *ZoneStore) ExportZones() []snapv1.ZoneV1 {
	keys := s.Keys()
	out := make([]snapv1.ZoneV1, 0, len(keys))
	for _, k := range keys {
		z := s.Zones[k]
		cells := make([]uint16, len(z.Cells))
		copy(cells, z.Cells)
		zv := snapv1.ZoneV1{
			Key:         KeyV1(k),
			W:           z.W,
			H:           z.H,
			Cells:       cells,
			Biome:       z.Biome,
			LastUpdate:  z.LastUpdate,
			DebtSince:   z.DebtSince,
			DebtUntil:   z.DebtUntil,
			ActorCursor: z.ActorCursor,
			CellCursor:  z.CellCursor,
		}
		for _, id := range z.Actors {
			zv.Actors = append(zv.Actors, int64(id))
		}
		for _, l := range z.Links {
			zv.Links = append(zv.Links, KeyV1(l))
		}
		if e, ok := s.Entrances[k]; ok {
			zv.Door = &snapv1.CellV1{Zone: KeyV1(e.Zone), X: e.Cell.X, Y: e.Cell.Y}
		}
		out = append(out, zv)
	}
	return out
}

// ImportZones rebuilds a zone store from snapshot zones.
func ImportZones(w, h int, gen Generator, zones []snapv1.ZoneV1) (*ZoneStore, error) {
	s := NewZoneStore(w, h, gen)
	for _, zv := range zones {
		if zv.W != w || zv.H != h {
			return nil, fmt.Errorf("snapshot zone %v size mismatch: got %dx%d want %dx%d", zv.Key, zv.W, zv.H, w, h)
		}
		if len(zv.Cells) != w*h {
			return nil, fmt.Errorf("snapshot zone %v cells length mismatch: got %d want %d", zv.Key, len(zv.Cells), w*h)
		}
		z := model.NewZone(KeyFromV1(zv.Key), w, h)
		copy(z.Cells, zv.Cells)
		z.Biome = zv.Biome
		z.LastUpdate = zv.LastUpdate
		z.DebtSince = zv.DebtSince
		z.DebtUntil = zv.DebtUntil
		z.ActorCursor = zv.ActorCursor
		z.CellCursor = zv.CellCursor
		for _, id := range zv.Actors {
			z.Actors = append(z.Actors, model.ActorID(id))
		}
		for _, l := range zv.Links {
			z.Links = append(z.Links, KeyFromV1(l))
		}
		if zv.Door != nil {
			s.Entrances[z.Key] = Entrance{Zone: KeyFromV1(zv.Door.Zone), Cell: model.Cell{X: zv.Door.X, Y: zv.Door.Y}}
		}
		_ = z.Digest()
		s.Put(z)
	}
	return s, nil
}
