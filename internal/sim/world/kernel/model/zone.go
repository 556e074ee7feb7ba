package model

import (
	"crypto/sha256"
	"encoding/binary"
)

// Zone is a fixed-size grid of cell palette ids plus the actors resident in it.
type Zone struct {
	Key   ZoneKey
	W, H  int
	Cells []uint16 // len = W*H, x fastest
	Biome string

	// Actors is the resident list in visit order.
	Actors []ActorID
	// Links are structural connections (overworld <-> interior).
	Links []ZoneKey

	// LastUpdate is the tick of the last full or partial update. -1 if never.
	LastUpdate int64
	// DebtSince is the LastUpdate value at which a needed catch-up was deferred, or -1.
	DebtSince int64
	// DebtUntil is the tick of the first deferral. Live updates resume from
	// there, so the owed window is [DebtSince, DebtUntil).
	DebtUntil int64

	// ActorCursor and CellCursor rotate partial-coverage updates.
	ActorCursor int
	CellCursor  int

	dirty bool
	hash  [32]byte
}

func NewZone(key ZoneKey, w, h int) *Zone {
	return &Zone{
		Key:        key,
		W:          w,
		H:          h,
		Cells:      make([]uint16, w*h),
		LastUpdate: -1,
		DebtSince:  -1,
		DebtUntil:  -1,
		dirty:      true,
	}
}

func (z *Zone) index(x, y int) int { return x + y*z.W }

func (z *Zone) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < z.W && y < z.H
}

func (z *Zone) Get(x, y int) uint16 {
	return z.Cells[z.index(x, y)]
}

func (z *Zone) Set(x, y int, b uint16) {
	i := z.index(x, y)
	if z.Cells[i] == b {
		return
	}
	z.Cells[i] = b
	z.dirty = true
}

func (z *Zone) Digest() [32]byte {
	if z.dirty || z.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range z.Cells {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(z.hash[:], h.Sum(nil))
		z.dirty = false
	}
	return z.hash
}

func (z *Zone) HasActor(id ActorID) bool {
	for _, a := range z.Actors {
		if a == id {
			return true
		}
	}
	return false
}

func (z *Zone) AddActor(id ActorID) {
	if !z.HasActor(id) {
		z.Actors = append(z.Actors, id)
	}
}

func (z *Zone) RemoveActor(id ActorID) bool {
	for i, a := range z.Actors {
		if a == id {
			z.Actors = append(z.Actors[:i], z.Actors[i+1:]...)
			if z.ActorCursor > i {
				z.ActorCursor--
			}
			return true
		}
	}
	return false
}

func (z *Zone) LinkedTo(k ZoneKey) bool {
	for _, l := range z.Links {
		if l == k {
			return true
		}
	}
	return false
}

func (z *Zone) AddLink(k ZoneKey) {
	if k != z.Key && !z.LinkedTo(k) {
		z.Links = append(z.Links, k)
	}
}

// Staleness returns ticks since the last update; a never-updated zone counts from 0.
func (z *Zone) Staleness(now int64) int64 {
	last := z.LastUpdate
	if last < 0 {
		last = 0
	}
	if now < last {
		return 0
	}
	return now - last
}
