package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"starcell.sim/internal/sim/world/kernel/model"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) { digestWriteU64(h, tmp, uint64(v)) }

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteKey(h hashWriter, tmp *[8]byte, k model.ZoneKey) {
	digestWriteI64(h, tmp, int64(k.X))
	digestWriteI64(h, tmp, int64(k.Y))
	digestWriteI64(h, tmp, int64(k.Interior))
}

func digestWriteTarget(h hashWriter, tmp *[8]byte, t model.Target) {
	h.Write([]byte{byte(t.Kind), byte(t.Category)})
	digestWriteI64(h, tmp, int64(t.ActorID))
	digestWriteKey(h, tmp, t.Zone)
	digestWriteI64(h, tmp, int64(t.Cell.X))
	digestWriteI64(h, tmp, int64(t.Cell.Y))
}

// stateDigest hashes the authoritative simulation state. Presentation
// coordinates are excluded.
func (w *World) stateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, w.tick.Load())
	digestWriteKey(h, &tmp, w.player.Zone)
	digestWriteI64(h, &tmp, int64(w.player.Cell.X))
	digestWriteI64(h, &tmp, int64(w.player.Cell.Y))

	for _, k := range w.zones.Keys() {
		z, _ := w.zones.Get(k)
		digestWriteKey(h, &tmp, k)
		d := z.Digest()
		h.Write(d[:])
		digestWriteI64(h, &tmp, z.LastUpdate)
		digestWriteI64(h, &tmp, z.DebtSince)
		digestWriteI64(h, &tmp, z.DebtUntil)
		digestWriteU64(h, &tmp, uint64(len(z.Actors)))
		for _, id := range z.Actors {
			digestWriteI64(h, &tmp, int64(id))
		}
	}

	ids := make([]model.ActorID, 0, len(w.actors))
	for id := range w.actors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		a := w.actors[id]
		digestWriteI64(h, &tmp, int64(a.ID))
		h.Write([]byte(a.Species))
		digestWriteKey(h, &tmp, a.Zone)
		digestWriteI64(h, &tmp, int64(a.X))
		digestWriteI64(h, &tmp, int64(a.Y))
		digestWriteF64(h, &tmp, a.Health)
		digestWriteF64(h, &tmp, a.Hunger)
		digestWriteF64(h, &tmp, a.Thirst)
		h.Write([]byte{byte(a.State), byte(a.Facing)})
		digestWriteI64(h, &tmp, int64(a.StateTimer))
		digestWriteTarget(h, &tmp, a.Target)
	}
	return hex.EncodeToString(h.Sum(nil))
}
