package gen

import (
	"testing"

	"starcell.sim/internal/sim/world/kernel/model"
)

func testPalette() Palette {
	ids := map[string]uint16{}
	next := uint16(0)
	p, _ := ResolvePalette(func(id string) (uint16, bool) {
		if v, ok := ids[id]; ok {
			return v, true
		}
		ids[id] = next
		next++
		return ids[id], true
	})
	return p
}

func TestResolvePaletteReportsMissing(t *testing.T) {
	_, err := ResolvePalette(func(id string) (uint16, bool) { return 0, id != "CAVE" })
	if err == nil {
		t.Fatalf("expected missing id error")
	}
}

func TestOverworldDeterministic(t *testing.T) {
	pal := testPalette()
	p := Params{Seed: 42, BiomeRegionSize: 4}
	a := model.NewZone(model.Overworld(3, -1), 24, 18)
	b := model.NewZone(model.Overworld(3, -1), 24, 18)
	fa := Overworld(a, p, pal)
	fb := Overworld(b, p, pal)
	if a.Digest() != b.Digest() || len(fa) != len(fb) || a.Biome != b.Biome {
		t.Fatalf("expected identical generation for the same key")
	}
}

func TestOverworldKeepsExitCorridorClear(t *testing.T) {
	pal := testPalette()
	for x := -4; x <= 4; x++ {
		z := model.NewZone(model.Overworld(x, x*3), 24, 18)
		Overworld(z, Params{Seed: 7, BiomeRegionSize: 4}, pal)
		for y := 0; y < z.H; y++ {
			for cx := 0; cx < z.W; cx++ {
				if NearExit(cx, y, z.W, z.H) && z.Get(cx, y) != pal.Ground {
					t.Fatalf("zone %v: corridor cell %d,%d is %d", z.Key, cx, y, z.Get(cx, y))
				}
			}
		}
	}
}

func TestInteriorHasExitGap(t *testing.T) {
	pal := testPalette()
	z := model.NewZone(model.ZoneKey{X: 1, Y: 1, Interior: 2}, 24, 18)
	Interior(z, Params{Seed: 1}, BiomeCave, pal)
	if z.Get(0, 0) != pal.CaveWall {
		t.Fatalf("expected wall corner")
	}
	if z.Get(z.W/2, z.H-1) != pal.CaveFloor {
		t.Fatalf("expected exit gap at bottom centre")
	}
	e := InteriorEntry(z.W, z.H)
	if z.Get(e.X, e.Y) != pal.CaveFloor {
		t.Fatalf("expected walkable entry, got %d", z.Get(e.X, e.Y))
	}
}

func TestFloorDiv(t *testing.T) {
	if FloorDiv(-1, 4) != -1 || FloorDiv(4, 4) != 1 || FloorDiv(-4, 4) != -1 {
		t.Fatalf("unexpected floor division")
	}
}
