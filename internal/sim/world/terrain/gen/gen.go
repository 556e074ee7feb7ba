package gen

import (
	"fmt"

	"starcell.sim/internal/sim/world/kernel/model"
)

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

const (
	BiomePlains = "PLAINS"
	BiomeForest = "FOREST"
	BiomeDesert = "DESERT"
	BiomeCave   = "CAVE"
	BiomeHouse  = "HOUSE"
)

func BiomeFrom(noise uint64) string {
	switch noise % 3 {
	case 0:
		return BiomePlains
	case 1:
		return BiomeForest
	default:
		return BiomeDesert
	}
}

// BiomeAt picks the biome of the region (regionSize zones square) holding zone x,y.
func BiomeAt(seed int64, x, y, regionSize int) string {
	if regionSize <= 0 {
		regionSize = 1
	}
	return BiomeFrom(Hash2(seed, FloorDiv(x, regionSize), FloorDiv(y, regionSize)))
}

// InCluster reports whether world cell x,y falls inside a hash-placed blob.
func InCluster(seed int64, x, y, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := FloorDiv(x, grid)
	gy := FloorDiv(y, grid)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := Hash2(seed, cgx, cgy)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oy := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cy := cgy*grid + oy

			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}

// Palette holds the cell ids the generator places.
type Palette struct {
	Ground, Dirt, Sand, Water, DeepWater   uint16
	Tree, Tree2, Flower, Cactus, Carrot    uint16
	Stone, IronOre, Wall, CaveWall         uint16
	CaveFloor, FloorWood, Chest, Barrel    uint16
	Camp, House, Well, Cave, Stairs, Ruins uint16
}

// ResolvePalette looks every generator cell up by catalog id.
func ResolvePalette(lookup func(id string) (uint16, bool)) (Palette, error) {
	var p Palette
	var missing []string
	get := func(id string) uint16 {
		v, ok := lookup(id)
		if !ok {
			missing = append(missing, id)
		}
		return v
	}
	p.Ground = get("GRASS")
	p.Dirt = get("DIRT")
	p.Sand = get("SAND")
	p.Water = get("WATER")
	p.DeepWater = get("DEEP_WATER")
	p.Tree = get("TREE1")
	p.Tree2 = get("TREE2")
	p.Flower = get("FLOWER")
	p.Cactus = get("CACTUS")
	p.Carrot = get("CARROT3")
	p.Stone = get("STONE")
	p.IronOre = get("IRON_ORE")
	p.Wall = get("WALL")
	p.CaveWall = get("CAVE_WALL")
	p.CaveFloor = get("CAVE_FLOOR")
	p.FloorWood = get("FLOOR_WOOD")
	p.Chest = get("CHEST")
	p.Barrel = get("BARREL")
	p.Camp = get("CAMP")
	p.House = get("HOUSE")
	p.Well = get("WELL")
	p.Cave = get("CAVE")
	p.Stairs = get("STAIRS")
	p.Ruins = get("RUINED_SANDSTONE_COLUMN")
	if len(missing) > 0 {
		return p, fmt.Errorf("missing cell ids in palette: %v", missing)
	}
	return p, nil
}

type Params struct {
	Seed            int64
	BiomeRegionSize int
}

// Feature is a structure the generator placed that needs an interior zone.
type Feature struct {
	Cell  model.Cell
	Biome string
}

// NearExit reports whether x,y lies in the corridor that keeps every edge
// crossing and its mirrored entry cell walkable.
func NearExit(x, y, w, h int) bool {
	cx, cy := w/2, h/2
	if abs(x-cx) <= 2 && (y <= 2 || y >= h-3) {
		return true
	}
	return abs(y-cy) <= 2 && (x <= 2 || x >= w-3)
}

// Overworld fills z with hash-derived terrain and returns the enterable
// structures placed in it. Output depends only on the seed and zone key.
func Overworld(z *model.Zone, p Params, pal Palette) []Feature {
	biome := BiomeAt(p.Seed, z.Key.X, z.Key.Y, p.BiomeRegionSize)
	z.Biome = biome
	for y := 0; y < z.H; y++ {
		for x := 0; x < z.W; x++ {
			wx := z.Key.X*z.W + x
			wy := z.Key.Y*z.H + y
			z.Cells[x+y*z.W] = cellAt(p.Seed, biome, wx, wy, pal)
			if NearExit(x, y, z.W, z.H) {
				z.Cells[x+y*z.W] = pal.Ground
			}
		}
	}

	var out []Feature
	roll := Hash2(p.Seed+500, z.Key.X, z.Key.Y) % 1000
	pos := featureCell(p.Seed+501, z)
	switch {
	case roll < 120:
		z.Cells[pos.X+pos.Y*z.W] = pal.Cave
		out = append(out, Feature{Cell: pos, Biome: BiomeCave})
	case roll < 220 && biome != BiomeDesert:
		z.Cells[pos.X+pos.Y*z.W] = pal.House
		out = append(out, Feature{Cell: pos, Biome: BiomeHouse})
		place(z, pos.Add(model.DirDown).Add(model.DirRight), pal.Camp)
		place(z, pos.Add(model.DirLeft).Add(model.DirLeft), pal.Well)
	case roll < 300:
		z.Cells[pos.X+pos.Y*z.W] = pal.Camp
	}
	return out
}

func place(z *model.Zone, c model.Cell, id uint16) {
	if z.InBounds(c.X, c.Y) && !NearExit(c.X, c.Y, z.W, z.H) {
		z.Cells[c.X+c.Y*z.W] = id
	}
}

func cellAt(seed int64, biome string, wx, wy int, pal Palette) uint16 {
	switch {
	case InCluster(seed+101, wx, wy, 40, 3, 350):
		if InCluster(seed+101, wx, wy, 40, 1, 350) {
			return pal.DeepWater
		}
		return pal.Water
	case InCluster(seed+102, wx, wy, 64, 2, 300):
		return pal.Stone
	case InCluster(seed+103, wx, wy, 96, 1, 200):
		return pal.IronOre
	}
	switch biome {
	case BiomeForest:
		switch {
		case InCluster(seed+201, wx, wy, 12, 3, 600):
			if Hash2(seed+202, wx, wy)%3 == 0 {
				return pal.Tree2
			}
			return pal.Tree
		case InCluster(seed+203, wx, wy, 24, 2, 300):
			return pal.Dirt
		}
	case BiomeDesert:
		switch {
		case InCluster(seed+301, wx, wy, 16, 2, 150):
			return pal.Cactus
		case InCluster(seed+302, wx, wy, 48, 1, 100):
			return pal.Ruins
		}
		return pal.Sand
	default:
		switch {
		case InCluster(seed+401, wx, wy, 24, 3, 350):
			return pal.Dirt
		case InCluster(seed+402, wx, wy, 24, 2, 250):
			return pal.Tree
		case InCluster(seed+403, wx, wy, 48, 2, 120):
			return pal.Carrot
		}
	}
	if Hash2(seed+999, wx, wy)%1000 < 25 {
		return pal.Flower
	}
	return pal.Ground
}

// featureCell picks a structure position away from the exit corridor with
// a free row beneath it.
func featureCell(seed int64, z *model.Zone) model.Cell {
	h := Hash2(seed, z.Key.X, z.Key.Y)
	for i := 0; i < 16; i++ {
		x := 3 + int((h>>uint(i*4))%uint64(max(1, z.W-6)))
		y := 3 + int((h>>uint(i*4+2))%uint64(max(1, z.H-7)))
		if !NearExit(x, y, z.W, z.H) && !NearExit(x, y+1, z.W, z.H) {
			return model.Cell{X: x, Y: y}
		}
	}
	return model.Cell{X: 4, Y: 4}
}

// InteriorEntry is where actors appear when entering an interior and the
// exit band cell that leads back out.
func InteriorEntry(w, h int) model.Cell { return model.Cell{X: w / 2, Y: h - 3} }

// Interior fills z as the inside of a cave or house. The bottom-centre wall
// gap is the exit back to the parent zone.
func Interior(z *model.Zone, p Params, kind string, pal Palette) {
	z.Biome = kind
	wall, floor := pal.CaveWall, pal.CaveFloor
	if kind == BiomeHouse {
		wall, floor = pal.Wall, pal.FloorWood
	}
	for y := 0; y < z.H; y++ {
		for x := 0; x < z.W; x++ {
			c := floor
			if x == 0 || y == 0 || x == z.W-1 || y == z.H-1 {
				c = wall
			}
			z.Cells[x+y*z.W] = c
		}
	}
	for x := z.W/2 - 1; x <= z.W/2+1; x++ {
		z.Cells[x+(z.H-1)*z.W] = floor
	}
	z.Cells[z.W/2+(z.H-2)*z.W] = pal.Stairs

	for y := 2; y < z.H-3; y++ {
		for x := 2; x < z.W-2; x++ {
			r := Hash3(p.Seed+600, z.Key.X*z.W+x, z.Key.Y*z.H+y, z.Key.Interior) % 1000
			switch {
			case kind == BiomeCave && r < 40:
				z.Cells[x+y*z.W] = pal.Stone
			case kind == BiomeCave && r < 60:
				z.Cells[x+y*z.W] = pal.IronOre
			case kind == BiomeHouse && r < 15:
				z.Cells[x+y*z.W] = pal.Chest
			case kind == BiomeHouse && r < 30:
				z.Cells[x+y*z.W] = pal.Barrel
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
