package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ZoneKey addresses a zone. Overworld zones have Interior == 0 and use X,Y as
// zone coordinates. Structure interiors (caves, houses) carry a non-zero
// Interior id and keep the coordinates of the overworld zone they hang off.
type ZoneKey struct {
	X        int
	Y        int
	Interior int
}

func Overworld(x, y int) ZoneKey { return ZoneKey{X: x, Y: y} }

func (k ZoneKey) IsInterior() bool { return k.Interior != 0 }

// Parent returns the overworld zone an interior belongs to (or k itself).
func (k ZoneKey) Parent() ZoneKey { return ZoneKey{X: k.X, Y: k.Y} }

func (k ZoneKey) Neighbor(d Dir) ZoneKey {
	dx, dy := d.Delta()
	return ZoneKey{X: k.X + dx, Y: k.Y + dy}
}

// Distance is the Manhattan distance between zone coordinates.
func (k ZoneKey) Distance(o ZoneKey) int {
	return abs(k.X-o.X) + abs(k.Y-o.Y)
}

func (k ZoneKey) Less(o ZoneKey) bool {
	if k.X != o.X {
		return k.X < o.X
	}
	if k.Y != o.Y {
		return k.Y < o.Y
	}
	return k.Interior < o.Interior
}

func (k ZoneKey) String() string {
	if k.Interior != 0 {
		return fmt.Sprintf("%d,%d#%d", k.X, k.Y, k.Interior)
	}
	return fmt.Sprintf("%d,%d", k.X, k.Y)
}

// ParseZoneKey accepts the String form ("x,y" or "x,y#n").
func ParseZoneKey(s string) (ZoneKey, error) {
	var k ZoneKey
	s = strings.TrimSpace(s)
	coords := s
	if i := strings.IndexByte(s, '#'); i >= 0 {
		n, err := strconv.Atoi(s[i+1:])
		if err != nil || n == 0 {
			return k, fmt.Errorf("zone key %q: bad interior id", s)
		}
		k.Interior = n
		coords = s[:i]
	}
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return k, fmt.Errorf("zone key %q: want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return k, fmt.Errorf("zone key %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return k, fmt.Errorf("zone key %q: %w", s, err)
	}
	k.X, k.Y = x, y
	return k, nil
}

func (k ZoneKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ZoneKey) UnmarshalText(b []byte) error {
	v, err := ParseZoneKey(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Dir is a cardinal direction, also used as facing.
type Dir uint8

const (
	DirNone Dir = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// Cardinals lists the four directions in a fixed order.
var Cardinals = [4]Dir{DirUp, DirDown, DirLeft, DirRight}

func (d Dir) Delta() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

func (d Dir) Opposite() Dir {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	}
	return DirNone
}

func (d Dir) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	}
	return "none"
}

// DirFromDelta maps a unit step to a direction.
func DirFromDelta(dx, dy int) Dir {
	switch {
	case dx > 0:
		return DirRight
	case dx < 0:
		return DirLeft
	case dy > 0:
		return DirDown
	case dy < 0:
		return DirUp
	}
	return DirNone
}

// Cell is a grid coordinate inside a zone.
type Cell struct {
	X int
	Y int
}

func (c Cell) Add(d Dir) Cell {
	dx, dy := d.Delta()
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

func Manhattan(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
