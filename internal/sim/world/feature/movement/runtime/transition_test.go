package runtime

import (
	"testing"

	modelpkg "starcell.sim/internal/sim/world/kernel/model"
)

func TestExitSideBand(t *testing.T) {
	cases := []struct {
		c    modelpkg.Cell
		want modelpkg.Dir
		ok   bool
	}{
		{modelpkg.Cell{X: 12, Y: 0}, modelpkg.DirUp, true},
		{modelpkg.Cell{X: 13, Y: 1}, modelpkg.DirUp, true},
		{modelpkg.Cell{X: 15, Y: 0}, modelpkg.DirNone, false},
		{modelpkg.Cell{X: 11, Y: 17}, modelpkg.DirDown, true},
		{modelpkg.Cell{X: 0, Y: 9}, modelpkg.DirLeft, true},
		{modelpkg.Cell{X: 23, Y: 8}, modelpkg.DirRight, true},
		{modelpkg.Cell{X: 12, Y: 9}, modelpkg.DirNone, false},
	}
	for _, tc := range cases {
		got, ok := ExitSide(tc.c, 24, 18, 1)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%v: expected %v/%v, got %v/%v", tc.c, tc.want, tc.ok, got, ok)
		}
	}
}

func TestEntryCellMirrors(t *testing.T) {
	from := modelpkg.Cell{X: 12, Y: 0}
	if got := EntryCell(modelpkg.DirUp, from, 24, 18); got != (modelpkg.Cell{X: 12, Y: 15}) {
		t.Fatalf("expected (12,15), got %v", got)
	}
	if got := EntryCell(modelpkg.DirRight, modelpkg.Cell{X: 23, Y: 9}, 24, 18); got != (modelpkg.Cell{X: 2, Y: 9}) {
		t.Fatalf("expected (2,9), got %v", got)
	}
}

func TestCheckTransitionRejections(t *testing.T) {
	dest := newStubGrid(24, 18)
	lookup := func(modelpkg.Dir) (EntryEnv, bool) { return dest, true }

	a := newWalker(1, 12, 9)
	a.LastTransitionTick = -1
	if _, _, r := CheckTransition(a, false, 24, 18, 1, 5000, 1800, lookup); r != RejectNotInExitBand {
		t.Fatalf("expected not in band, got %v", r)
	}

	a.X, a.Y = 12, 0
	a.LastTransitionTick = 4000
	if _, _, r := CheckTransition(a, false, 24, 18, 1, 5000, 1800, lookup); r != RejectCooldown {
		t.Fatalf("expected cooldown, got %v", r)
	}

	a.LastTransitionTick = -1
	dest.solid[modelpkg.Cell{X: 12, Y: 15}] = true
	if _, _, r := CheckTransition(a, false, 24, 18, 1, 5000, 1800, lookup); r != RejectEntryBlocked {
		t.Fatalf("expected entry blocked, got %v", r)
	}

	delete(dest.solid, modelpkg.Cell{X: 12, Y: 15})
	side, entry, r := CheckTransition(a, false, 24, 18, 1, 5000, 1800, lookup)
	if r != RejectNone || side != modelpkg.DirUp || entry != (modelpkg.Cell{X: 12, Y: 15}) {
		t.Fatalf("expected accepted crossing, got %v %v %v", side, entry, r)
	}
}

func TestSideToward(t *testing.T) {
	if got := SideToward(modelpkg.Overworld(0, 0), modelpkg.Overworld(0, -3)); got != modelpkg.DirUp {
		t.Fatalf("expected up, got %v", got)
	}
	if got := SideToward(modelpkg.Overworld(0, 0), modelpkg.Overworld(2, 1)); got != modelpkg.DirRight {
		t.Fatalf("expected right, got %v", got)
	}
}
