package runtime

import (
	"math"
	"testing"

	modelpkg "starcell.sim/internal/sim/world/kernel/model"
)

type seqRand struct{ vals []float64 }

func (r *seqRand) Float64() float64 {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[0]
	r.vals = r.vals[1:]
	return v
}
func (r *seqRand) Intn(int) int { return 0 }
func (r *seqRand) Shuffle(int, func(i, j int)) {}

func TestDistanceScore(t *testing.T) {
	p := modelpkg.Overworld(0, 0)
	cases := []struct {
		k    modelpkg.ZoneKey
		want float64
	}{
		{p, 100},
		{modelpkg.ZoneKey{X: 0, Y: 0, Interior: 2}, 90},
		{modelpkg.Overworld(1, 0), 50},
		{modelpkg.Overworld(1, 1), 25},
		{modelpkg.Overworld(0, -3), 10},
		{modelpkg.Overworld(4, 0), 1.25},
		{modelpkg.Overworld(10, 10), 1},
	}
	for _, tc := range cases {
		if got := DistanceScore(tc.k, p); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%v: expected %v, got %v", tc.k, tc.want, got)
		}
	}
}

func TestPriorityScoreTerms(t *testing.T) {
	p := modelpkg.Overworld(0, 0)
	cave := modelpkg.ZoneKey{X: 0, Y: 0, Interior: 1}
	got := PriorityScore(ScoreInput{Key: cave, Player: p, Staleness: 600, LinkedToPlayer: true, HasLinks: true, Quest: true})
	// 90 distance + 10 staleness + 40 link + 15 interior + 20 quest
	if got != 175 {
		t.Fatalf("expected 175, got %v", got)
	}
	got = PriorityScore(ScoreInput{Key: modelpkg.Overworld(3, 3), Player: p, Staleness: 1e6, LinkedNearPlayer: true, HasLinks: true})
	// max(1, 5/6) + 30 + 20 + 5
	if got != 56 {
		t.Fatalf("expected 56, got %v", got)
	}
}

func TestMandatorySet(t *testing.T) {
	p := modelpkg.Overworld(2, 2)
	cave := modelpkg.ZoneKey{X: 2, Y: 2, Interior: 1}
	known := map[modelpkg.ZoneKey]bool{
		p: true, cave: true,
		modelpkg.Overworld(2, 1): true, modelpkg.Overworld(3, 2): true,
		modelpkg.Overworld(5, 5): true,
	}
	got := Mandatory(p, func(k modelpkg.ZoneKey) bool { return known[k] }, func(k modelpkg.ZoneKey) []modelpkg.ZoneKey {
		if k == p {
			return []modelpkg.ZoneKey{cave}
		}
		return nil
	})
	if len(got) != 4 || got[0] != p {
		t.Fatalf("expected player zone first plus 3 others, got %v", got)
	}
	for _, k := range got {
		if k == modelpkg.Overworld(5, 5) {
			t.Fatalf("distant zone must not be mandatory")
		}
	}
}

func TestPlanMandatoryFullCoverageAndCap(t *testing.T) {
	mand := []modelpkg.ZoneKey{modelpkg.Overworld(0, 0), modelpkg.Overworld(1, 0), modelpkg.Overworld(0, 1)}
	var opt []Candidate
	for i := 0; i < 30; i++ {
		opt = append(opt, Candidate{Key: modelpkg.Overworld(10+i, 0), Score: float64(i)})
	}
	opt = append(opt, Candidate{Key: mand[1], Score: 999})

	sel := Plan(PlanInput{Mandatory: mand, Optional: opt, Cap: 5, QueueDepth: 100, MinCoverage: 0.05}, &seqRand{})
	if len(sel) != 5 {
		t.Fatalf("expected cap of 5, got %d", len(sel))
	}
	for i := 0; i < 3; i++ {
		if !sel[i].Mandatory || sel[i].Coverage != 1 {
			t.Fatalf("expected mandatory full coverage at %d, got %+v", i, sel[i])
		}
	}
	if sel[3].Key != modelpkg.Overworld(39, 0) || sel[3].Coverage != 0.99 || sel[3].Rank != 1 {
		t.Fatalf("expected highest optional first at 0.99, got %+v", sel[3])
	}
	if sel[4].Coverage != 0.98 {
		t.Fatalf("expected second optional at 0.98, got %+v", sel[4])
	}
	seen := map[modelpkg.ZoneKey]int{}
	for _, s := range sel {
		seen[s.Key]++
		if seen[s.Key] > 1 {
			t.Fatalf("zone %v selected twice", s.Key)
		}
	}
}

func TestPlanMandatoryExceedsCap(t *testing.T) {
	mand := []modelpkg.ZoneKey{modelpkg.Overworld(0, 0), modelpkg.Overworld(1, 0), modelpkg.Overworld(0, 1)}
	sel := Plan(PlanInput{Mandatory: mand, Optional: []Candidate{{Key: modelpkg.Overworld(9, 9), Score: 1}}, Cap: 2, QueueDepth: 100}, &seqRand{})
	if len(sel) != 3 {
		t.Fatalf("expected all mandatory zones kept past cap, got %d", len(sel))
	}
}

func TestPlanProbabilisticSkip(t *testing.T) {
	opt := []Candidate{{Key: modelpkg.Overworld(5, 0), Score: 3}, {Key: modelpkg.Overworld(6, 0), Score: 2}}
	sel := Plan(PlanInput{Optional: opt, Cap: 10, QueueDepth: 100, MinCoverage: 0.05}, &seqRand{vals: []float64{0.995, 0.1}})
	if len(sel) != 1 || sel[0].Key != modelpkg.Overworld(6, 0) || sel[0].Rank != 2 {
		t.Fatalf("expected first skipped and second kept, got %+v", sel)
	}
}

func TestQueueCoverageFloor(t *testing.T) {
	if got := QueueCoverage(99, 100, 0.05); got != 0.05 {
		t.Fatalf("expected floor 0.05, got %v", got)
	}
	if got := QueueCoverage(1, 100, 0.05); got != 0.99 {
		t.Fatalf("expected 0.99, got %v", got)
	}
}

func TestCoverageCount(t *testing.T) {
	if got := CoverageCount(10, 0.25); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := CoverageCount(10, 1); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := CoverageCount(0, 0.5); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
