package runtime

import (
	"math"
	"sort"

	modelpkg "starcell.sim/internal/sim/world/kernel/model"
)

// Mandatory returns the player's zone, the existing cardinal neighbours of
// its overworld cell and every zone structurally linked to it, de-duplicated
// and in key order.
func Mandatory(player modelpkg.ZoneKey, exists func(modelpkg.ZoneKey) bool, links func(modelpkg.ZoneKey) []modelpkg.ZoneKey) []modelpkg.ZoneKey {
	seen := map[modelpkg.ZoneKey]bool{player: true}
	out := []modelpkg.ZoneKey{player}
	add := func(k modelpkg.ZoneKey) {
		if seen[k] || !exists(k) {
			return
		}
		seen[k] = true
		out = append(out, k)
	}
	for _, d := range modelpkg.Cardinals {
		add(player.Parent().Neighbor(d))
	}
	for _, l := range links(player) {
		add(l)
	}
	sort.Slice(out[1:], func(i, j int) bool { return out[1+i].Less(out[1+j]) })
	return out
}

type Candidate struct {
	Key   modelpkg.ZoneKey
	Score float64
}

type PlanInput struct {
	Mandatory []modelpkg.ZoneKey
	Optional  []Candidate
	// Cap bounds the total zones selected; mandatory zones count toward it but
	// are never dropped.
	Cap         int
	QueueDepth  int
	MinCoverage float64
}

type Selection struct {
	Key       modelpkg.ZoneKey
	Coverage  float64
	Mandatory bool
	Score     float64
	// Rank is the 1-based queue position of an optional zone, 0 for mandatory.
	Rank int
}

// QueueCoverage is the coverage (and processing probability) of the i-th
// optional zone, i starting at 1.
func QueueCoverage(i, depth int, min float64) float64 {
	if depth <= 0 {
		return min
	}
	return math.Max(min, float64(depth-i)/float64(depth))
}

// SortCandidates orders by score descending, ties by key.
func SortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Key.Less(cs[j].Key)
	})
}

// Plan selects the zones updated this pass: every mandatory zone at full
// coverage, then optional zones by descending score with falling coverage,
// each skipped with probability 1-coverage, until the cap is reached.
func Plan(in PlanInput, rng modelpkg.Rand) []Selection {
	out := make([]Selection, 0, max(in.Cap, len(in.Mandatory)))
	mand := map[modelpkg.ZoneKey]bool{}
	for _, k := range in.Mandatory {
		if mand[k] {
			continue
		}
		mand[k] = true
		out = append(out, Selection{Key: k, Coverage: 1, Mandatory: true})
	}

	opt := make([]Candidate, 0, len(in.Optional))
	for _, c := range in.Optional {
		if !mand[c.Key] {
			opt = append(opt, c)
		}
	}
	SortCandidates(opt)

	for i, c := range opt {
		if len(out) >= in.Cap {
			break
		}
		rank := i + 1
		cov := QueueCoverage(rank, in.QueueDepth, in.MinCoverage)
		if rng.Float64() > cov {
			continue
		}
		out = append(out, Selection{Key: c.Key, Coverage: cov, Score: c.Score, Rank: rank})
	}
	return out
}

// CoverageCount is how many of n items a pass at coverage c touches.
func CoverageCount(n int, c float64) int {
	if n <= 0 || c <= 0 {
		return 0
	}
	if c >= 1 {
		return n
	}
	k := int(math.Ceil(c * float64(n)))
	if k > n {
		k = n
	}
	return k
}
