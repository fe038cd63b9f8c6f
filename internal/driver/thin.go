package driver

import (
	"math/rand"

	"github.com/zenlda/zenlda/internal/graph"
)

// thinnedPartition wraps an EdgePartition, substituting each edge's
// Occurrences with a prefix view selected by thinPartition. The
// substitute slice aliases the same backing array as the original edge,
// so a kernel writing through it mutates the real occurrence array in
// place; the untouched suffix simply keeps last iteration's assignment.
type thinnedPartition struct {
	graph.EdgePartition
	edges []*graph.EdgeRecord
}

func (t *thinnedPartition) Edge(offset int) *graph.EdgeRecord { return t.edges[offset] }

// thinPartition implements config.SampleRate, the fraction of occurrences
// resampled per iteration. rate >= 1 returns p unchanged.
// Otherwise, for every edge it partially Fisher-Yates-shuffles the
// occurrence array in place and exposes only the shuffled prefix to the
// sampling kernel this iteration, so which occurrences get resampled
// rotates across iterations rather than always landing on the same
// fixed prefix.
func thinPartition(p graph.EdgePartition, rate float64, rng *rand.Rand) graph.EdgePartition {
	if rate >= 1.0 {
		return p
	}

	groups := p.Groups()
	n := 0
	for _, g := range groups {
		if end := g.FirstOffset + g.Count; end > n {
			n = end
		}
	}

	edges := make([]*graph.EdgeRecord, n)
	for off := 0; off < n; off++ {
		e := p.Edge(off)
		edges[off] = &graph.EdgeRecord{
			SrcId:       e.SrcId,
			DstId:       e.DstId,
			Occurrences: thinOccurrences(e.Occurrences, rate, rng),
		}
	}

	return &thinnedPartition{EdgePartition: p, edges: edges}
}

func thinOccurrences(occ []int32, rate float64, rng *rand.Rand) []int32 {
	total := len(occ)
	if total == 0 {
		return occ
	}
	m := int(float64(total)*rate + 0.5)
	if m <= 0 {
		m = 1
	}
	if m >= total {
		return occ
	}
	for i := 0; i < m; i++ {
		j := i + rng.Intn(total-i)
		occ[i], occ[j] = occ[j], occ[i]
	}
	return occ[:m]
}
