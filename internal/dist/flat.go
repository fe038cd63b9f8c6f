package dist

import (
	"math/rand"
	"sort"
)

// FlatDist is a thin "alias-style" dispatcher backed by either a dense
// cumulative array (when the support spans the whole K range) or a
// CumulativeDist (when it doesn't). It's used for SparseLDA, where all
// three sub-distributions (ab, db, wda) are rebuilt on essentially every
// token and the alias table's O(K) build cost would dominate.
type FlatDist struct {
	dense    []float64
	sparse   *CumulativeDist
	useDense bool
	norm     float64
}

// NewFlatDist allocates a dispatcher with capacity for k entries.
func NewFlatDist(k int) *FlatDist {
	return &FlatDist{
		dense:  make([]float64, 0, k),
		sparse: NewCumulativeDist(k),
	}
}

// Reset is a no-op placeholder kept for interface symmetry with the
// other samplers; FlatDist has no persistent state to size ahead of
// time beyond what ResetDist already grows.
func (f *FlatDist) Reset(k int) {}

// ResetDist rebuilds the distribution over probs[:size]. A nil space
// spanning the full k range is treated as dense (built as a flat
// cumulative array); anything else goes through the sparse path.
func (f *FlatDist) ResetDist(probs []float64, space []int32, size int, k int) {
	if space == nil && size == k {
		f.useDense = true
		if cap(f.dense) < size {
			f.dense = make([]float64, size)
		}
		f.dense = f.dense[:size]
		var running float64
		for i := 0; i < size; i++ {
			running += probs[i]
			f.dense[i] = running
		}
		f.norm = running
		return
	}
	f.useDense = false
	f.sparse.ResetDist(probs, space, size)
	f.norm = f.sparse.Norm()
}

// Norm returns the pre-normalization mass of the built distribution.
func (f *FlatDist) Norm() float64 { return f.norm }

// SampleFrom draws a topic id from a uniform draw u in [0, Norm()).
func (f *FlatDist) SampleFrom(u float64, rng *rand.Rand) int32 {
	if !f.useDense {
		return f.sparse.SampleFrom(u, rng)
	}
	i := sort.Search(len(f.dense), func(i int) bool { return f.dense[i] > u })
	if i >= len(f.dense) {
		i = len(f.dense) - 1
	}
	return int32(i)
}
