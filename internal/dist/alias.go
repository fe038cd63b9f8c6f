package dist

import "math/rand"

// AliasTable implements Walker's alias method: O(k) build, O(1) sample.
// It supports both the full-dense case (space == nil, outcome i maps to
// topic i) and the sparse index-space case (space[i] gives the topic id
// for bin i).
type AliasTable struct {
	size  int
	space []int32 // nil => identity mapping
	prob  []float64
	alias []int32
	norm  float64
}

// NewAliasTable allocates a table with capacity for k bins.
func NewAliasTable(k int) *AliasTable {
	a := &AliasTable{}
	a.Reset(k)
	return a
}

// Reset grows the table's backing arrays to capacity k, discarding any
// previously built distribution.
func (a *AliasTable) Reset(k int) {
	a.prob = make([]float64, k)
	a.alias = make([]int32, k)
	a.size = 0
	a.space = nil
	a.norm = 0
}

// ResetDist builds the alias table over probs[:size]. If space is
// non-nil, outcome bin i corresponds to topic space[i]; otherwise bin i
// corresponds to topic i directly.
func (a *AliasTable) ResetDist(probs []float64, space []int32, size int) {
	if cap(a.prob) < size {
		a.prob = make([]float64, size)
		a.alias = make([]int32, size)
	}
	a.prob = a.prob[:size]
	a.alias = a.alias[:size]
	a.size = size
	a.space = space

	var total float64
	for i := 0; i < size; i++ {
		total += probs[i]
	}
	a.norm = total
	if size == 0 {
		return
	}
	if total <= 0 {
		panic("dist: AliasTable.ResetDist built from a non-positive-mass distribution")
	}

	scaled := make([]float64, size)
	small := make([]int32, 0, size)
	large := make([]int32, 0, size)
	for i := 0; i < size; i++ {
		scaled[i] = probs[i] * float64(size) / total
		if scaled[i] < 1 {
			small = append(small, int32(i))
		} else {
			large = append(large, int32(i))
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		a.prob[s] = scaled[s]
		a.alias[s] = l

		scaled[l] = scaled[l] + scaled[s] - 1
		if scaled[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	for _, l := range large {
		a.prob[l] = 1
	}
	for _, s := range small {
		a.prob[s] = 1
	}
}

// Norm returns the pre-normalization mass of the built distribution.
func (a *AliasTable) Norm() float64 { return a.norm }

// outcome maps an internal bin index to its topic id.
func (a *AliasTable) outcome(bin int32) int32 {
	if a.space == nil {
		return bin
	}
	return a.space[bin]
}

// sampleBin draws a bin index from u in [0, norm).
func (a *AliasTable) sampleBin(u float64) int32 {
	if a.size == 0 {
		panic("dist: AliasTable.SampleFrom called on an empty distribution")
	}
	frac := u / a.norm * float64(a.size)
	bin := int32(frac)
	if int(bin) >= a.size {
		bin = int32(a.size - 1)
	}
	coin := frac - float64(bin)
	if coin < a.prob[bin] {
		return bin
	}
	return a.alias[bin]
}

// SampleFrom draws a topic id from a uniform draw u in [0, Norm()).
func (a *AliasTable) SampleFrom(u float64, rng *rand.Rand) int32 {
	return a.outcome(a.sampleBin(u))
}

// ResampleFrom draws from the -1-adjusted distribution: rejection in the
// alias table implements the exact correction, so no separate "adjusted"
// build is needed for the common case of dropping the current token's
// own topic.
func (a *AliasTable) ResampleFrom(u float64, rng *rand.Rand, excluded int32, correction float64) int32 {
	return rejectLoop(u, rng, a.norm, excluded, correction, func(u float64) int32 {
		return a.outcome(a.sampleBin(u))
	})
}
