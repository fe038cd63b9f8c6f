package dist

import (
	"math/rand"
	"sort"
)

// CumulativeDist is a plain prefix-sum array over a sparse support:
// O(support) build, O(log support) sample via binary search. It's used
// for the per-(term,doc) "dwb" component, which is rebuilt for nearly
// every token.
type CumulativeDist struct {
	space []int32
	cum   []float64
	norm  float64
}

// NewCumulativeDist allocates a distribution with capacity for k entries.
func NewCumulativeDist(k int) *CumulativeDist {
	c := &CumulativeDist{}
	c.Reset(k)
	return c
}

// Reset grows the backing arrays to capacity k.
func (c *CumulativeDist) Reset(k int) {
	c.cum = make([]float64, 0, k)
	c.space = make([]int32, 0, k)
	c.norm = 0
}

// ResetDist rebuilds the cumulative sum over probs[:size], recording
// space[i] (or i, if space is nil) as the topic id for entry i.
func (c *CumulativeDist) ResetDist(probs []float64, space []int32, size int) {
	if cap(c.cum) < size {
		c.cum = make([]float64, size)
		c.space = make([]int32, size)
	}
	c.cum = c.cum[:size]
	c.space = c.space[:size]

	var running float64
	for i := 0; i < size; i++ {
		running += probs[i]
		c.cum[i] = running
		if space != nil {
			c.space[i] = space[i]
		} else {
			c.space[i] = int32(i)
		}
	}
	c.norm = running
}

// Norm returns the pre-normalization mass of the built distribution.
func (c *CumulativeDist) Norm() float64 { return c.norm }

func (c *CumulativeDist) search(u float64) int {
	return sort.Search(len(c.cum), func(i int) bool { return c.cum[i] > u })
}

// SampleFrom draws a topic id from a uniform draw u in [0, Norm()) via
// binary search over the cumulative sum.
func (c *CumulativeDist) SampleFrom(u float64, rng *rand.Rand) int32 {
	if len(c.cum) == 0 {
		panic("dist: CumulativeDist.SampleFrom called on an empty distribution")
	}
	i := c.search(u)
	if i >= len(c.space) {
		i = len(c.space) - 1
	}
	return c.space[i]
}

// ResampleFrom applies the -1 correction without rebuilding the
// cumulative sum.
func (c *CumulativeDist) ResampleFrom(u float64, rng *rand.Rand, excluded int32, correction float64) int32 {
	return rejectLoop(u, rng, c.norm, excluded, correction, func(u float64) int32 {
		i := c.search(u)
		if i >= len(c.space) {
			i = len(c.space) - 1
		}
		return c.space[i]
	})
}
