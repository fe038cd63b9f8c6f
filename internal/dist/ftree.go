package dist

import "math/rand"

// FTree is a complete binary tree of prefix sums ("F+ tree"): O(log K)
// point update, O(log K) sample. It's used for distributions that see
// frequent per-sample mutation where rebuilding an alias table from
// scratch would waste the O(K) build cost.
type FTree struct {
	leaves int       // number of leaf slots (next power of two >= k)
	k      int       // logical size (<= leaves)
	tree   []float64 // 1-indexed heap array, tree[1] is the root sum
	space  []int32   // nil => identity mapping from leaf index to topic
}

// NewFTree allocates a tree with capacity for k bins.
func NewFTree(k int) *FTree {
	f := &FTree{}
	f.Reset(k)
	return f
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	if p == 0 {
		p = 1
	}
	return p
}

// Reset grows the tree's backing array to capacity k and zeroes it.
func (f *FTree) Reset(k int) {
	f.k = k
	f.leaves = nextPow2(k)
	if f.leaves == 0 {
		f.leaves = 1
	}
	f.tree = make([]float64, 2*f.leaves)
	f.space = nil
}

// ResetDist rebuilds the tree from scratch over probs[:size].
func (f *FTree) ResetDist(probs []float64, space []int32, size int) {
	if nextPow2(size) > f.leaves {
		f.leaves = nextPow2(size)
		f.tree = make([]float64, 2*f.leaves)
	} else {
		for i := range f.tree {
			f.tree[i] = 0
		}
	}
	f.k = size
	f.space = space
	for i := 0; i < size; i++ {
		f.tree[f.leaves+i] = probs[i]
	}
	for i := f.leaves - 1; i >= 1; i-- {
		f.tree[i] = f.tree[2*i] + f.tree[2*i+1]
	}
}

// Update sets the weight of leaf index to v, restoring the prefix-sum
// invariant up to the root in O(log K).
func (f *FTree) Update(index int, v float64) {
	i := f.leaves + index
	f.tree[i] = v
	for i > 1 {
		i /= 2
		f.tree[i] = f.tree[2*i] + f.tree[2*i+1]
	}
}

// Add adjusts the weight of leaf index by delta in O(log K).
func (f *FTree) Add(index int, delta float64) {
	f.Update(index, f.tree[f.leaves+index]+delta)
}

// Get returns the current weight of leaf index.
func (f *FTree) Get(index int) float64 {
	return f.tree[f.leaves+index]
}

// Norm returns the total mass at the root.
func (f *FTree) Norm() float64 { return f.tree[1] }

func (f *FTree) outcome(leaf int32) int32 {
	if f.space == nil {
		return leaf
	}
	return f.space[leaf]
}

// SampleFrom walks from the root choosing the child whose subtree
// contains u, in O(log K).
func (f *FTree) SampleFrom(u float64, rng *rand.Rand) int32 {
	if f.tree[1] <= 0 {
		panic("dist: FTree.SampleFrom called on an empty distribution")
	}
	i := 1
	for i < f.leaves {
		left := 2 * i
		if u < f.tree[left] {
			i = left
		} else {
			u -= f.tree[left]
			i = left + 1
		}
	}
	return f.outcome(int32(i - f.leaves))
}

// ResampleFrom applies the -1 correction without mutating the tree. The
// rejection trick is structure-agnostic: it only needs a draw
// closure, so it applies to the tree exactly as it does to the alias
// table and the cumulative distribution.
func (f *FTree) ResampleFrom(u float64, rng *rand.Rand, excluded int32, correction float64) int32 {
	return rejectLoop(u, rng, f.tree[1], excluded, correction, func(u float64) int32 {
		return f.SampleFrom(u, rng)
	})
}
