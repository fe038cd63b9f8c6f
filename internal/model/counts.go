package model

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// representation tags which internal layout a TC currently uses.
type representation uint8

const (
	repSparse representation = iota
	repDense
)

// TC is a length-K topic-count vector. It starts sparse (sorted
// (index, value) pairs) and promotes itself to a dense array in place
// once its active (nonzero) support reaches K/8. Term vertices promote;
// doc vertices never do.
type TC struct {
	k    int
	kind VertexKind

	rep representation

	// dense is populated only when rep == repDense.
	dense []uint32

	// sparse is populated only when rep == repSparse, kept sorted by
	// index with no zero-valued entries.
	sparseIdx []int32
	sparseVal []uint32
	active    *bitset.BitSet
}

// NewTC creates an empty sparse TC of width k for the given vertex kind.
func NewTC(k int, kind VertexKind) *TC {
	return &TC{
		k:      k,
		kind:   kind,
		rep:    repSparse,
		active: bitset.New(uint(k)),
	}
}

// NewDenseTC creates an empty dense TC of width k.
func NewDenseTC(k int, kind VertexKind) *TC {
	return &TC{
		k:     k,
		kind:  kind,
		rep:   repDense,
		dense: make([]uint32, k),
	}
}

// K returns the vector's width.
func (t *TC) K() int { return t.k }

// Kind returns the vertex kind this TC backs.
func (t *TC) Kind() VertexKind { return t.kind }

// IsDense reports whether t currently uses the dense representation.
func (t *TC) IsDense() bool { return t.rep == repDense }

// ActiveSize returns the number of nonzero entries.
func (t *TC) ActiveSize() int {
	if t.rep == repDense {
		n := 0
		for _, v := range t.dense {
			if v != 0 {
				n++
			}
		}
		return n
	}
	return int(t.active.Count())
}

// promotionThreshold is the K/8 sparse->dense cutover.
func (t *TC) promotionThreshold() int {
	return t.k / 8
}

// Get returns the count for topic.
func (t *TC) Get(topic int) uint32 {
	if t.rep == repDense {
		return t.dense[topic]
	}
	i := t.sparseSearch(int32(topic))
	if i < len(t.sparseIdx) && int(t.sparseIdx[i]) == topic {
		return t.sparseVal[i]
	}
	return 0
}

// sparseSearch returns the insertion point for idx in the sorted sparse
// index slice (the index of the first entry >= idx).
func (t *TC) sparseSearch(idx int32) int {
	return sort.Search(len(t.sparseIdx), func(i int) bool {
		return t.sparseIdx[i] >= idx
	})
}

// Add adds delta (may be negative, but the result must stay
// non-negative — a negative result indicates a corrupted counter and
// panics) to topic's count.
func (t *TC) Add(topic int, delta int64) {
	if t.rep == repDense {
		t.addDense(topic, delta)
		return
	}
	t.addSparse(topic, delta)
	t.maybePromote()
}

func (t *TC) addDense(topic int, delta int64) {
	v := int64(t.dense[topic]) + delta
	if v < 0 {
		panic("model: TC count went negative")
	}
	t.dense[topic] = uint32(v)
}

func (t *TC) addSparse(topic int, delta int64) {
	i := t.sparseSearch(int32(topic))
	if i < len(t.sparseIdx) && int(t.sparseIdx[i]) == topic {
		v := int64(t.sparseVal[i]) + delta
		if v < 0 {
			panic("model: TC count went negative")
		}
		if v == 0 {
			t.sparseIdx = append(t.sparseIdx[:i], t.sparseIdx[i+1:]...)
			t.sparseVal = append(t.sparseVal[:i], t.sparseVal[i+1:]...)
			t.active.Clear(uint(topic))
			return
		}
		t.sparseVal[i] = uint32(v)
		return
	}
	if delta < 0 {
		panic("model: TC count went negative")
	}
	if delta == 0 {
		return
	}
	t.sparseIdx = append(t.sparseIdx, 0)
	t.sparseVal = append(t.sparseVal, 0)
	copy(t.sparseIdx[i+1:], t.sparseIdx[i:])
	copy(t.sparseVal[i+1:], t.sparseVal[i:])
	t.sparseIdx[i] = int32(topic)
	t.sparseVal[i] = uint32(delta)
	t.active.Set(uint(topic))
}

// maybePromote converts t to the dense representation in place once its
// active support crosses K/8. Doc vertices never promote.
func (t *TC) maybePromote() {
	if t.kind == Doc || t.rep == repDense {
		return
	}
	if int(t.active.Count()) < t.promotionThreshold() {
		return
	}
	t.Promote()
}

// Promote forces the dense representation, preserving every value:
// dense[k] == sparse[k] for all k.
func (t *TC) Promote() {
	if t.rep == repDense {
		return
	}
	dense := make([]uint32, t.k)
	for i, idx := range t.sparseIdx {
		dense[idx] = t.sparseVal[i]
	}
	t.rep = repDense
	t.dense = dense
	t.sparseIdx = nil
	t.sparseVal = nil
	t.active = nil
}

// Dense returns a copy of the full-length count vector regardless of
// internal representation.
func (t *TC) Dense() []uint32 {
	out := make([]uint32, t.k)
	if t.rep == repDense {
		copy(out, t.dense)
		return out
	}
	for i, idx := range t.sparseIdx {
		out[idx] = t.sparseVal[i]
	}
	return out
}

// SparsePairs returns the active (index, value) pairs in ascending
// index order, regardless of internal representation.
func (t *TC) SparsePairs() ([]int32, []uint32) {
	if t.rep == repSparse {
		idx := make([]int32, len(t.sparseIdx))
		val := make([]uint32, len(t.sparseVal))
		copy(idx, t.sparseIdx)
		copy(val, t.sparseVal)
		return idx, val
	}
	var idx []int32
	var val []uint32
	for i, v := range t.dense {
		if v != 0 {
			idx = append(idx, int32(i))
			val = append(val, v)
		}
	}
	return idx, val
}

// Clone deep-copies t.
func (t *TC) Clone() *TC {
	c := &TC{k: t.k, kind: t.kind, rep: t.rep}
	if t.rep == repDense {
		c.dense = append([]uint32(nil), t.dense...)
		return c
	}
	c.sparseIdx = append([]int32(nil), t.sparseIdx...)
	c.sparseVal = append([]uint32(nil), t.sparseVal...)
	c.active = t.active.Clone()
	return c
}

// Merge adds other's counts into t in place and returns t: dense+dense
// adds in place; dense+sparse adds sparse into dense; sparse+sparse adds
// and promotes unconditionally once the K/8 threshold is crossed (the
// promotion check runs on every branch, not just the ones that happen to
// already be dense). Merge is commutative and associative, as required
// for the counter-update monoid.
func (t *TC) Merge(other *TC) *TC {
	if other == nil {
		return t
	}
	if t.rep == repDense {
		idx, val := other.SparsePairsOrDense()
		for i, ix := range idx {
			t.addDense(int(ix), int64(val[i]))
		}
		return t
	}
	// t is sparse.
	if other.rep == repDense {
		// Promote t to receive the dense operand in place, then add.
		t.Promote()
		for i, v := range other.dense {
			if v != 0 {
				t.addDense(i, int64(v))
			}
		}
		return t
	}
	// sparse + sparse.
	for i, ix := range other.sparseIdx {
		t.addSparse(int(ix), int64(other.sparseVal[i]))
	}
	t.maybePromote()
	return t
}

// SparsePairsOrDense returns either the sparse pairs (if t is sparse) or
// the full dense vector re-expressed as (index, value) pairs over its
// nonzero entries, whichever avoids converting representations.
func (t *TC) SparsePairsOrDense() ([]int32, []uint32) {
	return t.SparsePairs()
}
