// Package model defines the LDA data model: term/doc identifiers, topic
// ids, and the dense/sparse topic-count vector (TC) that backs both term
// and document vertex attributes.
package model

import "github.com/bits-and-blooms/bitset"

// Topic is a topic identifier in [0, K).
type Topic int32

// VertexKind distinguishes the two halves of the bipartite token graph.
type VertexKind uint8

const (
	// Term marks a vertex as a term (word) vertex.
	Term VertexKind = iota
	// Doc marks a vertex as a document vertex.
	Doc
)

func (k VertexKind) String() string {
	if k == Doc {
		return "doc"
	}
	return "term"
}

// termBit is the high bit used to distinguish the two global id ranges.
// Term ids have it set; doc ids do not.
const termBit uint64 = 1 << 63

// NewTermId packs a local term index into the global term id space.
func NewTermId(local uint64) uint64 {
	return local | termBit
}

// NewDocId packs a local doc index into the global doc id space.
func NewDocId(local uint64) uint64 {
	return local &^ termBit
}

// IsTermId reports whether id falls in the term id range.
func IsTermId(id uint64) bool {
	return id&termBit != 0
}

// LocalIndex strips the kind bit, returning the index within its space.
func LocalIndex(id uint64) uint64 {
	return id &^ termBit
}

// VirtualTerms tracks which local term ids in a partition are virtual
// (participate in the graph but are skipped by ZenSemiLDA's word-by-word
// kernel). Backed by a bitset so membership tests are O(1) regardless of
// vocabulary size.
type VirtualTerms struct {
	bits *bitset.BitSet
}

// NewVirtualTerms creates a tracker sized for n local term ids.
func NewVirtualTerms(n uint) *VirtualTerms {
	return &VirtualTerms{bits: bitset.New(n)}
}

// Mark flags localId as virtual.
func (v *VirtualTerms) Mark(localId uint) {
	v.bits.Set(localId)
}

// IsVirtual reports whether localId was marked virtual.
func (v *VirtualTerms) IsVirtual(localId uint) bool {
	if v == nil || v.bits == nil {
		return false
	}
	return v.bits.Test(localId)
}

// IsVirtualTermId is the §3 predicate applied directly to a global id:
// it is virtual only if it is a term id and the partition's tracker
// marks its local index.
func IsVirtualTermId(id uint64, v *VirtualTerms) bool {
	if !IsTermId(id) {
		return false
	}
	return v.IsVirtual(uint(LocalIndex(id)))
}
