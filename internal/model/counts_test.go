package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCAddAndGet(t *testing.T) {
	tc := NewTC(16, Term)
	tc.Add(3, 5)
	tc.Add(3, -2)
	assert.Equal(t, uint32(3), tc.Get(3))
	assert.Equal(t, uint32(0), tc.Get(7))
}

func TestTCPromotionPreservesValues(t *testing.T) {
	const k = 64
	tc := NewTC(k, Term)
	want := make([]uint32, k)
	// Push active support past k/8 = 8.
	for i := 0; i < 12; i++ {
		tc.Add(i, int64(i+1))
		want[i] = uint32(i + 1)
	}
	require.True(t, tc.IsDense(), "expected promotion to dense after crossing K/8 active entries")
	assert.Equal(t, want, tc.Dense())
}

func TestTCDocNeverPromotes(t *testing.T) {
	const k = 16
	tc := NewTC(k, Doc)
	for i := 0; i < k; i++ {
		tc.Add(i, 1)
	}
	assert.False(t, tc.IsDense(), "doc vertices must never promote to dense")
}

func TestTCMergeCommutativeAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mk := func() *TC {
		tc := NewTC(32, Term)
		for i := 0; i < 5; i++ {
			tc.Add(rng.Intn(32), int64(rng.Intn(10)+1))
		}
		return tc
	}
	a, b, c := mk(), mk(), mk()

	ab := a.Clone().Merge(b.Clone())
	ba := b.Clone().Merge(a.Clone())
	assert.Equal(t, ab.Dense(), ba.Dense(), "merge must be commutative")

	abc1 := a.Clone().Merge(b.Clone()).Merge(c.Clone())
	bc := b.Clone().Merge(c.Clone())
	abc2 := a.Clone().Merge(bc)
	assert.Equal(t, abc1.Dense(), abc2.Dense(), "merge must be associative")
}

func TestTCMergeDenseSparse(t *testing.T) {
	dense := NewDenseTC(8, Term)
	dense.Add(1, 4)
	sparse := NewTC(8, Term)
	sparse.Add(1, 1)
	sparse.Add(2, 2)

	dense.Merge(sparse)
	assert.Equal(t, uint32(5), dense.Get(1))
	assert.Equal(t, uint32(2), dense.Get(2))
}

func TestIsTermId(t *testing.T) {
	term := NewTermId(42)
	doc := NewDocId(42)
	assert.True(t, IsTermId(term))
	assert.False(t, IsTermId(doc))
	assert.Equal(t, uint64(42), LocalIndex(term))
	assert.Equal(t, uint64(42), LocalIndex(doc))
}

func TestVirtualTerms(t *testing.T) {
	v := NewVirtualTerms(8)
	v.Mark(3)
	assert.True(t, v.IsVirtual(3))
	assert.False(t, v.IsVirtual(4))
	assert.True(t, IsVirtualTermId(NewTermId(3), v))
	assert.False(t, IsVirtualTermId(NewDocId(3), v))
}
