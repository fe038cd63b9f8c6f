package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zenlda/zenlda/internal/model"
)

func sampleEdges() []*EdgeRecord {
	return []*EdgeRecord{
		{SrcId: 2, DstId: 100, Occurrences: []int32{0}},
		{SrcId: 1, DstId: 100, Occurrences: []int32{1, 1}},
		{SrcId: 1, DstId: 101, Occurrences: []int32{2}},
		{SrcId: 3, DstId: 100, Occurrences: []int32{0}},
	}
}

func TestMemEdgePartitionGroupsBySource(t *testing.T) {
	p := NewMemEdgePartition(0, sampleEdges())
	groups := p.Groups()
	require.Len(t, groups, 3)

	assert.Equal(t, uint64(1), groups[0].SrcId)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, uint64(2), groups[1].SrcId)
	assert.Equal(t, uint64(3), groups[2].SrcId)

	for _, g := range groups {
		for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
			assert.Equal(t, g.SrcId, p.Edge(off).SrcId)
		}
	}
}

func TestMemEdgePartitionVertexAttrCache(t *testing.T) {
	p := NewMemEdgePartition(0, sampleEdges())
	assert.Nil(t, p.VertexAttr(1))

	tc := model.NewTC(4, model.Term)
	tc.Add(0, 3)
	p.SetVertexAttr(1, tc)
	assert.Equal(t, tc, p.VertexAttr(1))

	p.InvalidateVertexAttrs()
	assert.Nil(t, p.VertexAttr(1))
}

func TestMemEdgePartitionDocEdges(t *testing.T) {
	p := NewMemEdgePartition(0, sampleEdges())
	docEdges := p.DocEdges(101)
	require.Len(t, docEdges, 1)
	assert.Equal(t, uint64(1), docEdges[0].SrcId)
}

func TestMemVertexStoreCRUD(t *testing.T) {
	s := NewMemVertexStore()
	_, ok := s.Get(1)
	assert.False(t, ok)

	tc := model.NewTC(4, model.Doc)
	s.Set(1, tc)
	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, tc, got)

	assert.Equal(t, 1, s.Count())
	s.Delete(1)
	assert.Equal(t, 0, s.Count())
}

func TestMemVertexStoreRangeStopsEarly(t *testing.T) {
	s := NewMemVertexStore()
	for i := uint64(0); i < 5; i++ {
		s.Set(i, model.NewTC(4, model.Term))
	}
	seen := 0
	s.Range(func(id uint64, tc *model.TC) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)
}

func TestHashRouterFallbackAndOverride(t *testing.T) {
	r := NewHashRouter(4)
	assert.Equal(t, int(10%4), r.PartitionOf(10))

	r.SetPartitionOf(10, 3)
	assert.Equal(t, 3, r.PartitionOf(10))
	assert.Equal(t, 4, r.NumPartitions())
}

func TestMapPartitionsAndPartitionBy(t *testing.T) {
	parts := []EdgePartition{
		NewMemEdgePartition(0, sampleEdges()[:2]),
		NewMemEdgePartition(1, sampleEdges()[2:]),
	}
	counts := MapPartitions(parts, func(p EdgePartition) int { return len(p.Groups()) })
	assert.Equal(t, []int{2, 2}, counts)

	items := []int{1, 2, 3, 4, 5, 6}
	buckets := PartitionBy(items, 3, func(i int) int { return i % 3 })
	assert.ElementsMatch(t, []int{3, 6}, buckets[0])
	assert.ElementsMatch(t, []int{1, 4}, buckets[1])
	assert.ElementsMatch(t, []int{2, 5}, buckets[2])
}
