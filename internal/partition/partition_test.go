package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zenlda/zenlda/internal/graph"
)

func TestDBHPartitionIsDeterministicAndInRange(t *testing.T) {
	for _, id := range []uint64{0, 1, 42, 1 << 40} {
		p1 := DBHPartition(id, 7)
		p2 := DBHPartition(id, 7)
		assert.Equal(t, p1, p2)
		assert.GreaterOrEqual(t, p1, 0)
		assert.Less(t, p1, 7)
	}
}

func TestDBHPartitionSinglePartitionAlwaysZero(t *testing.T) {
	assert.Equal(t, 0, DBHPartition(12345, 1))
}

func TestDBHRouterOverrideWinsOverHash(t *testing.T) {
	r := NewDBHRouter(4)
	hashed := r.PartitionOf(99)
	other := (hashed + 1) % 4
	r.SetPartitionOf(99, other)
	assert.Equal(t, other, r.PartitionOf(99))
}

func buildStarGraph(numDocs int) []graph.EdgePartition {
	termId := uint64(1) << 63 // matches model.NewTermId's high-bit convention closely enough for a router-only test
	var edges []*graph.EdgeRecord
	for d := 0; d < numDocs; d++ {
		edges = append(edges, &graph.EdgeRecord{
			SrcId:       termId,
			DstId:       uint64(d + 1),
			Occurrences: []int32{0},
		})
	}
	return []graph.EdgePartition{graph.NewMemEdgePartition(0, edges)}
}

func TestRunVMBLPKeepsEveryVertexAssignedToAValidPartition(t *testing.T) {
	const numPartitions = 3
	partitions := buildStarGraph(20)
	router := NewDBHRouter(numPartitions)

	RunVMBLP(partitions, router, 2, 1, 0)

	seen := make(map[uint64]bool)
	for _, p := range partitions {
		for _, g := range p.Groups() {
			for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
				e := p.Edge(off)
				seen[e.SrcId] = true
				seen[e.DstId] = true
			}
		}
	}
	for vid := range seen {
		got := router.PartitionOf(vid)
		assert.GreaterOrEqual(t, got, 0)
		assert.Less(t, got, numPartitions)
	}
}

func TestRunVMBLPIsDeterministicGivenFixedSeed(t *testing.T) {
	const numPartitions = 3
	run := func() map[uint64]int {
		partitions := buildStarGraph(15)
		router := NewDBHRouter(numPartitions)
		RunVMBLP(partitions, router, 3, 42, 0)
		out := make(map[uint64]int)
		for _, p := range partitions {
			for _, g := range p.Groups() {
				for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
					e := p.Edge(off)
					out[e.SrcId] = router.PartitionOf(e.SrcId)
					out[e.DstId] = router.PartitionOf(e.DstId)
				}
			}
		}
		return out
	}
	a := run()
	b := run()
	assert.Equal(t, a, b)
}

func TestRepartitionBySourceGroupsEveryEdgeByNewSourcePartition(t *testing.T) {
	termA, termB := uint64(1), uint64(2)
	edges := []*graph.EdgeRecord{
		{SrcId: termA, DstId: 100, Occurrences: []int32{0}},
		{SrcId: termB, DstId: 101, Occurrences: []int32{1}},
	}
	p := graph.NewMemEdgePartition(0, edges)
	router := NewDBHRouter(2)
	router.SetPartitionOf(termA, 0)
	router.SetPartitionOf(termB, 1)

	out := RepartitionBySource([]graph.EdgePartition{p}, router, func(id int, es []*graph.EdgeRecord) graph.EdgePartition {
		return graph.NewMemEdgePartition(id, es)
	})

	assert.Len(t, out, 2)
	assert.Equal(t, termA, out[0].Edge(0).SrcId)
	assert.Equal(t, termB, out[1].Edge(0).SrcId)
}
