package counter

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
)

func TestShipAccumulatesBothEndpoints(t *testing.T) {
	const k = 4
	termId := model.NewTermId(0)
	docId := model.NewDocId(0)
	edges := []*graph.EdgeRecord{
		{SrcId: termId, DstId: docId, Occurrences: []int32{0, 1, 1, 2}},
	}
	p := graph.NewMemEdgePartition(0, edges)

	partials := Ship(p, k)
	require.Len(t, partials, 2)

	byId := make(map[uint64]*model.TC)
	for _, part := range partials {
		byId[part.VertexId] = part.TC
	}
	term, ok := byId[termId]
	require.True(t, ok)
	assert.Equal(t, uint32(1), term.Get(0))
	assert.Equal(t, uint32(2), term.Get(1))
	assert.Equal(t, uint32(1), term.Get(2))

	doc, ok := byId[docId]
	require.True(t, ok)
	assert.Equal(t, uint32(1), doc.Get(0))
	assert.Equal(t, uint32(2), doc.Get(1))
	assert.Equal(t, uint32(1), doc.Get(2))
}

func TestShipSkipsUnassignedSentinel(t *testing.T) {
	const k = 4
	termId := model.NewTermId(0)
	docId := model.NewDocId(0)
	edges := []*graph.EdgeRecord{
		{SrcId: termId, DstId: docId, Occurrences: []int32{-1, -1, 3}},
	}
	p := graph.NewMemEdgePartition(0, edges)

	partials := Ship(p, k)
	for _, part := range partials {
		assert.Equal(t, uint32(1), part.TC.Get(3))
		assert.Equal(t, 1, part.TC.ActiveSize())
	}
}

func TestAggregatorMergeIsOrderIndependent(t *testing.T) {
	const k = 8
	vid := model.NewTermId(1)

	build := func(order []int) *Aggregator {
		parts := []int64{3, 5, 1, 9, 2}
		a := NewAggregator()
		for _, i := range order {
			tc := model.NewTC(k, model.Term)
			tc.Add(0, parts[i])
			tc.Add(1, parts[i]*2)
			a.MergePartial(Partial{VertexId: vid, TC: tc})
		}
		return a
	}

	orders := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
	}
	var want *model.TC
	for _, order := range orders {
		a := build(order)
		v, ok := a.data.Load(vid)
		require.True(t, ok)
		got := v.(*model.TC)
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want.Get(0), got.Get(0))
		assert.Equal(t, want.Get(1), got.Get(1))
	}
}

func TestAggregatorMergeConcurrentReferenceSum(t *testing.T) {
	const k = 16
	const numPartials = 2000
	vid := model.NewDocId(42)

	rng := rand.New(rand.NewSource(1))
	var want int64
	a := NewAggregator()

	var wg sync.WaitGroup
	for i := 0; i < numPartials; i++ {
		delta := int64(rng.Intn(5) + 1)
		want += delta
		wg.Add(1)
		go func(d int64) {
			defer wg.Done()
			tc := model.NewTC(k, model.Doc)
			tc.Add(3, d)
			a.MergePartial(Partial{VertexId: vid, TC: tc})
		}(delta)
	}
	wg.Wait()

	v, ok := a.data.Load(vid)
	require.True(t, ok)
	assert.Equal(t, uint32(want), v.(*model.TC).Get(3))
}

func TestAggregatorDocVertexNeverPromotes(t *testing.T) {
	const k = 16 // promotion threshold k/8 == 2
	vid := model.NewDocId(1)
	a := NewAggregator()
	for topic := 0; topic < 4; topic++ {
		tc := model.NewTC(k, model.Doc)
		tc.Add(topic, 1)
		a.MergePartial(Partial{VertexId: vid, TC: tc})
	}
	v, _ := a.data.Load(vid)
	assert.False(t, v.(*model.TC).IsDense(), "doc vertices must never promote to dense")
}

func TestCommitInstallsEveryVertexAndInvalidatesCaches(t *testing.T) {
	const k = 4
	store := graph.NewMemVertexStore()
	a := NewAggregator()

	termId := model.NewTermId(0)
	docId := model.NewDocId(0)
	termTC := model.NewTC(k, model.Term)
	termTC.Add(1, 2)
	docTC := model.NewTC(k, model.Doc)
	docTC.Add(2, 1)
	a.MergePartial(Partial{VertexId: termId, TC: termTC})
	a.MergePartial(Partial{VertexId: docId, TC: docTC})

	edges := []*graph.EdgeRecord{{SrcId: termId, DstId: docId, Occurrences: []int32{1}}}
	p := graph.NewMemEdgePartition(0, edges)
	p.SetVertexAttr(termId, termTC) // populate the cache so we can observe invalidation

	n := Commit(a, store, []graph.EdgePartition{p})
	assert.Equal(t, 2, n)
	assert.Nil(t, p.VertexAttr(termId), "commit must invalidate the edge partition's vertex-attribute cache")

	got, ok := store.Get(termId)
	require.True(t, ok)
	assert.Equal(t, uint32(2), got.Get(1))

	got, ok = store.Get(docId)
	require.True(t, ok)
	assert.Equal(t, uint32(1), got.Get(2))
}
