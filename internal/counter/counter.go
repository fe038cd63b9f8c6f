// Package counter implements vertex-counter aggregation: the shipment
// phase that turns an edge partition's occurrence arrays into per-vertex
// partial topic counts, and the merge phase that combines partials from
// every edge partition into the authoritative vertex store under a
// per-vertex atomic-mark protocol.
package counter

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
)

// Partial is a (vid, partial_tc) pair emitted by the shipment phase,
// routed to its owning vertex partition by the external routing table.
type Partial struct {
	VertexId uint64
	TC       *model.TC
}

// Ship walks every edge of p, accumulating a per-vertex partial topic
// count for both endpoints of each edge from the occurrence array's
// current topic assignments. Occurrence entries still
// carrying the unassigned sentinel (-1) are skipped; the driver's
// initializer must have filled every occurrence before the first
// shipment runs.
func Ship(p graph.EdgePartition, k int) []Partial {
	acc := make(map[uint64]*model.TC)
	get := func(id uint64, kind model.VertexKind) *model.TC {
		tc, ok := acc[id]
		if !ok {
			tc = model.NewTC(k, kind)
			acc[id] = tc
		}
		return tc
	}

	for _, g := range p.Groups() {
		for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
			e := p.Edge(off)
			termTC := get(e.SrcId, model.Term)
			docTC := get(e.DstId, model.Doc)
			for _, topic := range e.Occurrences {
				if topic < 0 {
					continue
				}
				termTC.Add(int(topic), 1)
				docTC.Add(int(topic), 1)
			}
		}
	}

	partials := make([]Partial, 0, len(acc))
	for id, tc := range acc {
		partials = append(partials, Partial{VertexId: id, TC: tc})
	}
	return partials
}

const (
	markEmpty   int32 = 0
	markOpen    int32 = math.MaxInt32
	markWriting int32 = -1
)

// acquire implements the per-slot atomic-mark protocol as a CAS loop
// rather than a literal getAndDecrement/getAndSet pair: the
// two are functionally equivalent mutual-exclusion disciplines over the
// same three-state sentinel (empty/open/writing), and CAS composes more
// safely with Go's atomic package than replaying decrement arithmetic on
// a value that means "open" rather than a count.
func acquire(mark *atomic.Int32) (firstWriter bool) {
	if mark.CompareAndSwap(markEmpty, markWriting) {
		return true
	}
	for !mark.CompareAndSwap(markOpen, markWriting) {
		runtime.Gosched()
	}
	return false
}

func release(mark *atomic.Int32) {
	mark.Store(markOpen)
}

// Aggregator is the merge phase's per-vertex-partition state: one atomic
// mark and one running aggregate per vertex id seen so far. Safe for
// concurrent MergePartial calls from a fixed worker pool.
type Aggregator struct {
	marks sync.Map // uint64 -> *atomic.Int32
	data  sync.Map // uint64 -> *model.TC
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) markFor(id uint64) *atomic.Int32 {
	v, _ := a.marks.LoadOrStore(id, new(atomic.Int32))
	return v.(*atomic.Int32)
}

// MergePartial merges one shipped partial into the aggregate for its
// vertex id (TC.Merge implements the dense/sparse promotion rules). The
// first writer for a vertex installs
// its partial directly (cloned, so the caller's copy stays independent);
// every later writer merges into the existing aggregate under the
// exclusive mark.
func (a *Aggregator) MergePartial(p Partial) {
	mark := a.markFor(p.VertexId)
	first := acquire(mark)
	if first {
		a.data.Store(p.VertexId, p.TC.Clone())
	} else {
		existing, _ := a.data.Load(p.VertexId)
		existing.(*model.TC).Merge(p.TC)
	}
	release(mark)
}

// Commit installs every merged aggregate into store and invalidates the
// edge partitions' vertex-attribute caches. It returns the number of
// vertices committed.
func Commit(a *Aggregator, store graph.VertexStore, partitions []graph.EdgePartition) int {
	n := 0
	a.data.Range(func(k, v any) bool {
		store.Set(k.(uint64), v.(*model.TC))
		n++
		return true
	})
	for _, p := range partitions {
		p.InvalidateVertexAttrs()
	}
	return n
}
