package graph

import (
	"sort"
	"sync"

	"github.com/zenlda/zenlda/internal/model"
)

// MemEdgePartition is the in-process EdgePartition: edges held as a flat
// slice sorted by source id, with a precomputed group table so Groups()
// iterates (group_key, first_offset) pairs where each group is a run of
// consecutive edges sharing a source.
type MemEdgePartition struct {
	id     int
	edges  []*EdgeRecord
	groups []SourceGroup

	mu    sync.RWMutex
	attrs map[uint64]*model.TC
}

// NewMemEdgePartition builds a partition from an unordered edge slice,
// sorting it by source id and computing group boundaries once.
func NewMemEdgePartition(id int, edges []*EdgeRecord) *MemEdgePartition {
	sorted := append([]*EdgeRecord(nil), edges...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SrcId < sorted[j].SrcId })

	p := &MemEdgePartition{id: id, edges: sorted, attrs: make(map[uint64]*model.TC)}
	p.rebuildGroups()
	return p
}

func (p *MemEdgePartition) rebuildGroups() {
	p.groups = p.groups[:0]
	i := 0
	for i < len(p.edges) {
		start := i
		src := p.edges[i].SrcId
		for i < len(p.edges) && p.edges[i].SrcId == src {
			i++
		}
		p.groups = append(p.groups, SourceGroup{SrcId: src, FirstOffset: start, Count: i - start})
	}
}

// Groups returns the source-group boundaries in source-id order.
func (p *MemEdgePartition) Groups() []SourceGroup { return p.groups }

// Edge returns the edge at offset within the partition's sorted edge array.
func (p *MemEdgePartition) Edge(offset int) *EdgeRecord { return p.edges[offset] }

// VertexAttr returns the cached TC for globalId, or nil on a cache miss.
func (p *MemEdgePartition) VertexAttr(globalId uint64) *model.TC {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.attrs[globalId]
}

// SetVertexAttr populates the vertex-attribute cache for globalId.
func (p *MemEdgePartition) SetVertexAttr(globalId uint64, tc *model.TC) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attrs[globalId] = tc
}

// InvalidateVertexAttrs clears the cache after a sampling pass commits
// new occurrence arrays.
func (p *MemEdgePartition) InvalidateVertexAttrs() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attrs = make(map[uint64]*model.TC)
}

// PartitionID reports this partition's index.
func (p *MemEdgePartition) PartitionID() int { return p.id }

// DocEdges returns the subset of edges touching globalDocId, used by the
// doc-by-doc (SparseLDA) kernel which groups by destination rather than
// source.
func (p *MemEdgePartition) DocEdges(globalDocId uint64) []*EdgeRecord {
	var out []*EdgeRecord
	for _, e := range p.edges {
		if e.DstId == globalDocId {
			out = append(out, e)
		}
	}
	return out
}
