// Package graph stands in for a distributed execution substrate and its
// underlying graph container: a partitioned edge store, a vertex store
// with a routing table, and the mapPartitions/partitionBy shuffle
// primitives the sampler and counter-update phases are built against.
//
// The distributed, host-to-host half of that substrate is genuinely out
// of scope; what lives here is the in-process half — the interfaces a
// real distributed backend would also have to satisfy, plus one concrete
// in-memory implementation so the rest of the module is runnable as a
// single process with many goroutines, scheduling at two concentric
// levels: across partitions, and within a partition.
package graph

import "github.com/zenlda/zenlda/internal/model"

// EdgeRecord is one bipartite edge: a term vertex's occurrences within a
// single document, carrying an occurrence array of topic assignments.
type EdgeRecord struct {
	SrcId       uint64 // term global id
	DstId       uint64 // doc global id
	Occurrences []int32
}

// SourceGroup is a run of consecutive edges sharing a source id, the
// unit one sampling task is assigned to: one task per source-group.
type SourceGroup struct {
	SrcId       uint64
	FirstOffset int
	Count       int
}

// EdgePartition is a partitioned edge store exposing an iterator over
// (source_group_key, first_offset) with backing arrays localSrcIds,
// localDstIds, local2global, vertexAttrs, and data.
type EdgePartition interface {
	// Groups returns the source-group boundaries in source-id order.
	Groups() []SourceGroup
	// Edge returns the edge at offset within the partition's edge array.
	Edge(offset int) *EdgeRecord
	// VertexAttr returns the cached TC attribute for a global vertex id,
	// or nil if the cache has been invalidated.
	VertexAttr(globalId uint64) *model.TC
	// SetVertexAttr populates the vertex-attribute cache for globalId.
	SetVertexAttr(globalId uint64, tc *model.TC)
	// InvalidateVertexAttrs clears the cache, as required after a
	// sampling pass commits new occurrence arrays.
	InvalidateVertexAttrs()
	// PartitionID reports which partition this edge set belongs to.
	PartitionID() int
}

// VertexStore is a vertex store with a routing table mapping vertex ids
// to partitions.
type VertexStore interface {
	Get(globalId uint64) (*model.TC, bool)
	Set(globalId uint64, tc *model.TC)
	Delete(globalId uint64)
	// Range calls fn for every stored vertex; fn returning false stops
	// the iteration early.
	Range(fn func(globalId uint64, tc *model.TC) bool)
	Count() int
}

// Router is the routing-table half of the substrate: which partition owns
// a given vertex id. VMBLP mutates this mapping in place between
// iterations.
type Router interface {
	PartitionOf(globalId uint64) int
	SetPartitionOf(globalId uint64, partition int)
	NumPartitions() int
}

// MapPartitions applies fn to every partition independently
// and returns the results in partition order. A real distributed substrate
// would run these on separate hosts with no shared memory; the in-process
// stand-in runs them sequentially. The sampling kernels also walk a
// partition's source groups one after another; there is no per-group
// task pool.
func MapPartitions[T any](partitions []EdgePartition, fn func(EdgePartition) T) []T {
	out := make([]T, len(partitions))
	for i, p := range partitions {
		out[i] = fn(p)
	}
	return out
}

// PartitionBy is the shuffle primitive that regroups records by a
// partitioner function. It returns numPartitions buckets.
func PartitionBy[T any](items []T, numPartitions int, partitionOf func(T) int) [][]T {
	buckets := make([][]T, numPartitions)
	for _, it := range items {
		p := partitionOf(it)
		buckets[p] = append(buckets[p], it)
	}
	return buckets
}
