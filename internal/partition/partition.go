// Package partition implements the VMBLP vertex-cut partitioner and the
// DBH hash-based strategy it falls back to for the initial assignment
// and for repartitioning edges after a round of moves.
package partition

import (
	"encoding/binary"
	"math/rand"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/xmath"
)

// DBHPartition hashes globalId into [0, numPartitions) via blake2b.
func DBHPartition(globalId uint64, numPartitions int) int {
	if numPartitions <= 1 {
		return 0
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], globalId)
	sum := blake2b.Sum256(buf[:])
	h := binary.LittleEndian.Uint64(sum[:8])
	return int(h % uint64(numPartitions))
}

// DBHRouter is a graph.Router backed entirely by DBHPartition: the
// degree-based hashing strategy config.PartStrategy can select instead
// of VMBLP, and the strategy used to seed a router's initial assignment
// before any VMBLP rounds run. SetPartitionOf still
// records explicit overrides, so a DBHRouter can seed VMBLP and then be
// mutated by it in place.
type DBHRouter struct {
	mu        sync.RWMutex
	overrides map[uint64]int
	numPart   int
}

// NewDBHRouter creates a router over numPartitions partitions.
func NewDBHRouter(numPartitions int) *DBHRouter {
	return &DBHRouter{overrides: make(map[uint64]int), numPart: numPartitions}
}

func (r *DBHRouter) PartitionOf(globalId uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.overrides[globalId]; ok {
		return p
	}
	return DBHPartition(globalId, r.numPart)
}

func (r *DBHRouter) SetPartitionOf(globalId uint64, partition int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[globalId] = partition
}

func (r *DBHRouter) NumPartitions() int { return r.numPart }

// neighborHistograms computes, for every vertex touched by partitions,
// the count of its neighbors (both directions) currently assigned to
// each partition. A single-process stand-in for
// the distributed shuffle a real substrate would perform via
// mapPartitions + partitionBy.
func neighborHistograms(partitions []graph.EdgePartition, router graph.Router) map[uint64]map[int]int {
	hist := make(map[uint64]map[int]int)
	bump := func(vid uint64, part int) {
		h, ok := hist[vid]
		if !ok {
			h = make(map[int]int)
			hist[vid] = h
		}
		h[part]++
	}
	for _, p := range partitions {
		for _, g := range p.Groups() {
			for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
				e := p.Edge(off)
				bump(e.SrcId, router.PartitionOf(e.DstId))
				bump(e.DstId, router.PartitionOf(e.SrcId))
			}
		}
	}
	return hist
}

// sampleHistogram performs a weighted random sampling step: a
// multinomial draw over hist proportional to neighbor count per
// partition. Partitions are visited in ascending id order so the draw is
// deterministic given rng's stream.
func sampleHistogram(hist map[int]int, rng *rand.Rand) int {
	parts := make([]int, 0, len(hist))
	for p := range hist {
		parts = append(parts, p)
	}
	sort.Ints(parts)

	counts := make([]int, len(parts))
	for i, p := range parts {
		counts[i] = hist[p]
	}
	total := xmath.Sum(counts)
	if total == 0 {
		return parts[0]
	}
	u := rng.Intn(total)
	acc := 0
	for _, p := range parts {
		acc += hist[p]
		if u < acc {
			return p
		}
	}
	return parts[len(parts)-1]
}

// proposals maps a vertex id to the partition it would like to move to.
// A proposal equal to the vertex's current partition means "stay" and
// never enters the move-demand matrix.
type proposals map[uint64]int

func proposeMoves(hist map[uint64]map[int]int, router graph.Router, rng *rand.Rand) proposals {
	out := make(proposals, len(hist))
	ids := make([]uint64, 0, len(hist))
	for id := range hist {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		out[id] = sampleHistogram(hist[id], rng)
	}
	return out
}

// moveDemandMatrix builds the P×P move-demand matrix: M[i][j] counts
// vertices currently in partition i proposing a move to partition j,
// i != j.
func moveDemandMatrix(props proposals, router graph.Router, numPartitions int) [][]int {
	m := make([][]int, numPartitions)
	for i := range m {
		m[i] = make([]int, numPartitions)
	}
	for vid, to := range props {
		from := router.PartitionOf(vid)
		if from != to {
			m[from][to]++
		}
	}
	return m
}

// acceptMoves applies the flow-balance acceptance rule: a vertex wishing
// to move i→j actually moves with probability
// min(M[i][j], M[j][i]) / M[i][j].
func acceptMoves(props proposals, router graph.Router, m [][]int, rng *rand.Rand) map[uint64]int {
	accepted := make(map[uint64]int)
	ids := make([]uint64, 0, len(props))
	for id := range props {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, vid := range ids {
		to := props[vid]
		from := router.PartitionOf(vid)
		if from == to {
			continue
		}
		forward := m[from][to]
		if forward == 0 {
			continue
		}
		backward := m[to][from]
		prob := float64(min(backward, forward)) / float64(forward)
		if rng.Float64() < prob {
			accepted[vid] = to
		}
	}
	return accepted
}

// RunVMBLP executes numIter+1 rounds over partitions, mutating router in
// place. seed and iter compose the same way the per-thread sampler RNGs
// do: deterministic given (seed, iter), rather than drawing from an
// unseeded global source.
func RunVMBLP(partitions []graph.EdgePartition, router graph.Router, numIter int, seed int64, iter int) {
	rng := rand.New(rand.NewSource(seed + int64(iter)))
	for round := 0; round <= numIter; round++ {
		hist := neighborHistograms(partitions, router)
		props := proposeMoves(hist, router, rng)
		m := moveDemandMatrix(props, router, router.NumPartitions())
		accepted := acceptMoves(props, router, m, rng)
		for vid, to := range accepted {
			router.SetPartitionOf(vid, to)
		}
	}
}

// RepartitionBySource rebuilds edge partitions so every edge lands in the
// partition now owning its source vertex. build is the
// caller-supplied constructor for the concrete EdgePartition
// implementation (e.g. graph.NewMemEdgePartition), kept generic so this
// package has no compile-time dependency on any one backing store.
func RepartitionBySource(partitions []graph.EdgePartition, router graph.Router, build func(id int, edges []*graph.EdgeRecord) graph.EdgePartition) []graph.EdgePartition {
	numPartitions := router.NumPartitions()
	buckets := make([][]*graph.EdgeRecord, numPartitions)
	for _, p := range partitions {
		for _, g := range p.Groups() {
			for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
				e := p.Edge(off)
				target := router.PartitionOf(e.SrcId)
				buckets[target] = append(buckets[target], e)
			}
		}
	}
	out := make([]graph.EdgePartition, numPartitions)
	for i, edges := range buckets {
		out[i] = build(i, edges)
	}
	return out
}
