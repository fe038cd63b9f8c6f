// Package sampler implements the per-partition sampling kernels: the
// word-by-word family (ZenLDA, ZenSemiLDA, LightLDA) and the doc-by-doc
// family (SparseLDA), plus the thread-local resource pool they share (a
// bounded queue checkout/checkin pattern).
package sampler

import (
	"math/rand"

	"github.com/zenlda/zenlda/internal/dist"
	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/posterior"
)

// AccelMethod selects which sampler primitive backs the per-term and
// per-doc distributions, the accelMethod CLI knob.
type AccelMethod string

const (
	Alias  AccelMethod = "alias"
	FTree  AccelMethod = "ftree"
	Hybrid AccelMethod = "hybrid" // alias for the per-term wa, F+ tree for the per-doc dwb
)

// SeedConfig carries the quantities combined into a per-thread RNG
// seed: ((seed+iter)*P+pid)*T+thid.
type SeedConfig struct {
	Seed           int64
	Iter           int
	PartitionId    int
	NumPartitions  int
	NumThreads     int
}

// ThreadSeed computes the deterministic per-thread seed for thid.
func (c SeedConfig) ThreadSeed(thid int) int64 {
	return ((c.Seed+int64(c.Iter))*int64(c.NumPartitions)+int64(c.PartitionId))*int64(c.NumThreads) + int64(thid)
}

// Slot is one thread-local checkout: an RNG plus the two resettable
// distributions a word-by-word kernel needs (wa and dwb). Owned
// exclusively by the goroutine that holds it.
type Slot struct {
	Rng  *rand.Rand
	Term dist.Resampler // backs wa
	Doc  dist.Resampler // backs dwb
}

// Pool is the bounded checkout/checkin queue, following the
// pusher/puller channel pattern used for concurrent worker coordination
// elsewhere in the domain stack.
type Pool struct {
	slots chan *Slot
}

// NewPool creates a pool of numThreads slots, each seeded deterministically
// from cfg and sized for k topics using the given acceleration method.
func NewPool(numThreads, k int, cfg SeedConfig, accel AccelMethod) *Pool {
	p := &Pool{slots: make(chan *Slot, numThreads)}
	for thid := 0; thid < numThreads; thid++ {
		rng := rand.New(rand.NewSource(cfg.ThreadSeed(thid)))
		p.slots <- &Slot{
			Rng:  rng,
			Term: newResampler(k, accel, true),
			Doc:  newResampler(k, accel, false),
		}
	}
	return p
}

func newResampler(k int, accel AccelMethod, isTerm bool) dist.Resampler {
	switch accel {
	case FTree:
		return dist.NewFTree(k)
	case Hybrid:
		if isTerm {
			return dist.NewAliasTable(k)
		}
		return dist.NewFTree(k)
	default: // Alias
		return dist.NewAliasTable(k)
	}
}

// Checkout blocks until a slot is available.
func (p *Pool) Checkout() *Slot { return <-p.slots }

// Checkin returns a slot to the pool.
func (p *Pool) Checkin(s *Slot) { p.slots <- s }

// flatSlot is the doc-by-doc kernel's thread-local checkout: a RNG plus
// two FlatDist dispatchers (db, wda). FlatDist is used here because
// every sub-distribution is rebuilt on essentially every token and an
// alias table's O(K) build would dominate.
type flatSlot struct {
	rng *rand.Rand
	db  *dist.FlatDist
	wda *dist.FlatDist
}

// FlatPool is the SparseLDA counterpart of Pool, handing out flatSlots
// instead of alias/ftree-backed Slots.
type FlatPool struct {
	slots chan *flatSlot
}

// NewFlatPool creates a pool of numThreads flatSlots seeded deterministically
// from cfg.
func NewFlatPool(numThreads, k int, cfg SeedConfig) *FlatPool {
	p := &FlatPool{slots: make(chan *flatSlot, numThreads)}
	for thid := 0; thid < numThreads; thid++ {
		p.slots <- &flatSlot{
			rng: rand.New(rand.NewSource(cfg.ThreadSeed(thid))),
			db:  dist.NewFlatDist(k),
			wda: dist.NewFlatDist(k),
		}
	}
	return p
}

// Checkout blocks until a flatSlot is available.
func (p *FlatPool) Checkout() *flatSlot { return <-p.slots }

// Checkin returns a flatSlot to the pool.
func (p *FlatPool) Checkin(s *flatSlot) { p.slots <- s }

// Kernel bundles the read-only state every word-by-word/doc-by-doc
// variant needs: the denominator vectors, the vertex store providing
// term/doc attributes, and K itself. GlobalNk is mutated only by
// LightLDA, via atomic increments — the ZenLDA family and SparseLDA
// leave it untouched and rely entirely on the counter-update phase to
// reconstruct it each iteration.
type Kernel struct {
	K        int
	Denom    *posterior.Global
	Store    graph.VertexStore
	GlobalNk []int64
}
