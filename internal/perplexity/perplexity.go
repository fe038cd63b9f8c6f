// Package perplexity implements per-iteration model evaluation: a
// per-partition walk over the same term-grouped edges the sampling
// kernels use, folding three log-probability sums, followed by a
// cross-partition reduce and the exp(-Σ/N) perplexity transform.
package perplexity

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
	"github.com/zenlda/zenlda/internal/posterior"
)

// docDenomSlot caches 1/(Σn_{·d}+Kα) for one doc, computed once and
// shared by every term group that touches the doc within a partition.
type docDenomSlot struct {
	mark  atomic.Int32 // 0 = empty, 1 = computing, 2 = published
	value float64
}

const (
	denomEmpty     int32 = 0
	denomComputing int32 = 1
	denomPublished int32 = 2
)

// DocDenomCache is an array keyed by local doc id, guarded by a two-step
// CAS-then-publish sequence (empty→computing→published) since a cache
// needs to make the computed value visible to spinning readers, not just
// claim a merge slot the way the counter-update mark does.
type DocDenomCache struct {
	slots sync.Map // uint64 -> *docDenomSlot
}

// NewDocDenomCache creates an empty cache.
func NewDocDenomCache() *DocDenomCache {
	return &DocDenomCache{}
}

// Get returns the cached denominator for docId, computing it via compute
// exactly once across any number of concurrent callers.
func (c *DocDenomCache) Get(docId uint64, compute func() float64) float64 {
	v, _ := c.slots.LoadOrStore(docId, &docDenomSlot{})
	slot := v.(*docDenomSlot)
	if slot.mark.CompareAndSwap(denomEmpty, denomComputing) {
		slot.value = compute()
		slot.mark.Store(denomPublished)
		return slot.value
	}
	for slot.mark.Load() != denomPublished {
		runtime.Gosched()
	}
	return slot.value
}

// Invalidate drops every cached denominator, needed once doc counts
// change between iterations.
func (c *DocDenomCache) Invalidate() {
	c.slots = sync.Map{}
}

// PartitionSums is the per-partition fold the evaluator accumulates:
// joint, word-conditional, and doc-conditional log-probability sums,
// plus the token count the final transform divides by.
type PartitionSums struct {
	LLH       float64
	WLLH      float64
	DLLH      float64
	NumTokens int64
}

// Add folds other into s in place and returns s, the cross-partition
// reduce step.
func (s *PartitionSums) Add(other PartitionSums) *PartitionSums {
	s.LLH += other.LLH
	s.WLLH += other.WLLH
	s.DLLH += other.DLLH
	s.NumTokens += other.NumTokens
	return s
}

// Reduce folds every partition's sums into one.
func Reduce(parts []PartitionSums) PartitionSums {
	var total PartitionSums
	for _, p := range parts {
		total.Add(p)
	}
	return total
}

// Perplexity applies the exp(-Σ/N_tokens) transform to the joint
// log-likelihood sum.
func Perplexity(s PartitionSums) float64 {
	if s.NumTokens == 0 {
		return math.Inf(1)
	}
	return math.Exp(-s.LLH / float64(s.NumTokens))
}

// WordPerplexity and DocPerplexity apply the same transform to the
// word-conditional and doc-conditional sums, useful as separate
// diagnostics for whether a poor score comes from the term side or the
// document side of the model.
func WordPerplexity(s PartitionSums) float64 {
	if s.NumTokens == 0 {
		return math.Inf(1)
	}
	return math.Exp(-s.WLLH / float64(s.NumTokens))
}

func DocPerplexity(s PartitionSums) float64 {
	if s.NumTokens == 0 {
		return math.Inf(1)
	}
	return math.Exp(-s.DLLH / float64(s.NumTokens))
}

// Evaluate walks p's source groups exactly as the word-by-word sampling
// kernels do, folding the joint/word/doc log-probability sums for every
// occurrence without mutating any topic assignment.
func Evaluate(p graph.EdgePartition, store graph.VertexStore, g *posterior.Global, alpha, beta float64, cache *DocDenomCache) PartitionSums {
	var sums PartitionSums
	abSum := sumFloat(g.AB)
	for _, grp := range p.Groups() {
		termTC, ok := store.Get(grp.SrcId)
		if !ok {
			termTC = model.NewTC(g.K, model.Term)
		}
		waProbs, _ := g.BuildWA(termTC)
		waSum := sumFloat(waProbs)

		for off := grp.FirstOffset; off < grp.FirstOffset+grp.Count; off++ {
			e := p.Edge(off)
			docTC, ok := store.Get(e.DstId)
			if !ok {
				docTC = model.NewTC(g.K, model.Doc)
			}

			docDenom := cache.Get(e.DstId, func() float64 {
				return docDenominator(docTC, g.K, alpha)
			})

			dwbProbs, _ := g.BuildDWB(docTC, termTC)
			dwbSum := sumFloat(dwbProbs)
			jointMass := (abSum + waSum + dwbSum) * docDenom

			for _, z := range e.Occurrences {
				if z < 0 {
					continue
				}
				nkw := float64(termTC.Get(int(z)))
				nkd := float64(docTC.Get(int(z)))
				phi := (nkw + beta) * g.Denoms[z]
				theta := (nkd + alpha) * docDenom

				sums.LLH += math.Log(jointMass)
				sums.WLLH += math.Log(phi)
				sums.DLLH += math.Log(theta)
				sums.NumTokens++
			}
		}
	}
	return sums
}

func docDenominator(docTC *model.TC, k int, alpha float64) float64 {
	_, vals := docTC.SparsePairs()
	var total int64
	for _, v := range vals {
		total += int64(v)
	}
	return 1.0 / (float64(total) + float64(k)*alpha)
}

func sumFloat(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
