package sampler

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/zenlda/zenlda/internal/dist"
	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
)

const (
	mhSteps              = 8 // 8 Metropolis-Hastings moves per token
	rebuildDocProb       = 1e-2
	rebuildSmoothingProb = 1e-6
	rebuildTermProb      = 1e-4
)

// ProposalCache holds LightLDA's three staleness-tolerant alias caches:
// a per-doc alias reused across tokens of the same doc, and two global
// "smoothing" alias tables (alpha, beta) shared by every
// thread. Only the per-term sparse alias is NOT cached here — it is
// rebuilt directly into the calling Slot.Term, same as the word-by-word
// kernels, since its staleness window (1e-4) is short enough that
// per-group rebuilding already amortizes it.
type ProposalCache struct {
	mu          sync.RWMutex
	alphaAlias  *dist.AliasTable // dense, built from α over [0,K)
	betaAlias   *dist.AliasTable // dense, built from β/(n_k+Kβ)
	docAliases  *DocAliasCache
	globalRng   *rand.Rand // guards rebuild-probability coin flips for the shared tables
}

// NewProposalCache builds an empty cache; AlphaAlias/BetaAlias are
// populated on first use.
func NewProposalCache(k, docCacheCapacity int, seed int64) *ProposalCache {
	return &ProposalCache{
		docAliases: NewDocAliasCache(docCacheCapacity),
		globalRng:  rand.New(rand.NewSource(seed)),
	}
}

func (c *ProposalCache) smoothingTables(g *Kernel, alpha, beta float64) (*dist.AliasTable, *dist.AliasTable) {
	c.mu.RLock()
	stale := c.alphaAlias == nil || c.globalRng.Float64() < rebuildSmoothingProb
	a, b := c.alphaAlias, c.betaAlias
	c.mu.RUnlock()
	if !stale {
		return a, b
	}

	alphaProbs := make([]float64, g.K)
	betaProbs := make([]float64, g.K)
	for k := 0; k < g.K; k++ {
		alphaProbs[k] = alpha
		betaProbs[k] = beta * g.Denom.Denoms[k]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alphaAlias == nil {
		c.alphaAlias = dist.NewAliasTable(g.K)
		c.betaAlias = dist.NewAliasTable(g.K)
	}
	c.alphaAlias.ResetDist(alphaProbs, nil, g.K)
	c.betaAlias.ResetDist(betaProbs, nil, g.K)
	return c.alphaAlias, c.betaAlias
}

func (c *ProposalCache) docAlias(docId uint64, docTC *model.TC, rng *rand.Rand) *dist.AliasTable {
	cached := c.docAliases.Get(docId)
	if cached != nil && rng.Float64() >= rebuildDocProb {
		return cached
	}
	idx, val := docTC.SparsePairs()
	probs := make([]float64, len(val))
	for i, v := range val {
		probs[i] = float64(v)
	}
	a := dist.NewAliasTable(len(probs))
	a.ResetDist(probs, idx, len(probs))
	c.docAliases.Put(docId, a)
	return a
}

// mhState bundles the per-occurrence quantities an MH move needs to
// evaluate the acceptance ratio: the current topic and the global
// counters it reads from, none of which the proposal machinery mutates
// directly (only an accepted move mutates them, via mutateInPlace).
type mhState struct {
	k     *Kernel
	cache *ProposalCache
	rng   *rand.Rand
	term  dist.Resampler // the group's per-term sparse alias (wa), rebuilt by the caller
	alpha float64
	beta  float64
	mu    *sync.Mutex // per-doc mutex serializing counter mutation
}

// RunLightLDA executes LightLDA's Metropolis-Hastings kernel over every
// source-group of partition.
// docMutexes must hand back the same *sync.Mutex for a given global doc
// id across concurrent calls (the driver owns one mutex per doc vertex).
func RunLightLDA(p graph.EdgePartition, k *Kernel, slot *Slot, cache *ProposalCache, alpha, beta float64, docMutexes func(docId uint64) *sync.Mutex) {
	for _, g := range p.Groups() {
		termTC, ok := k.Store.Get(g.SrcId)
		if !ok {
			termTC = model.NewTC(k.K, model.Term)
		}

		if waProbs, waSpace := k.Denom.BuildWA(termTC); len(waProbs) > 0 {
			slot.Term.(resettable).ResetDist(waProbs, waSpace, len(waProbs))
		}

		for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
			e := p.Edge(off)
			docTC, ok := k.Store.Get(e.DstId)
			if !ok {
				docTC = model.NewTC(k.K, model.Doc)
			}
			state := &mhState{k: k, cache: cache, rng: slot.Rng, term: slot.Term, alpha: alpha, beta: beta, mu: docMutexes(e.DstId)}
			for occIdx, old := range e.Occurrences {
				e.Occurrences[occIdx] = runMHChain(state, e.SrcId, e.DstId, termTC, docTC, old)
			}
		}
	}
}

// runMHChain performs 8 alternating document/word proposal moves for a
// single token occurrence.
func runMHChain(s *mhState, termId, docId uint64, termTC, docTC *model.TC, current int32) int32 {
	for step := 0; step < mhSteps; step++ {
		var proposed int32
		var qOldToNew, qNewToOld float64
		if step%2 == 0 {
			proposed, qOldToNew, qNewToOld = proposeDoc(s, docId, docTC, current)
		} else {
			proposed, qOldToNew, qNewToOld = proposeWord(s, termId, termTC, current)
		}
		if proposed == current {
			continue
		}
		pOld := conditional(s.k, termTC, docTC, s.alpha, s.beta, current, true)
		pNew := conditional(s.k, termTC, docTC, s.alpha, s.beta, proposed, false)
		ratio := (pNew * qNewToOld) / (pOld * qOldToNew)
		if ratio >= 1 || s.rng.Float64() < ratio {
			mutateInPlace(s.k, termTC, docTC, current, proposed, s.mu)
			current = proposed
		}
	}
	return current
}

// proposeDoc draws from q_d ∝ n_kd + α, using the cached doc alias table
// for the n_kd mass and the shared alpha alias for the smoothing mass.
func proposeDoc(s *mhState, docId uint64, docTC *model.TC, current int32) (proposed int32, qOldToNew, qNewToOld float64) {
	docA := s.cache.docAlias(docId, docTC, s.rng)
	alphaA, _ := s.cache.smoothingTables(s.k, s.alpha, s.beta)

	docNorm, alphaNorm := docA.Norm(), alphaA.Norm()
	u := s.rng.Float64() * (docNorm + alphaNorm)
	if u < docNorm {
		proposed = docA.SampleFrom(u, s.rng)
	} else {
		proposed = alphaA.SampleFrom(u-docNorm, s.rng)
	}
	qOf := func(topic int32) float64 {
		return float64(docTC.Get(int(topic))) + s.alpha
	}
	total := docNorm + alphaNorm
	return proposed, qOf(proposed) / total, qOf(current) / total
}

// proposeWord draws from q_w ∝ (n_kw+β)/(n_k+Kβ), using the thread's
// per-term alias (rebuilt once per source group in RunLightLDA, same
// cadence as the ZenLDA family's wa) for the n_kw mass and the shared beta alias for
// the smoothing mass.
func proposeWord(s *mhState, termId uint64, termTC *model.TC, current int32) (proposed int32, qOldToNew, qNewToOld float64) {
	if s.rng.Float64() < rebuildTermProb {
		if probs, space := s.k.Denom.BuildWA(termTC); len(probs) > 0 {
			s.term.(resettable).ResetDist(probs, space, len(probs))
		}
	}
	_, betaA := s.cache.smoothingTables(s.k, s.alpha, s.beta)
	termNorm, betaNorm := s.term.Norm(), betaA.Norm()
	total := termNorm + betaNorm

	u := s.rng.Float64() * total
	if u < termNorm {
		proposed = s.term.SampleFrom(u, s.rng)
	} else {
		proposed = betaA.SampleFrom(u-termNorm, s.rng)
	}

	qOf := func(topic int32) float64 {
		return (float64(termTC.Get(int(topic))) + s.beta) * s.k.Denom.Denoms[topic]
	}
	return proposed, qOf(proposed) / total, qOf(current) / total
}

// conditional evaluates the unnormalized LDA posterior p(k) at topic, the
// full joint the Metropolis-Hastings proposals alternate against. adjustSelf
// must be true when topic is the token's current (not-yet-removed) topic: its
// n_kw/n_kd counts still include the token's own contribution, so the
// conditional has to subtract that one count back out before applying the
// β/α smoothing, matching the counts the token would see if it had already
// been removed from them.
func conditional(k *Kernel, termTC, docTC *model.TC, alpha, beta float64, topic int32, adjustSelf bool) float64 {
	nkw := float64(termTC.Get(int(topic)))
	nkd := float64(docTC.Get(int(topic)))
	if adjustSelf {
		nkw--
		nkd--
	}
	v := (nkw + beta) * (nkd + alpha) * k.Denom.Denoms[topic]
	if math.IsNaN(v) || v <= 0 {
		panic("sampler: LightLDA conditional produced a non-positive probability; corrupted counters")
	}
	return v
}

// mutateInPlace applies an accepted MH move's counter delta directly,
// distinguishing LightLDA from the ZenLDA family: it mutates n_k, n_·w,
// n_·d in place rather than through a separate counter-update phase. Doc
// mutation is serialized per-doc via mu since multiple threads process
// the same doc concurrently through different source groups; the global
// topic counter is updated via atomic increments instead, since every
// thread touches it.
func mutateInPlace(k *Kernel, termTC, docTC *model.TC, oldTopic, newTopic int32, mu *sync.Mutex) {
	termTC.Add(int(oldTopic), -1)
	termTC.Add(int(newTopic), 1)

	mu.Lock()
	docTC.Add(int(oldTopic), -1)
	docTC.Add(int(newTopic), 1)
	mu.Unlock()

	if k.GlobalNk != nil {
		atomic.AddInt64(&k.GlobalNk[oldTopic], -1)
		atomic.AddInt64(&k.GlobalNk[newTopic], 1)
	}
}
