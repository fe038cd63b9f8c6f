// Package posterior computes the reusable denominator vectors behind the
// three-term decomposition of the collapsed-Gibbs LDA conditional:
//
//	P(k) ∝ (n_kw + β) * (n_kd + ᾱ(n_k+α')/(Σn_k-1+Kα')) / (n_k+Kβ)
//
// expanded into
//
//	ab[k]  = β·denoms[k]·alphak_denoms[k]                         (dense, global)
//	wa[k]  = n_kw·denoms[k]·alphak_denoms[k]   for k ∈ supp(n_·w) (sparse, per term)
//	dwb[k] = n_kd·termBetaDenoms[k]            for k ∈ supp(n_·d) (sparse, per doc)
//
// where termBetaDenoms[k] = β·denoms[k] + denoms[k]·n_kw.
package posterior

import "github.com/zenlda/zenlda/internal/model"

// Global holds the per-iteration denominator vectors computed once from
// the global topic counters.
type Global struct {
	K            int
	Beta         float64
	Denoms       []float64 // 1/(n_k + Kβ)
	AlphakDenoms []float64 // the α-mixing term, reused verbatim across every token
	BetaDenoms   []float64 // β·denoms[k]
	AB           []float64 // the fully dense ab[k] component
}

// BuildGlobal rebuilds the denominator vectors from the global topic
// counters nk. totalTokens is Σn_k across all topics (passed separately
// so callers that already track it avoid re-summing).
func BuildGlobal(nk []uint32, k int, alpha, beta, alphaAS float64, totalTokens int64) *Global {
	g := &Global{
		K:            k,
		Beta:         beta,
		Denoms:       make([]float64, k),
		AlphakDenoms: make([]float64, k),
		BetaDenoms:   make([]float64, k),
		AB:           make([]float64, k),
	}

	kBeta := float64(k) * beta
	alphaRatio := float64(k) * alpha / (float64(totalTokens) + float64(k)*alphaAS)

	for t := 0; t < k; t++ {
		g.Denoms[t] = 1.0 / (float64(nk[t]) + kBeta)
		g.AlphakDenoms[t] = alphaAS*alphaRatio*g.Denoms[t] + alphaRatio
		g.BetaDenoms[t] = beta * g.Denoms[t]
		g.AB[t] = g.BetaDenoms[t] * g.AlphakDenoms[t]
	}
	return g
}

// TermBetaDenom returns termBetaDenoms[k] = β·denoms[k] + denoms[k]·n_kw
// for the given term's topic-count vector, evaluated lazily (the value
// only needs the term's count at k, which TC.Get answers in O(1) for a
// dense vector or O(log support) for a sparse one).
func (g *Global) TermBetaDenom(termTC *model.TC, k int) float64 {
	return g.BetaDenoms[k] + g.Denoms[k]*float64(termTC.Get(k))
}

// BuildWA builds the sparse wa distribution over the term's active
// topic support: wa[k] = n_kw · denoms[k] · alphak_denoms[k].
func (g *Global) BuildWA(termTC *model.TC) (probs []float64, space []int32) {
	idx, val := termTC.SparsePairs()
	probs = make([]float64, len(idx))
	for i, k := range idx {
		probs[i] = float64(val[i]) * g.Denoms[k] * g.AlphakDenoms[k]
	}
	return probs, idx
}

// BuildDWB builds the sparse dwb distribution over the doc's active
// topic support: dwb[k] = n_kd · termBetaDenoms[k]. termTC supplies the
// n_kw values termBetaDenoms needs; it is the current source group's
// term, not the doc.
func (g *Global) BuildDWB(docTC *model.TC, termTC *model.TC) (probs []float64, space []int32) {
	idx, val := docTC.SparsePairs()
	probs = make([]float64, len(idx))
	for i, k := range idx {
		probs[i] = float64(val[i]) * g.TermBetaDenom(termTC, int(k))
	}
	return probs, idx
}

// SparseLDAAB builds the doc-by-doc kernel's dense global smoothing-only
// bucket: ab[k] = α·β·denoms[k]. Unlike the word-by-word
// family's AB field, this ignores alphak_denoms entirely — SparseLDA's
// classic three-bucket decomposition uses a flat α, not the αAS-mixed
// term the ZenLDA family needs.
func (g *Global) SparseLDAAB(alpha float64) []float64 {
	ab := make([]float64, g.K)
	for k := 0; k < g.K; k++ {
		ab[k] = alpha * g.BetaDenoms[k]
	}
	return ab
}

// BuildDB builds the doc-by-doc kernel's db bucket, sparse over the
// doc's active topic support and rebuilt once per doc: db[k] = n_kd ·
// β·denoms[k].
func (g *Global) BuildDB(docTC *model.TC) (probs []float64, space []int32) {
	idx, val := docTC.SparsePairs()
	probs = make([]float64, len(idx))
	for i, k := range idx {
		probs[i] = float64(val[i]) * g.BetaDenoms[k]
	}
	return probs, idx
}

// BuildWDA builds the doc-by-doc kernel's wda bucket, sparse over the
// term's active topic support and rebuilt per (doc, term) edge:
// wda[k] = n_kw · (n_kd(k) + α) · denoms[k]. Together, ab + db +
// wda reconstruct the full (n_kd+α)(n_kw+β)/(n_k+Kβ) conditional exactly,
// partitioned by which support each bucket needs to enumerate.
func (g *Global) BuildWDA(termTC, docTC *model.TC, alpha float64) (probs []float64, space []int32) {
	idx, val := termTC.SparsePairs()
	probs = make([]float64, len(idx))
	for i, k := range idx {
		probs[i] = float64(val[i]) * (float64(docTC.Get(int(k))) + alpha) * g.Denoms[k]
	}
	return probs, idx
}
