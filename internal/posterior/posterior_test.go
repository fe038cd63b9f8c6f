package posterior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zenlda/zenlda/internal/model"
)

func TestBuildGlobalDenomsHandComputed(t *testing.T) {
	// K=2, beta=0.1, alpha=0.5, alphaAS=0.1, nk=[3,7], totalTokens=10.
	nk := []uint32{3, 7}
	g := BuildGlobal(nk, 2, 0.5, 0.1, 0.1, 10)

	wantDenom0 := 1.0 / (3.0 + 2*0.1)
	wantDenom1 := 1.0 / (7.0 + 2*0.1)
	assert.InDelta(t, wantDenom0, g.Denoms[0], 1e-9)
	assert.InDelta(t, wantDenom1, g.Denoms[1], 1e-9)

	alphaRatio := 2 * 0.5 / (10.0 + 2*0.1)
	wantAlphak0 := 0.1*alphaRatio*wantDenom0 + alphaRatio
	assert.InDelta(t, wantAlphak0, g.AlphakDenoms[0], 1e-9)

	wantBetaDenom0 := 0.1 * wantDenom0
	assert.InDelta(t, wantBetaDenom0, g.BetaDenoms[0], 1e-9)
	assert.InDelta(t, wantBetaDenom0*wantAlphak0, g.AB[0], 1e-9)
}

func TestTermBetaDenomIncludesTermCount(t *testing.T) {
	nk := []uint32{4, 4}
	g := BuildGlobal(nk, 2, 0.1, 0.2, 0.1, 8)

	term := model.NewTC(2, model.Term)
	term.Add(0, 5)

	got := g.TermBetaDenom(term, 0)
	want := g.BetaDenoms[0] + g.Denoms[0]*5
	assert.InDelta(t, want, got, 1e-9)

	// topic 1 has no term count, so termBetaDenom collapses to beta_denoms.
	assert.InDelta(t, g.BetaDenoms[1], g.TermBetaDenom(term, 1), 1e-9)
}

func TestBuildWAOnlyCoversTermSupport(t *testing.T) {
	nk := []uint32{4, 4, 4, 4}
	g := BuildGlobal(nk, 4, 0.1, 0.2, 0.1, 16)

	term := model.NewTC(4, model.Term)
	term.Add(1, 3)
	term.Add(3, 2)

	probs, space := g.BuildWA(term)
	assert.Len(t, probs, 2)
	assert.ElementsMatch(t, []int32{1, 3}, space)

	for i, k := range space {
		want := float64(term.Get(int(k))) * g.Denoms[k] * g.AlphakDenoms[k]
		assert.InDelta(t, want, probs[i], 1e-9)
	}
}

func TestBuildDWBUsesDocSupportAndTermBetaDenom(t *testing.T) {
	nk := []uint32{4, 4, 4}
	g := BuildGlobal(nk, 3, 0.1, 0.2, 0.1, 12)

	term := model.NewTC(3, model.Term)
	term.Add(0, 6)

	doc := model.NewTC(3, model.Doc)
	doc.Add(0, 2)
	doc.Add(2, 1)

	probs, space := g.BuildDWB(doc, term)
	assert.Len(t, probs, 2)
	assert.ElementsMatch(t, []int32{0, 2}, space)

	for i, k := range space {
		want := float64(doc.Get(int(k))) * g.TermBetaDenom(term, int(k))
		assert.InDelta(t, want, probs[i], 1e-9)
	}
}

func TestSparseLDABucketsSumToFullConditional(t *testing.T) {
	const k, alpha, beta = 4, 0.3, 0.2
	nk := []uint32{5, 6, 7, 8}
	g := BuildGlobal(nk, k, alpha, beta, 0.1, 26)

	term := model.NewTC(k, model.Term)
	term.Add(1, 3)
	term.Add(2, 2)

	doc := model.NewTC(k, model.Doc)
	doc.Add(0, 4)
	doc.Add(1, 1)

	ab := g.SparseLDAAB(alpha)
	dbProbs, dbSpace := g.BuildDB(doc)
	wdaProbs, wdaSpace := g.BuildWDA(term, doc, alpha)

	total := make([]float64, k)
	copy(total, ab)
	for i, idx := range dbSpace {
		total[idx] += dbProbs[i]
	}
	for i, idx := range wdaSpace {
		total[idx] += wdaProbs[i]
	}

	for topic := 0; topic < k; topic++ {
		want := (float64(doc.Get(topic)) + alpha) * (float64(term.Get(topic)) + beta) * g.Denoms[topic]
		assert.InDelta(t, want, total[topic], 1e-9, "topic %d", topic)
	}
}
