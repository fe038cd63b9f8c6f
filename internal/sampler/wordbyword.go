package sampler

import (
	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
)

// Variant selects which word-by-word member of the ZenLDA family is
// running; the sampling shape is identical, only the virtual-term skip
// differs.
type Variant int

const (
	ZenLDA Variant = iota
	ZenSemiLDA
)

type resettable interface {
	ResetDist(probs []float64, space []int32, size int)
}

// RunWordByWord executes the word-by-word kernel over every source-group
// of partition, one group after another on the calling goroutine with the
// one Slot it is given; groups are not spread across several workers.
// Neither variant mutates global counters in place: assignments are
// written back into the edge's occurrence array, and n_k/n_·w/n_·d are
// reconstructed afterwards by the counter-update phase.
func RunWordByWord(p graph.EdgePartition, k *Kernel, slot *Slot, variant Variant, virtual *model.VirtualTerms) {
	for _, g := range p.Groups() {
		if variant == ZenSemiLDA && model.IsVirtualTermId(g.SrcId, virtual) {
			continue
		}
		runSourceGroup(p, k, slot, g)
	}
}

func runSourceGroup(p graph.EdgePartition, k *Kernel, slot *Slot, g graph.SourceGroup) {
	termTC, ok := k.Store.Get(g.SrcId)
	if !ok {
		termTC = model.NewTC(k.K, model.Term)
	}

	waProbs, waSpace := k.Denom.BuildWA(termTC)
	slot.Term.(resettable).ResetDist(waProbs, waSpace, len(waProbs))
	waNorm := slot.Term.Norm()
	abNorm := sum(k.Denom.AB)

	for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
		e := p.Edge(off)
		docTC, ok := k.Store.Get(e.DstId)
		if !ok {
			docTC = model.NewTC(k.K, model.Doc)
		}

		dwbProbs, dwbSpace := k.Denom.BuildDWB(docTC, termTC)
		slot.Doc.(resettable).ResetDist(dwbProbs, dwbSpace, len(dwbProbs))
		dwbNorm := slot.Doc.Norm()

		for occIdx, old := range e.Occurrences {
			e.Occurrences[occIdx] = sampleOccurrence(k, slot, old, docTC, termTC, abNorm, waNorm, dwbNorm)
		}
	}
}

// sampleOccurrence handles both the |o|==1 and |o|>1 cases for a single
// occurrence. In both cases dwb and wa were built counting this
// occurrence's own current topic, so the correction is applied
// identically; the distinction between "adjusted" and "unadjusted" dwb
// collapses to the same rejection-sampling call once the correction is
// derived directly from the observed counts rather than rebuilt from
// scratch.
func sampleOccurrence(k *Kernel, slot *Slot, old int32, docTC, termTC *model.TC, abNorm, waNorm, dwbNorm float64) int32 {
	total := abNorm + waNorm + dwbNorm
	u := slot.Rng.Float64() * total

	switch {
	case u < dwbNorm:
		correction := 1.0 / float64(docTC.Get(int(old)))
		return slot.Doc.ResampleFrom(u, slot.Rng, old, correction)
	case u < dwbNorm+waNorm:
		correction := 1.0 / float64(termTC.Get(int(old)))
		return slot.Term.ResampleFrom(u-dwbNorm, slot.Rng, old, correction)
	default:
		return sampleDenseAB(k.Denom.AB, u-dwbNorm-waNorm)
	}
}

// sampleDenseAB draws directly from the dense, fully-global ab vector.
// ab never contains the current token's own count (it depends only on
// the global topic counters, which word-by-word variants never mutate
// mid-partition), so no rejection correction applies here.
func sampleDenseAB(ab []float64, u float64) int32 {
	var running float64
	for i, v := range ab {
		running += v
		if u < running {
			return int32(i)
		}
	}
	return int32(len(ab) - 1)
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
