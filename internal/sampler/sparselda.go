package sampler

import (
	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
)

// docGroup is one doc's worth of incident edges, gathered by scanning
// the partition once. SparseLDA groups by destination (doc) rather than
// source (term), the opposite of the word-by-word kernels.
type docGroup struct {
	docId uint64
	edges []*graph.EdgeRecord
}

func buildDocGroups(p graph.EdgePartition) []docGroup {
	byDoc := make(map[uint64][]*graph.EdgeRecord)
	order := make([]uint64, 0)
	for _, g := range p.Groups() {
		for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
			e := p.Edge(off)
			if _, seen := byDoc[e.DstId]; !seen {
				order = append(order, e.DstId)
			}
			byDoc[e.DstId] = append(byDoc[e.DstId], e)
		}
	}
	groups := make([]docGroup, len(order))
	for i, id := range order {
		groups[i] = docGroup{docId: id, edges: byDoc[id]}
	}
	return groups
}

// RunSparseLDA executes SparseLDA's doc-by-doc kernel: ab (dense,
// global), db (sparse over doc support, rebuilt once per doc), wda
// (sparse over term support, rebuilt per doc-term edge). No component
// carries a rejection correction: db and wda are built from the stored
// counts, which still include the current token's own assignment, and
// each occurrence is drawn from that unadjusted conditional.
func RunSparseLDA(p graph.EdgePartition, k *Kernel, alpha float64, flat *flatSlot) {
	ab := k.Denom.SparseLDAAB(alpha)
	var abNorm float64
	for _, v := range ab {
		abNorm += v
	}

	for _, dg := range buildDocGroups(p) {
		docTC, ok := k.Store.Get(dg.docId)
		if !ok {
			docTC = model.NewTC(k.K, model.Doc)
		}

		dbProbs, dbSpace := k.Denom.BuildDB(docTC)
		flat.db.ResetDist(dbProbs, dbSpace, len(dbProbs), k.K)
		dbNorm := flat.db.Norm()

		for _, e := range dg.edges {
			termTC, ok := k.Store.Get(e.SrcId)
			if !ok {
				termTC = model.NewTC(k.K, model.Term)
			}

			wdaProbs, wdaSpace := k.Denom.BuildWDA(termTC, docTC, alpha)
			flat.wda.ResetDist(wdaProbs, wdaSpace, len(wdaProbs), k.K)
			wdaNorm := flat.wda.Norm()

			for occIdx := range e.Occurrences {
				e.Occurrences[occIdx] = sampleSparseLDA(flat, ab, abNorm, dbNorm, wdaNorm)
			}
		}
	}
}

func sampleSparseLDA(flat *flatSlot, ab []float64, abNorm, dbNorm, wdaNorm float64) int32 {
	total := abNorm + dbNorm + wdaNorm
	u := flat.rng.Float64() * total
	switch {
	case u < dbNorm:
		return flat.db.SampleFrom(u, flat.rng)
	case u < dbNorm+wdaNorm:
		return flat.wda.SampleFrom(u-dbNorm, flat.rng)
	default:
		return sampleDenseAB(ab, u-dbNorm-wdaNorm)
	}
}
