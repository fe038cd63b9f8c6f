package driver

import (
	"sort"

	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
)

// markVirtualTerms flags a subset of term ids as virtual against a
// concrete corpus: the config.VirtualTermRate highest-occurrence terms
// (the "heavy hitters" a word-by-word kernel pays the most contention
// for) are flagged virtual, so ZenSemiLDA skips their source-groups
// entirely instead of serializing every thread behind the busiest terms.
// rate == 0 marks nothing.
func markVirtualTerms(edges []*graph.EdgeRecord, vocabSize int, rate float64) *model.VirtualTerms {
	v := model.NewVirtualTerms(uint(vocabSize))
	if rate <= 0 || vocabSize == 0 {
		return v
	}

	degree := make([]int, vocabSize)
	for _, e := range edges {
		degree[model.LocalIndex(e.SrcId)] += len(e.Occurrences)
	}

	order := make([]int, vocabSize)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return degree[order[i]] > degree[order[j]] })

	n := int(float64(vocabSize)*rate + 0.5)
	for _, localId := range order[:n] {
		v.Mark(uint(localId))
	}
	return v
}
