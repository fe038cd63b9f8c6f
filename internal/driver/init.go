package driver

import (
	"math/rand"

	"github.com/zenlda/zenlda/internal/config"
	"github.com/zenlda/zenlda/internal/graph"
)

// InitializeAssignments fills every edge's -1 sentinel occurrences left
// by corpus.Parse with a starting topic, per config.InitStrategy. Random
// draws each occurrence independently; Split distributes a doc's
// occurrences evenly round-robin across the K topics; Sparse restricts
// each doc to a small topic subset from the start, so its TC begins (and
// tends to stay) under the sparse/dense promotion threshold.
func InitializeAssignments(edges []*graph.EdgeRecord, k int, strategy config.InitStrategy, rng *rand.Rand) {
	switch strategy {
	case config.Split:
		initSplit(edges, k)
	case config.Sparse:
		initSparse(edges, k, rng)
	default: // Random
		initRandom(edges, k, rng)
	}
}

func initRandom(edges []*graph.EdgeRecord, k int, rng *rand.Rand) {
	for _, e := range edges {
		for i := range e.Occurrences {
			e.Occurrences[i] = int32(rng.Intn(k))
		}
	}
}

func initSplit(edges []*graph.EdgeRecord, k int) {
	next := 0
	for _, e := range edges {
		for i := range e.Occurrences {
			e.Occurrences[i] = int32(next)
			next = (next + 1) % k
		}
	}
}

// sparseTopicsPerDoc is the number of topics each document draws its
// initial assignments from under the Sparse strategy, mirroring the
// model package's K/8 sparse-to-dense promotion threshold.
func sparseTopicsPerDoc(k int) int {
	n := k / 8
	if n < 1 {
		n = 1
	}
	return n
}

func initSparse(edges []*graph.EdgeRecord, k int, rng *rand.Rand) {
	seeds := make(map[uint64][]int32)
	n := sparseTopicsPerDoc(k)
	pick := func(docId uint64) []int32 {
		if s, ok := seeds[docId]; ok {
			return s
		}
		s := rng.Perm(k)[:n]
		topics := make([]int32, n)
		for i, t := range s {
			topics[i] = int32(t)
		}
		seeds[docId] = topics
		return topics
	}
	for _, e := range edges {
		topics := pick(e.DstId)
		for i := range e.Occurrences {
			e.Occurrences[i] = topics[rng.Intn(len(topics))]
		}
	}
}
