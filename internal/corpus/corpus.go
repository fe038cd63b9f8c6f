// Package corpus implements the three supported input formats of the
// substrate's corpus contract — raw, bow, semi — plus the ignore-doc-id
// flag, producing the bipartite edge set that seeds a graph.EdgePartition.
// Term normalization follows the domain stack's golang.org/x/text choice:
// case-folded, NFC-normalized tokens so "Word" and "word" share a vertex.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
)

// Format selects how a corpus line is tokenized.
type Format string

const (
	// Raw is whitespace-tokenized free text; a repeated word contributes
	// one occurrence per appearance.
	Raw Format = "raw"
	// Bow is bag-of-words with explicit term:count pairs.
	Bow Format = "bow"
	// Semi is bag-of-words re-expanded into individual occurrences, each
	// kept independently with probability SemiRate.
	Semi Format = "semi"
)

// MalformedOccurrenceError reports a topic assignment outside [0,K),
// a condition that must be detected at parse time and is always fatal.
type MalformedOccurrenceError struct {
	DocId  uint64
	Topic  int32
	Topics int
}

func (e *MalformedOccurrenceError) Error() string {
	return fmt.Sprintf("corpus: occurrence topic %d out of range [0,%d) for doc %d", e.Topic, e.Topics, e.DocId)
}

var normalizer = cases.Lower(language.Und)

func normalizeTerm(s string) string {
	return norm.NFC.String(normalizer.String(s))
}

// Vocabulary assigns stable local term indices to normalized term
// strings, first-seen order. It holds no lock: Lookup mutates the index
// map, so a Vocabulary is not safe for concurrent use.
type Vocabulary struct {
	index map[string]uint64
	terms []string
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{index: make(map[string]uint64)}
}

// Lookup returns term's local index, assigning a new one on first sight.
func (v *Vocabulary) Lookup(term string) uint64 {
	norm := normalizeTerm(term)
	if id, ok := v.index[norm]; ok {
		return id
	}
	id := uint64(len(v.terms))
	v.index[norm] = id
	v.terms = append(v.terms, norm)
	return id
}

// Size returns the number of distinct terms seen so far.
func (v *Vocabulary) Size() int { return len(v.terms) }

// Term returns the normalized string for a local term index.
func (v *Vocabulary) Term(localId uint64) string { return v.terms[localId] }

// Corpus is the parsed result: a vocabulary, a doc count, and the
// bipartite edges ready to seed a graph.MemEdgePartition.
type Corpus struct {
	Vocab   *Vocabulary
	NumDocs int
	Edges   []*graph.EdgeRecord
}

// Options configures parsing.
type Options struct {
	Format      Format
	IgnoreDocId bool
	SemiRate    float64 // only consulted when Format == Semi
	Rng         *rand.Rand
}

// Parse reads one document per line from r and builds a Corpus. Local
// term ids come from vocab (shared across calls so multiple input files
// can extend one vocabulary); local doc ids are assigned sequentially in
// read order. Occurrence entries are allocated but left topic-unassigned
// (sentinel -1); an initializer (spec's initStrategy, applied by the
// driver) fills them in before the first sampling pass.
func Parse(r io.Reader, vocab *Vocabulary, opts Options) (*Corpus, error) {
	c := &Corpus{Vocab: vocab}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if opts.IgnoreDocId && len(fields) > 0 {
			fields = fields[1:]
		}

		docLocal := uint64(c.NumDocs)
		c.NumDocs++
		docGlobal := model.NewDocId(docLocal)

		counts := make(map[uint64]int)
		switch opts.Format {
		case Bow:
			if err := parseBowFields(fields, vocab, counts); err != nil {
				return nil, err
			}
		case Semi:
			if err := parseBowFields(fields, vocab, counts); err != nil {
				return nil, err
			}
			applySemiSampling(counts, opts.SemiRate, opts.Rng)
		case Raw, "":
			for _, tok := range fields {
				counts[vocab.Lookup(tok)]++
			}
		default:
			return nil, fmt.Errorf("corpus: unknown format %q", opts.Format)
		}

		for termLocal, n := range counts {
			if n <= 0 {
				continue
			}
			occ := make([]int32, n)
			for i := range occ {
				occ[i] = -1
			}
			c.Edges = append(c.Edges, &graph.EdgeRecord{
				SrcId:       model.NewTermId(termLocal),
				DstId:       docGlobal,
				Occurrences: occ,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("corpus: scan failed: %w", err)
	}
	return c, nil
}

// parseBowFields parses "term:count" pairs into counts, accumulating
// repeats of the same term across the line.
func parseBowFields(fields []string, vocab *Vocabulary, counts map[uint64]int) error {
	for _, f := range fields {
		term, countStr, ok := strings.Cut(f, ":")
		if !ok {
			return fmt.Errorf("corpus: malformed bow field %q, expected term:count", f)
		}
		n, err := strconv.Atoi(countStr)
		if err != nil || n < 0 {
			return fmt.Errorf("corpus: malformed bow count in field %q: %w", f, err)
		}
		counts[vocab.Lookup(term)] += n
	}
	return nil
}

// applySemiSampling independently keeps each unit occurrence of a
// term:count pair with probability rate, implementing the semi format.
func applySemiSampling(counts map[uint64]int, rate float64, rng *rand.Rand) {
	if rate >= 1.0 {
		return
	}
	for term, n := range counts {
		kept := 0
		for i := 0; i < n; i++ {
			if rng.Float64() < rate {
				kept++
			}
		}
		counts[term] = kept
	}
}

// ValidateOccurrences applies the parse-time fatal check: every topic
// assignment must land in [0,K).
func ValidateOccurrences(docGlobalId uint64, occ []int32, k int) error {
	for _, t := range occ {
		if t < 0 || int(t) >= k {
			return &MalformedOccurrenceError{DocId: docGlobalId, Topic: t, Topics: k}
		}
	}
	return nil
}
