// Package output persists a finished sampling run's model to disk: one
// YAML document per vertex partition, optionally coalesced into a single
// solid file and optionally written topic-major instead of term-major.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
)

// vertexDoc is one {id, counts} entry. Counts carry whichever
// representation the source TC currently holds, matching the model
// package's own dense/sparse duality rather than forcing one on write.
type vertexDoc struct {
	Id        uint64   `yaml:"id"`
	Dense     []uint32 `yaml:"dense,omitempty"`
	SparseIdx []int32  `yaml:"sparse_idx,omitempty"`
	SparseVal []uint32 `yaml:"sparse_val,omitempty"`
}

func newVertexDoc(localId uint64, tc *model.TC) vertexDoc {
	if tc.IsDense() {
		return vertexDoc{Id: localId, Dense: tc.Dense()}
	}
	idx, val := tc.SparsePairs()
	return vertexDoc{Id: localId, SparseIdx: idx, SparseVal: val}
}

// topicRow is one row of the topic-major layout saveTransposed selects:
// the terms with a nonzero count under a given topic.
type topicRow struct {
	Topic  int      `yaml:"topic"`
	Terms  []int32  `yaml:"terms"`
	Counts []uint32 `yaml:"counts"`
}

// WriteModel writes the term-topic model and doc-topic assignments under
// outputPath. partitions supplies the vertex-to-partition assignment for
// sharding the output the same way the input corpus was sharded: a term
// vertex is written to the partition owning its edges' source groups; a
// doc vertex is written to the (arbitrary but stable) partition of the
// first edge referencing it.
func WriteModel(outputPath string, store graph.VertexStore, partitions []graph.EdgePartition, numTopics int, saveTransposed, saveAsSolid bool) error {
	termPart, docPart := assignVertexPartitions(partitions)

	termBuckets := make([][]vertexDoc, len(partitions))
	docBuckets := make([][]vertexDoc, len(partitions))
	dense := make(map[uint64][]uint32) // localTermId -> dense row, only populated when saveTransposed

	store.Range(func(id uint64, tc *model.TC) bool {
		local := model.LocalIndex(id)
		if model.IsTermId(id) {
			p := termPart[id]
			if saveTransposed {
				dense[local] = tc.Dense()
				return true
			}
			termBuckets[p] = append(termBuckets[p], newVertexDoc(local, tc))
			return true
		}
		p := docPart[id]
		docBuckets[p] = append(docBuckets[p], newVertexDoc(local, tc))
		return true
	})

	if saveTransposed {
		rows := buildTopicRows(dense, numTopics)
		chunks := chunkRows(rows, len(partitions))
		if err := writeTransposedParts(outputPath, chunks); err != nil {
			return err
		}
		if saveAsSolid {
			if err := writeTransposedSolid(outputPath, rows); err != nil {
				return err
			}
		}
	} else {
		if err := writeParts(outputPath, "model-part-%05d.yaml", termBuckets); err != nil {
			return err
		}
		if saveAsSolid {
			if err := writeSolid(outputPath, "model.yaml", termBuckets); err != nil {
				return err
			}
		}
	}

	if err := writeParts(outputPath, "assignments-part-%05d.yaml", docBuckets); err != nil {
		return err
	}
	if saveAsSolid {
		if err := writeSolid(outputPath, "assignments.yaml", docBuckets); err != nil {
			return err
		}
	}

	return nil
}

// assignVertexPartitions walks every partition's edge set once, mapping
// each term id to the partition owning its source group and each doc id
// to the partition of the first edge that references it.
func assignVertexPartitions(partitions []graph.EdgePartition) (termPart, docPart map[uint64]int) {
	termPart = make(map[uint64]int)
	docPart = make(map[uint64]int)
	for _, p := range partitions {
		for _, g := range p.Groups() {
			termPart[g.SrcId] = p.PartitionID()
			for off := g.FirstOffset; off < g.FirstOffset+g.Count; off++ {
				e := p.Edge(off)
				if _, ok := docPart[e.DstId]; !ok {
					docPart[e.DstId] = p.PartitionID()
				}
			}
		}
	}
	return termPart, docPart
}

func buildTopicRows(dense map[uint64][]uint32, numTopics int) []topicRow {
	rows := make([]topicRow, numTopics)
	for k := 0; k < numTopics; k++ {
		rows[k] = topicRow{Topic: k}
	}
	// Deterministic term order keeps output stable across runs.
	terms := make([]uint64, 0, len(dense))
	for t := range dense {
		terms = append(terms, t)
	}
	sortUint64(terms)
	for _, t := range terms {
		row := dense[t]
		for k, c := range row {
			if c == 0 {
				continue
			}
			rows[k].Terms = append(rows[k].Terms, int32(t))
			rows[k].Counts = append(rows[k].Counts, c)
		}
	}
	return rows
}

func sortUint64(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func chunkRows(rows []topicRow, numChunks int) [][]topicRow {
	if numChunks <= 0 {
		numChunks = 1
	}
	chunks := make([][]topicRow, numChunks)
	per := (len(rows) + numChunks - 1) / numChunks
	if per == 0 {
		per = 1
	}
	for i, row := range rows {
		c := i / per
		if c >= numChunks {
			c = numChunks - 1
		}
		chunks[c] = append(chunks[c], row)
	}
	return chunks
}

func writeParts(outputPath, pattern string, buckets [][]vertexDoc) error {
	for i, docs := range buckets {
		path := filepath.Join(outputPath, fmt.Sprintf(pattern, i))
		if err := writeYAML(path, docs); err != nil {
			return err
		}
	}
	return nil
}

func writeTransposedParts(outputPath string, chunks [][]topicRow) error {
	for i, rows := range chunks {
		path := filepath.Join(outputPath, fmt.Sprintf("model-part-%05d.yaml", i))
		if err := writeYAML(path, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeSolid(outputPath, name string, buckets [][]vertexDoc) error {
	var all []vertexDoc
	for _, docs := range buckets {
		all = append(all, docs...)
	}
	return writeYAML(filepath.Join(outputPath, name), all)
}

func writeTransposedSolid(outputPath string, rows []topicRow) error {
	return writeYAML(filepath.Join(outputPath, "model.yaml"), rows)
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("output: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}
