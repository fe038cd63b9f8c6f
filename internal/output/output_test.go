package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zenlda/zenlda/internal/graph"
	"github.com/zenlda/zenlda/internal/model"
)

// buildFixture seeds one partition with two terms and two docs, and a
// vertex store carrying their TCs, the shape WriteModel expects to see
// after a real run's bootstrap + counter-update phases.
func buildFixture(k int) (*graph.MemVertexStore, []graph.EdgePartition) {
	edges := []*graph.EdgeRecord{
		{SrcId: model.NewTermId(0), DstId: model.NewDocId(0), Occurrences: []int32{0, 1}},
		{SrcId: model.NewTermId(1), DstId: model.NewDocId(0), Occurrences: []int32{2}},
		{SrcId: model.NewTermId(1), DstId: model.NewDocId(1), Occurrences: []int32{2}},
	}
	part := graph.NewMemEdgePartition(0, edges)

	store := graph.NewMemVertexStore()

	term0 := model.NewTC(k, model.Term)
	term0.Add(0, 1)
	term0.Add(1, 1)
	store.Set(model.NewTermId(0), term0)

	term1 := model.NewTC(k, model.Term)
	term1.Add(2, 2)
	store.Set(model.NewTermId(1), term1)

	doc0 := model.NewTC(k, model.Doc)
	doc0.Add(0, 1)
	doc0.Add(2, 1)
	store.Set(model.NewDocId(0), doc0)

	doc1 := model.NewTC(k, model.Doc)
	doc1.Add(2, 1)
	store.Set(model.NewDocId(1), doc1)

	return store, []graph.EdgePartition{part}
}

func readDocs(t *testing.T, path string) []vertexDoc {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var docs []vertexDoc
	require.NoError(t, yaml.Unmarshal(data, &docs))
	return docs
}

func TestWriteModelPerPartition(t *testing.T) {
	dir := t.TempDir()
	store, partitions := buildFixture(4)

	require.NoError(t, WriteModel(dir, store, partitions, 4, false, false))

	modelDocs := readDocs(t, filepath.Join(dir, "model-part-00000.yaml"))
	assert.Len(t, modelDocs, 2)

	assignDocs := readDocs(t, filepath.Join(dir, "assignments-part-00000.yaml"))
	assert.Len(t, assignDocs, 2)

	_, err := os.Stat(filepath.Join(dir, "model.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteModelSolid(t *testing.T) {
	dir := t.TempDir()
	store, partitions := buildFixture(4)

	require.NoError(t, WriteModel(dir, store, partitions, 4, false, true))

	solid := readDocs(t, filepath.Join(dir, "model.yaml"))
	assert.Len(t, solid, 2)

	solidAssign := readDocs(t, filepath.Join(dir, "assignments.yaml"))
	assert.Len(t, solidAssign, 2)
}

func TestWriteModelTransposed(t *testing.T) {
	dir := t.TempDir()
	store, partitions := buildFixture(4)

	require.NoError(t, WriteModel(dir, store, partitions, 4, true, true))

	data, err := os.ReadFile(filepath.Join(dir, "model.yaml"))
	require.NoError(t, err)

	var rows []topicRow
	require.NoError(t, yaml.Unmarshal(data, &rows))
	require.Len(t, rows, 4)

	// Topic 2 only has counts from term1 (term0's counts sit under topics
	// 0 and 1), so it should list term 1 alone.
	var topic2 topicRow
	for _, r := range rows {
		if r.Topic == 2 {
			topic2 = r
		}
	}
	assert.ElementsMatch(t, []int32{1}, topic2.Terms)
}

func TestVertexDocPreservesRepresentation(t *testing.T) {
	tc := model.NewTC(8, model.Term)
	tc.Add(3, 5)
	doc := newVertexDoc(42, tc)
	assert.Equal(t, uint64(42), doc.Id)
	assert.Nil(t, doc.Dense)
	assert.Equal(t, []int32{3}, doc.SparseIdx)
	assert.Equal(t, []uint32{5}, doc.SparseVal)

	tc.Promote()
	doc = newVertexDoc(42, tc)
	assert.NotNil(t, doc.Dense)
	assert.Nil(t, doc.SparseIdx)
}
