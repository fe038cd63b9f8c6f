package graph

import (
	"sync"

	"github.com/zenlda/zenlda/internal/model"
)

// MemVertexStore is an in-process VertexStore: a mutex-guarded map keyed
// by global vertex id, the same mutex-guarded element map shape
// (Create/GetByID/Update/Delete/List over a map[string]Element) used
// elsewhere in the domain stack, here specialized to vertices and their
// TC attributes.
type MemVertexStore struct {
	mu       sync.RWMutex
	vertices map[uint64]*model.TC
}

// NewMemVertexStore creates an empty store.
func NewMemVertexStore() *MemVertexStore {
	return &MemVertexStore{vertices: make(map[uint64]*model.TC)}
}

// Get returns the TC for globalId and whether it was present.
func (s *MemVertexStore) Get(globalId uint64) (*model.TC, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tc, ok := s.vertices[globalId]
	return tc, ok
}

// Set installs or replaces the TC for globalId.
func (s *MemVertexStore) Set(globalId uint64, tc *model.TC) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vertices[globalId] = tc
}

// Delete removes globalId from the store, if present.
func (s *MemVertexStore) Delete(globalId uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vertices, globalId)
}

// Range calls fn for every stored vertex in unspecified order, stopping
// early if fn returns false. The read lock is held for the duration of
// the walk.
func (s *MemVertexStore) Range(fn func(globalId uint64, tc *model.TC) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, tc := range s.vertices {
		if !fn(id, tc) {
			return
		}
	}
}

// Count returns the number of stored vertices.
func (s *MemVertexStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vertices)
}

// HashRouter is a default Router: vertex ids route to partitions by
// modulo hash until VMBLP (internal/partition) overrides individual
// assignments via SetPartitionOf.
type HashRouter struct {
	mu      sync.RWMutex
	assign  map[uint64]int
	numPart int
}

// NewHashRouter creates a router over numPartitions partitions with no
// overrides; PartitionOf falls back to a modulo hash until an explicit
// assignment is recorded.
func NewHashRouter(numPartitions int) *HashRouter {
	return &HashRouter{assign: make(map[uint64]int), numPart: numPartitions}
}

// PartitionOf returns the partition owning globalId.
func (r *HashRouter) PartitionOf(globalId uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.assign[globalId]; ok {
		return p
	}
	return int(globalId % uint64(r.numPart))
}

// SetPartitionOf records an explicit override for globalId.
func (r *HashRouter) SetPartitionOf(globalId uint64, partition int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assign[globalId] = partition
}

// NumPartitions reports the router's partition count.
func (r *HashRouter) NumPartitions() int { return r.numPart }
