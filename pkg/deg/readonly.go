package deg

import (
	"sync"

	"github.com/deglib-go/deg/pkg/deg/internal/visited"
)

// ReadOnlyGraph is the query-only variant of Graph: identical per-vertex
// record minus the weight array (spec §4.3). Constructed from a Graph by
// stripping weights. Search, Explore, HasEdge and the index/label/feature/
// neighbor lookups behave as on Graph; it has no HasPath and none of the
// analysis checks.
type ReadOnlyGraph struct {
	mu sync.RWMutex

	space    *Space
	capacity int
	size     int
	degree   int

	features  featureRepository
	neighbors []uint32
	labels    []uint32
	index     map[uint32]uint32

	vpool *visited.Pool
}

// NewReadOnlyFromGraph converts g into a weight-free read-only snapshot.
func NewReadOnlyFromGraph(g *Graph) *ReadOnlyGraph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r := &ReadOnlyGraph{
		space:     g.space,
		capacity:  g.capacity,
		size:      g.size,
		degree:    g.degree,
		features:  newFeatureRepository(g.capacity, g.space.DataSize()),
		neighbors: make([]uint32, len(g.neighbors)),
		labels:    make([]uint32, len(g.labels)),
		index:     make(map[uint32]uint32, len(g.index)),
		vpool:     visited.NewPool(1, g.capacity),
	}
	copy(r.features.buf, g.features.buf)
	copy(r.neighbors, g.neighbors)
	copy(r.labels, g.labels)
	for label, idx := range g.index {
		r.index[label] = idx
	}
	return r
}

func (r *ReadOnlyGraph) Capacity() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.capacity
}

func (r *ReadOnlyGraph) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *ReadOnlyGraph) Degree() int { return r.degree }

func (r *ReadOnlyGraph) visitedPool() *visited.Pool { return r.vpool }

func (r *ReadOnlyGraph) Space() *Space { return r.space }

func (r *ReadOnlyGraph) IndexOf(label uint32) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[label]
	return idx, ok
}

func (r *ReadOnlyGraph) LabelOf(idx uint32) uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.labels[idx]
}

func (r *ReadOnlyGraph) FeatureOf(idx uint32) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.features.at(idx)
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

func (r *ReadOnlyGraph) NeighborsOf(idx uint32) []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row := r.neighborRow(idx)
	out := make([]uint32, len(row))
	copy(out, row)
	return out
}

func (r *ReadOnlyGraph) neighborRow(idx uint32) []uint32 {
	off := int(idx) * r.degree
	return r.neighbors[off : off+r.degree]
}

// HasEdge reports whether u and v are directly connected.
func (r *ReadOnlyGraph) HasEdge(u, v uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, found := binarySearchRow(r.neighborRow(u), v)
	return found
}
