package deg

import (
	"fmt"
	"sort"
	"sync"

	"github.com/deglib-go/deg/pkg/deg/internal/visited"
	"github.com/deglib-go/deg/pkg/observability"
)

// Graph is a size-bounded, d-regular, undirected weighted proximity graph
// (the "mutable" store, C5). Every vertex owns exactly Degree() neighbor
// slots; a slot pointing at its own vertex with weight 0 is a vacant
// self-loop (spec §3). Row-major parallel arrays stand in for the spec's
// per-vertex contiguous record: each row is already contiguous and
// cache-friendly without manual struct padding, grounded on
// pkg/nsg.Index / pkg/hnsw.Index's map[uint64]*Node shape generalized to a
// flat, size-bounded backing array the way pkg/diskann/memory_graph.go
// lays out its vertex storage.
type Graph struct {
	mu sync.RWMutex

	space    *Space
	capacity int
	size     int
	degree   int

	features  featureRepository
	neighbors []uint32  // size capacity*degree, row-major
	weights   []float32 // size capacity*degree, row-major
	labels    []uint32  // size capacity

	index map[uint32]uint32 // external label -> internal index

	vpool *visited.Pool // per-graph scratchpads for search traversals (C3)

	logger  *observability.Logger  // nil-safe; set via SetLogger (spec §7, §9: no global mutable state in the core)
	metrics *observability.Metrics // nil-safe; set via SetMetrics
}

// NewGraph allocates a graph with room for capacity vertices, each with
// degree neighbor slots, under the given metric and dimension.
func NewGraph(capacity, degree int, metric Metric, dim int) (*Graph, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("deg: capacity must be positive, got %d", capacity)
	}
	if degree <= 0 || degree > 255 {
		return nil, fmt.Errorf("deg: degree must be in (0, 255], got %d", degree)
	}

	space, err := NewSpace(metric, dim)
	if err != nil {
		return nil, err
	}

	return &Graph{
		space:     space,
		capacity:  capacity,
		degree:    degree,
		features:  newFeatureRepository(capacity, space.DataSize()),
		neighbors: make([]uint32, capacity*degree),
		weights:   make([]float32, capacity*degree),
		labels:    make([]uint32, capacity),
		index:     make(map[uint32]uint32, capacity),
		vpool:     visited.NewPool(1, capacity),
	}, nil
}

// visitedPool returns the graph's per-process traversal scratchpad pool.
func (g *Graph) visitedPool() *visited.Pool { return g.vpool }

// SetLogger attaches a logger for invariant-violation reporting (spec §7:
// a library never aborts the process itself, so corruption is logged at
// ERROR severity and also returned as an *InvariantError for the caller
// to act on). A nil logger (the default) silently drops these reports.
func (g *Graph) SetLogger(logger *observability.Logger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logger = logger
}

// reportInvariant logs a detected corruption condition, if a logger is
// attached, and returns the corresponding *InvariantError.
func (g *Graph) reportInvariant(invariant, detail string) *InvariantError {
	err := newInvariantError(invariant, detail)
	if g.logger != nil {
		g.logger.WithFields(map[string]interface{}{
			"invariant": invariant,
			"detail":    detail,
		}).Error("invariant_violation")
	}
	return err
}

// SetMetrics attaches a Prometheus-backed metrics sink that Search and
// Explore report through. A nil metrics (the default) disables recording.
func (g *Graph) SetMetrics(metrics *observability.Metrics) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.metrics = metrics
}

// Capacity returns the maximum number of vertices the graph can hold.
func (g *Graph) Capacity() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.capacity
}

// Size returns the current number of vertices.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.size
}

// Degree returns d, the fixed number of neighbor slots per vertex.
func (g *Graph) Degree() int {
	return g.degree
}

// Space returns the distance space backing this graph.
func (g *Graph) Space() *Space {
	return g.space
}

// IndexOf returns the internal index for label, if present.
func (g *Graph) IndexOf(label uint32) (uint32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.index[label]
	return idx, ok
}

// LabelOf returns the external label stored at idx.
func (g *Graph) LabelOf(idx uint32) uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.labels[idx]
}

// FeatureOf returns a copy of the feature bytes stored at idx.
func (g *Graph) FeatureOf(idx uint32) []byte {
	g.mu.RLock()
	defer g.mu.RUnlock()
	src := g.features.at(idx)
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

// NeighborsOf returns a copy of the sorted neighbor-index row for idx.
func (g *Graph) NeighborsOf(idx uint32) []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	row := g.neighborRow(idx)
	out := make([]uint32, len(row))
	copy(out, row)
	return out
}

// WeightsOf returns a copy of the neighbor-weight row for idx, parallel to
// NeighborsOf's order.
func (g *Graph) WeightsOf(idx uint32) []float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	row := g.weightRow(idx)
	out := make([]float32, len(row))
	copy(out, row)
	return out
}

// neighborRow returns the live (mutable) neighbor-index slice for idx.
// Callers must hold g.mu.
func (g *Graph) neighborRow(idx uint32) []uint32 {
	off := int(idx) * g.degree
	return g.neighbors[off : off+g.degree]
}

// weightRow returns the live (mutable) weight slice for idx. Callers must
// hold g.mu.
func (g *Graph) weightRow(idx uint32) []float32 {
	off := int(idx) * g.degree
	return g.weights[off : off+g.degree]
}

// binarySearchRow finds v in a sorted neighbor row via binary search
// (spec §4.2: has_edge / edge_weight contract).
func binarySearchRow(row []uint32, v uint32) (int, bool) {
	i := sort.Search(len(row), func(i int) bool { return row[i] >= v })
	if i < len(row) && row[i] == v {
		return i, true
	}
	return i, false
}
