package deg

import (
	"container/heap"
	"fmt"
	"math"
	"time"

	"github.com/deglib-go/deg/pkg/deg/internal/visited"
)

// vertexSource is the read surface both Graph and ReadOnlyGraph expose to
// the search engine, letting Search/Explore/hasPath run unchanged over
// either store (spec §4.3: the read-only graph "supports all read-only
// operations with the same semantics").
type vertexSource interface {
	Size() int
	Degree() int
	Space() *Space
	FeatureOf(idx uint32) []byte
	NeighborsOf(idx uint32) []uint32
	LabelOf(idx uint32) uint32
	visitedPool() *visited.Pool
}

// Result is one hit from a search or explore call.
type Result struct {
	Label    uint32
	Distance float32
}

// SearchResult holds the outcome of a k-NN search. Results is ordered
// worst-to-best, as spec §4.4.1 specifies ("for the caller to drain").
type SearchResult struct {
	Results   []Result
	Truncated bool // true if max_distance_computations cut the search short
}

const (
	filterLinearScanMaxVertices = 1000
	filterLinearScanMaxLabels   = 10000
	filterLinearScanMinRatio    = 0.10
)

// relaxRadius applies the spec's epsilon relaxation: radius*(1+eps), or
// radius*(1-eps) when radius is negative (covers inner-product distances).
func relaxRadius(radius float32, eps float64) float32 {
	if math.IsInf(float64(radius), 1) {
		return radius
	}
	if radius < 0 {
		return radius * float32(1-eps)
	}
	return radius * float32(1+eps)
}

// Search performs best-first k-NN traversal from one or more entry
// vertices (spec §4.4.1). eps is the exploration slack, k the result
// count, filter an optional label admission test, and budget (0 =
// unlimited) an optional cap on distance computations.
func (g *Graph) Search(entries []uint32, query []byte, eps float64, k int, filter *Filter, budget int) (*SearchResult, error) {
	g.mu.RLock()
	metrics := g.metrics
	g.mu.RUnlock()

	if metrics == nil {
		return search(g, entries, query, eps, k, filter, budget)
	}

	start := time.Now()
	result, err := search(g, entries, query, eps, k, filter, budget)
	if err == nil {
		metrics.RecordSearch(time.Since(start), len(result.Results), result.Truncated)
	}
	return result, err
}

// Search is the read-only graph's equivalent of Graph.Search.
func (r *ReadOnlyGraph) Search(entries []uint32, query []byte, eps float64, k int, filter *Filter, budget int) (*SearchResult, error) {
	return search(r, entries, query, eps, k, filter, budget)
}

func search(vs vertexSource, entries []uint32, query []byte, eps float64, k int, filter *Filter, budget int) (*SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("deg: k must be positive, got %d", k)
	}
	if len(query) != vs.Space().DataSize() {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrDimensionMismatch, vs.Space().DataSize(), len(query))
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("deg: search requires at least one entry vertex")
	}

	if filter != nil && shouldLinearScan(vs.Size(), filter) {
		return linearScanSearch(vs, query, k, filter), nil
	}

	handle := vs.visitedPool().Get()
	defer handle.Release()
	vlist := handle.List()

	frontier := &candidateMinHeap{}
	results := &candidateMaxHeap{}

	computations := 0
	space := vs.Space()

	// computeDist returns the distance and whether the budget was just
	// exhausted by this computation (spec §4.4.1 step 6).
	computeDist := func(idx uint32) (float32, bool) {
		d := space.Distance(query, vs.FeatureOf(idx))
		computations++
		return d, budget > 0 && computations >= budget
	}

	admit := func(idx uint32, dist float32) {
		if filter != nil && !filter.IsValid(vs.LabelOf(idx)) {
			return
		}
		heap.Push(results, searchCandidate{idx, dist})
		if results.Len() > k {
			heap.Pop(results)
		}
	}

	for _, e := range entries {
		if vlist.Visited(e) {
			continue
		}
		vlist.Visit(e)
		dist, hitBudget := computeDist(e)
		heap.Push(frontier, searchCandidate{e, dist})
		admit(e, dist)
		if hitBudget {
			return &SearchResult{Results: drainWorstToBest(vs, results), Truncated: true}, nil
		}
	}

	for frontier.Len() > 0 {
		radius := float32(math.Inf(1))
		if results.Len() == k {
			top, _ := results.Peek()
			radius = top.distance
		}
		explorationRadius := relaxRadius(radius, eps)

		cur := heap.Pop(frontier).(searchCandidate)
		if cur.distance > explorationRadius {
			break
		}

		for _, n := range vs.NeighborsOf(cur.index) {
			if n == cur.index || vlist.Visited(n) {
				continue
			}
			vlist.Visit(n)

			dist, hitBudget := computeDist(n)
			if dist <= explorationRadius {
				heap.Push(frontier, searchCandidate{n, dist})
			}
			if dist < radius {
				admit(n, dist)
				if results.Len() == k {
					top, _ := results.Peek()
					radius = top.distance
					explorationRadius = relaxRadius(radius, eps)
				}
			}
			if hitBudget {
				return &SearchResult{Results: drainWorstToBest(vs, results), Truncated: true}, nil
			}
		}
	}

	return &SearchResult{Results: drainWorstToBest(vs, results)}, nil
}

// drainWorstToBest pops a max-heap of results into a slice; popping a
// max-heap yields descending distance order, i.e. worst-to-best, exactly
// the contract spec §4.4.1 asks for.
func drainWorstToBest(vs vertexSource, results *candidateMaxHeap) []Result {
	out := make([]Result, results.Len())
	for i := range out {
		c := heap.Pop(results).(searchCandidate)
		out[i] = Result{Label: vs.LabelOf(c.index), Distance: c.distance}
	}
	return out
}

// shouldLinearScan implements the filter shortcut of spec §4.4.1: below
// 1000 vertices, below 10000 passing labels, or below a 10% inclusion
// ratio, a linear scan over valid labels beats graph traversal.
func shouldLinearScan(size int, filter *Filter) bool {
	if size < filterLinearScanMaxVertices {
		return true
	}
	if filter.Size() < filterLinearScanMaxLabels {
		return true
	}
	return filter.InclusionRate() < filterLinearScanMinRatio
}

func linearScanSearch(vs vertexSource, query []byte, k int, filter *Filter) *SearchResult {
	results := &candidateMaxHeap{}
	space := vs.Space()

	for idx := 0; idx < vs.Size(); idx++ {
		i := uint32(idx)
		if !filter.IsValid(vs.LabelOf(i)) {
			continue
		}
		dist := space.Distance(query, vs.FeatureOf(i))
		heap.Push(results, searchCandidate{i, dist})
		if results.Len() > k {
			heap.Pop(results)
		}
	}

	return &SearchResult{Results: drainWorstToBest(vs, results)}
}
