package deg

import (
	"fmt"
	"math"
)

// Explore enumerates a bounded neighborhood around entry by running the
// same best-first traversal as Search, but with the query fixed to the
// entry vertex's own feature (spec §4.4.3). eps is derived from
// log10(budget/k) — a heuristic the source carries without justification;
// the spec preserves it as-is and only requires bounded-depth behavior,
// not a specific recall curve. budget must be strictly positive.
func (g *Graph) Explore(entry uint32, k, budget int) (*SearchResult, error) {
	g.mu.RLock()
	metrics := g.metrics
	g.mu.RUnlock()

	result, err := explore(g, entry, k, budget)
	if err == nil && metrics != nil {
		metrics.RecordExplore()
	}
	return result, err
}

// Explore is the read-only graph's equivalent of Graph.Explore.
func (r *ReadOnlyGraph) Explore(entry uint32, k, budget int) (*SearchResult, error) {
	return explore(r, entry, k, budget)
}

func explore(vs vertexSource, entry uint32, k, budget int) (*SearchResult, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("deg: explore requires a strictly positive max_distance_computations budget")
	}
	if k <= 0 {
		return nil, fmt.Errorf("deg: k must be positive, got %d", k)
	}
	eps := math.Log10(float64(budget) / float64(k))
	query := vs.FeatureOf(entry)
	return search(vs, []uint32{entry}, query, eps, k, nil, budget)
}
