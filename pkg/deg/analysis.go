package deg

// ValidityReport summarizes the structural invariants of a graph (spec
// §4.9, C9): sorted-row order, absence of duplicate or out-of-range
// neighbor indices, non-negative weights, and edge symmetry.
type ValidityReport struct {
	Valid           bool
	UnsortedRows    []uint32
	DuplicateEdges  []uint32
	OutOfRangeEdges []uint32
	NegativeWeights []uint32
	AsymmetricEdges int
}

// CheckRNG reports whether connecting vertexIndex to targetIndex at the
// given weight would conform to the Relative Neighborhood Graph rule: the
// edge is rejected if one of vertexIndex's current neighbors that is
// already connected to targetIndex is closer to both endpoints than they
// are to each other. Distances come from stored edge weights, so a
// neighbor with no edge to targetIndex is not checked (grounded on
// original_source's analysis.h checkRNG, spec §4.5.1's neighbor-selection
// criterion during the RNG-checked build phase).
func CheckRNG(g *Graph, edgesPerVertex int, vertexIndex, targetIndex uint32, vertexTargetWeight float32) bool {
	neighbors := g.NeighborsOf(vertexIndex)
	weights := g.WeightsOf(vertexIndex)
	for i := 0; i < edgesPerVertex && i < len(neighbors); i++ {
		neighborTargetWeight := g.EdgeWeight(neighbors[i], targetIndex)
		if neighborTargetWeight >= 0 && vertexTargetWeight > maxFloat32(weights[i], neighborTargetWeight) {
			return false
		}
	}
	return true
}

func maxFloat32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// CheckValidity walks every live vertex's neighbor row and verifies I1
// (ascending sort order, no duplicate neighbor indices within a row,
// self-loops aside), index range and non-negative weights, then counts
// edges that lack a back-reference (I2, undirectedness).
func (g *Graph) CheckValidity() ValidityReport {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var report ValidityReport
	report.Valid = true

	for idx := 0; idx < g.size; idx++ {
		row := g.neighborRow(uint32(idx))
		seen := make(map[uint32]bool, len(row))
		for i, n := range row {
			if int(n) >= g.size {
				report.OutOfRangeEdges = append(report.OutOfRangeEdges, uint32(idx))
				report.Valid = false
				continue
			}
			if n == uint32(idx) {
				continue // vacant self-loop slot, not a violation
			}
			if seen[n] {
				report.DuplicateEdges = append(report.DuplicateEdges, uint32(idx))
				report.Valid = false
			}
			seen[n] = true
			if i > 0 && row[i-1] != uint32(idx) && row[i-1] >= n {
				report.UnsortedRows = append(report.UnsortedRows, uint32(idx))
				report.Valid = false
			}
		}
	}

	for idx := 0; idx < g.size; idx++ {
		wrow := g.weightRow(uint32(idx))
		for _, w := range wrow {
			if w < 0 {
				report.NegativeWeights = append(report.NegativeWeights, uint32(idx))
				report.Valid = false
				break
			}
		}
	}

	report.AsymmetricEdges = g.countAsymmetricLocked()
	if report.AsymmetricEdges > 0 {
		report.Valid = false
	}

	return report
}

// countAsymmetricLocked counts directed edges u->v with no matching v->u,
// violating the graph's undirectedness invariant (spec §3). Callers must
// hold g.mu.
func (g *Graph) countAsymmetricLocked() int {
	count := 0
	for idx := 0; idx < g.size; idx++ {
		u := uint32(idx)
		for _, v := range g.neighborRow(u) {
			if v == u {
				continue
			}
			if _, ok := binarySearchRow(g.neighborRow(v), u); !ok {
				count++
			}
		}
	}
	return count
}

// CheckConnectivity runs a breadth-first traversal from vertex 0 and
// reports whether every live vertex is reachable (spec §4.9 P-CONN).
func (g *Graph) CheckConnectivity() (reachable int, total int, connected bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total = g.size
	if total == 0 {
		return 0, 0, true
	}

	seen := make([]bool, total)
	queue := make([]uint32, 0, total)
	queue = append(queue, 0)
	seen[0] = true

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		for _, n := range g.neighborRow(cur) {
			if n == cur || seen[n] {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}

	reachable = len(queue)
	return reachable, total, reachable == total
}

// CheckRegularity counts, per vertex, how many of its degree slots are
// occupied by a real edge rather than a vacant self-loop. A fully built
// graph should have every vertex at or near Degree().
func (g *Graph) CheckRegularity() []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	occupied := make([]int, g.size)
	for idx := 0; idx < g.size; idx++ {
		u := uint32(idx)
		n := 0
		for _, v := range g.neighborRow(u) {
			if v != u {
				n++
			}
		}
		occupied[idx] = n
	}
	return occupied
}

// CountNonRNGEdges reports how many edges violate the Relative
// Neighborhood Graph rule: an edge (u, v) is non-conforming if some third
// vertex w is closer to both u and v than they are to each other (spec
// §4.5.1's neighbor-selection criterion, checked here as a post-hoc
// diagnostic rather than enforced during selection).
func (g *Graph) CountNonRNGEdges() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	space := g.space
	count := 0
	for idx := 0; idx < g.size; idx++ {
		u := uint32(idx)
		uFeature := g.features.at(u)
		for _, v := range g.neighborRow(u) {
			if v == u || v < u {
				continue // count each undirected edge once
			}
			uv := space.Distance(uFeature, g.features.at(v))
			if nonRNGConforming(g, space, u, v, uv) {
				count++
			}
		}
	}
	return count
}

// nonRNGConforming reports whether some third live vertex w breaks the
// RNG rule for edge (u, v) with distance uv. Callers must hold g.mu.
func nonRNGConforming(g *Graph, space *Space, u, v uint32, uv float32) bool {
	uFeature := g.features.at(u)
	vFeature := g.features.at(v)
	for w := 0; w < g.size; w++ {
		ww := uint32(w)
		if ww == u || ww == v {
			continue
		}
		wFeature := g.features.at(ww)
		uw := space.Distance(uFeature, wFeature)
		vw := space.Distance(vFeature, wFeature)
		if uw < uv && vw < uv {
			return true
		}
	}
	return false
}

// AvgEdgeWeight returns the mean weight across all real (non-self-loop)
// edges, counting each undirected edge twice (once per endpoint) to match
// the raw weight array layout.
func (g *Graph) AvgEdgeWeight() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var sum float64
	var n int
	for idx := 0; idx < g.size; idx++ {
		u := uint32(idx)
		row := g.neighborRow(u)
		wrow := g.weightRow(u)
		for i, v := range row {
			if v == u {
				continue
			}
			sum += float64(wrow[i])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// EdgeWeightHistogram buckets real edge weights into numBuckets equal-width
// bins between 0 and the largest observed weight.
func (g *Graph) EdgeWeightHistogram(numBuckets int) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if numBuckets <= 0 {
		return nil
	}

	var maxWeight float32
	for idx := 0; idx < g.size; idx++ {
		u := uint32(idx)
		row := g.neighborRow(u)
		wrow := g.weightRow(u)
		for i, v := range row {
			if v == u {
				continue
			}
			if wrow[i] > maxWeight {
				maxWeight = wrow[i]
			}
		}
	}

	buckets := make([]int, numBuckets)
	if maxWeight == 0 {
		return buckets
	}

	width := maxWeight / float32(numBuckets)
	for idx := 0; idx < g.size; idx++ {
		u := uint32(idx)
		row := g.neighborRow(u)
		wrow := g.weightRow(u)
		for i, v := range row {
			if v == u {
				continue
			}
			b := int(wrow[i] / width)
			if b >= numBuckets {
				b = numBuckets - 1
			}
			buckets[b]++
		}
	}
	return buckets
}
