package builder

import "github.com/deglib-go/deg/pkg/deg"

// improveEdgesRandom picks a random vertex, fixes any of its edges that
// violate the RNG rule, then retries an improvement on its single worst
// edge (original_source's parameterless improveEdges, spec §4.5.3's
// "random maintenance sweep").
func (b *Builder) improveEdgesRandom() bool {
	g := b.graph
	edgesPerVertex := g.Degree()

	vertex1 := uint32(b.rng.Intn(g.Size()))
	neighbors := g.NeighborsOf(vertex1)
	weights := g.WeightsOf(vertex1)

	for i := 0; i < edgesPerVertex && i < len(neighbors); i++ {
		if !deg.CheckRNG(g, edgesPerVertex, vertex1, neighbors[i], weights[i]) {
			b.improveEdges(vertex1, neighbors[i], weights[i])
		}
	}

	badIndex := uint32(0)
	badWeight := float32(-1)
	for i, w := range weights {
		if w > badWeight {
			badWeight = w
			badIndex = neighbors[i]
		}
	}
	if badWeight < 0 {
		return false
	}
	return b.improveEdges(vertex1, badIndex, badWeight)
}

// improveEdges tries to improve the single edge between vertex1 and
// vertex2 by temporarily removing it (replacing both ends with
// self-loops) and searching for a sequence of swaps that reconnects the
// graph at lower total distortion (original_source's two-argument
// improveEdges, spec §4.5.3). Rolls back every recorded change if no
// improving sequence is found.
func (b *Builder) improveEdges(vertex1, vertex2 uint32, dist12 float32) bool {
	g := b.graph
	var changes []change

	record := func(v, from uint32, fromWeight float32, to uint32, toWeight float32) {
		changes = append(changes, change{v, from, fromWeight, to, toWeight})
	}

	g.ChangeEdge(vertex2, vertex1, vertex2, 0)
	record(vertex2, vertex1, dist12, vertex2, 0)
	g.ChangeEdge(vertex1, vertex2, vertex1, 0)
	record(vertex1, vertex2, dist12, vertex1, 0)

	if !b.improveEdgesStep(&changes, vertex1, vertex2, vertex1, vertex1, dist12, 0) {
		for i := len(changes) - 1; i >= 0; i-- {
			c := changes[i]
			g.ChangeEdge(c.vertex, c.toNeighbor, c.fromNeighbor, c.fromWeight)
		}
		return false
	}
	return true
}

// improveEdgesStep is the recursive swap search (original_source's
// vertex1/vertex2/vertex3/vertex4 improveEdges overload). vertex1/vertex2
// are the two endpoints that lost their edge; vertex3/vertex4 anchor the
// subgraph being searched for a reconnection. totalGain tracks the
// cumulative distance improvement of the swap sequence so far; the
// recursion stops once it goes negative, once a reconnection is found,
// or once steps reaches MaxPathLength.
func (b *Builder) improveEdgesStep(changes *[]change, vertex1, vertex2, vertex3, vertex4 uint32, totalGain float32, steps int) bool {
	g := b.graph
	edgesPerVertex := g.Degree()

	record := func(v, from uint32, fromWeight float32, to uint32, toWeight float32) {
		*changes = append(*changes, change{v, from, fromWeight, to, toWeight})
	}

	// 1. Find an edge for vertex2 that reconnects to the vertex3/vertex4
	// subgraph: search from {vertex3, vertex4}, so every hit already lives
	// in that subgraph.
	{
		feature2 := g.FeatureOf(vertex2)
		result, err := g.Search([]uint32{vertex3, vertex4}, feature2, b.config.ImproveEps, b.config.ImproveK, nil, 0)
		if err != nil {
			return false
		}

		bestGain := totalGain
		dist23 := float32(-1)
		var dist34 float32
		newVertex3, newVertex4 := vertex3, vertex4

		// Descending order: prefer the worst swap combination with the best
		// gain, matching original_source's rationale — ties go to the
		// choice that leaves bad edges behind for later passes to fix.
		// Results is ordered worst-to-best, so walk it from the front.
		for i := 0; i < len(result.Results); i++ {
			r := result.Results[i]
			candidate3, ok := g.IndexOf(r.Label)
			if !ok || vertex1 == candidate3 || vertex2 == candidate3 || g.HasEdge(vertex2, candidate3) {
				continue
			}

			neighbors := g.NeighborsOf(candidate3)
			weights := g.WeightsOf(candidate3)
			for e := 0; e < edgesPerVertex && e < len(neighbors); e++ {
				candidate4 := neighbors[e]
				gain := totalGain - r.Distance + weights[e]
				if candidate4 != vertex2 && bestGain < gain {
					bestGain = gain
					newVertex3 = candidate3
					newVertex4 = candidate4
					dist23 = r.Distance
					dist34 = weights[e]
				}
			}
		}

		if dist23 == -1 {
			return false
		}
		vertex3, vertex4 = newVertex3, newVertex4
		totalGain = (totalGain - dist23) + dist34

		g.ChangeEdge(vertex2, vertex2, vertex3, dist23)
		record(vertex2, vertex2, 0, vertex3, dist23)

		g.ChangeEdge(vertex3, vertex4, vertex2, dist23)
		record(vertex3, vertex4, dist34, vertex2, dist23)
		g.ChangeEdge(vertex4, vertex3, vertex4, 0)
		record(vertex4, vertex3, dist34, vertex4, 0)
	}

	// 2. Try to connect vertex1 with vertex4.
	space := g.Space()
	if vertex1 == vertex4 {
		if b.tryConnectSelfCase(changes, vertex1, vertex2, vertex3, totalGain) {
			return true
		}
	} else if !g.HasEdge(vertex1, vertex4) {
		dist14 := space.Distance(g.FeatureOf(vertex1), g.FeatureOf(vertex4))
		if totalGain-dist14 > 0 {
			_, path1 := g.HasPath([]uint32{vertex2, vertex3}, vertex1, b.config.ImproveEps, b.config.ImproveK)
			_, path4 := g.HasPath([]uint32{vertex2, vertex3}, vertex4, b.config.ImproveEps, b.config.ImproveK)
			if path1 || path4 {
				g.ChangeEdge(vertex1, vertex1, vertex4, dist14)
				record(vertex1, vertex1, 0, vertex4, dist14)
				g.ChangeEdge(vertex4, vertex4, vertex1, dist14)
				record(vertex4, vertex4, 0, vertex1, dist14)
				return true
			}
		}
	}

	// 3. Bound the recursion depth.
	if steps >= b.config.MaxPathLength {
		return false
	}

	// 4. Swap vertex1 and vertex4 every other round so each gets a fair
	// chance at being the one searched from.
	if steps%2 == 1 {
		vertex1, vertex4 = vertex4, vertex1
	}

	// 5. Early stop once the sequence is no longer beneficial.
	if totalGain < 0 {
		return false
	}

	return b.improveEdgesStep(changes, vertex1, vertex4, vertex2, vertex3, totalGain, steps+1)
}

// tryConnectSelfCase handles the rare case where vertex1 == vertex4: both
// ends are missing an edge, so instead of connecting two known vertices
// it searches for an entirely new pair to absorb both self-loops
// (original_source's 2.1a branch).
func (b *Builder) tryConnectSelfCase(changes *[]change, vertex1, vertex2, vertex3 uint32, totalGain float32) bool {
	g := b.graph
	edgesPerVertex := g.Degree()
	space := g.Space()
	vertex4 := vertex1

	feature4 := g.FeatureOf(vertex4)
	result, err := g.Search([]uint32{vertex2, vertex3}, feature4, b.config.ImproveEps, b.config.ImproveK, nil, 0)
	if err != nil {
		return false
	}

	bestGain := float32(0)
	var bestNeighbor, bestGoodVertex uint32
	var bestOldDist, bestNewDist, bestGoodDist float32
	found := false

	for _, r := range result.Results {
		goodVertex, ok := g.IndexOf(r.Label)
		if !ok || vertex4 == goodVertex || g.HasEdge(vertex4, goodVertex) {
			continue
		}
		goodDist := r.Distance

		neighbors := g.NeighborsOf(goodVertex)
		weights := g.WeightsOf(goodVertex)
		for i := 0; i < edgesPerVertex && i < len(neighbors); i++ {
			selected := neighbors[i]
			if vertex4 == selected || g.HasEdge(vertex4, selected) {
				continue
			}
			oldDist := weights[i]
			newDist := space.Distance(feature4, g.FeatureOf(selected))
			gain := (totalGain + oldDist) - (goodDist + newDist)
			if bestGain < gain {
				bestGain = gain
				bestNeighbor = selected
				bestOldDist = oldDist
				bestNewDist = newDist
				bestGoodVertex = goodVertex
				bestGoodDist = goodDist
				found = true
			}
		}
	}

	if !found || bestGain <= 0 {
		return false
	}

	record := func(v, from uint32, fromWeight float32, to uint32, toWeight float32) {
		*changes = append(*changes, change{v, from, fromWeight, to, toWeight})
	}

	g.ChangeEdge(vertex4, vertex4, bestGoodVertex, bestGoodDist)
	record(vertex4, vertex4, 0, bestGoodVertex, bestGoodDist)
	g.ChangeEdge(vertex4, vertex4, bestNeighbor, bestNewDist)
	record(vertex4, vertex4, 0, bestNeighbor, bestNewDist)
	g.ChangeEdge(bestGoodVertex, bestNeighbor, vertex4, bestGoodDist)
	record(bestGoodVertex, bestNeighbor, bestOldDist, vertex4, bestGoodDist)
	g.ChangeEdge(bestNeighbor, bestGoodVertex, vertex4, bestNewDist)
	record(bestNeighbor, bestGoodVertex, bestOldDist, vertex4, bestNewDist)

	return true
}
