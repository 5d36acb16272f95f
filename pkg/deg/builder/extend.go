package builder

import (
	"fmt"
	"sort"

	"github.com/deglib-go/deg/pkg/deg"
)

// extendGraph adds one queued vertex to the graph (spec §4.5.1). Below
// edgesPerVertex+1 vertices the graph isn't yet big enough to pick real
// neighbors, so every existing vertex gets connected to the new one
// directly (original_source's "fully connect" bootstrap path). Otherwise
// a candidate search seeds RNG-checked, then unrestricted, neighbor
// selection until the new vertex has exactly Degree() edges.
func (b *Builder) extendGraph(task addTask) error {
	g := b.graph
	if _, exists := g.IndexOf(task.label); exists {
		return fmt.Errorf("deg/builder: vertex with label %d already present", task.label)
	}

	edgesPerVertex := g.Degree()
	if g.Size() < edgesPerVertex+1 {
		return b.fullyConnect(task)
	}
	return b.connectViaSearch(task, edgesPerVertex)
}

func (b *Builder) fullyConnect(task addTask) error {
	g := b.graph
	idx, err := g.AddVertex(task.label, task.feature)
	if err != nil {
		return err
	}

	space := g.Space()
	for i := uint32(0); i < uint32(g.Size()); i++ {
		if i == idx {
			continue
		}
		dist := space.Distance(task.feature, g.FeatureOf(i))
		if err := g.ChangeEdge(i, i, idx, dist); err != nil {
			return fmt.Errorf("deg/builder: fully-connect %d<-%d: %w", i, idx, err)
		}
		if err := g.ChangeEdge(idx, idx, i, dist); err != nil {
			return fmt.Errorf("deg/builder: fully-connect %d<-%d: %w", idx, i, err)
		}
	}
	return nil
}

type scoredNeighbor struct {
	index uint32
	dist  float32
}

func (b *Builder) connectViaSearch(task addTask, edgesPerVertex int) error {
	g := b.graph

	entry := uint32(b.rng.Intn(g.Size()))
	k := edgesPerVertex
	if b.config.ExtendK > k {
		k = b.config.ExtendK
	}
	result, err := g.Search([]uint32{entry}, task.feature, b.config.ExtendEps, k, nil, 0)
	if err != nil {
		return fmt.Errorf("deg/builder: candidate search for new vertex: %w", err)
	}
	if len(result.Results) < edgesPerVertex {
		return fmt.Errorf("deg/builder: candidate search returned only %d results, need %d", len(result.Results), edgesPerVertex)
	}

	candidates := make([]scoredNeighbor, len(result.Results))
	for i, r := range result.Results {
		idx, _ := g.IndexOf(r.Label)
		candidates[i] = scoredNeighbor{index: idx, dist: r.Distance}
	}

	idx, err := g.AddVertex(task.label, task.feature)
	if err != nil {
		return err
	}

	space := g.Space()
	var newNeighbors []scoredNeighbor

	// Two phases: first try to keep the graph RNG-conforming, then accept
	// any candidate once the conforming pool is exhausted (original
	// source's check_rng_phase 1 -> 2).
	for phase := 1; len(newNeighbors) < edgesPerVertex; phase++ {
		progressed := false
		for _, cand := range candidates {
			if len(newNeighbors) >= edgesPerVertex {
				break
			}
			if g.HasEdge(cand.index, idx) {
				continue
			}
			if phase <= 1 && !deg.CheckRNG(g, edgesPerVertex, cand.index, idx, cand.dist) {
				continue
			}

			neighborIdx, neighborDist, ok := worstFreeNeighbor(g, cand.index, idx, space, task.feature)
			if !ok {
				continue
			}

			if edgesPerVertex-len(newNeighbors) == 1 {
				// Odd Degree(): one slot left and this phase only ever fills
				// two at a time, so take the last slot alone (spec §4.5.1
				// step 5: "a symmetric rule on the last slot"). cand still
				// connects to idx as usual, but the neighbor it displaces is
				// left vacant (the self-loop convention, spec §3) rather than
				// handed to idx too. No improvement pass looks for vacant
				// slots, so they leave that slot a self-loop.
				if err := g.ChangeEdge(cand.index, neighborIdx, idx, cand.dist); err != nil {
					return fmt.Errorf("deg/builder: connect candidate %d: %w", cand.index, err)
				}
				newNeighbors = append(newNeighbors, scoredNeighbor{cand.index, cand.dist})

				if err := g.ChangeEdge(neighborIdx, cand.index, neighborIdx, 0); err != nil {
					return fmt.Errorf("deg/builder: vacate displaced neighbor %d: %w", neighborIdx, err)
				}
				progressed = true
				break
			}

			if err := g.ChangeEdge(cand.index, neighborIdx, idx, cand.dist); err != nil {
				return fmt.Errorf("deg/builder: connect candidate %d: %w", cand.index, err)
			}
			newNeighbors = append(newNeighbors, scoredNeighbor{cand.index, cand.dist})

			if err := g.ChangeEdge(neighborIdx, cand.index, idx, neighborDist); err != nil {
				return fmt.Errorf("deg/builder: connect replaced neighbor %d: %w", neighborIdx, err)
			}
			newNeighbors = append(newNeighbors, scoredNeighbor{neighborIdx, neighborDist})
			progressed = true
		}
		if !progressed && phase > 1 {
			break
		}
	}

	if len(newNeighbors) < edgesPerVertex {
		return fmt.Errorf("deg/builder: found only %d good neighbors for vertex %d, need %d", len(newNeighbors), idx, edgesPerVertex)
	}

	sort.Slice(newNeighbors, func(i, j int) bool { return newNeighbors[i].index < newNeighbors[j].index })
	nbrs := make([]uint32, len(newNeighbors))
	weights := make([]float32, len(newNeighbors))
	for i, n := range newNeighbors {
		nbrs[i] = n.index
		weights[i] = n.dist
	}
	if err := g.ChangeEdges(idx, nbrs, weights); err != nil {
		return fmt.Errorf("deg/builder: store new vertex %d neighbor list: %w", idx, err)
	}

	b.improveNonPerfectNeighbors(idx, newNeighbors, result.Results, g)
	return nil
}

// worstFreeNeighbor finds, among candidate's current neighbors, the one
// with the heaviest edge that isn't already connected to idx — that edge
// gets displaced to make room for the new connection.
func worstFreeNeighbor(g *deg.Graph, candidate, idx uint32, space *deg.Space, newFeature []byte) (uint32, float32, bool) {
	neighbors := g.NeighborsOf(candidate)
	weights := g.WeightsOf(candidate)

	bestWeight := float32(-1)
	var bestIndex uint32
	for i, n := range neighbors {
		if g.HasEdge(n, idx) {
			continue
		}
		if weights[i] > bestWeight {
			bestWeight = weights[i]
			bestIndex = n
		}
	}
	if bestWeight == -1 {
		return 0, 0, false
	}
	dist := space.Distance(newFeature, g.FeatureOf(bestIndex))
	return bestIndex, dist, true
}

// improveNonPerfectNeighbors runs a swap-improvement pass over every
// other new edge that wasn't part of the original candidate search
// (original_source: "neighbor of a neighbor" additions), lightest edge
// first and skipping every other one to bound the extra work per insertion.
func (b *Builder) improveNonPerfectNeighbors(idx uint32, newNeighbors []scoredNeighbor, searchResults []deg.Result, g *deg.Graph) {
	perfect := make(map[uint32]bool, len(searchResults))
	for _, r := range searchResults {
		if i, ok := g.IndexOf(r.Label); ok {
			perfect[i] = true
		}
	}

	var nonPerfect []scoredNeighbor
	for _, n := range newNeighbors {
		if !perfect[n.index] && g.HasEdge(idx, n.index) {
			nonPerfect = append(nonPerfect, n)
		}
	}
	sort.Slice(nonPerfect, func(i, j int) bool { return nonPerfect[i].dist < nonPerfect[j].dist })

	for i, n := range nonPerfect {
		if g.HasEdge(idx, n.index) && i%2 == 0 {
			b.improveEdges(idx, n.index, n.dist)
		}
	}
}
