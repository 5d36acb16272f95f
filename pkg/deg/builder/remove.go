package builder

import (
	"fmt"
	"math"
	"sort"
)

// reachSet is a shared, mutable set of vertex indices known to reach one
// another. Multiple involved vertices may point at the same *reachSet —
// merging two groups means repointing every member of one into the
// other's map, mirroring original_source's shared_ptr<robin_set<...>>
// aliasing without needing manual refcounting.
type reachSet struct {
	members map[uint32]bool
}

func newReachSet(seed uint32) *reachSet {
	return &reachSet{members: map[uint32]bool{seed: true}}
}

func (s *reachSet) add(v uint32) { s.members[v] = true }

// boostedEdge is a newly added reconnection edge, tracked so a follow-up
// improvement pass can be run over it once the removal itself is done
// (original_source's BoostedEdge / new_edges).
type boostedEdge struct {
	from, to uint32
	weight   float32
}

// shrinkGraph removes one queued vertex (spec §4.5.2). The removed
// vertex's neighbors each lose an edge; shrinkGraph reconnects whichever
// of them would otherwise become unreachable from the rest of their old
// neighborhood before committing the actual vertex removal.
func (b *Builder) shrinkGraph(task removeTask) error {
	g := b.graph

	idx, ok := g.IndexOf(task.label)
	if !ok {
		return fmt.Errorf("deg/builder: unknown label %d", task.label)
	}

	edgesPerVertex := g.Degree()
	if g.Size() < edgesPerVertex {
		edgesPerVertex = g.Size()
	}

	involved := append([]uint32(nil), g.NeighborsOf(idx)[:edgesPerVertex]...)

	// 1.1 disconnect the involved vertices from idx, leaving self-loops.
	for _, v := range involved {
		if err := g.ChangeEdge(v, idx, v, 0); err != nil {
			return fmt.Errorf("deg/builder: disconnect %d from removed vertex: %w", v, err)
		}
	}

	// 1.2 once the remaining graph is small enough that every involved
	// vertex is already fully connected to every other vertex, there's
	// nothing left to reconnect.
	if g.Size()-1 <= edgesPerVertex {
		if _, err := g.RemoveVertex(task.label); err != nil {
			return fmt.Errorf("deg/builder: remove vertex %d: %w", task.label, err)
		}
		return nil
	}

	involvedSorted := append([]uint32(nil), involved...)
	sort.Slice(involvedSorted, func(i, j int) bool { return involvedSorted[i] < involvedSorted[j] })
	isInvolved := func(v uint32) bool {
		i := sort.Search(len(involvedSorted), func(i int) bool { return involvedSorted[i] >= v })
		return i < len(involvedSorted) && involvedSorted[i] == v
	}

	reachability := make(map[uint32]*reachSet, len(involved))

	// 2.1 seed reachability from each involved vertex's own adjacent
	// involved neighbors.
	for _, v := range involved {
		set, ok := reachability[v]
		if !ok {
			set = newReachSet(v)
			reachability[v] = set
		}

		for _, n := range g.NeighborsOf(v) {
			if n == v || !isInvolved(n) || set.members[n] {
				continue
			}
			if other, ok := reachability[n]; !ok {
				set.add(n)
				reachability[n] = set
			} else if other != set {
				for m := range other.members {
					set.add(m)
					reachability[m] = set
				}
			}
		}
	}

	// 2.2 any involved vertex still alone in its set needs a path to some
	// other involved vertex via the rest of the graph.
	for _, v := range involved {
		set := reachability[v]
		if len(set.members) > 1 {
			continue
		}

		var from []uint32
		for _, other := range involved {
			if other != v {
				from = append(from, other)
			}
		}

		chain, found := g.HasPath(from, v, b.config.ImproveEps, b.config.ImproveK)
		if !found {
			chain, found = g.HasPath(from, v, math.Inf(1), g.Size())
		}
		if !found || len(chain) == 0 {
			continue // graph is disconnected beyond what removal can repair here
		}

		reachableIndex := chain[len(chain)-1].Vertex
		target := reachability[reachableIndex]
		target.add(v)
		reachability[v] = target
	}

	// 3.1 collect the unique groups.
	seen := make(map[*reachSet]bool)
	var groups []*reachSet
	for _, set := range reachability {
		if !seen[set] {
			seen[set] = true
			groups = append(groups, set)
		}
	}

	var newEdges []boostedEdge

	// 3.2 smallest-to-largest: connect every group to some other group
	// until all are mutually reachable.
	if len(groups) > 1 {
		sort.Slice(groups, func(i, j int) bool { return len(groups[i].members) < len(groups[j].members) })
		n := 1
		for gi := 0; gi < len(groups) && n < len(groups); gi++ {
			for reachableIndex := range groups[gi].members {
				if n >= len(groups) {
					break
				}
				if !g.HasEdge(reachableIndex, reachableIndex) {
					continue // already has a full edge set, not missing anything
				}
				for ; n < len(groups); n++ {
					connected := false
					for otherIndex := range groups[n].members {
						if g.HasEdge(otherIndex, otherIndex) {
							dist := g.Space().Distance(g.FeatureOf(reachableIndex), g.FeatureOf(otherIndex))
							g.ChangeEdge(reachableIndex, reachableIndex, otherIndex, dist)
							g.ChangeEdge(otherIndex, otherIndex, reachableIndex, dist)
							newEdges = append(newEdges, boostedEdge{otherIndex, reachableIndex, dist})
							connected = true
							n++
							break
						}
					}
					if connected {
						break
					}
				}
			}
		}
	}

	// 3.3 every group is now reachable from every other; connect the
	// remaining vertices still missing an edge to each other directly.
	var remaining []uint32
	for _, set := range groups {
		for v := range set.members {
			if g.HasEdge(v, v) {
				remaining = append(remaining, v)
			}
		}
	}

	for i := 0; i < len(remaining); i++ {
		a := remaining[i]
		if !g.HasEdge(a, a) {
			continue
		}
		featureA := g.FeatureOf(a)
		bestB := int64(-1)
		bestDist := float32(math.MaxFloat32)
		for j := i + 1; j < len(remaining); j++ {
			cand := remaining[j]
			if g.HasEdge(cand, cand) && !g.HasEdge(a, cand) {
				dist := g.Space().Distance(featureA, g.FeatureOf(cand))
				if dist < bestDist {
					bestDist = dist
					bestB = int64(cand)
				}
			}
		}
		if bestB >= 0 {
			g.ChangeEdge(a, a, uint32(bestB), bestDist)
			g.ChangeEdge(uint32(bestB), uint32(bestB), a, bestDist)
		}
	}

	// 3.4 whatever is left can't connect directly to another remaining
	// vertex (they already share an edge with all of them); route through
	// a neighbor-of-a-neighbor swap instead.
	for i := 0; i < len(remaining); i++ {
		a := remaining[i]
		if !g.HasEdge(a, a) {
			continue
		}
		b.connectViaNeighborSwap(a, remaining, i)
	}

	if _, err := g.RemoveVertex(task.label); err != nil {
		return fmt.Errorf("deg/builder: remove vertex %d: %w", task.label, err)
	}

	for _, e := range newEdges {
		if g.HasEdge(e.from, e.to) {
			b.improveEdges(e.from, e.to, e.weight)
		}
	}

	return nil
}

// connectViaNeighborSwap handles remaining vertices that already share an
// edge with every other vertex still missing one: it picks B, the vertex
// nearest to A among the neighbors of A's neighbors that is not yet
// adjacent to A, and a neighbor D of B, then replaces edge B-D with A-B
// and C-D for some other remaining vertex C (original_source step 3.4).
func (b *Builder) connectViaNeighborSwap(a uint32, remaining []uint32, startIdx int) {
	g := b.graph
	edgesPerVertex := g.Degree()
	featureA := g.FeatureOf(a)

	var bestB uint32
	bestDistAB := float32(math.MaxFloat32)
	found := false

	neighborsA := g.NeighborsOf(a)
	for n := 0; n < edgesPerVertex && n < len(neighborsA); n++ {
		potentials := g.NeighborsOf(neighborsA[n])
		for p := 0; p < edgesPerVertex && p < len(potentials); p++ {
			cand := potentials[p]
			if cand != a && !g.HasEdge(a, cand) {
				dist := g.Space().Distance(featureA, g.FeatureOf(cand))
				if dist < bestDistAB {
					bestDistAB = dist
					bestB = cand
					found = true
				}
			}
		}
	}
	if !found {
		return
	}

	for j := startIdx + 1; j < len(remaining); j++ {
		c := remaining[j]
		if !g.HasEdge(c, c) {
			continue
		}
		featureC := g.FeatureOf(c)

		var bestD uint32
		bestDistCD := float32(math.MaxFloat32)
		foundD := false
		neighborsB := g.NeighborsOf(bestB)
		for n := 0; n < edgesPerVertex && n < len(neighborsB); n++ {
			d := neighborsB[n]
			if a != d && bestB != d && !g.HasEdge(c, d) {
				dist := g.Space().Distance(featureC, g.FeatureOf(d))
				if dist < bestDistCD {
					bestDistCD = dist
					bestD = d
					foundD = true
				}
			}
		}
		if !foundD {
			continue
		}

		g.ChangeEdge(bestB, bestD, a, bestDistAB)
		g.ChangeEdge(a, a, bestB, bestDistAB)
		g.ChangeEdge(bestD, bestB, c, bestDistCD)
		g.ChangeEdge(c, c, bestD, bestDistCD)
		return
	}
}
