package deg

import (
	"container/heap"
	"math"
)

// PathStep is one hop in the trace-back chain hasPath returns: the chain
// runs from the target vertex back to whichever entry vertex discovered
// it, each step carrying the distance computed when it was first visited.
type PathStep struct {
	Vertex   uint32
	Distance float32
}

// discovery records how a vertex first entered a hasPath traversal: the
// distance it was found at, and (if it wasn't a traversal entry) the
// predecessor that discovered it.
type discovery struct {
	distance float32
	pred     uint32
	hasPred  bool
}

// HasPath reports whether target is reachable from entries within the
// traversal's exploration radius, returning the predecessor chain from
// target back to the entry that discovered it (spec §4.4.2). Used by the
// builder to check whether a vertex about to lose its only edge to some
// involved vertex remains reachable through the rest of the graph.
func (g *Graph) HasPath(entries []uint32, target uint32, eps float64, k int) ([]PathStep, bool) {
	return hasPath(g, entries, target, eps, k)
}

// hasPath is the connectivity-check variant of Search (spec §4.4.2): same
// best-first traversal, but the "filter" is a single target vertex and
// the query is the target's own feature (steering the search toward it).
// Discovery short-circuits the traversal and returns the predecessor chain
// from target to the entry that found it. Written against vertexSource,
// so it accepts a *Graph or a *ReadOnlyGraph; Graph.HasPath is its only
// exported entry point.
func hasPath(vs vertexSource, entries []uint32, target uint32, eps float64, k int) ([]PathStep, bool) {
	handle := vs.visitedPool().Get()
	defer handle.Release()
	vlist := handle.List()

	info := make(map[uint32]discovery, k*4)

	frontier := &candidateMinHeap{}
	results := &candidateMaxHeap{}

	query := vs.FeatureOf(target)
	space := vs.Space()

	for _, e := range entries {
		if vlist.Visited(e) {
			continue
		}
		vlist.Visit(e)
		dist := space.Distance(query, vs.FeatureOf(e))
		info[e] = discovery{distance: dist}
		heap.Push(frontier, searchCandidate{e, dist})
		heap.Push(results, searchCandidate{e, dist})
		if e == target {
			return buildChain(info, target), true
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

			dist := space.Distance(query, vs.FeatureOf(n))
			info[n] = discovery{distance: dist, pred: cur.index, hasPred: true}

			if n == target {
				return buildChain(info, target), true
			}

			if dist <= explorationRadius {
				heap.Push(frontier, searchCandidate{n, dist})
			}
			if dist < radius {
				heap.Push(results, searchCandidate{n, dist})
				if results.Len() > k {
					heap.Pop(results)
				}
				if results.Len() == k {
					top, _ := results.Peek()
					radius = top.distance
					explorationRadius = relaxRadius(radius, eps)
				}
			}
		}
	}

	return nil, false
}

func buildChain(info map[uint32]discovery, target uint32) []PathStep {
	var chain []PathStep
	cur := target
	for {
		n := info[cur]
		chain = append(chain, PathStep{Vertex: cur, Distance: n.distance})
		if !n.hasPred {
			return chain
		}
		cur = n.pred
	}
}
