package deg

import "fmt"

// AddVertex appends a new vertex at index size(), initializing all Degree()
// neighbor slots to self-loops of weight 0 (spec §3, §4.2). Fails if label
// already exists or the graph is at capacity.
func (g *Graph) AddVertex(label uint32, feature []byte) (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(feature) != g.space.DataSize() {
		return 0, fmt.Errorf("%w: want %d bytes, got %d", ErrDimensionMismatch, g.space.DataSize(), len(feature))
	}
	if _, exists := g.index[label]; exists {
		return 0, fmt.Errorf("%w: label %d", ErrDuplicateLabel, label)
	}
	if g.size >= g.capacity {
		return 0, fmt.Errorf("%w: capacity %d", ErrGraphFull, g.capacity)
	}

	idx := uint32(g.size)
	g.features.set(idx, feature)

	row := g.neighborRow(idx)
	wrow := g.weightRow(idx)
	for i := range row {
		row[i] = idx
		wrow[i] = 0
	}

	g.labels[idx] = label
	g.index[label] = idx
	g.size++
	return idx, nil
}

// RemoveVertex deletes the vertex identified by label and returns its
// neighbor list (as internal indices, captured before any rewiring) for
// the builder to use (spec §4.2). Performs swap-with-last: the
// highest-indexed vertex moves into the freed slot and every back-reference
// to the old highest index is rewritten to the freed slot, preserving each
// affected row's sort order (I1). If some vertex lacks its back-reference
// to the highest-indexed vertex (I2 already broken), that row is left as
// is, the removal still completes, and the logged *InvariantError is
// returned together with the old neighbor list.
func (g *Graph) RemoveVertex(label uint32) ([]uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx, ok := g.index[label]
	if !ok {
		return nil, fmt.Errorf("%w: label %d", ErrUnknownLabel, label)
	}

	old := make([]uint32, g.degree)
	copy(old, g.neighborRow(idx))

	var invErr error
	last := uint32(g.size - 1)
	if idx != last {
		lastRow := g.neighborRow(last)
		for _, n := range lastRow {
			if n == last {
				continue // vacant slot, nothing points here
			}
			if _, found := binarySearchRow(g.neighborRow(n), last); !found {
				// last claims n as a neighbor but n has no back-reference to
				// last: the graph's symmetry invariant (I2) is already
				// broken, independent of this removal.
				invErr = g.reportInvariant("I2", fmt.Sprintf("vertex %d missing back-reference to %d", n, last))
				continue
			}
			renumberInSortedRow(g.neighborRow(n), g.weightRow(n), last, idx)
		}

		copy(g.neighborRow(idx), g.neighborRow(last))
		copy(g.weightRow(idx), g.weightRow(last))
		g.features.set(idx, g.features.at(last))

		lastLabel := g.labels[last]
		g.labels[idx] = lastLabel
		g.index[lastLabel] = idx
	}

	delete(g.index, label)
	g.size--
	return old, invErr
}

// ChangeEdge replaces from with to (at the given weight) in v's neighbor
// row, preserving ascending order (spec §4.2). It does not touch the other
// endpoint — callers must mirror the change themselves. Fails if from is
// not present in v's row.
func (g *Graph) ChangeEdge(v, from, to uint32, weight float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	row := g.neighborRow(v)
	wrow := g.weightRow(v)
	pos, found := binarySearchRow(row, from)
	if !found {
		return fmt.Errorf("%w: vertex %d, neighbor %d", ErrEdgeNotFound, v, from)
	}

	shiftOutInsertSorted(row, wrow, pos, to, weight)
	return nil
}

// ChangeEdges bulk-replaces v's entire neighbor/weight row. The caller
// guarantees nbrs is sorted ascending and free of duplicates.
func (g *Graph) ChangeEdges(v uint32, nbrs []uint32, weights []float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(nbrs) != g.degree || len(weights) != g.degree {
		return fmt.Errorf("deg: ChangeEdges expects %d neighbors, got %d nbrs/%d weights", g.degree, len(nbrs), len(weights))
	}
	copy(g.neighborRow(v), nbrs)
	copy(g.weightRow(v), weights)
	return nil
}

// HasEdge reports whether u and v are directly connected.
func (g *Graph) HasEdge(u, v uint32) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, found := binarySearchRow(g.neighborRow(u), v)
	return found
}

// EdgeWeight returns the stored weight of (u, v), or -1 if absent.
func (g *Graph) EdgeWeight(u, v uint32) float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	row := g.neighborRow(u)
	pos, found := binarySearchRow(row, v)
	if !found {
		return -1
	}
	return g.weightRow(u)[pos]
}

// renumberInSortedRow finds the entry equal to from and renames it to to,
// re-threading it to the correct position to keep the row sorted. Used by
// RemoveVertex to rewrite every back-reference to a moved vertex.
func renumberInSortedRow(row []uint32, wrow []float32, from, to uint32) {
	pos, found := binarySearchRow(row, from)
	if !found {
		return
	}
	w := wrow[pos]
	shiftOutInsertSorted(row, wrow, pos, to, w)
}

// shiftOutInsertSorted removes the entry at pos and re-inserts (to, weight)
// at the position that keeps the row sorted ascending. Both row and wrow
// have fixed length d; the vacated slot from the left-shift is reused by
// the right-shift that makes room for the insertion.
func shiftOutInsertSorted(row []uint32, wrow []float32, pos int, to uint32, weight float32) {
	copy(row[pos:], row[pos+1:])
	copy(wrow[pos:], wrow[pos+1:])

	last := len(row) - 1
	insertAt := last
	for insertAt > 0 && row[insertAt-1] > to {
		row[insertAt] = row[insertAt-1]
		wrow[insertAt] = wrow[insertAt-1]
		insertAt--
	}
	row[insertAt] = to
	wrow[insertAt] = weight
}
