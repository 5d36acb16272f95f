package deg

// searchCandidate is one entry in a traversal's priority queues: an
// internal vertex index paired with its distance to the current query.
// Grounded on the teacher's heapItem/minHeap/maxHeap trio in
// pkg/hnsw/insert.go, renamed for this domain and reused across k-NN
// search, explore, and path search.
type searchCandidate struct {
	index    uint32
	distance float32
}

// candidateMinHeap keeps the smallest distance at the top; used for the
// search frontier (spec §4.4.1 step 3: "pop the minimum-distance entry").
type candidateMinHeap []searchCandidate

func (h candidateMinHeap) Len() int            { return len(h) }
func (h candidateMinHeap) Less(i, j int) bool  { return h[i].distance < h[j].distance }
func (h candidateMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateMinHeap) Push(x interface{}) { *h = append(*h, x.(searchCandidate)) }
func (h *candidateMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// candidateMaxHeap keeps the largest distance at the top; used as the
// size-bounded results set, so the worst result can be evicted in O(log k)
// when a better candidate is admitted (spec §4.4.1 step 5).
type candidateMaxHeap []searchCandidate

func (h candidateMaxHeap) Len() int            { return len(h) }
func (h candidateMaxHeap) Less(i, j int) bool  { return h[i].distance > h[j].distance }
func (h candidateMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateMaxHeap) Push(x interface{}) { *h = append(*h, x.(searchCandidate)) }
func (h *candidateMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func (h candidateMaxHeap) Peek() (searchCandidate, bool) {
	if len(h) == 0 {
		return searchCandidate{}, false
	}
	return h[0], true
}
