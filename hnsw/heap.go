package hnsw

import "container/heap"

// candidate pairs a slot with its distance to the current query/insertion
// point.
type candidate struct {
	slot uint32
	dist float32
}

// minHeap pops the closest candidate first; used as the search frontier.
type minHeap []candidate

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// maxHeap pops the farthest candidate first; used to bound the result set
// to a working-set size by evicting the worst member.
type maxHeap []candidate

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func newMinHeap() *minHeap { h := minHeap{}; heap.Init(&h); return &h }
func newMaxHeap() *maxHeap { h := maxHeap{}; heap.Init(&h); return &h }

// visitedSet tracks slots already considered during one search; each
// searchLayer call allocates its own.
type visitedSet map[uint32]struct{}
