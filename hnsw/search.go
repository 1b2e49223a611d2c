package hnsw

import "container/heap"

// searchLayer runs beam search for entryPoints against query at the given
// layer, returning up to ef candidates ordered by ascending distance. dist
// computes the distance from query to the vector stored at a slot.
func (idx *Index) searchLayer(query []float32, entryPoints []uint32, ef int, layer int, dist func([]float32, uint32) float32) []candidate {
	visited := make(visitedSet, ef*2)
	candidates := newMinHeap()
	results := newMaxHeap()

	for _, ep := range entryPoints {
		if _, ok := visited[ep]; ok {
			continue
		}
		visited[ep] = struct{}{}
		d := dist(query, ep)
		heap.Push(candidates, candidate{slot: ep, dist: d})
		heap.Push(results, candidate{slot: ep, dist: d})
	}

	for candidates.Len() > 0 {
		nearest := (*candidates)[0]
		if results.Len() >= ef && nearest.dist > (*results)[0].dist {
			break
		}
		heap.Pop(candidates)

		idx.mu.RLock()
		n := idx.nodes[nearest.slot]
		idx.mu.RUnlock()
		if n == nil || layer >= len(n.neighbor) {
			continue
		}
		for _, nb := range n.neighbor[layer] {
			if _, ok := visited[nb]; ok {
				continue
			}
			visited[nb] = struct{}{}
			if idx.isTombstoned(nb) {
				continue
			}
			d := dist(query, nb)
			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(candidates, candidate{slot: nb, dist: d})
				heap.Push(results, candidate{slot: nb, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

// selectNeighbors implements the layer-preserving heuristic: starting from
// the candidate pool, repeatedly take the closest remaining candidate and
// admit it only if it is not closer to any already-admitted neighbor than to
// the inserted point.
func (idx *Index) selectNeighbors(candidates []candidate, m int, dist func(a, b uint32) float32) []uint32 {
	pool := append([]candidate(nil), candidates...)
	sortCandidatesAsc(pool)

	selected := make([]uint32, 0, m)
	for _, c := range pool {
		if len(selected) >= m {
			break
		}
		admit := true
		for _, s := range selected {
			if dist(c.slot, s) < c.dist {
				admit = false
				break
			}
		}
		if admit {
			selected = append(selected, c.slot)
		}
	}
	return selected
}

func sortCandidatesAsc(c []candidate) {
	// insertion sort: candidate pools here are bounded by ef, small enough
	// that this beats pulling in sort.Slice's reflection overhead.
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].dist < c[j-1].dist; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}
