package hnsw

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/viant/sqlite-hnsw/kernel"
	"github.com/viant/sqlite-hnsw/options"
	"github.com/viant/sqlite-hnsw/space"
	"github.com/viant/sqlite-hnsw/vecerr"
	"github.com/viant/sqlite-hnsw/vector"
)

// Predicate filters a candidate label during knn. It is applied to the
// candidates the layer-0 beam search returns, after their distances are
// computed; the search does not consult it when choosing which candidates
// to keep, so a selective predicate can leave fewer than k results.
type Predicate func(label uint64) bool

// Result is one (distance, label) pair from a knn call, in ascending
// distance order with ties broken by ascending label.
type Result struct {
	Distance float32
	Label    uint64
}

// Index is an in-memory HNSW proximity graph fixed to one VectorSpace.
type Index struct {
	space space.VectorSpace
	opts  options.IndexOptions

	mu          sync.RWMutex // guards labelToSlot, tombstones, nodes length and entry point
	labelToSlot map[uint64]uint32
	nodes       []*node
	tombstones  *roaring.Bitmap
	entryPoint  uint32
	hasEntry    bool
	entryLevel  int

	stripes [maxStripes]sync.Mutex

	efMu sync.RWMutex
	ef   int

	rngMu sync.Mutex
	rng   *rand.Rand

	levelMult float64
}

// New allocates an empty index for the given space and hyper-parameters.
func New(sp space.VectorSpace, opts options.IndexOptions) *Index {
	return &Index{
		space:       sp,
		opts:        opts,
		labelToSlot: make(map[uint64]uint32),
		tombstones:  roaring.New(),
		ef:          opts.EfConstruction,
		rng:         rand.New(rand.NewSource(int64(opts.RandomSeed))),
		levelMult:   1 / math.Log(float64(maxInt(opts.M, 2))),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SetEf updates the query-time expansion width used when a caller does not
// override it per query.
func (idx *Index) SetEf(ef int) {
	idx.efMu.Lock()
	idx.ef = ef
	idx.efMu.Unlock()
}

func (idx *Index) currentEf() int {
	idx.efMu.RLock()
	defer idx.efMu.RUnlock()
	return idx.ef
}

func (idx *Index) distance(a, b []float32) float32 {
	switch idx.space.Metric {
	case space.L2:
		return kernel.L2Squared(a, b)
	default: // IP and Cosine (cosine vectors are pre-normalized on store)
		return kernel.InnerProductDistance(a, b)
	}
}

func (idx *Index) isTombstoned(slot uint32) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tombstones.Contains(slot)
}

func (idx *Index) randomLevel() int {
	idx.rngMu.Lock()
	r := idx.rng.Float64()
	idx.rngMu.Unlock()
	return int(-math.Log(r) * idx.levelMult)
}

func (idx *Index) prepareVector(v []float32) []float32 {
	if idx.space.Normalize() {
		return kernel.Normalized(v)
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// Insert adds vector under label. If the label is already live, it fails
// with AlreadyExists. If replaceIfTombstoned is set and label currently maps
// to a tombstoned slot, that slot is revived in place instead of allocating
// a new one.
func (idx *Index) Insert(v []float32, label uint64, replaceIfTombstoned bool) error {
	if len(v) != idx.space.Dimension {
		return vecerr.New(vecerr.InvalidArgument, "insert", "vector dimension does not match the space's dimension")
	}
	vec := idx.prepareVector(v)

	idx.mu.Lock()
	slot, revive, err := idx.resolveInsertSlot(label, replaceIfTombstoned)
	if err != nil {
		idx.mu.Unlock()
		return err
	}
	idx.labelToSlot[label] = slot
	idx.tombstones.Remove(slot)
	idx.mu.Unlock()

	stripe := &idx.stripes[stripeFor(label)]
	stripe.Lock()
	defer stripe.Unlock()

	level := idx.randomLevel()
	if revive {
		// Keep the slot's original level so links other nodes hold into
		// this slot stay within its layer range; its own neighbor lists
		// are rebuilt from scratch below.
		idx.mu.RLock()
		level = idx.nodes[slot].level
		idx.mu.RUnlock()
	}

	n := &node{label: label, vector: vec, level: level, neighbor: make([][]uint32, level+1)}
	idx.setNode(slot, n)

	idx.wireIntoGraph(slot, n)
	return nil
}

// resolveInsertSlot must be called with idx.mu held. It implements the
// allocate-or-revive-or-reuse decision described by Insert's contract.
func (idx *Index) resolveInsertSlot(label uint64, replaceIfTombstoned bool) (slot uint32, revive bool, err error) {
	if existing, ok := idx.labelToSlot[label]; ok {
		if !idx.tombstones.Contains(existing) {
			return 0, false, vecerr.New(vecerr.AlreadyExists, "insert", "label is already live")
		}
		if replaceIfTombstoned {
			return existing, true, nil
		}
	}
	if idx.opts.AllowReplaceDeleted && !idx.tombstones.IsEmpty() {
		it := idx.tombstones.Iterator()
		if it.HasNext() {
			s := it.Next()
			// The deleted label that owned this slot must not come back
			// to life pointing at the new label's data.
			if old := idx.nodes[s]; old != nil && idx.labelToSlot[old.label] == s {
				delete(idx.labelToSlot, old.label)
			}
			return s, false, nil
		}
	}
	if idx.opts.MaxElements > 0 && uint64(len(idx.nodes)) >= idx.opts.MaxElements {
		return 0, false, vecerr.New(vecerr.ResourceExhausted, "insert", "HNSW capacity reached")
	}
	slot = uint32(len(idx.nodes))
	idx.nodes = append(idx.nodes, nil)
	return slot, false, nil
}

func (idx *Index) setNode(slot uint32, n *node) {
	idx.mu.Lock()
	idx.nodes[slot] = n
	idx.mu.Unlock()
}

func (idx *Index) getNode(slot uint32) *node {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if int(slot) >= len(idx.nodes) {
		return nil
	}
	return idx.nodes[slot]
}

// wireIntoGraph runs the construction search from the current entry point
// and links slot into every layer from min(level, entryLevel) down to 0.
func (idx *Index) wireIntoGraph(slot uint32, n *node) {
	idx.mu.Lock()
	if !idx.hasEntry {
		idx.entryPoint = slot
		idx.entryLevel = n.level
		idx.hasEntry = true
		idx.mu.Unlock()
		return
	}
	entry := idx.entryPoint
	entryLevel := idx.entryLevel
	idx.mu.Unlock()

	cur := entry
	for l := entryLevel; l > n.level; l-- {
		cur = idx.greedyNearest(n.vector, cur, l)
	}

	ef := idx.opts.EfConstruction
	entryPoints := []uint32{cur}
	top := minInt(n.level, entryLevel)
	for l := top; l >= 0; l-- {
		candidates := idx.searchLayer(n.vector, entryPoints, ef, l, func(q []float32, s uint32) float32 {
			nd := idx.getNode(s)
			if nd == nil {
				return float32(math.Inf(1))
			}
			return idx.distance(q, nd.vector)
		})
		m := idx.opts.M
		if l == 0 {
			m *= 2
		}
		selected := idx.selectNeighbors(candidates, m, func(a, b uint32) float32 {
			na, nb := idx.getNode(a), idx.getNode(b)
			if na == nil || nb == nil {
				return float32(math.Inf(1))
			}
			return idx.distance(na.vector, nb.vector)
		})
		n.neighbor[l] = selected
		for _, nb := range selected {
			idx.link(nb, slot, l)
		}
		entryPoints = candidateSlots(candidates)
	}

	if n.level > entryLevel {
		idx.mu.Lock()
		idx.entryPoint = slot
		idx.entryLevel = n.level
		idx.mu.Unlock()
	}
}

// link adds a backlink from neighborSlot to slot at layer l, pruning via the
// same neighbor-selection heuristic if the neighbor's fan-out would exceed
// its per-layer bound.
func (idx *Index) link(neighborSlot, slot uint32, l int) {
	stripe := &idx.stripes[stripeFor(uint64(neighborSlot))]
	stripe.Lock()
	defer stripe.Unlock()

	nb := idx.getNode(neighborSlot)
	if nb == nil || l >= len(nb.neighbor) {
		return
	}
	bound := idx.opts.M
	if l == 0 {
		bound *= 2
	}
	updated := append(append([]uint32(nil), nb.neighbor[l]...), slot)
	if len(updated) <= bound {
		nb.neighbor[l] = updated
		return
	}
	pool := make([]candidate, 0, len(updated))
	for _, s := range updated {
		other := idx.getNode(s)
		if other == nil {
			continue
		}
		pool = append(pool, candidate{slot: s, dist: idx.distance(nb.vector, other.vector)})
	}
	nb.neighbor[l] = idx.selectNeighbors(pool, bound, func(a, b uint32) float32 {
		na, nbb := idx.getNode(a), idx.getNode(b)
		if na == nil || nbb == nil {
			return float32(math.Inf(1))
		}
		return idx.distance(na.vector, nbb.vector)
	})
}

func (idx *Index) greedyNearest(query []float32, from uint32, layer int) uint32 {
	best := from
	bestNode := idx.getNode(best)
	if bestNode == nil {
		return from
	}
	bestDist := idx.distance(query, bestNode.vector)
	improved := true
	for improved {
		improved = false
		n := idx.getNode(best)
		if n == nil || layer >= len(n.neighbor) {
			break
		}
		for _, cand := range n.neighbor[layer] {
			if idx.isTombstoned(cand) {
				continue
			}
			cn := idx.getNode(cand)
			if cn == nil {
				continue
			}
			d := idx.distance(query, cn.vector)
			if d < bestDist {
				bestDist = d
				best = cand
				improved = true
			}
		}
	}
	return best
}

func candidateSlots(c []candidate) []uint32 {
	out := make([]uint32, len(c))
	for i, cc := range c {
		out[i] = cc.slot
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Knn performs the standard HNSW descent and returns up to k results in
// ascending-distance order, ties broken by ascending label. ef is the
// working-set size at layer 0; ef <= 0 selects the index's current ef (see
// SetEf), and an ef less than k is raised to k. predicate, if non-nil, is
// applied to the layer-0 search's candidates after their distances are
// computed; candidates it rejects are dropped, not replaced.
func (idx *Index) Knn(query []float32, k int, ef int, predicate Predicate) ([]Result, error) {
	if len(query) != idx.space.Dimension {
		return nil, vecerr.New(vecerr.InvalidArgument, "knn", "query dimension does not match the space's dimension")
	}
	q := idx.prepareVector(query)

	idx.mu.RLock()
	hasEntry := idx.hasEntry
	entry := idx.entryPoint
	entryLevel := idx.entryLevel
	idx.mu.RUnlock()
	if !hasEntry {
		return nil, nil
	}
	if ef <= 0 {
		ef = idx.currentEf()
	}
	if ef < k {
		ef = k
	}

	cur := entry
	for l := entryLevel; l > 0; l-- {
		cur = idx.greedyNearest(q, cur, l)
	}

	candidates := idx.searchLayer(q, []uint32{cur}, ef, 0, func(query []float32, s uint32) float32 {
		nd := idx.getNode(s)
		if nd == nil {
			return float32(math.Inf(1))
		}
		return idx.distance(query, nd.vector)
	})

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		n := idx.getNode(c.slot)
		if n == nil {
			continue
		}
		if idx.isTombstoned(c.slot) {
			continue
		}
		if predicate != nil && !predicate(n.label) {
			continue
		}
		results = append(results, Result{Distance: c.dist, Label: n.label})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Label < results[j].Label
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// MarkDelete turns a live label into a tombstone. The slot's adjacency links
// are left untouched; the slot becomes invisible to searches and direct
// fetches.
func (idx *Index) MarkDelete(label uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	slot, ok := idx.labelToSlot[label]
	if !ok || idx.tombstones.Contains(slot) {
		return vecerr.New(vecerr.NotFound, "mark_delete", "label is not present")
	}
	idx.tombstones.Add(slot)
	return nil
}

// GetVector reads back the stored vector for a live label.
func (idx *Index) GetVector(label uint64) (vector.Vector, error) {
	idx.mu.RLock()
	slot, ok := idx.labelToSlot[label]
	tomb := ok && idx.tombstones.Contains(slot)
	idx.mu.RUnlock()
	if !ok || tomb {
		return vector.Vector{}, vecerr.New(vecerr.NotFound, "get_vector", "label is not present")
	}
	n := idx.getNode(slot)
	if n == nil {
		return vector.Vector{}, vecerr.New(vecerr.NotFound, "get_vector", "label is not present")
	}
	data := append([]float32(nil), n.vector...)
	return vector.Vector{Type: idx.space.Type, Data: data}, nil
}

// Present reports whether label is live (present in the label lookup and
// not tombstoned).
func (idx *Index) Present(label uint64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	slot, ok := idx.labelToSlot[label]
	return ok && !idx.tombstones.Contains(slot)
}

// Len returns the number of live (non-tombstoned) elements.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes) - int(idx.tombstones.GetCardinality())
}
