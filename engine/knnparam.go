package engine

import (
	"sync"
	"sync/atomic"
)

// KnnParam is the materialized form of a knn_param(...) call: the query
// vector plus the requested result count and optional per-query expansion
// width.
type KnnParam struct {
	QueryVector []float32
	K           int
	EfSearch    int
}

// paramHandles stands in for the host engine's sqlite3_value_pointer
// mechanism, which the pure-Go driver this extension targets does not
// expose. knn_param registers a KnnParam and returns an opaque int64
// handle; knn_search and the virtual table's best-index/filter path
// dereference it, and the deleter (ReleaseKnnParam) frees it once filter has
// materialized the constraint.
var paramHandles sync.Map // int64 -> *KnnParam

var nextHandle int64

// registerParam stores p and returns an opaque handle for it.
func registerParam(p *KnnParam) int64 {
	h := atomic.AddInt64(&nextHandle, 1)
	paramHandles.Store(h, p)
	return h
}

// lookupParam dereferences a handle produced by registerParam.
func lookupParam(handle int64) (*KnnParam, bool) {
	v, ok := paramHandles.Load(handle)
	if !ok {
		return nil, false
	}
	return v.(*KnnParam), true
}

// releaseParam frees a handle once the constraint it backs has been
// materialized and will not be looked up again.
func releaseParam(handle int64) {
	paramHandles.Delete(handle)
}

// LookupKnnParam dereferences a handle produced by knn_param(...) for
// consumers outside this package, namely the virtual table's filter phase.
func LookupKnnParam(handle int64) (*KnnParam, bool) { return lookupParam(handle) }

// ReleaseKnnParam frees a handle once the constraint it backs has been
// materialized and will not be looked up again.
func ReleaseKnnParam(handle int64) { releaseParam(handle) }
