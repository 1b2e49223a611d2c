// Package hnsw implements an in-memory hierarchical navigable small-world
// proximity graph: insertion, tombstone deletion with optional slot reuse,
// and approximate k-nearest-neighbor search with an optional row-id
// predicate applied, after distance computation, to the candidates the
// layer-0 search returns; the beam search itself does not consult it.
package hnsw
