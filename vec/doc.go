// Package vec implements the vec SQLite virtual table: a vector column
// backed by an in-memory HNSW proximity graph, queried through
// `vec MATCH knn_search(knn_param(...))` and ordinary rowid predicates.
//
// Each table owns exactly one graph for its lifetime. The owning Module
// keeps a name-keyed registry so every connection that CREATEs or CONNECTs
// to the same table on a given *sql.DB shares that one graph; there is no
// on-disk persistence, so the graph does not survive the process exiting.
package vec
