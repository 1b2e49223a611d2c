// Package options parses the textual form of HNSW hyper-parameters passed as
// the second argument to the virtual-table constructor, e.g.
// hnsw(max_elements=1000, M=16, ef_construction=200).
package options
