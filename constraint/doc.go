// Package constraint models the three SQL constraint kinds the virtual
// table recognizes (knn, rowid =, rowid IN) as a closed sum type, along
// with the short-name codes used to encode a best-index plan and the fold
// that reconstructs a composed query plan from a materialized constraint
// list during filter.
package constraint
