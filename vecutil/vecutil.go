// Package vecutil collects the small cross-cutting helpers the virtual
// table and constraint layers share: column-name validation, a row-id
// presence predicate, and SIMD-target introspection, re-exported from their
// owning packages so callers outside this module need only import vecutil.
package vecutil

import (
	"github.com/viant/sqlite-hnsw/hnsw"
	"github.com/viant/sqlite-hnsw/kernel"
	"github.com/viant/sqlite-hnsw/space"
)

// ValidateColumnName reports whether name is a legal vector-column
// identifier: a leading letter or underscore, followed by letters, digits,
// underscores or '$', and not a reserved SQL keyword.
func ValidateColumnName(name string) error {
	return space.ValidateColumnName(name)
}

// RowPresent returns a predicate that reports whether a row-id is live in
// idx, suitable for filtering result sets that only need presence rather
// than a full KNN search (e.g. the row-id-only execution path).
func RowPresent(idx *hnsw.Index) func(rowid int64) bool {
	return func(rowid int64) bool {
		if rowid < 0 {
			return false
		}
		return idx.Present(uint64(rowid))
	}
}

// SupportedTargets lists the SIMD targets the running binary's distance
// kernels could dispatch to, widest first, always ending in "scalar".
func SupportedTargets() []string { return kernel.SupportedTargets() }

// RuntimeTarget names the widest SIMD target the host CPU supports: the
// first entry of SupportedTargets.
func RuntimeTarget() string { return kernel.RuntimeTarget() }
