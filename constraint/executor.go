package constraint

import (
	"github.com/viant/sqlite-hnsw/hnsw"
	"github.com/viant/sqlite-hnsw/vecerr"
)

// RowIDToLabel converts a SQL row-id into the index's internal unsigned
// label, rejecting values outside the label's range instead of truncating.
func RowIDToLabel(r int64) (uint64, error) {
	if r < 0 {
		return 0, vecerr.New(vecerr.InvalidArgument, "rowid", "row-id is outside the label range")
	}
	return uint64(r), nil
}

// Index is the subset of *hnsw.Index the executor needs. Declared as an
// interface so tests can substitute a fake without spinning up a real graph.
type Index interface {
	Knn(query []float32, k int, ef int, predicate hnsw.Predicate) ([]hnsw.Result, error)
	Present(label uint64) bool
}

// Executor runs a composed Plan against an index, per the "vector path" /
// "row-id only path" split.
type Executor struct {
	Index Index
}

// Execute runs plan and returns results in the shape knn already sorts
// them, or synthesized zero-distance results for the row-id-only path.
func (e *Executor) Execute(plan Plan) ([]hnsw.Result, error) {
	if plan.Empty() {
		return nil, vecerr.New(vecerr.Internal, "execute", "empty plan")
	}
	if plan.Knn != nil {
		predicate, err := rowIDPredicate(plan)
		if err != nil {
			return nil, err
		}
		return e.Index.Knn(plan.Knn.QueryVector, plan.Knn.K, plan.Knn.EfSearch, predicate)
	}
	if plan.RowIdEq != nil {
		label, err := RowIDToLabel(plan.RowIdEq.R)
		if err != nil {
			return nil, err
		}
		if !e.Index.Present(label) {
			return nil, nil
		}
		return []hnsw.Result{{Distance: 0, Label: label}}, nil
	}
	var out []hnsw.Result
	for _, r := range plan.RowIdIn.Set {
		label, err := RowIDToLabel(r)
		if err != nil {
			return nil, err
		}
		if e.Index.Present(label) {
			out = append(out, hnsw.Result{Distance: 0, Label: label})
		}
	}
	return out, nil
}

// rowIDPredicate builds the post-distance filter fed to knn when the vector
// path is combined with a row-id constraint. Returns nil when no row-id
// constraint accompanies the KNN constraint.
func rowIDPredicate(plan Plan) (hnsw.Predicate, error) {
	switch {
	case plan.RowIdEq != nil:
		label, err := RowIDToLabel(plan.RowIdEq.R)
		if err != nil {
			return nil, err
		}
		return func(l uint64) bool { return l == label }, nil
	case plan.RowIdIn != nil:
		set := make(map[uint64]struct{}, len(plan.RowIdIn.Set))
		for _, r := range plan.RowIdIn.Set {
			label, err := RowIDToLabel(r)
			if err != nil {
				return nil, err
			}
			set[label] = struct{}{}
		}
		return func(l uint64) bool { _, ok := set[l]; return ok }, nil
	default:
		return nil, nil
	}
}
