package constraint

import "github.com/viant/sqlite-hnsw/vecerr"

// Plan is the composed query plan filter builds by folding a materialized
// constraint list. At most one of RowIdEq/RowIdIn is ever set alongside Knn.
type Plan struct {
	Knn     *Knn
	RowIdEq *RowIdEq
	RowIdIn *RowIdIn
}

// Empty reports whether the plan carries no constraint at all, which
// best-index must reject before it ever reaches Fold.
func (p Plan) Empty() bool {
	return p.Knn == nil && p.RowIdEq == nil && p.RowIdIn == nil
}

// Fold composes a materialized constraint list into a Plan. Duplicate KNN
// constraints yield AlreadyExists; a row-id constraint combined with another
// row-id constraint (equals + IN, or two of the same kind) yields
// InvalidArgument, per the mutually-exclusive decision recorded for this
// combination.
func Fold(cs []Constraint) (Plan, error) {
	var plan Plan
	for _, c := range cs {
		switch v := c.(type) {
		case Knn:
			if plan.Knn != nil {
				return Plan{}, vecerr.New(vecerr.AlreadyExists, "fold", "at most one knn constraint may be combined in a single query")
			}
			k := v
			plan.Knn = &k
		case RowIdEq:
			if plan.RowIdEq != nil || plan.RowIdIn != nil {
				return Plan{}, vecerr.New(vecerr.InvalidArgument, "fold", "at most one row-id constraint (equals or IN, not both) may be combined in a single query")
			}
			r := v
			plan.RowIdEq = &r
		case RowIdIn:
			if plan.RowIdEq != nil || plan.RowIdIn != nil {
				return Plan{}, vecerr.New(vecerr.InvalidArgument, "fold", "at most one row-id constraint (equals or IN, not both) may be combined in a single query")
			}
			r := v
			plan.RowIdIn = &r
		default:
			return Plan{}, vecerr.New(vecerr.Internal, "fold", "unrecognized constraint kind")
		}
	}
	return plan, nil
}
