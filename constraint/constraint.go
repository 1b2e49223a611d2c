package constraint

import "strings"

// Constraint is the closed sum type over the three constraint kinds the
// virtual table recognizes.
type Constraint interface {
	ShortName() string
}

// Knn is a `vec MATCH knn_search(knn_param(...))` constraint.
type Knn struct {
	QueryVector []float32
	K           int
	EfSearch    int // 0 means "use the index's current ef"
}

// ShortName implements Constraint.
func (Knn) ShortName() string { return "ks" }

// RowIdEq is a `rowid = ?` constraint.
type RowIdEq struct {
	R int64
}

// ShortName implements Constraint.
func (RowIdEq) ShortName() string { return "eq" }

// RowIdIn is a `rowid IN (...)` constraint.
type RowIdIn struct {
	Set []int64
}

// ShortName implements Constraint.
func (RowIdIn) ShortName() string { return "in" }

// ShortNames returns the short-name sequence for a candidate constraint
// list, in the order best-index encountered them.
func ShortNames(cs []Constraint) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.ShortName()
	}
	return names
}

// EncodeIdxStr joins the short-name sequence into the plan string best-index
// hands the engine and filter later receives back verbatim.
func EncodeIdxStr(cs []Constraint) string {
	return strings.Join(ShortNames(cs), ",")
}

// DecodeIdxStr splits a plan string back into its short-name sequence.
func DecodeIdxStr(idxStr string) []string {
	if idxStr == "" {
		return nil
	}
	return strings.Split(idxStr, ",")
}
