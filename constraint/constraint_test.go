package constraint

import (
	"testing"

	"github.com/viant/sqlite-hnsw/hnsw"
	"github.com/viant/sqlite-hnsw/vecerr"
)

func TestFoldSingleKnn(t *testing.T) {
	plan, err := Fold([]Constraint{Knn{QueryVector: []float32{1, 2}, K: 3}})
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if plan.Knn == nil || plan.Knn.K != 3 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestFoldKnnAndRowIdEq(t *testing.T) {
	plan, err := Fold([]Constraint{Knn{K: 1}, RowIdEq{R: 7}})
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if plan.Knn == nil || plan.RowIdEq == nil || plan.RowIdEq.R != 7 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestFoldDuplicateKnnIsAlreadyExists(t *testing.T) {
	_, err := Fold([]Constraint{Knn{K: 1}, Knn{K: 2}})
	if vecerr.KindOf(err) != vecerr.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestFoldEqAndInIsInvalidArgument(t *testing.T) {
	_, err := Fold([]Constraint{RowIdEq{R: 1}, RowIdIn{Set: []int64{1, 2}}})
	if vecerr.KindOf(err) != vecerr.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestFoldTwoRowIdInIsInvalidArgument(t *testing.T) {
	_, err := Fold([]Constraint{RowIdIn{Set: []int64{1}}, RowIdIn{Set: []int64{2}}})
	if vecerr.KindOf(err) != vecerr.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestEncodeDecodeIdxStr(t *testing.T) {
	cs := []Constraint{Knn{}, RowIdEq{}}
	s := EncodeIdxStr(cs)
	if s != "ks,eq" {
		t.Fatalf("unexpected idxStr: %q", s)
	}
	if got := DecodeIdxStr(s); len(got) != 2 || got[0] != "ks" || got[1] != "eq" {
		t.Fatalf("unexpected decode: %v", got)
	}
}

func TestDecodeIdxStrEmpty(t *testing.T) {
	if got := DecodeIdxStr(""); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestRowIDToLabelRejectsNegative(t *testing.T) {
	if _, err := RowIDToLabel(-1); vecerr.KindOf(err) != vecerr.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

type fakeIndex struct {
	knnResults []hnsw.Result
	knnErr     error
	present    map[uint64]bool
	gotPred    hnsw.Predicate
}

func (f *fakeIndex) Knn(query []float32, k int, ef int, predicate hnsw.Predicate) ([]hnsw.Result, error) {
	f.gotPred = predicate
	return f.knnResults, f.knnErr
}

func (f *fakeIndex) Present(label uint64) bool { return f.present[label] }

func TestExecuteRowIdEqOnlyPath(t *testing.T) {
	fi := &fakeIndex{present: map[uint64]bool{7: true}}
	e := &Executor{Index: fi}
	plan, _ := Fold([]Constraint{RowIdEq{R: 7}})
	results, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 1 || results[0].Label != 7 || results[0].Distance != 0 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestExecuteRowIdEqAbsentReturnsEmpty(t *testing.T) {
	fi := &fakeIndex{present: map[uint64]bool{}}
	e := &Executor{Index: fi}
	plan, _ := Fold([]Constraint{RowIdEq{R: 7}})
	results, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
}

func TestExecuteRowIdInOnlyPath(t *testing.T) {
	fi := &fakeIndex{present: map[uint64]bool{3: true, 42: true}}
	e := &Executor{Index: fi}
	plan, _ := Fold([]Constraint{RowIdIn{Set: []int64{3, 7, 42}}})
	results, err := e.Execute(plan)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
}

func TestExecuteVectorPathBuildsRowIdPredicate(t *testing.T) {
	fi := &fakeIndex{knnResults: []hnsw.Result{{Label: 7}}}
	e := &Executor{Index: fi}
	plan, _ := Fold([]Constraint{Knn{K: 5}, RowIdIn{Set: []int64{3, 7}}})
	if _, err := e.Execute(plan); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if fi.gotPred == nil {
		t.Fatal("expected a predicate to be passed through to knn")
	}
	if !fi.gotPred(7) || fi.gotPred(99) {
		t.Fatal("predicate did not reflect the row-id IN set")
	}
}
