package hnsw

import (
	"testing"

	"github.com/viant/sqlite-hnsw/options"
	"github.com/viant/sqlite-hnsw/space"
	"github.com/viant/sqlite-hnsw/vecerr"
)

func testSpace(dim int, metric space.Metric) space.VectorSpace {
	return space.VectorSpace{Name: "v", Type: 0, Metric: metric, Dimension: dim}
}

func testOptions() options.IndexOptions {
	o := options.Default()
	o.MaxElements = 1000
	return o
}

func vec(xs ...float32) []float32 { return xs }

func TestInsertAndKnnFindsExactMatch(t *testing.T) {
	idx := New(testSpace(2, space.L2), testOptions())
	if err := idx.Insert(vec(0, 0), 1, true); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := idx.Insert(vec(10, 10), 2, true); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := idx.Insert(vec(0.1, 0.1), 3, true); err != nil {
		t.Fatalf("insert: %v", err)
	}
	results, err := idx.Knn(vec(0, 0), 2, 50, nil)
	if err != nil {
		t.Fatalf("knn: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Label != 1 {
		t.Fatalf("expected closest label 1, got %d", results[0].Label)
	}
	if results[0].Distance > results[1].Distance {
		t.Fatalf("results not in ascending distance order: %+v", results)
	}
}

func TestInsertRejectsDuplicateLiveLabel(t *testing.T) {
	idx := New(testSpace(2, space.L2), testOptions())
	if err := idx.Insert(vec(0, 0), 1, true); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := idx.Insert(vec(1, 1), 1, false)
	if err == nil {
		t.Fatal("expected an error for duplicate live label")
	}
	if vecerr.KindOf(err) != vecerr.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", vecerr.KindOf(err))
	}
}

func TestInsertRejectsDimensionMismatch(t *testing.T) {
	idx := New(testSpace(3, space.L2), testOptions())
	err := idx.Insert(vec(0, 0), 1, true)
	if vecerr.KindOf(err) != vecerr.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", vecerr.KindOf(err))
	}
}

func TestMarkDeleteHidesFromKnnAndGetVector(t *testing.T) {
	idx := New(testSpace(2, space.L2), testOptions())
	_ = idx.Insert(vec(0, 0), 1, true)
	_ = idx.Insert(vec(5, 5), 2, true)

	if err := idx.MarkDelete(1); err != nil {
		t.Fatalf("mark_delete: %v", err)
	}
	if idx.Present(1) {
		t.Fatal("label 1 should no longer be present")
	}
	if _, err := idx.GetVector(1); vecerr.KindOf(err) != vecerr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	results, err := idx.Knn(vec(0, 0), 5, 50, nil)
	if err != nil {
		t.Fatalf("knn: %v", err)
	}
	for _, r := range results {
		if r.Label == 1 {
			t.Fatal("tombstoned label 1 leaked into knn results")
		}
	}
}

func TestMarkDeleteOnAbsentLabelIsNotFound(t *testing.T) {
	idx := New(testSpace(2, space.L2), testOptions())
	if err := idx.MarkDelete(999); vecerr.KindOf(err) != vecerr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestReplaceIfTombstonedRevivesSameSlot(t *testing.T) {
	idx := New(testSpace(2, space.L2), testOptions())
	_ = idx.Insert(vec(0, 0), 1, true)
	_ = idx.MarkDelete(1)

	if err := idx.Insert(vec(9, 9), 1, true); err != nil {
		t.Fatalf("revive insert: %v", err)
	}
	if !idx.Present(1) {
		t.Fatal("label 1 should be live again after revive")
	}
	got, err := idx.GetVector(1)
	if err != nil {
		t.Fatalf("get_vector: %v", err)
	}
	if got.Data[0] != 9 || got.Data[1] != 9 {
		t.Fatalf("revived vector mismatch: %+v", got.Data)
	}
}

func TestSlotReuseUnderAllowReplaceDeleted(t *testing.T) {
	opts := testOptions()
	opts.AllowReplaceDeleted = true
	idx := New(testSpace(2, space.L2), opts)
	_ = idx.Insert(vec(0, 0), 1, true)
	before := idx.Len()
	_ = idx.MarkDelete(1)
	if err := idx.Insert(vec(3, 3), 2, false); err != nil {
		t.Fatalf("insert into reused slot: %v", err)
	}
	if idx.Len() != before {
		t.Fatalf("expected live count to return to %d, got %d", before, idx.Len())
	}
	if !idx.Present(2) {
		t.Fatal("new label should be live")
	}
}

func TestKnnClampsKToAvailableResults(t *testing.T) {
	idx := New(testSpace(2, space.L2), testOptions())
	_ = idx.Insert(vec(0, 0), 1, true)
	results, err := idx.Knn(vec(0, 0), 10, 50, nil)
	if err != nil {
		t.Fatalf("knn: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestKnnOnEmptyIndexReturnsNoResults(t *testing.T) {
	idx := New(testSpace(2, space.L2), testOptions())
	results, err := idx.Knn(vec(0, 0), 5, 50, nil)
	if err != nil {
		t.Fatalf("knn: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestKnnPredicateFiltersAfterDistanceEvaluation(t *testing.T) {
	idx := New(testSpace(2, space.L2), testOptions())
	_ = idx.Insert(vec(0, 0), 1, true)
	_ = idx.Insert(vec(1, 1), 2, true)
	_ = idx.Insert(vec(2, 2), 3, true)

	onlyOdd := func(label uint64) bool { return label%2 == 1 }
	results, err := idx.Knn(vec(0, 0), 3, 50, onlyOdd)
	if err != nil {
		t.Fatalf("knn: %v", err)
	}
	for _, r := range results {
		if r.Label%2 != 1 {
			t.Fatalf("predicate leaked even label %d", r.Label)
		}
	}
}

func TestCosineSpaceNormalizesOnInsert(t *testing.T) {
	idx := New(testSpace(2, space.Cosine), testOptions())
	if err := idx.Insert(vec(3, 4), 1, true); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := idx.GetVector(1)
	if err != nil {
		t.Fatalf("get_vector: %v", err)
	}
	mag := got.Data[0]*got.Data[0] + got.Data[1]*got.Data[1]
	if mag < 0.99 || mag > 1.01 {
		t.Fatalf("expected unit-norm vector, got squared magnitude %f", mag)
	}
}

func TestResourceExhaustedAtCapacity(t *testing.T) {
	opts := testOptions()
	opts.MaxElements = 1
	idx := New(testSpace(2, space.L2), opts)
	if err := idx.Insert(vec(0, 0), 1, true); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := idx.Insert(vec(1, 1), 2, true)
	if vecerr.KindOf(err) != vecerr.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}
