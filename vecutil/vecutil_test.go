package vecutil

import (
	"testing"

	"github.com/viant/sqlite-hnsw/hnsw"
	"github.com/viant/sqlite-hnsw/options"
	"github.com/viant/sqlite-hnsw/space"
)

func TestValidateColumnNameRejectsReservedKeyword(t *testing.T) {
	if err := ValidateColumnName("select"); err == nil {
		t.Fatal("expected an error for a reserved keyword")
	}
}

func TestValidateColumnNameAcceptsLegalName(t *testing.T) {
	if err := ValidateColumnName("embedding"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRowPresentReflectsIndexState(t *testing.T) {
	sp := space.VectorSpace{Name: "v", Type: 0, Metric: space.L2, Dimension: 2}
	opts := options.Default()
	opts.MaxElements = 10
	idx := hnsw.New(sp, opts)
	if err := idx.Insert([]float32{1, 2}, 5, true); err != nil {
		t.Fatalf("insert: %v", err)
	}
	present := RowPresent(idx)
	if !present(5) {
		t.Fatal("expected row-id 5 to be present")
	}
	if present(6) {
		t.Fatal("expected row-id 6 to be absent")
	}
	if present(-1) {
		t.Fatal("expected negative row-id to be reported absent")
	}
}

func TestSupportedTargetsIncludesScalar(t *testing.T) {
	targets := SupportedTargets()
	if len(targets) == 0 || targets[len(targets)-1] != "scalar" {
		t.Fatalf("expected scalar fallback, got %v", targets)
	}
}
