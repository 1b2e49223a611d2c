package options

import "testing"

func TestParseDefaults(t *testing.T) {
	o, err := Parse("hnsw(max_elements=1000)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if o.MaxElements != 1000 || o.M != 16 || o.EfConstruction != 200 || o.RandomSeed != 100 || o.AllowReplaceDeleted {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}

func TestParseAllFields(t *testing.T) {
	o, err := Parse("hnsw(max_elements=500, M=32, ef_construction=400, random_seed=7, allow_replace_deleted=true)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if o.MaxElements != 500 || o.M != 32 || o.EfConstruction != 400 || o.RandomSeed != 7 || !o.AllowReplaceDeleted {
		t.Fatalf("unexpected options: %+v", o)
	}
}

func TestParseRequiresMaxElements(t *testing.T) {
	if _, err := Parse("hnsw(M=16)"); err == nil {
		t.Fatalf("expected error when max_elements is missing")
	}
}

func TestParseRejectsUnknownKey(t *testing.T) {
	if _, err := Parse("hnsw(max_elements=10, bogus=1)"); err == nil {
		t.Fatalf("expected error for unknown option key")
	}
}

func TestParseWithoutHnswPrefix(t *testing.T) {
	o, err := Parse("max_elements=42")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if o.MaxElements != 42 {
		t.Fatalf("MaxElements = %d, want 42", o.MaxElements)
	}
}
