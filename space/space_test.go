package space

import "testing"

func TestParseDeclarationDefaultsToL2(t *testing.T) {
	s, err := ParseDeclaration("vec float32[4]")
	if err != nil {
		t.Fatalf("ParseDeclaration: %v", err)
	}
	if s.Metric != L2 || s.Dimension != 4 || s.Name != "vec" {
		t.Fatalf("unexpected space: %+v", s)
	}
	if s.Normalize() {
		t.Fatalf("L2 space should not require normalization")
	}
}

func TestParseDeclarationCosineNormalizes(t *testing.T) {
	s, err := ParseDeclaration("embedding float32[128] cosine")
	if err != nil {
		t.Fatalf("ParseDeclaration: %v", err)
	}
	if !s.Normalize() {
		t.Fatalf("cosine space should require normalization")
	}
}

func TestParseDeclarationRejectsZeroDimension(t *testing.T) {
	if _, err := ParseDeclaration("vec float32[0] l2"); err == nil {
		t.Fatalf("expected error for zero dimension")
	}
}

func TestParseDeclarationRejectsUnknownType(t *testing.T) {
	if _, err := ParseDeclaration("vec int8[4] l2"); err == nil {
		t.Fatalf("expected error for unknown element type")
	}
}

func TestParseDeclarationRejectsUnknownMetric(t *testing.T) {
	if _, err := ParseDeclaration("vec float32[4] hamming"); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
}

func TestParseDeclarationRejectsInvalidName(t *testing.T) {
	if _, err := ParseDeclaration("1vec float32[4] l2"); err == nil {
		t.Fatalf("expected error for name starting with a digit")
	}
	if _, err := ParseDeclaration("select float32[4] l2"); err == nil {
		t.Fatalf("expected error for reserved keyword name")
	}
}
