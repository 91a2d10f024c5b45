package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("batch")

	first := gen.Next()
	second := gen.NextFunc()()

	if first != "batch-1" || second != "batch-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Issued() != 2 {
		t.Fatalf("expected 2 issued ids, got %d", gen.Issued())
	}
}

func TestIDGeneratorDefaultsPrefix(t *testing.T) {
	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected id-1, got %q", got)
	}
	var gen *IDGenerator
	if got := gen.NextFunc()(); got != "" {
		t.Fatalf("expected nil generator to yield empty ids, got %q", got)
	}
}
