package mumcore

import "testing"

func TestMatchGeometry(t *testing.T) {
	m := Match{RefStart: 10, QryStart: 15, Length: 5}
	if m.RefEnd() != 14 {
		t.Fatalf("RefEnd = %d, want 14", m.RefEnd())
	}
	if m.QryEnd() != 19 {
		t.Fatalf("QryEnd = %d, want 19", m.QryEnd())
	}
	if m.Diagonal() != 5 {
		t.Fatalf("Diagonal = %d, want 5", m.Diagonal())
	}
}

func TestAlignmentContainsOnBothAxes(t *testing.T) {
	outer := Alignment{RefBegin: 1, RefEnd: 100, QryBegin: 1, QryEnd: 100}
	inner := Alignment{RefBegin: 10, RefEnd: 20, QryBegin: 10, QryEnd: 20}
	if !outer.ContainsOnBothAxes(inner) {
		t.Fatalf("expected outer to contain inner")
	}
	if inner.ContainsOnBothAxes(outer) {
		t.Fatalf("did not expect inner to contain outer")
	}
}
