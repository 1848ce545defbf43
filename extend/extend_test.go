package extend

import (
	"testing"

	"github.com/ndaniels/mumcore"
)

func TestExtendPerfectMatchReachesTarget(t *testing.T) {
	ref := []byte("acgtacgtacgtacgt")
	qry := []byte("acgtacgtacgtacgt")

	e := New(mumcore.NucMatrix, mumcore.DefaultGapPenalty, 0, 50)
	arena := NewArena()

	delta, refEnd, qryEnd, reached := e.Extend(arena, ref, 0, int64(len(ref)), qry, 0, int64(len(qry)), DirectionBit)
	if !reached {
		t.Fatalf("expected a perfect match to reach its target")
	}
	if refEnd != int64(len(ref)) || qryEnd != int64(len(qry)) {
		t.Fatalf("expected refEnd/qryEnd at sequence end, got %d,%d", refEnd, qryEnd)
	}
	if len(delta) != 0 {
		t.Fatalf("expected an empty delta for a perfect match, got %v", delta)
	}
}

func TestExtendSingleMismatchProducesNoIndelTokens(t *testing.T) {
	ref := []byte("aaaaaaaaaaaaaaaa")
	qry := []byte("aaaaaaacaaaaaaaa") // one mismatch, no indel

	e := New(mumcore.NucMatrix, mumcore.DefaultGapPenalty, 0, 50)
	arena := NewArena()

	delta, _, _, reached := e.Extend(arena, ref, 0, int64(len(ref)), qry, 0, int64(len(qry)), DirectionBit)
	if !reached {
		t.Fatalf("expected the extension to reach its target despite a point mismatch")
	}
	for _, tok := range delta {
		if tok != 0 {
			t.Fatalf("expected no indel tokens for a pure substitution, got delta %v", delta)
		}
	}
}

func TestExtendInsertionIntoQueryProducesNegativeToken(t *testing.T) {
	ref := []byte("aaaaaaaaaaaaaaaa")
	qry := []byte("aaaaaaaxaaaaaaaaa") // one extra base inserted into the query

	e := New(mumcore.NucMatrix, mumcore.DefaultGapPenalty, 0, 50)
	arena := NewArena()

	delta, _, _, _ := e.Extend(arena, ref, 0, int64(len(ref)), qry, 0, int64(len(qry)), DirectionBit)
	var sawNegative bool
	for _, tok := range delta {
		if tok < 0 {
			sawNegative = true
		}
	}
	if !sawNegative {
		t.Fatalf("expected an insertion-into-query (negative) delta token, got %v", delta)
	}
}

func TestExtendBackwardDirection(t *testing.T) {
	ref := []byte("ggggacgtacgtacgt")
	qry := []byte("ttttacgtacgtacgt")

	e := New(mumcore.NucMatrix, mumcore.DefaultGapPenalty, 0, 50)
	arena := NewArena()

	// Backward extension from the end of the shared suffix toward the
	// start of both sequences.
	_, refEnd, qryEnd, _ := e.Extend(arena, ref, int64(len(ref)), 0, qry, int64(len(qry)), 0, 0)
	if refEnd > int64(len(ref)) || qryEnd > int64(len(qry)) {
		t.Fatalf("backward extension reached past sequence bounds: %d,%d", refEnd, qryEnd)
	}
}

func TestExtendSearchModeReturnsNoDelta(t *testing.T) {
	ref := []byte("acgtacgtacgtacgt")
	qry := []byte("acgtacgtacgtacgt")

	e := New(mumcore.NucMatrix, mumcore.DefaultGapPenalty, 0, 50)
	arena := NewArena()

	delta, _, _, _ := e.Extend(arena, ref, 0, int64(len(ref)), qry, 0, int64(len(qry)), DirectionBit|SearchBit)
	if delta != nil {
		t.Fatalf("expected SearchBit to suppress delta materialization, got %v", delta)
	}
}
