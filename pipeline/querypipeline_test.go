package pipeline

import (
	"testing"

	"github.com/ndaniels/mumcore"
	"github.com/ndaniels/mumcore/sparsesa"
)

func buildTestIndex(t *testing.T, ref string) *sparsesa.Index {
	t.Helper()
	seq := mumcore.NewBoundedSequence([][]byte{[]byte(ref)})
	idx, err := sparsesa.Construct(seq, 1, sparsesa.Options{})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	return idx
}

// TestQueryPipelineIdentity mirrors scenario S1: a query identical to
// the reference produces exactly one alignment spanning the whole
// sequence with an empty delta.
func TestQueryPipelineIdentity(t *testing.T) {
	ref := "acgtacgtacgtacgtacgtacgtacgtacgt"
	idx := buildTestIndex(t, ref)

	conf := mumcore.DefaultAlignerConf
	conf.MinLen = 10
	conf.Orientation = mumcore.Forward
	conf.MinOutputScore = 20

	sink := &MutexSink{}
	qp := NewQueryPipeline(idx, conf, mumcore.NucMatrix, mumcore.DefaultGapPenalty, sink)
	qp.Run([]Query{{ID: "q1", Seq: []byte(ref)}}, 2)

	blocks := sink.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}
	if blocks[0].QueryID != "q1" {
		t.Fatalf("QueryID = %q, want q1", blocks[0].QueryID)
	}
	if len(blocks[0].Alignments) != 1 {
		t.Fatalf("expected exactly one alignment, got %d: %+v", len(blocks[0].Alignments), blocks[0].Alignments)
	}
	a := blocks[0].Alignments[0]
	if a.RefBegin != 1 || a.QryBegin != 1 {
		t.Fatalf("expected alignment to start at position 1 on both axes, got %+v", a)
	}
	if int(a.RefEnd) != len(ref) || int(a.QryEnd) != len(ref) {
		t.Fatalf("expected alignment to span the whole sequence, got %+v", a)
	}
}

// TestQueryPipelineNoMatch mirrors scenario S5: a query sharing no
// sufficiently long core with the reference yields zero alignments.
func TestQueryPipelineNoMatch(t *testing.T) {
	ref := "acgtacgtacgtacgtacgtacgtacgtacgt"
	idx := buildTestIndex(t, ref)

	conf := mumcore.DefaultAlignerConf
	conf.MinLen = 20
	conf.Orientation = mumcore.Forward
	conf.MinOutputScore = 20

	sink := &MutexSink{}
	qp := NewQueryPipeline(idx, conf, mumcore.NucMatrix, mumcore.DefaultGapPenalty, sink)
	qp.Run([]Query{{ID: "q1", Seq: []byte("tttttgggggtttttgggggtttttggggg")}}, 1)

	blocks := sink.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("expected one block even with no alignments, got %d", len(blocks))
	}
	if len(blocks[0].Alignments) != 0 {
		t.Fatalf("expected zero alignments for a non-matching query, got %d", len(blocks[0].Alignments))
	}
}

// TestQueryPipelineNormalizesCase verifies §4.7's "normalize each query
// to lowercase" step doesn't block an otherwise-identical match just
// because the caller supplied mixed-case input.
func TestQueryPipelineNormalizesCase(t *testing.T) {
	ref := "acgtacgtacgtacgtacgtacgtacgtacgt"
	idx := buildTestIndex(t, ref)

	conf := mumcore.DefaultAlignerConf
	conf.MinLen = 10
	conf.Orientation = mumcore.Forward
	conf.MinOutputScore = 20

	sink := &MutexSink{}
	qp := NewQueryPipeline(idx, conf, mumcore.NucMatrix, mumcore.DefaultGapPenalty, sink)
	qp.Run([]Query{{ID: "q1", Seq: []byte("ACGTACGTACGTACGTACGTACGTACGTACGT")}}, 1)

	blocks := sink.Blocks()
	if len(blocks) != 1 || len(blocks[0].Alignments) != 1 {
		t.Fatalf("expected one alignment after case normalization, got blocks=%+v", blocks)
	}
}

func TestNormalizeQueryPlaceholders(t *testing.T) {
	got := string(normalizeQuery([]byte("ACGTnNxyz"), true))
	want := "acgt~~~~~"
	if got != want {
		t.Fatalf("normalizeQuery(nucleotidesOnly) = %q, want %q", got, want)
	}

	got = string(normalizeQuery([]byte("ACGTnNxyz"), false))
	want = "acgtxxxxx"
	if got != want {
		t.Fatalf("normalizeQuery(!nucleotidesOnly) = %q, want %q", got, want)
	}
}
