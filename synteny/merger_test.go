package synteny

import (
	"testing"

	"github.com/ndaniels/mumcore"
	"github.com/ndaniels/mumcore/extend"
)

func TestMergeSingleClusterProducesOneAlignment(t *testing.T) {
	ref := []byte("acgtacgtacgtacgtacgtacgtacgtacgt")
	qry := []byte("acgtacgtacgtacgtacgtacgtacgtacgt")

	ext := extend.New(mumcore.NucMatrix, mumcore.DefaultGapPenalty, 0, 50)
	conf := mumcore.DefaultAlignerConf
	m := New(ext, conf)

	cl := mumcore.Cluster{
		DirQ: mumcore.StrandForward,
		Matches: []mumcore.ExtendedMatch{
			{Match: mumcore.Match{RefStart: 1, QryStart: 1, Length: 32}, Good: true},
		},
	}

	alignments := m.Merge(ref, qry, []mumcore.Cluster{cl})
	if len(alignments) != 1 {
		t.Fatalf("expected exactly one alignment, got %d", len(alignments))
	}
	a := alignments[0]
	if a.RefBegin != 1 || a.QryBegin != 1 {
		t.Fatalf("expected alignment to start at the seed, got %+v", a)
	}
}

func TestShadowedClusterIsSkipped(t *testing.T) {
	outer := mumcore.Alignment{RefBegin: 1, RefEnd: 100, QryBegin: 1, QryEnd: 100}
	inner := mumcore.Cluster{
		Matches: []mumcore.ExtendedMatch{
			{Match: mumcore.Match{RefStart: 10, QryStart: 10, Length: 5}},
		},
	}
	if !shadowed([]mumcore.Alignment{outer}, &inner) {
		t.Fatalf("expected the inner cluster to be shadowed by the outer alignment")
	}
}

func TestParseDeltaCountsSubstitution(t *testing.T) {
	ref := []byte("aaaaaaaaaa")
	qry := []byte("aaaacaaaaa")
	a := mumcore.Alignment{RefBegin: 1, RefEnd: 10, QryBegin: 1, QryEnd: 10}
	errs, simErrs, nonAlphas := parseDelta(ref, qry, a)
	if errs != 1 {
		t.Fatalf("expected exactly one error for a single substitution, got %d", errs)
	}
	if simErrs != 1 {
		t.Fatalf("expected the mismatch to also count as a simErr, got %d", simErrs)
	}
	if nonAlphas != 0 {
		t.Fatalf("expected no nonAlphas for an all-nucleotide pair, got %d", nonAlphas)
	}
}

func TestParseDeltaCountsIndel(t *testing.T) {
	ref := []byte("aaaaaaaaaa")
	qry := []byte("aaaaXaaaaaa") // one extra base inserted into the query at position 4 (0-based)
	a := mumcore.Alignment{
		RefBegin: 1, RefEnd: 10,
		QryBegin: 1, QryEnd: 11,
		DeltaScript: mumcore.Delta{-5},
	}
	errs, _, _ := parseDelta(ref, qry, a)
	if errs < 1 {
		t.Fatalf("expected the insertion token to contribute at least one error, got %d", errs)
	}
}
