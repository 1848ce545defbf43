package sparsesa

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ndaniels/mumcore"
)

func seqFromString(s string) *mumcore.BoundedSequence {
	return mumcore.NewBoundedSequence([][]byte{[]byte(s)})
}

func TestConstructRejectsInvalidK(t *testing.T) {
	seq := seqFromString("acgtacgt")
	if _, err := Construct(seq, 0, Options{}); err == nil {
		t.Fatalf("expected an error constructing with K=0")
	}
}

func TestSAISARoundTrip(t *testing.T) {
	seq := seqFromString("banana_banana_panama")
	idx, err := Construct(seq, 1, Options{})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	for rank := 0; rank < idx.Size(); rank++ {
		sampleIdx := idx.sampleIndexOf(idx.SA.Get(rank))
		if int(idx.ISA.Get(sampleIdx)) != rank {
			t.Fatalf("SA[ISA] invariant violated at rank %d: ISA[%d]=%d", rank, sampleIdx, idx.ISA.Get(sampleIdx))
		}
	}
}

func TestSAIsSorted(t *testing.T) {
	seq := seqFromString("mississippi")
	idx, err := Construct(seq, 1, Options{})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	for rank := 1; rank < idx.Size(); rank++ {
		prev := idx.SA.Get(rank - 1)
		cur := idx.SA.Get(rank)
		if compareSuffixes(seq, prev, cur) > 0 {
			t.Fatalf("SA not sorted at rank %d: suffix(%d) > suffix(%d)", rank, prev, cur)
		}
	}
}

func TestLCPFirstEntryZero(t *testing.T) {
	seq := seqFromString("aaaaaaaaaa")
	idx, err := Construct(seq, 1, Options{})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if idx.LCP.Get(0) != 0 {
		t.Fatalf("LCP[0] = %d, want 0", idx.LCP.Get(0))
	}
}

func TestLCPMatchesActualCommonPrefix(t *testing.T) {
	seq := seqFromString("abracadabra")
	idx, err := Construct(seq, 1, Options{})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	for rank := 1; rank < idx.Size(); rank++ {
		want := commonPrefixLen(seq, idx.SA.Get(rank-1), idx.SA.Get(rank))
		got := idx.LCP.Get(rank)
		if got != want {
			t.Fatalf("LCP[%d] = %d, want %d", rank, got, want)
		}
	}
}

func commonPrefixLen(seq *mumcore.BoundedSequence, a, b int64) int64 {
	var h int64
	for seq.Byte(a+h) == seq.Byte(b+h) && a+h <= seq.Len() {
		h++
	}
	return h
}

func TestSearchFindsExactOccurrences(t *testing.T) {
	seq := seqFromString("abracadabra")
	idx, err := Construct(seq, 1, Options{})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	iv := idx.Search([]byte("abra"))
	if iv.Empty() {
		t.Fatalf("expected at least one occurrence of 'abra'")
	}
	if iv.Size() != 2 {
		t.Fatalf("expected 2 occurrences of 'abra', got %d", iv.Size())
	}
	if !idx.Search([]byte("xyz")).Empty() {
		t.Fatalf("expected no occurrences of 'xyz'")
	}
}

func TestChildTableAgreesWithBinarySearch(t *testing.T) {
	seq := seqFromString("acgtacgtacgtacgtacgtacgtacgt")
	withChild, err := Construct(seq, 4, Options{ChildTable: true})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	withoutChild, err := Construct(seq, 4, Options{})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	for _, pat := range [][]byte{[]byte("acgt"), []byte("cgta"), []byte("gtac")} {
		a := withChild.Search(pat)
		b := withoutChild.Search(pat)
		if a != b {
			t.Fatalf("child-guided search disagrees with binary search for %q: %v vs %v", pat, a, b)
		}
	}
}

func TestKmerLookupAgreesWithSearch(t *testing.T) {
	seq := seqFromString("acgtacgtacgtacgtacgtacgtacgt")
	idx, err := Construct(seq, 1, Options{KmerTable: true, KmerSize: 3})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	for _, kmer := range []string{"acg", "cgt", "gta", "tac"} {
		got := idx.LookupKmer([]byte(kmer))
		want := idx.Search([]byte(kmer))
		if got != want {
			t.Fatalf("LookupKmer(%q) = %v, want %v", kmer, got, want)
		}
	}
}

func TestKmerLookupRejectsNonACGT(t *testing.T) {
	seq := seqFromString("acgtacgtacgtacgt")
	idx, err := Construct(seq, 1, Options{KmerTable: true, KmerSize: 3})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if iv := idx.LookupKmer([]byte("acn")); !iv.Empty() {
		t.Fatalf("expected empty interval for a k-mer containing a non-ACGT byte")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	seq := seqFromString("acgtacgtacgtacgtacgtacgtacgtacgt")
	idx, err := Construct(seq, 4, Options{ChildTable: true, KmerTable: true, KmerSize: 3})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}

	dir := t.TempDir()
	prefix := filepath.Join(dir, "ref")
	if err := Save(idx, prefix); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(prefix, seq)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Size() != idx.Size() {
		t.Fatalf("loaded.Size() = %d, want %d", loaded.Size(), idx.Size())
	}
	for i := 0; i < idx.Size(); i++ {
		if loaded.SA.Get(i) != idx.SA.Get(i) {
			t.Fatalf("SA[%d] mismatch after round-trip: got %d, want %d", i, loaded.SA.Get(i), idx.SA.Get(i))
		}
		if loaded.ISA.Get(i) != idx.ISA.Get(i) {
			t.Fatalf("ISA[%d] mismatch after round-trip", i)
		}
		if loaded.LCP.Get(i) != idx.LCP.Get(i) {
			t.Fatalf("LCP[%d] mismatch after round-trip: got %d, want %d", i, loaded.LCP.Get(i), idx.LCP.Get(i))
		}
	}
	if loaded.Child == nil {
		t.Fatalf("expected child table to survive round-trip")
	}
	for i := 0; i < idx.Size(); i++ {
		if loaded.Child.Get(i) != idx.Child.Get(i) {
			t.Fatalf("Child[%d] mismatch after round-trip", i)
		}
	}
	if loaded.Kmer == nil || len(loaded.Kmer) != len(idx.Kmer) {
		t.Fatalf("expected kmer table to survive round-trip")
	}
	for i := range idx.Kmer {
		if loaded.Kmer[i] != idx.Kmer[i] {
			t.Fatalf("Kmer[%d] mismatch after round-trip", i)
		}
	}
}

func TestLoadRejectsMismatchedSequence(t *testing.T) {
	seq := seqFromString("acgtacgtacgt")
	idx, err := Construct(seq, 1, Options{})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	dir := t.TempDir()
	prefix := filepath.Join(dir, "ref")
	if err := Save(idx, prefix); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other := seqFromString("acgtacgtacgtacgtacgt")
	if _, err := Load(prefix, other); err == nil {
		t.Fatalf("expected Load to reject a sequence of different length")
	}

	if _, err := os.Stat(prefix + extAux); err != nil {
		t.Fatalf("expected aux file to exist: %v", err)
	}
}
