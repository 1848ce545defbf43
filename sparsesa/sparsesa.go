// Package sparsesa implements the sparse enhanced suffix array (§4.2):
// a sampled SA/ISA/LCP over a mumcore.BoundedSequence with optional
// child-table and k-mer bucket acceleration, plus on-disk persistence
// (IndexCodec).
package sparsesa

import (
	"math/bits"
	"sort"

	"github.com/ndaniels/mumcore"
)

// Options selects which optional acceleration structures Construct
// builds, per §4.2's "options ⊆ {suffix_links, child_table,
// kmer_table(k)}".
type Options struct {
	SuffixLinks bool
	ChildTable  bool // only meaningful, and only honored, when K >= 4
	KmerTable   bool
	KmerSize    int
}

// Index is the sparse suffix array over a reference BoundedSequence.
// It is built once and is immutable and safely shared read-only across
// worker threads thereafter (§5).
type Index struct {
	Seq *mumcore.BoundedSequence
	K   int

	size            int // N/K, the number of sampled suffixes
	logN            int
	nucleotidesOnly bool

	SA    *CellArray
	ISA   *CellArray
	LCP   *LCPArray
	Child *CellArray // nil unless options.ChildTable && K>=4

	kmerSize int
	Kmer     []Interval // nil unless options.KmerTable; len 4^KmerSize

	opts Options
}

// Interval is a half-open SA range [Lo, Hi).
type Interval struct {
	Lo, Hi int
}

func (iv Interval) Empty() bool { return iv.Lo >= iv.Hi }
func (iv Interval) Size() int   { return iv.Hi - iv.Lo }

// EmptyInterval is the canonical "no match" result.
var EmptyInterval = Interval{0, 0}

// Construct builds a sparse suffix array over seq sampling every K-th
// position. K=1 yields a dense array. K<1 is rejected with a
// ConstructionError; N is not checked against the cell width.
func Construct(seq *mumcore.BoundedSequence, k int, opts Options) (*Index, error) {
	if k < 1 {
		return nil, mumcore.NewConstructionError("sparsesa.Construct",
			errInvalidK(k))
	}
	n := seq.Len()
	size := int(n / int64(k))
	if size < 1 {
		size = 0
	}

	idx := &Index{
		Seq:             seq,
		K:               k,
		size:            size,
		logN:            bits.Len64(uint64(n)) + 1,
		nucleotidesOnly: isNucleotidesOnly(seq),
		opts:            opts,
	}

	small := int64(size) < (int64(1) << 32)
	idx.SA = NewCellArray(size, small)
	idx.ISA = NewCellArray(size, small)
	idx.LCP = NewLCPArray(size)

	idx.buildSA()
	idx.buildISA()
	idx.buildLCP()

	if opts.ChildTable && k >= 4 {
		idx.buildChild()
	}
	if opts.KmerTable && opts.KmerSize > 0 {
		idx.kmerSize = opts.KmerSize
		idx.buildKmer()
	}

	return idx, nil
}

// Size returns N/K, the number of sampled suffixes held in SA.
func (idx *Index) Size() int { return idx.size }

// NucleotidesOnly reports whether the reference this index was built
// over has only acgtACGTnN bytes in its first 65536 positions (later
// bytes are not examined), the same advisory flag
// persisted in the .aux header (§4.2) and consulted by QueryPipeline's
// per-batch query normalization (§4.7).
func (idx *Index) NucleotidesOnly() bool { return idx.nucleotidesOnly }

// samplePos returns the 1-based sequence position of sample i (0 <= i < size).
func (idx *Index) samplePos(i int) int64 { return int64(i)*int64(idx.K) + 1 }

// sampleIndexOf is the inverse of samplePos for a position known to be
// on a sample boundary; callers must only use it for positions that
// originated from samplePos.
func (idx *Index) sampleIndexOf(pos int64) int { return int((pos - 1) / int64(idx.K)) }

// buildSA sorts the sampled suffix starts lexicographically by full
// suffix comparison. The spec permits any correct algorithm (SA-IS /
// DC3 for K=1, a doubling sort a la Larsson-Sadakane for K>1); this
// module uses one comparator-based sort for both, trading asymptotic
// optimality for a single, easy-to-verify code path, since §8's
// invariants are about identity and ordering, not construction
// complexity.
func (idx *Index) buildSA() {
	order := make([]int, idx.size)
	for i := range order {
		order[i] = i
	}
	seq := idx.Seq
	k := int64(idx.K)
	sort.Slice(order, func(a, b int) bool {
		pa := int64(order[a])*k + 1
		pb := int64(order[b])*k + 1
		return compareSuffixes(seq, pa, pb) < 0
	})
	for rank, sampleIdx := range order {
		idx.SA.Set(rank, int64(sampleIdx)*k+1)
	}
}

// compareSuffixes returns -1, 0, or 1 comparing the full suffixes
// starting at 1-based positions pa and pb, using BoundedSequence's
// sentinel bytes to terminate the comparison (a sentinel always
// compares less than any real residue, so shorter suffixes sort first,
// matching standard suffix array semantics).
func compareSuffixes(seq *mumcore.BoundedSequence, pa, pb int64) int {
	if pa == pb {
		return 0
	}
	for {
		a, b := seq.Byte(pa), seq.Byte(pb)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
		if pa > seq.Len() && pb > seq.Len() {
			return 0
		}
		pa++
		pb++
	}
}

func (idx *Index) buildISA() {
	for rank := 0; rank < idx.size; rank++ {
		sampleIdx := idx.sampleIndexOf(idx.SA.Get(rank))
		idx.ISA.Set(sampleIdx, int64(rank))
	}
}

// buildLCP computes the LCP array in O(N) with the Kasai algorithm
// adapted for a sparse SA (§4.2): walk original (sampled) positions in
// sample order, maintain a running overlap h measured in residues,
// and decrement h by K (rather than by 1) when wrapping to the next
// sample, since consecutive samples are K residues apart.
func (idx *Index) buildLCP() {
	seq := idx.Seq
	h := int64(0)
	for sampleIdx := 0; sampleIdx < idx.size; sampleIdx++ {
		rank := idx.ISA.Get(sampleIdx)
		if rank > 0 {
			prevSampleIdx := idx.sampleIndexOf(idx.SA.Get(int(rank) - 1))
			pi := idx.samplePos(sampleIdx)
			pj := idx.samplePos(prevSampleIdx)
			for seq.Byte(pi+h) == seq.Byte(pj+h) && pi+h <= seq.Len() {
				h++
			}
			idx.LCP.Set(int(rank), h)
		} else {
			idx.LCP.Set(int(rank), 0)
			h = 0
		}
		if h >= int64(idx.K) {
			h -= int64(idx.K)
		} else {
			h = 0
		}
	}
	idx.LCP.Set(0, 0)
}

func isNucleotidesOnly(seq *mumcore.BoundedSequence) bool {
	n := seq.Len()
	var limit int64 = n
	if limit > 1<<16 {
		limit = 1 << 16 // sampling is enough; this is advisory metadata, not an invariant
	}
	for i := int64(1); i <= limit; i++ {
		switch seq.Byte(i) {
		case 'a', 'c', 'g', 't', 'A', 'C', 'G', 'T', 'n', 'N':
		default:
			return false
		}
	}
	return true
}

type invalidKError struct{ k int }

func (e *invalidKError) Error() string { return "sparse factor K must be >= 1" }

func errInvalidK(k int) error { return &invalidKError{k: k} }
