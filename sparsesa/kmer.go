package sparsesa

// kmerDecode maps a byte to its 2-bit nucleotide code, or -1 for
// anything that isn't exactly one of a/c/g/t (upper or lower). This is
// a 256-entry table where only 4 symbols map to {0..3} and the rest
// map to a sentinel, preserved verbatim from the source program's
// documented behavior (§9 Open Question): a non-ACGT byte anywhere in
// the first k bases of a probe means "no seed reported", not a
// mismatch to be skipped over.
var kmerDecode [256]int8

func init() {
	for i := range kmerDecode {
		kmerDecode[i] = -1
	}
	kmerDecode['a'], kmerDecode['A'] = 0, 0
	kmerDecode['c'], kmerDecode['C'] = 1, 1
	kmerDecode['g'], kmerDecode['G'] = 2, 2
	kmerDecode['t'], kmerDecode['T'] = 3, 3
}

// buildKmer performs a bounded-depth DFS of the SA (each level narrowed
// by childIntervalFor's linear scan; the child table is not read) down to
// depth KmerSize, writing each leaf's half-open SA interval into
// Kmer[kmerHash]. A branch blocked by a non-ACGT byte is simply never
// descended, leaving that bucket's interval empty (§4.2, §9).
func (idx *Index) buildKmer() {
	k := idx.kmerSize
	idx.Kmer = make([]Interval, 1<<(uint(k)*2))
	idx.descendKmer(Interval{0, idx.size}, 0, 0, k)
}

func (idx *Index) descendKmer(iv Interval, depth int64, hash int, k int) {
	if iv.Empty() {
		return
	}
	if int(depth) == k {
		idx.Kmer[hash] = iv
		return
	}
	for _, code := range []byte{'a', 'c', 'g', 't'} {
		child := idx.childIntervalFor(iv, depth, code)
		if child.Empty() {
			continue
		}
		idx.descendKmer(child, depth+1, (hash<<2)|int(kmerDecode[code]), k)
	}
}

// childIntervalFor returns the sub-interval of iv whose suffixes have
// symbol at offset depth equal to b, found by a linear scan of the
// interval's entries. It does not read the child table, whether or not
// one was built.
func (idx *Index) childIntervalFor(iv Interval, depth int64, b byte) Interval {
	lo, hi := iv.Lo, iv.Hi
	// Narrow via linear scan on the symbol at offset depth; the cost is
	// proportional to the interval's size.
	for lo < hi && idx.Seq.Byte(idx.SA.Get(lo)+depth) != b {
		lo++
	}
	if lo >= hi {
		return EmptyInterval
	}
	start := lo
	for lo < hi && idx.Seq.Byte(idx.SA.Get(lo)+depth) == b {
		lo++
	}
	return Interval{start, lo}
}

// LookupKmer returns the precomputed SA interval for an exact k-mer
// (len(kmer) == KmerSize), or EmptyInterval if the table wasn't built,
// the length doesn't match, or the k-mer contains a non-ACGT byte.
func (idx *Index) LookupKmer(kmer []byte) Interval {
	if idx.Kmer == nil || len(kmer) != idx.kmerSize {
		return EmptyInterval
	}
	hash := 0
	for _, b := range kmer {
		code := kmerDecode[b]
		if code < 0 {
			return EmptyInterval
		}
		hash = (hash << 2) | int(code)
	}
	return idx.Kmer[hash]
}

// KmerSize returns the k used to build the Kmer table, or 0 if none.
func (idx *Index) KmerSize() int { return idx.kmerSize }
