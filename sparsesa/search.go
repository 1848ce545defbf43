package sparsesa

import "sort"

// Search returns the half-open SA interval of exact occurrences of
// pattern, or EmptyInterval. Implemented as a top-down walk that
// narrows the interval one symbol per level: by a per-level binary
// search when no Child table is present, otherwise by childIntervalFor's
// linear scan. The child table's entries are not read.
func (idx *Index) Search(pattern []byte) Interval {
	cur := Interval{0, idx.size}
	return idx.Traverse(pattern, 0, int64(len(pattern)), cur)
}

// Traverse extends an existing SA interval cur by matching additional
// symbols of pattern starting at prefix+cur's current depth, stopping
// at the first mismatch or at depth minLen. cur.Lo/Hi must already
// correspond to a valid interval at some starting depth; callers doing
// an initial search pass Interval{0,size} with depth 0.
//
// With no Child table this runs traverseBinary, a per-level binary
// search. With one it runs traverseChild, which narrows each level by
// childIntervalFor's linear scan of the current interval (O(interval
// size) per level); neither variant reads the child table's entries.
func (idx *Index) Traverse(pattern []byte, prefixDepth int64, minLen int64, cur Interval) Interval {
	if idx.Child != nil {
		return idx.traverseChild(pattern, prefixDepth, minLen, cur)
	}
	return idx.traverseBinary(pattern, prefixDepth, minLen, cur)
}

func (idx *Index) traverseBinary(pattern []byte, prefixDepth, minLen int64, cur Interval) Interval {
	depth := prefixDepth
	for depth < minLen && depth < int64(len(pattern)) {
		b := pattern[depth]
		lo, hi := cur.Lo, cur.Hi
		// Binary search for the first occurrence of b at offset depth
		// within [lo,hi).
		l := lo + sort.Search(hi-lo, func(i int) bool {
			return idx.Seq.Byte(idx.SA.Get(lo+i)+depth) >= b
		})
		if l >= hi || idx.Seq.Byte(idx.SA.Get(l)+depth) != b {
			return EmptyInterval
		}
		r := l + sort.Search(hi-l, func(i int) bool {
			return idx.Seq.Byte(idx.SA.Get(l+i)+depth) > b
		})
		cur = Interval{l, r}
		depth++
	}
	return cur
}

func (idx *Index) traverseChild(pattern []byte, prefixDepth, minLen int64, cur Interval) Interval {
	depth := prefixDepth
	for depth < minLen && depth < int64(len(pattern)) {
		b := pattern[depth]
		child := idx.childIntervalFor(cur, depth, b)
		if child.Empty() {
			return EmptyInterval
		}
		cur = child
		depth++
	}
	return cur
}

// SuffixLink simulates the Abouelhoda-Kurtz suffix link: looking up
// ISA[SA[start]/K + 1] and ISA[SA[end]/K + 1] and re-expanding the
// interval by scanning LCP outward, capped at 2*depth*log(N/K) scan
// steps before giving up (§4.2). Only available when SuffixLinks was
// enabled at construction. Returns (interval, ok).
func (idx *Index) SuffixLink(iv Interval, depth int64) (Interval, bool) {
	if !idx.opts.SuffixLinks || iv.Empty() {
		return EmptyInterval, false
	}
	startSample := idx.sampleIndexOf(idx.SA.Get(iv.Lo))
	endSample := idx.sampleIndexOf(idx.SA.Get(iv.Hi - 1))
	nextStartSample := startSample + 1
	nextEndSample := endSample + 1
	if nextStartSample >= idx.size || nextEndSample >= idx.size {
		return EmptyInterval, false
	}
	loRank := int(idx.ISA.Get(nextStartSample))
	hiRank := int(idx.ISA.Get(nextEndSample))
	if loRank > hiRank {
		loRank, hiRank = hiRank, loRank
	}
	return idx.expandLink(Interval{loRank, hiRank + 1}, depth)
}

// expandLink is the outward LCP scan used by SuffixLink, also exposed
// directly since §4.2 calls it out as its own operation.
func (idx *Index) expandLink(iv Interval, depth int64) (Interval, bool) {
	maxSteps := 2 * depth * int64(idx.logN)
	steps := int64(0)
	lo, hi := iv.Lo, iv.Hi
	for lo > 0 && idx.LCP.Get(lo) >= depth {
		lo--
		steps++
		if steps > maxSteps {
			return EmptyInterval, false
		}
	}
	for hi < idx.size && idx.LCP.Get(hi) >= depth {
		hi++
		steps++
		if steps > maxSteps {
			return EmptyInterval, false
		}
	}
	return Interval{lo, hi}, true
}
