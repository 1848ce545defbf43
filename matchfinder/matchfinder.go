// Package matchfinder implements the three maximal-match enumeration
// contracts over a sparsesa.Index: MEM, MUM, and MAM (§4.3).
package matchfinder

import (
	"github.com/ndaniels/mumcore"
	"github.com/ndaniels/mumcore/sparsesa"
)

// Sink receives one reported match at a time. MatchFinder never
// batches matches into a slice internally; callers wanting a slice
// simply append inside their Sink.
type Sink func(refPos, qryPos, length int64)

// Finder enumerates matches between a fixed reference sparsesa.Index
// and successive query sequences. A single Finder is safe for
// concurrent use by multiple goroutines against the same Index, since
// the index is read-only after construction (§4.3 "thread model").
type Finder struct {
	idx  *sparsesa.Index
	conf mumcore.AlignerConf
}

// New binds a Finder to idx under conf. conf.MatchFlavor selects what
// Find dispatches to: findMEM for MaxMatch, findUnique for MUM and
// MUMReference (MAM).
func New(idx *sparsesa.Index, conf mumcore.AlignerConf) *Finder {
	return &Finder{idx: idx, conf: conf}
}

// Find runs the configured match flavor over qry and reports results
// to sink, honoring conf.Orientation by running the forward pass, the
// reverse-complement pass, or both. Reverse-complement matches are
// reported with refPos/qryPos measured against the reverse-complement
// copy of qry that the caller must reconstruct via
// mumcore.ReverseComplement if it needs to relate them back to the
// original query coordinates; dirQ bookkeeping is the caller's
// responsibility per §4.3's "caller-visible flag" note.
func (f *Finder) Find(qry []byte, sink Sink) {
	if f.conf.Orientation == mumcore.Forward || f.conf.Orientation == mumcore.Both {
		f.findOneStrand(qry, sink)
	}
	if f.conf.Orientation == mumcore.Reverse || f.conf.Orientation == mumcore.Both {
		rc := mumcore.ReverseComplement(qry)
		f.findOneStrand(rc, sink)
	}
}

func (f *Finder) findOneStrand(qry []byte, sink Sink) {
	switch f.conf.MatchFlavor {
	case mumcore.MUM:
		f.findUnique(qry, sink, true)
	case mumcore.MUMReference:
		f.findUnique(qry, sink, false)
	case mumcore.MaxMatch:
		f.findMEM(qry, sink)
	}
}

// candidate is an in-flight MEM discovered from one prefix offset,
// before duplicate suppression against matches already reported from
// an earlier (smaller) offset.
type candidate struct {
	refPos, qryPos, length int64
}

// findMEM implements the sparse MEM probing algorithm of §4.3: at
// every K-th query offset (0, K, 2K, ...), descend the
// suffix array to depth minLen-sparseMult*K, extend right by brute
// force to find the true right-maximal length, then walk the resulting
// SA interval and check left-maximality for each occurrence.
//
// Duplicate suppression uses a high-water mark per (qryStart, refStart)
// pair: a strictly longer match already reported from an earlier
// (smaller) prefix offset for that same pair subtracts out any shorter
// candidate covering the same region, per SPEC_FULL's "longest report
// wins" rule (mirroring essaMEM's own sparseSA duplicate-suppression
// pass over successive prefix offsets, since the distilled spec's "must
// not be re-reported" requirement underspecifies the exact
// bookkeeping). Keying on the pair, not qryStart alone, lets two
// distinct matches that share a left-maximal query start but land at
// different reference loci (a repeated reference locus) both survive.
func (f *Finder) findMEM(qry []byte, sink Sink) {
	idx := f.idx
	k := int64(idx.K)
	sparseMult := int64(f.conf.SparseMult)
	if sparseMult < 1 {
		sparseMult = 1
	}
	minLen := int64(f.conf.MinLen)
	seq := idx.Seq

	type dedupKey struct{ qryStart, refStart int64 }
	bestLen := make(map[dedupKey]int64)

	for prefix := int64(0); prefix+minLen <= int64(len(qry)); prefix += k {
		probeLen := minLen - sparseMult*k
		if probeLen < 0 {
			probeLen = 0
		}
		if prefix+probeLen > int64(len(qry)) {
			continue
		}
		probe := qry[prefix : prefix+probeLen]
		iv := idx.Search(probe)
		if iv.Empty() {
			continue
		}

		for rank := iv.Lo; rank < iv.Hi; rank++ {
			refPos := idx.SA.Get(rank)

			rightLen := probeLen
			for prefix+rightLen < int64(len(qry)) && refPos+rightLen <= seq.Len() &&
				seq.Byte(refPos+rightLen) == qry[prefix+rightLen] {
				rightLen++
			}
			if rightLen < minLen {
				continue
			}

			leftExt := int64(0)
			for prefix-leftExt > 0 && refPos-leftExt > 1 &&
				seq.Byte(refPos-leftExt-1) == qry[prefix-leftExt-1] {
				leftExt++
			}
			qryStart := prefix - leftExt
			refStart := refPos - leftExt
			length := rightLen + leftExt

			if refStart > 1 && qryStart > 0 && seq.Byte(refStart-1) == qry[qryStart-1] {
				continue // not left-maximal; a longer candidate covers this one
			}
			if refStart+length <= seq.Len() && qryStart+length < int64(len(qry)) &&
				seq.Byte(refStart+length) == qry[qryStart+length] {
				continue // not right-maximal
			}

			key := dedupKey{qryStart, refStart}
			if prev, ok := bestLen[key]; ok && prev >= length {
				continue
			}
			bestLen[key] = length
			sink(refStart, qryStart, length)
		}
	}
}

// findUnique runs findMEM and filters to matches whose SA interval has
// exactly one occurrence in the reference, additionally requiring
// single occurrence in the query when requireQueryUnique (MUM);
// MUM_REFERENCE mode (MAM) skips the query-uniqueness check (§4.3) and
// is only meaningful at K=1, enforced by AlignerConf.Validate.
func (f *Finder) findUnique(qry []byte, sink Sink, requireQueryUnique bool) {
	idx := f.idx
	var queryCounts map[string]int
	if requireQueryUnique {
		queryCounts = make(map[string]int)
	}

	var candidates []candidate
	f.findMEM(qry, func(refPos, qryPos, length int64) {
		iv := idx.Search(qry[qryPos : qryPos+length])
		if iv.Size() != 1 {
			return
		}
		candidates = append(candidates, candidate{refPos, qryPos, length})
		if requireQueryUnique {
			queryCounts[string(qry[qryPos:qryPos+length])]++
		}
	})

	for _, c := range candidates {
		if requireQueryUnique && queryCounts[string(qry[c.qryPos:c.qryPos+c.length])] != 1 {
			continue
		}
		sink(c.refPos, c.qryPos, c.length)
	}
}
