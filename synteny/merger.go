// Package synteny implements the final cluster-to-alignment merge
// pass (§4.6): walking each query cluster's matches, extending and
// fusing them into Alignment records via an extend.Extender, and
// recomputing each alignment's error counters from its delta script.
package synteny

import (
	"sort"

	"github.com/ndaniels/mumcore"
	"github.com/ndaniels/mumcore/extend"
)

// stopSentinel is the byte ExtendAligner's caller substitutes for any
// residue outside the working alphabet before scoring, mirroring the
// "bytes mapped to the STOP sentinel" nonAlphas count in §4.6.
const stopSentinel = '*'

// Merger produces the final Alignment list for one (ref, qry) pair and
// orientation from MatchClusterer's output.
type Merger struct {
	ext      *extend.Extender
	conf     mumcore.AlignerConf
	breakLen int64
}

// New returns a Merger driven by ext for extension and conf for
// breakLen/backward-target selection tolerances.
func New(ext *extend.Extender, conf mumcore.AlignerConf) *Merger {
	return &Merger{ext: ext, conf: conf, breakLen: int64(conf.BreakLen)}
}

// Merge runs §4.6 over clusters (already MatchClusterer output for one
// orientation) against ref and qry, returning the final Alignment
// list ordered by the order clusters were fused/emitted in (ascending
// refStart of the seeding cluster, inherited from MatchClusterer's own
// ordering guarantee).
func (m *Merger) Merge(ref []byte, qry []byte, clusters []mumcore.Cluster) []mumcore.Alignment {
	sort.Slice(clusters, func(a, b int) bool {
		return firstRefStart(clusters[a]) < firstRefStart(clusters[b])
	})

	arena := extend.NewArena()
	var alignments []mumcore.Alignment

	for ci := range clusters {
		cl := &clusters[ci]
		if cl.Fused {
			continue
		}
		b := qry
		if cl.DirQ == mumcore.StrandReverse {
			b = mumcore.ReverseComplement(qry)
		}

		if shadowed(alignments, cl) {
			cl.Fused = true
			continue
		}

		cur := m.mergeCluster(arena, ref, b, cl, alignments)
		cl.Fused = true
		if cur != nil {
			cur.Errors, cur.SimErrors, cur.NonAlphas = parseDelta(ref, b, *cur)
			alignments = append(alignments, *cur)
		}
	}

	return alignments
}

// shadowed reports whether an already-emitted alignment strictly
// contains, on both axes, the span of cluster's first-to-last match —
// the cheap pre-check §4.6 calls out before doing any extension work.
func shadowed(alignments []mumcore.Alignment, cl *mumcore.Cluster) bool {
	if len(cl.Matches) == 0 {
		return false
	}
	first, last := cl.Matches[0], cl.Matches[len(cl.Matches)-1]
	span := mumcore.Alignment{
		RefBegin: first.RefStart, RefEnd: last.RefEnd(),
		QryBegin: first.QryStart, QryEnd: last.QryEnd(),
	}
	for _, a := range alignments {
		if a.ContainsOnBothAxes(span) {
			return true
		}
	}
	return false
}

// mergeCluster walks the matches of one cluster in order, extending
// backward from the first match to the best prior alignment on the
// same diagonal (fusing into it on success) and forward from each
// match toward the next, per §4.6 step 2.
func (m *Merger) mergeCluster(arena *extend.Arena, ref, qry []byte, cl *mumcore.Cluster, prior []mumcore.Alignment) *mumcore.Alignment {
	matches := cl.Matches
	if len(matches) == 0 {
		return nil
	}

	first := matches[0]
	cur := mumcore.Alignment{
		RefBegin: first.RefStart, RefEnd: first.RefEnd(),
		QryBegin: first.QryStart, QryEnd: first.QryEnd(),
		DirQ: cl.DirQ,
	}

	if target, ti := m.bestBackwardTarget(prior, first); ti >= 0 {
		delta, refEnd, qryEnd, reached := m.ext.Extend(arena, ref, cur.RefBegin-1, target.RefEnd, qry, cur.QryBegin-1, target.QryEnd, 0 /* backward, not forced, not optimal */)
		if reached {
			fused := fuseBackward(target, cur, delta, refEnd, qryEnd)
			cur = fused
		}
	}

	for mi := 1; mi < len(matches); mi++ {
		next := matches[mi]
		mode := extend.DirectionBit
		delta, refEnd, qryEnd, reached := m.ext.Extend(arena, ref, cur.RefEnd, next.RefStart-1, qry, cur.QryEnd, next.QryStart-1, mode)
		cur.DeltaScript = append(cur.DeltaScript, delta...)
		if reached {
			cur.RefEnd, cur.QryEnd = next.RefEnd(), next.QryEnd()
			cur.DeltaScript = append(cur.DeltaScript, matchRunToEnd(next)...)
		} else {
			cur.RefEnd, cur.QryEnd = refEnd, qryEnd
			return &cur
		}
	}

	// Forward from the last match toward the best forward target, or
	// to the sequence end when no further cluster chains from here.
	mode := extend.DirectionBit | extend.OptimalBit | extend.SeqEndBit
	refTo := int64(len(ref))
	qryTo := int64(len(qry))
	delta, refEnd, qryEnd, _ := m.ext.Extend(arena, ref, cur.RefEnd, refTo, qry, cur.QryEnd, qryTo, mode)
	cur.DeltaScript = append(cur.DeltaScript, delta...)
	cur.RefEnd, cur.QryEnd = refEnd, qryEnd

	return &cur
}

// bestBackwardTarget finds the closest prior alignment on a
// compatible diagonal that the new cluster could plausibly chain from,
// given breakLen and gap-continue arithmetic: the reference/query gap
// between the candidate's end and the new match's start must not
// exceed a few breakLen's worth of gap-continue cost, since a longer
// gap could never score positively enough to survive the trim rule.
func (m *Merger) bestBackwardTarget(prior []mumcore.Alignment, first mumcore.ExtendedMatch) (mumcore.Alignment, int) {
	best := -1
	var bestGap int64 = -1
	for i, a := range prior {
		refGap := first.RefStart - a.RefEnd
		qryGap := first.QryStart - a.QryEnd
		if refGap < 0 || qryGap < 0 {
			continue
		}
		diagDiff := (first.QryStart - first.RefStart) - (a.QryEnd - a.RefEnd)
		if diagDiff < 0 {
			diagDiff = -diagDiff
		}
		tolerance := m.breakLen * 2
		if diagDiff > tolerance {
			continue
		}
		gap := refGap
		if qryGap > gap {
			gap = qryGap
		}
		if gap > tolerance {
			continue
		}
		if best == -1 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best == -1 {
		return mumcore.Alignment{}, -1
	}
	return prior[best], best
}

func fuseBackward(target mumcore.Alignment, cur mumcore.Alignment, delta mumcore.Delta, refEnd, qryEnd int64) mumcore.Alignment {
	fused := target
	fused.DeltaScript = append(append(mumcore.Delta{}, target.DeltaScript...), delta...)
	fused.DeltaScript = append(fused.DeltaScript, cur.DeltaScript...)
	fused.RefEnd = cur.RefEnd
	fused.QryEnd = cur.QryEnd
	return fused
}

// matchRunToEnd encodes a fully matched seed (no mismatches by
// construction, since it came straight from MatchFinder) as however
// many positive match-run positions the delta convention needs; since
// MUMmer's delta stream only records *breaks* in a match run, a pure
// match contributes no token of its own — the surrounding extensions'
// tokens already count through it.
func matchRunToEnd(mumcore.ExtendedMatch) mumcore.Delta { return nil }

func firstRefStart(c mumcore.Cluster) int64 {
	if len(c.Matches) == 0 {
		return 0
	}
	return c.Matches[0].RefStart
}

// parseDelta walks the delta script against ref and qry recomputing
// errors (any differing or inserted/deleted position), simErrors
// (positions scoring non-positive under the nucleotide matrix), and
// nonAlphas (bytes equal to the STOP sentinel) per §4.6 step 3.
func parseDelta(ref, qry []byte, a mumcore.Alignment) (errors, simErrors, nonAlphas int64) {
	ri, qi := a.RefBegin-1, a.QryBegin-1
	for _, tok := range a.DeltaScript {
		run := tok
		if run < 0 {
			run = -run
		}
		for k := int64(1); k < run; k++ {
			errors += scoreMismatch(ref, qry, ri, qi)
			simErrors += simError(ref, qry, ri, qi)
			nonAlphas += nonAlpha(ref, qry, ri, qi)
			ri++
			qi++
		}
		switch {
		case tok > 0:
			errors++ // insertion into the reference
			ri++
		case tok < 0:
			errors++ // insertion into the query
			qi++
		}
	}
	for ri < a.RefEnd && qi < a.QryEnd {
		errors += scoreMismatch(ref, qry, ri, qi)
		simErrors += simError(ref, qry, ri, qi)
		nonAlphas += nonAlpha(ref, qry, ri, qi)
		ri++
		qi++
	}
	return errors, simErrors, nonAlphas
}

func scoreMismatch(ref, qry []byte, ri, qi int64) int64 {
	if ri < 0 || qi < 0 || ri >= int64(len(ref)) || qi >= int64(len(qry)) {
		return 0
	}
	if upperByte(ref[ri]) != upperByte(qry[qi]) {
		return 1
	}
	return 0
}

func simError(ref, qry []byte, ri, qi int64) int64 {
	if ri < 0 || qi < 0 || ri >= int64(len(ref)) || qi >= int64(len(qry)) {
		return 0
	}
	if mumcore.NucMatrix.Score(ref[ri], qry[qi]) <= 0 {
		return 1
	}
	return 0
}

func nonAlpha(ref, qry []byte, ri, qi int64) int64 {
	var n int64
	if ri >= 0 && ri < int64(len(ref)) && ref[ri] == stopSentinel {
		n++
	}
	if qi >= 0 && qi < int64(len(qry)) && qry[qi] == stopSentinel {
		n++
	}
	return n
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
