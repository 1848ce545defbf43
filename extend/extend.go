// Package extend implements the banded Smith-Waterman extension used
// to grow a seed match toward (or past) a target endpoint, emitting a
// MUMmer-style delta edit script (§4.5).
package extend

import (
	"math"

	"github.com/ndaniels/mumcore"
)

// Mode is the bit set §4.5 defines over a single Extend call.
type Mode uint8

const (
	DirectionBit Mode = 1 << iota // set = forward, unset = backward
	ForcedBit                     // ignore the break-length early exit
	OptimalBit                    // backtrack from the best cell, not the target
	SeqEndBit                     // also track the best score reaching a sequence end
	SearchBit                     // search only: do not materialize a delta
)

// MaxAlignmentLength caps a single Extend call's reach along either
// axis (§4.5 "Targeting"); callers needing a longer alignment chain
// multiple Extend calls instead.
const MaxAlignmentLength = 1 << 20

type editType int8

const (
	editMatch editType = iota
	editDelete
	editInsert
)

const negInf = math.MinInt64 / 4

type cell struct {
	score [3]int64
	from  [3]editType
	valid [3]bool
}

func (c cell) best() int64 {
	best := int64(negInf)
	for t := 0; t < 3; t++ {
		if c.valid[t] && c.score[t] > best {
			best = c.score[t]
		}
	}
	return best
}

func (c cell) bestType() editType {
	bt, bv := editMatch, int64(negInf)
	for t := 0; t < 3; t++ {
		if c.valid[t] && c.score[t] > bv {
			bv, bt = c.score[t], editType(t)
		}
	}
	return bt
}

// Arena holds the per-call scratch state an Extender reuses across
// calls so hot-path extension minimizes new allocation, mirroring the
// teacher's goroutine-local memory-arena parameter threaded through
// its own hot compression paths. history[i] is the map of cells
// computed at row i, retained for the length of one Extend call so
// traceback can walk it; Reset recycles the row maps for the next
// call instead of discarding them.
type Arena struct {
	history []map[int64]cell
}

// NewArena allocates a fresh Arena. Callers should keep one Arena per
// goroutine and pass it into every Extend call on that goroutine.
func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) reset() {
	for _, row := range a.history {
		clear(row)
	}
	a.history = a.history[:0]
}

func (a *Arena) newRow() map[int64]cell {
	if len(a.history) < cap(a.history) {
		a.history = a.history[:len(a.history)+1]
		return a.history[len(a.history)-1]
	}
	row := make(map[int64]cell)
	a.history = append(a.history, row)
	return row
}

// Extender runs the banded affine-gap extension described in §4.5
// against a fixed scoring matrix and gap penalty.
type Extender struct {
	matrix   *mumcore.ScoringMatrix
	gap      mumcore.GapPenalty
	banding  int
	breakLen int64
}

// New returns an Extender. banding <= 0 disables hard banding;
// breakLen is the early-exit / trim-rule window in units of
// goodScore-weighted cells.
func New(matrix *mumcore.ScoringMatrix, gap mumcore.GapPenalty, banding int, breakLen int64) *Extender {
	return &Extender{matrix: matrix, gap: gap, banding: banding, breakLen: breakLen}
}

// Extend grows an alignment from (refFrom, qryFrom) toward (refTo,
// qryTo) over refSeq/qrySeq (already the correctly-oriented byte
// slices; a caller extending against the reverse complement passes a
// reverse-complemented qrySeq). refFrom/qryFrom/refTo/qryTo are 0-based
// offsets: forward extension reads refSeq[refFrom], refSeq[refFrom+1],
// ...; backward extension reads refSeq[refFrom-1], refSeq[refFrom-2],
// ... (§4.5's "subtract rather than add indices").
//
// Returns the delta script (nil when mode has SearchBit set), the
// farthest ref/qry offsets actually reached, and whether the target
// was reached.
func (e *Extender) Extend(arena *Arena, refSeq []byte, refFrom, refTo int64, qrySeq []byte, qryFrom, qryTo int64, mode Mode) (delta mumcore.Delta, refEnd, qryEnd int64, targetReached bool) {
	arena.reset()
	forward := mode&DirectionBit != 0
	forced := mode&ForcedBit != 0
	optimal := mode&OptimalBit != 0
	seqEnd := mode&SeqEndBit != 0
	search := mode&SearchBit != 0

	sign := int64(1)
	if !forward {
		sign = -1
	}

	refTargetLen := (refTo - refFrom) * sign
	qryTargetLen := (qryTo - qryFrom) * sign
	if refTargetLen < 0 {
		refTargetLen = 0
	}
	if qryTargetLen < 0 {
		qryTargetLen = 0
	}

	cappedRef := refTargetLen > MaxAlignmentLength
	cappedQry := qryTargetLen > MaxAlignmentLength
	if cappedRef {
		refTargetLen = MaxAlignmentLength
		optimal = true
	}
	if cappedQry {
		qryTargetLen = MaxAlignmentLength
		optimal = true
	}
	if cappedRef && cappedQry {
		seqEnd = false
	}

	refBase, qryBase := refFrom, qryFrom
	if !forward {
		refBase, qryBase = refFrom-1, qryFrom-1
	}
	refByte := func(i int64) (byte, bool) {
		pos := refBase + sign*(i-1)
		if pos < 0 || pos >= int64(len(refSeq)) {
			return 0, false
		}
		return refSeq[pos], true
	}
	qryByte := func(j int64) (byte, bool) {
		pos := qryBase + sign*(j-1)
		if pos < 0 || pos >= int64(len(qrySeq)) {
			return 0, false
		}
		return qrySeq[pos], true
	}

	targetDiag := qryTargetLen - refTargetLen
	half := int64(0)
	if e.banding > 0 {
		half = int64(e.banding) / 2
	}

	goodScore := int64(e.matrix.GoodScore())
	if goodScore <= 0 {
		goodScore = 1
	}

	row0 := arena.newRow()
	row0[0] = cell{valid: [3]bool{true, false, false}}

	var highScore int64
	var bestRow, bestDiag int64
	xHighScore := int64(negInf)
	var xBestRow, xBestDiag int64

	lo, hi := int64(0), int64(0)

	maxRow := refTargetLen
	if maxRow < qryTargetLen {
		maxRow = qryTargetLen
	}
	if maxRow == 0 {
		maxRow = 1
	}

	lastRow := int64(0)
	for i := int64(1); i <= maxRow; i++ {
		if !forced && e.breakLen > 0 && i-bestRow >= e.breakLen {
			break
		}
		lo--
		hi++
		if e.banding > 0 {
			if lo < targetDiag-half {
				lo = targetDiag - half
			}
			if hi > targetDiag+half {
				hi = targetDiag + half
			}
		}

		prev := arena.history[i-1]
		cur := arena.newRow()
		rowHadCell := false

		for d := lo; d <= hi; d++ {
			j := i + d
			if j < 0 || j > qryTargetLen || i > refTargetLen {
				continue
			}
			rb, rok := refByte(i)
			qb, qok := qryByte(j)

			var c cell
			if rok && qok {
				if pc, ok := prev[d]; ok {
					c.score[editMatch] = pc.best() + int64(e.matrix.Score(rb, qb))
					c.from[editMatch] = pc.bestType()
					c.valid[editMatch] = true
				}
			}
			if lc, ok := cur[d-1]; ok {
				open := lc.best() + int64(e.gap.Open)
				cont := int64(negInf)
				if lc.valid[editDelete] {
					cont = lc.score[editDelete] + int64(e.gap.Continue)
				}
				if cont >= open {
					c.score[editDelete] = cont
					c.from[editDelete] = editDelete
				} else {
					c.score[editDelete] = open
					c.from[editDelete] = lc.bestType()
				}
				c.valid[editDelete] = true
			}
			if pc2, ok := prev[d+1]; ok {
				open := pc2.best() + int64(e.gap.Open)
				cont := int64(negInf)
				if pc2.valid[editInsert] {
					cont = pc2.score[editInsert] + int64(e.gap.Continue)
				}
				if cont >= open {
					c.score[editInsert] = cont
					c.from[editInsert] = editInsert
				} else {
					c.score[editInsert] = open
					c.from[editInsert] = pc2.bestType()
				}
				c.valid[editInsert] = true
			}
			if !c.valid[editMatch] && !c.valid[editDelete] && !c.valid[editInsert] {
				continue
			}
			cur[d] = c
			rowHadCell = true

			score := c.best()
			if score > highScore {
				highScore = score
				bestRow, bestDiag = i, d
			}
			if seqEnd && (i == refTargetLen || j == qryTargetLen) && score > xHighScore {
				xHighScore = score
				xBestRow, xBestDiag = i, d
			}
		}

		if e.breakLen > 0 {
			threshold := highScore - e.breakLen*goodScore
			for d, c := range cur {
				if c.best() < threshold {
					delete(cur, d)
				}
			}
		}

		lastRow = i
		if !rowHadCell {
			break
		}
	}

	finalRow, finalDiag := bestRow, bestDiag
	reached := false
	switch {
	case !optimal:
		if lastRow >= refTargetLen {
			if c, ok := arena.history[refTargetLen][targetDiag]; ok {
				_ = c
				finalRow, finalDiag = refTargetLen, targetDiag
				reached = true
			}
		}
	case seqEnd && xHighScore > negInf:
		finalRow, finalDiag = xBestRow, xBestDiag
		reached = true
	default:
		reached = highScore > 0
	}

	refOff := finalRow
	qryOff := finalRow + finalDiag
	refEnd = refFrom + sign*refOff
	qryEnd = qryFrom + sign*qryOff

	if search {
		return nil, refEnd, qryEnd, reached
	}

	delta = traceback(arena.history, finalRow, finalDiag, sign)
	return delta, refEnd, qryEnd, reached
}

// traceback walks predecessor edit tags from (finalRow, finalDiag)
// back to row 0, recording each indel's sign (positive: insertion into
// the reference; negative: insertion into the query) and the MATCH run
// that follows it, then emits the tokens in forward order (§4.5
// "Delta generation"). Token magnitudes count matched residues since
// the previous indel (or since the origin) plus one, following the
// classic MUMmer delta convention.
func traceback(history []map[int64]cell, row, diag, sign int64) mumcore.Delta {
	var signs, runsAfter []int64
	matchRun := int64(0)

	r, d := row, diag
	t := history[r][d].bestType()
	for r > 0 {
		c := history[r][d]
		switch t {
		case editMatch:
			matchRun++
			t = c.from[editMatch]
			r--
		case editDelete:
			// Gap in the reference: the query advanced without the
			// reference advancing, so this step stays on row r but
			// moves to diag d-1.
			signs = append(signs, -1)
			runsAfter = append(runsAfter, matchRun)
			matchRun = 0
			t = c.from[editDelete]
			d--
		case editInsert:
			// Gap in the query: the reference advanced without the
			// query advancing.
			signs = append(signs, 1)
			runsAfter = append(runsAfter, matchRun)
			matchRun = 0
			t = c.from[editInsert]
			r--
			d++
		}
	}

	// Emit in forward (origin-to-target) order. matchRun now holds the
	// run between the origin and the first indel; each later indel's
	// run is the one recorded after its predecessor.
	delta := make(mumcore.Delta, len(signs))
	for k := range delta {
		idx := len(signs) - 1 - k
		delta[k] = signs[idx] * (matchRun + 1)
		matchRun = runsAfter[idx]
	}
	return delta
}
