package mumcore

import (
	"sort"
)

// Sentinel byte values. leftSentinel and rightSentinel are distinct so
// that position-0 and position-(N+1) reads never compare equal to each
// other, and both sort strictly below every alphabet member and below
// recordSeparator (§4.1).
const (
	leftSentinel    byte = 0x00
	rightSentinel   byte = 0x01
	recordSeparator byte = '`'
)

// BoundedSequence owns a concatenated byte buffer and exposes 1-based
// indexed access with sentinel bounds, per §3/§4.1. It is built once
// when a reference is ingested and is immutable and safely shared
// read-only across query threads thereafter.
type BoundedSequence struct {
	buf []byte // buf[0] is the first real residue; logical position i maps to buf[i-1]
	n   int64

	// startPos[k] is the 1-based concatenated start position of
	// record k. Translating a raw position to (recordIndex,
	// offsetInRecord) is an upper-bound binary search over this
	// table (§4.1).
	startPos []int64
}

// NewBoundedSequence concatenates records (residue bytes stored as
// given, with no case folding; one slice per input record) with
// recordSeparator between them, recording each record's start offset.
func NewBoundedSequence(records [][]byte) *BoundedSequence {
	total := 0
	for i, r := range records {
		total += len(r)
		if i > 0 {
			total++ // separator
		}
	}
	buf := make([]byte, 0, total)
	startPos := make([]int64, len(records))
	for i, r := range records {
		if i > 0 {
			buf = append(buf, recordSeparator)
		}
		startPos[i] = int64(len(buf)) + 1
		buf = append(buf, r...)
	}
	return &BoundedSequence{buf: buf, n: int64(len(buf)), startPos: startPos}
}

// Len returns N, the logical length of the concatenated sequence.
func (s *BoundedSequence) Len() int64 { return s.n }

// Byte returns the residue at 1-based position i. Position 0 returns
// leftSentinel; any position > N returns rightSentinel. Both compare
// strictly less than every alphabet member and below recordSeparator,
// and the two sentinels never alias each other (§4.1).
func (s *BoundedSequence) Byte(i int64) byte {
	if i <= 0 {
		return leftSentinel
	}
	if i > s.n {
		return rightSentinel
	}
	return s.buf[i-1]
}

// Slice returns the residues in [from, to] inclusive, both 1-based and
// clamped to the sequence's real extent (sentinels are not included).
func (s *BoundedSequence) Slice(from, to int64) []byte {
	if from < 1 {
		from = 1
	}
	if to > s.n {
		to = s.n
	}
	if from > to {
		return nil
	}
	return s.buf[from-1 : to]
}

// Locate translates a 1-based concatenated position into its owning
// record index and the 0-based offset within that record, via
// upper-bound binary search over startPos (§4.1). A plain sort.Search
// is the idiomatic choice here: the table is small and read-only, so
// there's no case for an ordered-tree library.
func (s *BoundedSequence) Locate(pos int64) (recordIndex int, offsetInRecord int64) {
	// sort.Search finds the first index i such that startPos[i] > pos;
	// the owning record is i-1.
	i := sort.Search(len(s.startPos), func(i int) bool {
		return s.startPos[i] > pos
	})
	recordIndex = i - 1
	if recordIndex < 0 {
		recordIndex = 0
	}
	offsetInRecord = pos - s.startPos[recordIndex]
	return recordIndex, offsetInRecord
}

// NumRecords returns the number of concatenated input records.
func (s *BoundedSequence) NumRecords() int { return len(s.startPos) }

// RecordStart returns the 1-based start position of record i.
func (s *BoundedSequence) RecordStart(i int) int64 { return s.startPos[i] }

// ReverseComplement returns the reverse complement of seq, using the
// same hand-rolled complement table the teacher uses in translate.go
// (there is no corpus library whose API this module is confident
// enough in to bind for a four-symbol lookup).
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = complement(b)
	}
	return out
}

func complement(b byte) byte {
	switch b {
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'c':
		return 'g'
	case 'g':
		return 'c'
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	case 'n', 'N':
		return b
	default:
		return b
	}
}
