package mumcore

import "fmt"

// Match is a single maximal exact match record (§3): both positions are
// 1-based into the untranslated concatenated reference and the query
// respectively. Whether it is unique, reference-unique, or merely
// maximal depends on which of MUM/MAM/MEM produced it.
type Match struct {
	RefStart int64
	QryStart int64
	Length   int64
}

func (m Match) RefEnd() int64 { return m.RefStart + m.Length - 1 }
func (m Match) QryEnd() int64 { return m.QryStart + m.Length - 1 }

// Diagonal is the constant qryPos-refPos offset a match lies on;
// matches on the same diagonal are candidates for the same cluster
// (§4.4).
func (m Match) Diagonal() int64 { return m.QryStart - m.RefStart }

// Less reports whether m is the "smaller" of two matches by raw length,
// mirroring the teacher's match.go Less (there: bigger reference span
// of a link entry; here: longer raw match). No code in this module
// calls it; the chain DP ranks matches by its own scores.
func (m Match) Less(other Match) bool { return m.Length < other.Length }

// ExtendedMatch augments Match with the clustering-time fields of §3:
// simple chain score/back-pointer bookkeeping plus cluster membership.
type ExtendedMatch struct {
	Match
	SimpleScore int64
	SimpleFrom  int32 // -1 if no predecessor
	SimpleAdj   int64
	ClusterID   uint32 // low 30 bits significant, per the u30 field in §3
	Good        bool
	Tentative   bool
}

// Cluster is a diagonal-proximity-connected set of matches sharing one
// query orientation (§3).
type Cluster struct {
	DirQ    Strand
	Matches []ExtendedMatch
	Fused   bool
}

// Strand is the query orientation a Cluster or Alignment was computed
// against.
type Strand int8

const (
	StrandForward Strand = 1
	StrandReverse Strand = -1
)

func (s Strand) String() string {
	if s == StrandReverse {
		return "-"
	}
	return "+"
}

// Delta is the classic MUMmer edit script (§3, §6): each value d
// encodes |d|-1 matched positions followed by an insertion into the
// reference (d > 0) or an insertion into the query (d < 0). The script
// has no trailing terminating zero in memory; a zero is only written
// when the (out-of-scope) text format is serialized.
type Delta []int64

// Alignment is one emitted gapped alignment (§3).
type Alignment struct {
	RefBegin, RefEnd int64
	QryBegin, QryEnd int64
	DirQ             Strand
	DeltaScript      Delta

	Errors    int64
	SimErrors int64
	NonAlphas int64
}

func (a Alignment) String() string {
	return fmt.Sprintf("[%d,%d] x [%d,%d] (%s) errors=%d simerrors=%d nonalpha=%d delta=%v",
		a.RefBegin, a.RefEnd, a.QryBegin, a.QryEnd, a.DirQ,
		a.Errors, a.SimErrors, a.NonAlphas, []int64(a.DeltaScript))
}

// ContainsOnBothAxes reports whether a strictly contains other on both
// the reference and query axes, used by SyntenyMerger to skip clusters
// shadowed by an already-emitted alignment (§4.6).
func (a Alignment) ContainsOnBothAxes(other Alignment) bool {
	return a.RefBegin <= other.RefBegin && a.RefEnd >= other.RefEnd &&
		a.QryBegin <= other.QryBegin && a.QryEnd >= other.QryEnd
}
