package mumcore

import (
	"github.com/BurntSushi/cablastp/blosum"
)

// ScoringMatrix maps a pair of residue bytes to an integer score,
// the same role biogo/NCBI scoring matrices play, but indexed
// directly by byte rather than by an alphabet-translated index so
// ExtendAligner's hot loop avoids a translation step.
type ScoringMatrix struct {
	Name    string
	scores  [256][256]int32
	minimum int32
	good    int32
}

// Score returns the substitution score for aligning a against b.
func (m *ScoringMatrix) Score(a, b byte) int {
	return int(m.scores[a][b])
}

// MinScore is used as the effective "-infinity" sentinel described in
// §4.5: a value low enough that any real accumulated path score beats
// it, but that still fits the matrix's integer cell type without
// overflowing during accumulation.
func (m *ScoringMatrix) MinScore() int { return int(m.minimum) }

// GoodScore is the best attainable per-residue score this matrix ever
// awards (a perfect match), used by ExtendAligner's trim rule as the
// unit "goodScore · breakLen" cutoff (§4.5).
func (m *ScoringMatrix) GoodScore() int { return int(m.good) }

func (m *ScoringMatrix) computeGoodScore() {
	var best int32 = m.minimum
	for a := 0; a < 256; a++ {
		if m.scores[a][a] > best {
			best = m.scores[a][a]
		}
	}
	m.good = best
}

// NucMatrix is the default nucleotide scoring matrix: a simple
// match/mismatch scheme matching MUMmer's nucmer defaults (+1 match,
// -1 mismatch, N always mismatches). No corpus library supplies a
// DNA scoring matrix, so this table is hand-built, same as the
// teacher hand-builds its amino acid index tables in seeds.go.
var NucMatrix = buildNucMatrix(1, -1)

func buildNucMatrix(match, mismatch int32) *ScoringMatrix {
	m := &ScoringMatrix{Name: "nuc", minimum: -1 << 20}
	bases := []byte{'a', 'c', 'g', 't', 'A', 'C', 'G', 'T'}
	for _, a := range bases {
		for _, b := range bases {
			if upper(a) == upper(b) {
				m.scores[a][b] = match
			} else {
				m.scores[a][b] = mismatch
			}
		}
	}
	m.computeGoodScore()
	return m
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// blosumMatrix adapts github.com/BurntSushi/cablastp/blosum's
// alphabet-indexed tables into a byte-indexed ScoringMatrix, for the
// protein mode ExtendAligner needs when aligning 6-frame-translated
// query ORFs against a protein reference (§1's non-goal excludes
// protein-vs-protein *without* the translation adapter, not protein
// scoring itself).
func blosumMatrix(name string, table [][]int, alphabet string) *ScoringMatrix {
	m := &ScoringMatrix{Name: name, minimum: -1 << 20}
	for i, a := range alphabet {
		for j, b := range alphabet {
			score := int32(table[i][j])
			m.scores[byte(a)][byte(b)] = score
			m.scores[upper(byte(a))][byte(b)] = score
			m.scores[byte(a)][upper(byte(b))] = score
			m.scores[upper(byte(a))][upper(byte(b))] = score
		}
	}
	m.computeGoodScore()
	return m
}

// Blosum45, Blosum62, Blosum80 are the three protein matrices §4.5
// names (Gap-open/continue penalties vary by matrix type). They are
// built at package initialization, whether or not protein mode is
// used.
var (
	Blosum45 = blosumMatrix("blosum45", blosum.Matrix45, blosum.Alphabet62)
	Blosum62 = blosumMatrix("blosum62", blosum.Matrix62, blosum.Alphabet62)
	Blosum80 = blosumMatrix("blosum80", blosum.Matrix80, blosum.Alphabet62)
)

// GapPenalty holds the open/continue costs for one edit type, varying
// by matrix per §4.5.
type GapPenalty struct {
	Open     int
	Continue int
}

// DefaultGapPenalty is used with NucMatrix.
var DefaultGapPenalty = GapPenalty{Open: -5, Continue: -2}

// BlosumGapPenalty returns the conventional affine gap costs paired
// with each BLOSUM matrix (BLAST's published defaults).
func BlosumGapPenalty(name string) GapPenalty {
	switch name {
	case "blosum45":
		return GapPenalty{Open: -13, Continue: -3}
	case "blosum80":
		return GapPenalty{Open: -10, Continue: -1}
	default:
		return GapPenalty{Open: -11, Continue: -1}
	}
}
