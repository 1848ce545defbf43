// Package mumcore implements the shared data model for an indexed
// maximal-match aligner: a sparse enhanced suffix array over a
// concatenated reference sequence, and the match/cluster/alignment
// records produced while searching it.
//
// The algorithmic subsystems live in sibling packages:
//
//	sparsesa    sparse suffix array construction, search, persistence
//	matchfinder MUM / MAM / MEM enumeration over a sparsesa.Index
//	cluster     diagonal clustering and chain selection
//	extend      banded Smith-Waterman extension
//	synteny     cluster ordering, extension, and alignment emission
//	skiplist    lock-free auxiliary ordered set
//	pipeline    threaded batching of queries through the index
//
// FASTA parsing, delta-text formatting, and command-line handling are
// deliberately not part of this module; callers supply raw sequence
// bytes and consume Alignment values directly.
package mumcore
