package pipeline

import (
	"sync"

	"github.com/ndaniels/mumcore"
	"github.com/ndaniels/mumcore/cluster"
	"github.com/ndaniels/mumcore/extend"
	"github.com/ndaniels/mumcore/matchfinder"
	"github.com/ndaniels/mumcore/sparsesa"
	"github.com/ndaniels/mumcore/synteny"
)

// Query is one input record handed to the pipeline: an identifier and
// its raw (not yet normalized) residue bytes.
type Query struct {
	ID  string
	Seq []byte
}

// Block is the "one alignment block per (ref, qry, orientation)" unit
// §4.7 says the pipeline emits; a single query can produce up to two
// Blocks (forward and reverse-complement) under Orientation Both,
// which QueryPipeline coalesces into one Block per query here since
// both orientations share the same QueryID and the output sink only
// needs to serialize on a per-query boundary.
type Block struct {
	QueryID    string
	Alignments []mumcore.Alignment
}

// Sink receives finished Blocks. §5 requires the output side serialize
// on a single mutex around each block write; MutexSink below is the
// expected implementation, grounded on the teacher's writer-goroutine +
// channel pattern (compressed.go) generalized to a directly-called,
// mutex-guarded Emit instead of a channel, since a query pipeline's
// output ordering guarantee (§5: "alignments across queries may
// interleave") doesn't require a serializing goroutine of its own.
type Sink interface {
	Emit(Block)
}

// MutexSink accumulates Blocks behind a single mutex.
type MutexSink struct {
	mu     sync.Mutex
	blocks []Block
}

func (s *MutexSink) Emit(b Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, b)
}

// Blocks returns a snapshot of everything emitted so far.
func (s *MutexSink) Blocks() []Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// QueryPipeline wires §4.7's normalize -> MatchFinder -> MatchClusterer
// -> SyntenyMerger chain over one fixed, read-only sparsesa.Index. It
// is driven by a worker-per-query jobs/wg pool grounded on the
// teacher's cmd/cablastp-compress/compression.go alignPool (a buffered
// jobs channel drained by a fixed goroutine pool, joined by a
// sync.WaitGroup), chosen over this package's cooperative Ring because
// a query batch's job count is known up front, unlike the teacher's
// unbounded compression stream.
type QueryPipeline struct {
	idx    *sparsesa.Index
	conf   mumcore.AlignerConf
	matrix *mumcore.ScoringMatrix
	gap    mumcore.GapPenalty
	sink   Sink
}

// NewQueryPipeline returns a pipeline bound to idx (immutable and
// shared read-only across every worker goroutine per §5) and conf.
// matrix/gap select ExtendAligner's scoring; sink receives one Block
// per query.
func NewQueryPipeline(idx *sparsesa.Index, conf mumcore.AlignerConf, matrix *mumcore.ScoringMatrix, gap mumcore.GapPenalty, sink Sink) *QueryPipeline {
	return &QueryPipeline{idx: idx, conf: conf, matrix: matrix, gap: gap, sink: sink}
}

// Run spawns workers goroutines and blocks until every query in the
// batch has produced its Block, one thread per query worker per §5's
// scheduling model ("fixed set of OS threads... one thread per query
// worker").
func (qp *QueryPipeline) Run(queries []Query, workers int) {
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan Query, len(queries))
	for _, q := range queries {
		jobs <- q
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qp.worker(jobs)
		}()
	}
	wg.Wait()
}

// worker is one query thread's unit of work: it owns its own
// Finder/Clusterer/Merger (each cheap value wrappers around the shared
// read-only Index, matrix, and gap penalty) so no per-query state is
// shared across goroutines, matching §5's "no locks are taken on the
// read path" and keeping every mutable scratch structure (the
// extend.Arena a Merger allocates per Merge call) thread-local.
func (qp *QueryPipeline) worker(jobs <-chan Query) {
	forwardConf := qp.conf
	forwardConf.Orientation = mumcore.Forward
	reverseConf := qp.conf
	reverseConf.Orientation = mumcore.Reverse

	forwardFinder := matchfinder.New(qp.idx, forwardConf)
	reverseFinder := matchfinder.New(qp.idx, reverseConf)
	clusterer := cluster.New(qp.conf)
	ext := extend.New(qp.matrix, qp.gap, qp.conf.Banding, int64(qp.conf.BreakLen))
	merger := synteny.New(ext, qp.conf)

	for q := range jobs {
		qp.processQuery(forwardFinder, reverseFinder, clusterer, merger, q)
	}
}

// processQuery runs one query through the full §4.7 chain and emits its
// Block. Reverse-strand matches are discovered against the reverse
// complement of the normalized query (the same copy SyntenyMerger
// reconstructs internally per cluster, per §4.6's DirQ handling), so
// their reported qryPos values already share that copy's coordinate
// system; Merge is always handed the forward-oriented normalized query
// and recovers the reverse-complement copy itself from each cluster's
// DirQ.
func (qp *QueryPipeline) processQuery(ff, rf *matchfinder.Finder, clusterer *cluster.Clusterer, merger *synteny.Merger, q Query) {
	norm := normalizeQuery(q.Seq, qp.idx.NucleotidesOnly())
	ref := qp.idx.Seq.Slice(1, qp.idx.Seq.Len())

	var clusters []mumcore.Cluster
	if qp.conf.Orientation == mumcore.Forward || qp.conf.Orientation == mumcore.Both {
		clusters = append(clusters, clusterer.Cluster(collectMatches(ff, norm), mumcore.StrandForward)...)
	}
	if qp.conf.Orientation == mumcore.Reverse || qp.conf.Orientation == mumcore.Both {
		clusters = append(clusters, clusterer.Cluster(collectMatches(rf, norm), mumcore.StrandReverse)...)
	}

	alignments := merger.Merge(ref, norm, clusters)
	qp.sink.Emit(Block{QueryID: q.ID, Alignments: alignments})
}

// collectMatches drains one strand's matches from finder into a slice
// of mumcore.Match, converting matchfinder's 0-based query offsets into
// the 1-based convention the rest of the data model (§3) uses.
func collectMatches(finder *matchfinder.Finder, qry []byte) []mumcore.Match {
	var matches []mumcore.Match
	finder.Find(qry, func(refPos, qryPos, length int64) {
		matches = append(matches, mumcore.Match{RefStart: refPos, QryStart: qryPos + 1, Length: length})
	})
	return matches
}

// normalizeQuery lowercases seq and maps any byte outside a/c/g/t to a
// single placeholder symbol, per §4.7: '~' in nucleotides-only mode,
// else 'x'. The input is never mutated in place since callers may reuse
// the original Query across batches.
func normalizeQuery(seq []byte, nucleotidesOnly bool) []byte {
	placeholder := byte('x')
	if nucleotidesOnly {
		placeholder = '~'
	}
	out := make([]byte, len(seq))
	for i, b := range seq {
		lb := lowerByte(b)
		switch lb {
		case 'a', 'c', 'g', 't':
			out[i] = lb
		default:
			out[i] = placeholder
		}
	}
	return out
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
