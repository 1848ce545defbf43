// Package cluster implements diagonal-proximity clustering and
// per-cluster chain selection over a list of matches (§4.4).
package cluster

import (
	"sort"
	"sync"

	"github.com/ndaniels/mumcore"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Clusterer groups matches by diagonal proximity and selects the
// best-scoring chain within each resulting cluster.
type Clusterer struct {
	conf mumcore.AlignerConf
}

// New returns a Clusterer configured by conf (MaxSeparation,
// FixedSeparation, SeparationFactor, MinOutputScore, UseExtent).
func New(conf mumcore.AlignerConf) *Clusterer {
	return &Clusterer{conf: conf}
}

// Cluster runs the full pipeline of §4.4 over matches (assumed sorted
// by qryPos then refPos) for a single query orientation dirQ: filter
// subsumed repeats, union by diagonal proximity, chain-select per
// cluster, and peel accepted chains until every match has either been
// selected into some chain or permanently discarded. Returns clusters
// ordered ascending by the refStart of their first match (§4.4
// "ordering guarantee").
func (c *Clusterer) Cluster(matches []mumcore.Match, dirQ mumcore.Strand) []mumcore.Cluster {
	filtered := filterSubsumed(matches)
	if len(filtered) == 0 {
		return nil
	}

	labels := c.labelByDiagonal(filtered)

	byCluster := make(map[uint32][]int)
	for i, label := range labels {
		byCluster[label] = append(byCluster[label], i)
	}

	var clusters []mumcore.Cluster
	for label, idxs := range byCluster {
		sort.Slice(idxs, func(a, b int) bool {
			ma, mb := filtered[idxs[a]], filtered[idxs[b]]
			if ma.QryStart != mb.QryStart {
				return ma.QryStart < mb.QryStart
			}
			return ma.RefStart < mb.RefStart
		})
		group := make([]mumcore.Match, len(idxs))
		for i, gi := range idxs {
			group[i] = filtered[gi]
		}
		clusters = append(clusters, c.chainAndPeel(group, dirQ, label)...)
	}

	sort.Slice(clusters, func(a, b int) bool {
		return firstRefStart(clusters[a]) < firstRefStart(clusters[b])
	})
	return clusters
}

// ClusterLong is the parallel-sort variant used on large match lists:
// it partitions the input into worker-sized spans, sorts each
// concurrently, then merges, honoring the OpenMP-parallel intent
// documented for this sort rather than falling back to a serial
// sort.Slice (an Open Question resolution; see the project ledger).
func (c *Clusterer) ClusterLong(matches []mumcore.Match, dirQ mumcore.Strand, workers int) []mumcore.Cluster {
	if workers < 1 {
		workers = 1
	}
	sorted := parallelSortByQryThenRef(matches, workers)
	return c.Cluster(sorted, dirQ)
}

func parallelSortByQryThenRef(matches []mumcore.Match, workers int) []mumcore.Match {
	n := len(matches)
	if n == 0 || workers == 1 {
		out := append([]mumcore.Match(nil), matches...)
		sort.Slice(out, func(a, b int) bool { return lessQryRef(out[a], out[b]) })
		return out
	}

	chunkSize := (n + workers - 1) / workers
	chunks := make([][]mumcore.Match, 0, workers)
	for lo := 0; lo < n; lo += chunkSize {
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		chunk := append([]mumcore.Match(nil), matches[lo:hi]...)
		chunks = append(chunks, chunk)
	}

	var wg sync.WaitGroup
	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		go func() {
			defer wg.Done()
			sort.Slice(chunk, func(a, b int) bool { return lessQryRef(chunk[a], chunk[b]) })
		}()
	}
	wg.Wait()

	for len(chunks) > 1 {
		var merged [][]mumcore.Match
		for i := 0; i < len(chunks); i += 2 {
			if i+1 == len(chunks) {
				merged = append(merged, chunks[i])
				continue
			}
			merged = append(merged, mergeSorted(chunks[i], chunks[i+1]))
		}
		chunks = merged
	}
	if len(chunks) == 0 {
		return nil
	}
	return chunks[0]
}

func lessQryRef(a, b mumcore.Match) bool {
	if a.QryStart != b.QryStart {
		return a.QryStart < b.QryStart
	}
	return a.RefStart < b.RefStart
}

func mergeSorted(a, b []mumcore.Match) []mumcore.Match {
	out := make([]mumcore.Match, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if lessQryRef(a[i], b[j]) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// filterSubsumed drops any match entirely contained, on both axes, by
// another match in the list (§4.4 step 1).
func filterSubsumed(matches []mumcore.Match) []mumcore.Match {
	kept := make([]mumcore.Match, 0, len(matches))
	for i, m := range matches {
		subsumed := false
		for j, other := range matches {
			if i == j {
				continue
			}
			if other.RefStart <= m.RefStart && other.RefEnd() >= m.RefEnd() &&
				other.QryStart <= m.QryStart && other.QryEnd() >= m.QryEnd() &&
				(other.Length > m.Length || (other.Length == m.Length && j < i)) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, m)
		}
	}
	return kept
}

// labelByDiagonal unions matches within MaxSeparation of each other on
// the query axis whose diagonal difference is within the allowed
// tolerance, returning each match's cluster label (a UF root index).
func (c *Clusterer) labelByDiagonal(matches []mumcore.Match) []uint32 {
	n := len(matches)
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sep := matches[j].QryStart - (matches[i].QryStart + matches[i].Length)
			if sep > int64(c.conf.MaxSeparation) {
				break
			}
			diagDiff := matches[j].Diagonal() - matches[i].Diagonal()
			if diagDiff < 0 {
				diagDiff = -diagDiff
			}
			tolerance := int64(c.conf.FixedSeparation)
			scaled := int64(float64(sep) * c.conf.SeparationFactor)
			if scaled > tolerance {
				tolerance = scaled
			}
			if diagDiff <= tolerance {
				uf.Union(i, j)
			}
		}
	}
	labels := make([]uint32, n)
	for i := 0; i < n; i++ {
		labels[i] = uint32(uf.Find(i))
	}
	return labels
}

// chainAndPeel runs the chain DP over one diagonal-proximity group
// (already sorted by qryPos then refPos), accepts the best chain if it
// scores at least MinOutputScore, removes its members, and repeats
// until the group is exhausted (§4.4 steps 4-5).
func (c *Clusterer) chainAndPeel(group []mumcore.Match, dirQ mumcore.Strand, label uint32) []mumcore.Cluster {
	var clusters []mumcore.Cluster
	remaining := group

	for len(remaining) > 0 {
		chain, chainSet := c.bestChain(remaining)
		if len(chain) == 0 {
			break
		}

		score := chainScore(chain, c.conf.UseExtent)
		if score < int64(c.conf.MinOutputScore) {
			// No remaining chain in this group can score higher than the
			// current best (bestChain always returns the argmax chain),
			// so further iteration would only repeat rejection.
			break
		}

		em := make([]mumcore.ExtendedMatch, len(chain))
		for i, m := range chain {
			em[i] = mumcore.ExtendedMatch{Match: m, Good: true, ClusterID: label}
		}
		clusters = append(clusters, mumcore.Cluster{DirQ: dirQ, Matches: em})

		next := remaining[:0:0]
		for i, m := range remaining {
			if chainSet[i] {
				continue
			}
			next = append(next, m)
		}
		remaining = next
	}
	return clusters
}

// bestChain runs the overlap/diagonal-penalty chain DP of §4.4 step 4
// over group, using a gonum DAG whose edges are the genuine "j can
// precede i in a chain" precedence relation (j starts no later than i
// on both axes and not at the same point; overlapping spans still get
// an edge and pay the overlap penalty). That relation is a partial
// order, not a total one: two matches whose start points cross in
// opposite directions
// are incomparable and get no edge either way, so topo.Sort's output
// is not simply the input order, and the DP below only consults a
// node's actual predecessors (g.To) rather than every earlier index.
func (c *Clusterer) bestChain(group []mumcore.Match) ([]mumcore.Match, map[int]bool) {
	n := len(group)
	if n == 0 {
		return nil, nil
	}

	g := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			mi, mj := group[i], group[j]
			if mj.RefStart <= mi.RefStart && mj.QryStart <= mi.QryStart &&
				!(mj.RefStart == mi.RefStart && mj.QryStart == mi.QryStart) {
				g.SetEdge(g.NewEdge(simple.Node(j), simple.Node(i)))
			}
		}
	}
	order, err := topo.Sort(g)
	if err != nil {
		order = nil
		for i := 0; i < n; i++ {
			order = append(order, simple.Node(i))
		}
	}

	simpleScore := make([]int64, n)
	from := make([]int32, n)
	for i := range from {
		from[i] = -1
		simpleScore[i] = group[i].Length
	}

	for _, node := range order {
		i := int(node.ID())
		preds := g.To(node.ID())
		for preds.Next() {
			j := int(preds.Node().ID())
			mi, mj := group[i], group[j]
			olap := maxInt64(0, mj.RefEnd()-mi.RefStart, mj.QryEnd()-mi.QryStart)
			diagDelta := mi.Diagonal() - mj.Diagonal()
			if diagDelta < 0 {
				diagDelta = -diagDelta
			}
			pen := olap + diagDelta
			candidate := simpleScore[j] + mi.Length - pen
			if candidate > simpleScore[i] {
				simpleScore[i] = candidate
				from[i] = int32(j)
			}
		}
	}

	best := 0
	for i := 1; i < n; i++ {
		if simpleScore[i] > simpleScore[best] {
			best = i
		}
	}

	chainSet := make(map[int]bool)
	var chain []mumcore.Match
	for cur := best; cur != -1; cur = int(from[cur]) {
		chain = append(chain, group[cur])
		chainSet[cur] = true
	}
	// Reverse into ascending order (traceback walks front to back).
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain, chainSet
}

func chainScore(chain []mumcore.Match, useExtent bool) int64 {
	if !useExtent {
		var total int64
		for _, m := range chain {
			total += m.Length
		}
		return total
	}
	lo, hi := chain[0].RefStart, chain[0].RefEnd()
	for _, m := range chain[1:] {
		if m.RefStart < lo {
			lo = m.RefStart
		}
		if m.RefEnd() > hi {
			hi = m.RefEnd()
		}
	}
	return hi - lo
}

func firstRefStart(c mumcore.Cluster) int64 {
	if len(c.Matches) == 0 {
		return 0
	}
	return c.Matches[0].RefStart
}

func maxInt64(vs ...int64) int64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
