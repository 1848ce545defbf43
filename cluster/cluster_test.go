package cluster

import (
	"testing"

	"github.com/ndaniels/mumcore"
)

func TestUnionFindBasic(t *testing.T) {
	uf := newUnionFind(5)
	uf.Union(0, 1)
	uf.Union(1, 2)
	if uf.Find(0) != uf.Find(2) {
		t.Fatalf("expected 0 and 2 to share a root after transitive union")
	}
	if uf.Find(3) == uf.Find(0) {
		t.Fatalf("expected 3 to remain in its own set")
	}
}

func TestDisjointSetsConcurrentUnion(t *testing.T) {
	ds := NewDisjointSets(100)
	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		w := w
		go func() {
			for i := w; i < 99; i += 4 {
				ds.Union(i, i+1)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	root := ds.Find(0)
	for i := 1; i < 100; i++ {
		if ds.Find(i) != root {
			t.Fatalf("expected every element to share one root after chained unions, index %d diverged", i)
		}
	}
}

func TestFilterSubsumed(t *testing.T) {
	matches := []mumcore.Match{
		{RefStart: 10, QryStart: 10, Length: 5},  // subsumed by the one below
		{RefStart: 8, QryStart: 8, Length: 20},
	}
	kept := filterSubsumed(matches)
	if len(kept) != 1 {
		t.Fatalf("expected the shorter subsumed match to be filtered, got %d matches", len(kept))
	}
	if kept[0].Length != 20 {
		t.Fatalf("expected the longer match to survive, got length %d", kept[0].Length)
	}
}

func TestClusterGroupsByDiagonal(t *testing.T) {
	conf := mumcore.DefaultAlignerConf
	conf.MaxSeparation = 100
	conf.FixedSeparation = 5
	conf.MinOutputScore = 1

	// Two matches on the same diagonal, close together in qry: should
	// cluster and chain together.
	matches := []mumcore.Match{
		{RefStart: 100, QryStart: 100, Length: 10},
		{RefStart: 115, QryStart: 115, Length: 10},
		// Far away on a very different diagonal: separate cluster.
		{RefStart: 5000, QryStart: 100000, Length: 10},
	}

	c := New(conf)
	clusters := c.Cluster(matches, mumcore.StrandForward)
	if len(clusters) < 2 {
		t.Fatalf("expected at least 2 clusters, got %d", len(clusters))
	}

	var sawPair bool
	for _, cl := range clusters {
		if len(cl.Matches) == 2 {
			sawPair = true
		}
	}
	if !sawPair {
		t.Fatalf("expected the two nearby same-diagonal matches to chain into one cluster")
	}
}

func TestClusterOrderingAscendingRefStart(t *testing.T) {
	conf := mumcore.DefaultAlignerConf
	conf.MinOutputScore = 1
	matches := []mumcore.Match{
		{RefStart: 900, QryStart: 10, Length: 10},
		{RefStart: 100, QryStart: 100000, Length: 10},
		{RefStart: 500, QryStart: 200000, Length: 10},
	}
	c := New(conf)
	clusters := c.Cluster(matches, mumcore.StrandForward)
	for i := 1; i < len(clusters); i++ {
		if firstRefStart(clusters[i]) < firstRefStart(clusters[i-1]) {
			t.Fatalf("clusters not ascending by refStart: %v", clusters)
		}
	}
}

func TestChainDPPrefersHigherScoringChain(t *testing.T) {
	// Two candidate chains through 3 collinear matches on one diagonal:
	// chaining all three should score higher than any pair, since there
	// is no overlap/diagonal penalty between them.
	group := []mumcore.Match{
		{RefStart: 100, QryStart: 100, Length: 10},
		{RefStart: 120, QryStart: 120, Length: 10},
		{RefStart: 140, QryStart: 140, Length: 10},
	}
	c := New(mumcore.DefaultAlignerConf)
	chain, set := c.bestChain(group)
	if len(chain) != 3 {
		t.Fatalf("expected all 3 collinear matches to chain together, got %d", len(chain))
	}
	if len(set) != 3 {
		t.Fatalf("chain set size mismatch: %d", len(set))
	}
}
