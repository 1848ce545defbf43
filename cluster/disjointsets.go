package cluster

import "sync/atomic"

// DisjointSets is a lock-free union-find over a fixed universe of size
// n, used by the parallel clustering path (§4.4, §5). parent[i] holds
// 1+root when i is its own root (root detection needs a sentinel,
// since the zero value of an atomic.Int64 can't double as "points to
// index 0"), so Find subtracts 1 before comparing against i.
//
// Union races are resolved with CompareAndSwap; a union that loses its
// race simply retries against the (now more up to date) parent it
// read, mirroring the teacher's only other lock-free primitive
// (progress_bar.go's atomic counter) generalized from a plain counter
// to a CAS-based parent array per the spec's "lock-free atomic parent
// array" note.
type DisjointSets struct {
	parent []atomic.Int64
}

// NewDisjointSets returns a DisjointSets over the universe [0,n), with
// every element initially its own root.
func NewDisjointSets(n int) *DisjointSets {
	ds := &DisjointSets{parent: make([]atomic.Int64, n)}
	for i := range ds.parent {
		ds.parent[i].Store(int64(i) + 1)
	}
	return ds
}

// Find returns the current root of x, path-compressing via CAS along
// the way. Safe for concurrent use.
func (ds *DisjointSets) Find(x int) int {
	for {
		p := int(ds.parent[x].Load()) - 1
		if p == x {
			return x
		}
		gp := int(ds.parent[p].Load()) - 1
		if gp != p {
			ds.parent[x].CompareAndSwap(int64(p)+1, int64(gp)+1)
		}
		x = p
	}
}

// Union merges the sets containing a and b. Ties are broken by the
// numerically smaller root becoming the new root, giving Union a
// deterministic outcome regardless of call order (needed since two
// goroutines may race to union the same pair).
func (ds *DisjointSets) Union(a, b int) {
	for {
		ra, rb := ds.Find(a), ds.Find(b)
		if ra == rb {
			return
		}
		if ra > rb {
			ra, rb = rb, ra
		}
		if ds.parent[rb].CompareAndSwap(int64(rb)+1, int64(ra)+1) {
			return
		}
		// Lost the race (rb's root moved under us); retry with fresh roots.
	}
}
