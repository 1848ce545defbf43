// Package skiplist implements a lock-free ordered set of int64 keys
// with CAS-based tower-pointer insertion (§5's "auxiliary SkipListSet"
// and §9's mt_skip_list note). Erase is intentionally unsupported: the
// source's own mt_skip_list::set::erase body is empty, so this port
// treats erase as out of scope rather than bug-compatibly stubbing it.
package skiplist

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

const maxLevel = 24

type node struct {
	key  int64
	next [maxLevel]atomic.Pointer[node]
	top  int // highest valid index into next
}

// Set is a probabilistic skip list supporting concurrent, lock-free
// Insert and wait-free Contains/Range given a consistent snapshot of
// levels (§5).
type Set struct {
	p    float64 // tower-height base probability, p ∈ {2,4} in §5 means 1/2 or 1/4
	head *node
	size atomic.Int64
}

// NewSet returns an empty Set. p is the probability base from §5
// (pass 4 for the default 1-in-4 tower growth, 2 for 1-in-2).
func NewSet(p int) *Set {
	if p < 2 {
		p = 4
	}
	head := &node{key: minKey, top: maxLevel - 1}
	return &Set{p: 1.0 / float64(p), head: head}
}

const (
	minKey = int64(-1) << 62
	maxKey = int64(1)<<62 - 1
)

var seedCounter atomic.Int64

var rngPool = sync.Pool{
	New: func() any { return rand.New(rand.NewSource(randSeed())) },
}

// randSeed mixes wall-clock time with a monotonically increasing
// counter so concurrently-created *rand.Rand instances (one per
// goroutine via rngPool) don't share a seed; the tower-height
// distribution only needs to be roughly uniform across goroutines, not
// cryptographically random.
func randSeed() int64 {
	return time.Now().UnixNano() ^ seedCounter.Add(1)
}

func (s *Set) randomLevel() int {
	r := rngPool.Get().(*rand.Rand)
	defer rngPool.Put(r)
	level := 0
	for level < maxLevel-1 && r.Float64() < s.p {
		level++
	}
	return level
}

// Insert adds key to the set, reporting whether it was newly inserted
// (false if key was already present). Safe for concurrent use.
func (s *Set) Insert(key int64) bool {
	level := s.randomLevel()
	preds, succs := s.findPredecessors(key)
	if succs[0] != nil && succs[0].key == key {
		return false
	}

	newNode := &node{key: key, top: level}
	for {
		for l := 0; l <= level; l++ {
			newNode.next[l].Store(succs[l])
		}

		pred := preds[0]
		succ := succs[0]
		if !pred.next[0].CompareAndSwap(succ, newNode) {
			// Lost the race at the base level; re-scan and retry.
			preds, succs = s.findPredecessors(key)
			if succs[0] != nil && succs[0].key == key {
				return false
			}
			continue
		}
		break
	}

	for l := 1; l <= level; l++ {
		for {
			pred := preds[l]
			succ := succs[l]
			if pred.next[l].CompareAndSwap(succ, newNode) {
				break
			}
			preds, succs = s.findPredecessors(key)
		}
	}

	s.size.Add(1)
	return true
}

// Contains reports whether key is present. Wait-free against a
// consistent snapshot of the list (no locks are ever taken).
func (s *Set) Contains(key int64) bool {
	cur := s.head
	for l := cur.top; l >= 0; l-- {
		for {
			next := cur.next[l].Load()
			if next == nil || next.key >= key {
				break
			}
			cur = next
		}
	}
	next := cur.next[0].Load()
	return next != nil && next.key == key
}

// Range calls fn for every key in [lo, hi) in ascending order, stopping
// early if fn returns false.
func (s *Set) Range(lo, hi int64, fn func(key int64) bool) {
	cur := s.head
	for l := cur.top; l >= 0; l-- {
		for {
			next := cur.next[l].Load()
			if next == nil || next.key >= lo {
				break
			}
			cur = next
		}
	}
	for {
		next := cur.next[0].Load()
		if next == nil || next.key >= hi {
			return
		}
		if !fn(next.key) {
			return
		}
		cur = next
	}
}

// Len returns the approximate number of elements (exact absent
// concurrent mutation, since Insert increments after linking).
func (s *Set) Len() int { return int(s.size.Load()) }

// findPredecessors returns, for every level, the last node whose key
// is strictly less than key (preds) and the node immediately
// following it at that level (succs).
func (s *Set) findPredecessors(key int64) (preds, succs [maxLevel]*node) {
	cur := s.head
	for l := maxLevel - 1; l >= 0; l-- {
		for {
			next := cur.next[l].Load()
			if next == nil || next.key >= key {
				break
			}
			cur = next
		}
		preds[l] = cur
		succs[l] = cur.next[l].Load()
	}
	return preds, succs
}
