package sparsesa

// buildChild computes the Abouelhoda-Kurtz child table: the "up /
// down / next-l-index" tripartite encoding collapsed into a single
// array, via the standard two-stack passes (§4.2). Enabled only when
// K >= 4, since at finer sparseness the child table's memory cost
// isn't worth its lookup speedup relative to a binary-search walk.
//
// The collapse convention follows the original construction: up[i] is
// stored in cld[i-1] (the "up" pointer of interval i reuses the down
// slot belonging to its left neighbour, since the two are never both
// needed at the same cell); down[i] and nextlIndex[i] share cld[i]
// directly, which is safe because a single LCP-interval root is never
// simultaneously a down-target and a next-l-index target.
func (idx *Index) buildChild() {
	n := idx.size
	small := int64(n) < (int64(1) << 32)
	cld := NewCellArray(n, small)
	for i := range cld.lo {
		cld.Set(i, -1)
	}

	lcp := func(i int) int64 { return idx.LCP.Get(i) }

	// Pass 1: up/down via a single stack over LCP value.
	stack := []int{0}
	lastIndex := -1
	for i := 1; i < n; i++ {
		for len(stack) > 0 && lcp(i) < lcp(stack[len(stack)-1]) {
			lastIndex = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top := topOr(stack, 0)
			if lcp(i) <= lcp(top) && lcp(top) != lcp(lastIndex) {
				cld.Set(top, int64(lastIndex)) // "down" of top
			}
		}
		if lastIndex != -1 {
			cld.Set(i-1, int64(lastIndex)) // "up" of i stored at i-1
			lastIndex = -1
		}
		stack = append(stack, i)
	}

	// Pass 2: next-l-index via a second stack pass, only overwriting
	// cells pass 1 left untouched (down/up took priority at that cell).
	stack = []int{0}
	for i := 1; i < n; i++ {
		for len(stack) > 0 && lcp(i) < lcp(stack[len(stack)-1]) {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && lcp(i) == lcp(stack[len(stack)-1]) {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if cld.Get(last) == -1 {
				cld.Set(last, int64(i))
			}
		}
		stack = append(stack, i)
	}

	idx.Child = cld
}

func topOr(stack []int, def int) int {
	if len(stack) == 0 {
		return def
	}
	return stack[len(stack)-1]
}

// childUp returns the "up" pointer for interval starting at i, which
// the construction above stores at cld[i-1].
func (idx *Index) childUp(i int) (int, bool) {
	if i <= 0 {
		return 0, false
	}
	v := idx.Child.Get(i - 1)
	if v < 0 {
		return 0, false
	}
	return int(v), true
}

// childDownOrNext returns whatever is stored directly at cld[i]: either
// a down pointer or a next-l-index pointer; telling the two apart needs
// the enclosing LCP depth. No search path in this package calls it.
func (idx *Index) childDownOrNext(i int) (int, bool) {
	v := idx.Child.Get(i)
	if v < 0 {
		return 0, false
	}
	return int(v), true
}
