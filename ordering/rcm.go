// SPDX-License-Identifier: MIT

package ordering

import (
	"context"
	"fmt"
	"sort"
)

// queueItem pairs a vertex with its BFS level.
type queueItem struct {
	v, level int
}

// walker holds the symmetrized pattern and mutable traversal state.
type walker struct {
	adj     [][]int // neighbors sorted by (degree, index), no self loops
	opts    Options
	ctx     context.Context
	visited []bool
	order   []int

	// scratch for level-structure probes
	mark  []int
	stamp int
}

// RCM orders the n×n pattern given in compressed form (ptr has n+1 entries,
// idx holds the ptr[n] column indices). The pattern is symmetrized, so either
// row- or column-compressed input gives the same result.
func RCM(n int, ptr, idx []int, opts ...Option) (*Result, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if n <= 0 {
		return nil, ErrEmptyPattern
	}
	adj, err := symmetrize(n, ptr, idx)
	if err != nil {
		return nil, err
	}

	w := &walker{
		adj:     adj,
		opts:    o,
		ctx:     o.Ctx,
		visited: make([]bool, n),
		order:   make([]int, 0, n),
		mark:    make([]int, n),
	}

	// Seed candidates in ascending degree so each component starts low.
	seeds := make([]int, n)
	for i := range seeds {
		seeds[i] = i
	}
	sort.SliceStable(seeds, func(a, b int) bool { return len(adj[seeds[a]]) < len(adj[seeds[b]]) })

	res := &Result{}
	for _, s := range seeds {
		if w.visited[s] {
			continue
		}
		res.Components++
		if err = w.walk(w.peripheral(s)); err != nil {
			return nil, err
		}
	}

	if o.Reverse {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			w.order[i], w.order[j] = w.order[j], w.order[i]
		}
	}
	res.Perm = w.order
	res.Inverse = make([]int, n)
	for k, v := range res.Perm {
		res.Inverse[v] = k
	}

	return res, nil
}

// symmetrize builds sorted, de-duplicated adjacency lists of A + Aᵀ.
func symmetrize(n int, ptr, idx []int) ([][]int, error) {
	if len(ptr) != n+1 || ptr[0] != 0 || ptr[n] > len(idx) {
		return nil, fmt.Errorf("%w: ptr length %d for n=%d", ErrBadPattern, len(ptr), n)
	}
	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		if ptr[i+1] < ptr[i] {
			return nil, fmt.Errorf("%w: ptr decreases at %d", ErrBadPattern, i)
		}
		for p := ptr[i]; p < ptr[i+1]; p++ {
			j := idx[p]
			if j < 0 || j >= n {
				return nil, fmt.Errorf("%w: index %d out of range at %d", ErrBadPattern, j, p)
			}
			if j == i {
				continue
			}
			adj[i] = append(adj[i], j)
			adj[j] = append(adj[j], i)
		}
	}
	for i, nb := range adj {
		sort.Ints(nb)
		k := 0
		for _, v := range nb {
			if k == 0 || nb[k-1] != v {
				nb[k] = v
				k++
			}
		}
		adj[i] = nb[:k]
	}
	for _, nb := range adj {
		sort.SliceStable(nb, func(a, b int) bool { return len(adj[nb[a]]) < len(adj[nb[b]]) })
	}

	return adj, nil
}

// levels runs a probing BFS from start and returns its eccentricity and the
// vertices of the deepest level.
func (w *walker) levels(start int) (int, []int) {
	w.stamp++
	w.mark[start] = w.stamp
	cur := []int{start}
	depth := 0
	for {
		var next []int
		for _, v := range cur {
			for _, u := range w.adj[v] {
				if w.mark[u] != w.stamp {
					w.mark[u] = w.stamp
					next = append(next, u)
				}
			}
		}
		if len(next) == 0 {
			return depth, cur
		}
		cur = next
		depth++
	}
}

// peripheral moves the start vertex toward the rim of its component: it
// repeatedly jumps to a minimum-degree vertex of the deepest level while
// that increases the eccentricity.
func (w *walker) peripheral(start int) int {
	cur := start
	ecc, last := w.levels(cur)
	for pass := 0; pass < w.opts.PeripheralPasses; pass++ {
		cand := last[0]
		for _, v := range last[1:] {
			if len(w.adj[v]) < len(w.adj[cand]) {
				cand = v
			}
		}
		e, l := w.levels(cand)
		if e <= ecc {
			break
		}
		cur, ecc, last = cand, e, l
	}

	return cur
}

// walk appends the Cuthill–McKee order of start's component to w.order.
func (w *walker) walk(start int) error {
	queue := []queueItem{{v: start}}
	w.visited[start] = true
	for len(queue) > 0 {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		item := queue[0]
		queue = queue[1:]
		w.order = append(w.order, item.v)
		if err := w.opts.OnVisit(item.v, item.level); err != nil {
			return fmt.Errorf("ordering: OnVisit error at %d: %w", item.v, err)
		}
		for _, u := range w.adj[item.v] {
			if !w.visited[u] {
				w.visited[u] = true
				queue = append(queue, queueItem{v: u, level: item.level + 1})
			}
		}
	}

	return nil
}

// Bandwidth returns max |Inverse[i] − Inverse[j]| over the stored entries
// (i, j) of the pattern after permutation; pass a nil inverse for the
// identity ordering.
func Bandwidth(n int, ptr, idx, inverse []int) int {
	pos := func(i int) int {
		if inverse == nil {
			return i
		}
		return inverse[i]
	}
	bw := 0
	for i := 0; i < n; i++ {
		for p := ptr[i]; p < ptr[i+1]; p++ {
			d := pos(i) - pos(idx[p])
			if d < 0 {
				d = -d
			}
			bw = max(bw, d)
		}
	}

	return bw
}
