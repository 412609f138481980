// SPDX-License-Identifier: MIT

package engine

import (
	"encoding/binary"
	"math"
	"sort"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/katalvlaran/lvdirect/ordering"
)

// SparseLU is the reference Engine: a right-looking sparse LU with partial
// pivoting over a reverse Cuthill–McKee column order.
//
// For the matrix M described by the compressed-column arrays it computes
// P·M[q,q] = L·U where q is the symbolic ordering and P the row pivoting.
// The condition estimate it reports is min|Uᵢᵢ| / max|Uᵢᵢ|.
type SparseLU struct {
	opts Options

	liveSymbolic atomic.Int64
	liveNumeric  atomic.Int64
	doubleFrees  atomic.Int64
}

var _ Engine = (*SparseLU)(nil)

// NewSparseLU builds an engine from options.
func NewSparseLU(opts ...Option) (*SparseLU, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	return &SparseLU{opts: o}, nil
}

// symbolic is SparseLU's Symbolic handle.
type symbolic struct {
	n           int
	nnz         int
	q           []int // column order: position k holds column q[k]
	fingerprint uint64
	freed       bool
}

func (s *symbolic) Size() int { return s.n }

// entry is one stored factor value.
type entry struct {
	col int
	val float64
}

// numeric is SparseLU's Numeric handle.
type numeric struct {
	n     int
	perm  []int     // position i holds row perm[i] of M
	q     []int     // copied from the symbolic handle
	lower [][]entry // strictly lower part of L per row, unit diagonal implied
	upper [][]entry // strictly upper part of U per row
	diag  []float64 // diagonal of U
	freed bool
}

func (f *numeric) Size() int { return f.n }

// LiveHandles returns how many symbolic and numeric handles are allocated
// and not yet released.
func (e *SparseLU) LiveHandles() (symbolic, numeric int64) {
	return e.liveSymbolic.Load(), e.liveNumeric.Load()
}

// DoubleFrees returns how many release calls hit an already released handle.
func (e *SparseLU) DoubleFrees() int64 { return e.doubleFrees.Load() }

// checkPattern validates compressed-column arrays for an n×n matrix.
func checkPattern(n int, colStart, rowIndex []int, values []float64) Status {
	if colStart == nil || rowIndex == nil || values == nil {
		return StatusArgumentMissing
	}
	if n <= 0 {
		return StatusNNonpositive
	}
	if len(colStart) < n+1 || colStart[0] != 0 {
		return StatusInvalidMatrix
	}
	nnz := colStart[n]
	if nnz < 0 || len(rowIndex) < nnz || len(values) < nnz {
		return StatusInvalidMatrix
	}
	for j := 0; j < n; j++ {
		if colStart[j+1] < colStart[j] {
			return StatusInvalidMatrix
		}
	}
	for p := 0; p < nnz; p++ {
		if rowIndex[p] < 0 || rowIndex[p] >= n {
			return StatusInvalidMatrix
		}
	}

	return StatusOK
}

// pivotEpsilon is float64 machine epsilon.
const pivotEpsilon = 0x1p-52

// fingerprint hashes the populated pattern.
func fingerprint(n int, colStart, rowIndex []int) uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}
	put(n)
	for _, v := range colStart[:n+1] {
		put(v)
	}
	for _, v := range rowIndex[:colStart[n]] {
		put(v)
	}

	return d.Sum64()
}

// Symbolic validates the pattern and computes the column ordering.
func (e *SparseLU) Symbolic(n int, colStart, rowIndex []int, values []float64) (Symbolic, Status) {
	if st := checkPattern(n, colStart, rowIndex, values); !st.OK() {
		return nil, st
	}
	q := make([]int, n)
	if e.opts.Reorder {
		res, err := ordering.RCM(n, colStart, rowIndex)
		if err != nil {
			return nil, StatusInvalidMatrix
		}
		copy(q, res.Perm)
	} else {
		for i := range q {
			q[i] = i
		}
	}
	e.liveSymbolic.Add(1)

	return &symbolic{
		n:           n,
		nnz:         colStart[n],
		q:           q,
		fingerprint: fingerprint(n, colStart, rowIndex),
	}, StatusOK
}

// Numeric factors the values over sym's ordering. A column whose largest
// candidate pivot does not exceed n·ε·max|m_ij| yields StatusSingular and
// no handle.
func (e *SparseLU) Numeric(colStart, rowIndex []int, values []float64, sym Symbolic) (Numeric, float64, Status) {
	s, ok := sym.(*symbolic)
	if !ok || s == nil || s.freed {
		return nil, 0, StatusInvalidSymbolic
	}
	if st := checkPattern(s.n, colStart, rowIndex, values); !st.OK() {
		return nil, 0, st
	}
	if colStart[s.n] != s.nnz || fingerprint(s.n, colStart, rowIndex) != s.fingerprint {
		return nil, 0, StatusDifferentPattern
	}
	n := s.n

	// Scatter M[q,q] into row maps: W[i][k] = M[q[i]][q[k]].
	qinv := make([]int, n)
	for k, c := range s.q {
		qinv[c] = k
	}
	rows := make([]map[int]float64, n)
	for i := range rows {
		rows[i] = make(map[int]float64)
	}
	for j := 0; j < n; j++ {
		for p := colStart[j]; p < colStart[j+1]; p++ {
			v := values[p]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, 0, StatusInvalidMatrix
			}
			rows[qinv[rowIndex[p]]][qinv[j]] += v
		}
	}
	scale := 0.0
	for _, r := range rows {
		for _, v := range r {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	tol := float64(n) * pivotEpsilon * scale

	lower := make([]map[int]float64, n)
	for i := range lower {
		lower[i] = make(map[int]float64)
	}
	perm := make([]int, n)
	copy(perm, s.q)

	for k := 0; k < n; k++ {
		piv, best := -1, 0.0
		for i := k; i < n; i++ {
			if a := math.Abs(rows[i][k]); a > best {
				piv, best = i, a
			}
		}
		if piv < 0 || best <= tol {
			return nil, 0, StatusSingular
		}
		if piv != k {
			rows[k], rows[piv] = rows[piv], rows[k]
			lower[k], lower[piv] = lower[piv], lower[k]
			perm[k], perm[piv] = perm[piv], perm[k]
		}
		pivRow := rows[k]
		pv := pivRow[k]
		for i := k + 1; i < n; i++ {
			a, ok := rows[i][k]
			if !ok {
				continue
			}
			delete(rows[i], k)
			if a == 0 {
				continue
			}
			f := a / pv
			lower[i][k] = f
			for j, u := range pivRow {
				if j > k {
					rows[i][j] -= f * u
				}
			}
		}
	}

	num := &numeric{
		n:     n,
		perm:  perm,
		q:     append([]int(nil), s.q...),
		lower: make([][]entry, n),
		upper: make([][]entry, n),
		diag:  make([]float64, n),
	}
	minD, maxD := math.Inf(1), 0.0
	for i := 0; i < n; i++ {
		num.lower[i] = sortedEntries(lower[i], func(c int) bool { return c < i })
		num.upper[i] = sortedEntries(rows[i], func(c int) bool { return c > i })
		d := rows[i][i]
		num.diag[i] = d
		minD = math.Min(minD, math.Abs(d))
		maxD = math.Max(maxD, math.Abs(d))
	}
	e.liveNumeric.Add(1)

	return num, minD / maxD, StatusOK
}

func sortedEntries(m map[int]float64, keep func(int) bool) []entry {
	out := make([]entry, 0, len(m))
	for c, v := range m {
		if keep(c) && v != 0 {
			out = append(out, entry{col: c, val: v})
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].col < out[b].col })

	return out
}

// Solve solves M·x = b (ModeNormal) or Mᵀ·x = b (ModeTranspose).
// With refinement enabled the caller's arrays are used to compute residuals.
func (e *SparseLU) Solve(mode Mode, colStart, rowIndex []int, values []float64, num Numeric, b []float64) ([]float64, Status) {
	f, ok := num.(*numeric)
	if !ok || f == nil || f.freed {
		return nil, StatusInvalidNumeric
	}
	if mode != ModeNormal && mode != ModeTranspose {
		return nil, StatusInvalidSystem
	}
	if b == nil || len(b) != f.n {
		return nil, StatusArgumentMissing
	}

	x := f.apply(mode, b)
	if e.opts.RefineSteps > 0 && checkPattern(f.n, colStart, rowIndex, values).OK() {
		r := make([]float64, f.n)
		for step := 0; step < e.opts.RefineSteps; step++ {
			ax := multiply(mode, f.n, colStart, rowIndex, values, x)
			for i := range r {
				r[i] = b[i] - ax[i]
			}
			dx := f.apply(mode, r)
			for i := range x {
				x[i] += dx[i]
			}
		}
	}

	return x, StatusOK
}

// apply runs the triangular solves for one right-hand side.
func (f *numeric) apply(mode Mode, b []float64) []float64 {
	n := f.n
	x := make([]float64, n)
	if mode == ModeNormal {
		// L·z = P·b[q], U·y = z, x[q] = y.
		z := make([]float64, n)
		for i := 0; i < n; i++ {
			s := b[f.perm[i]]
			for _, e := range f.lower[i] {
				s -= e.val * z[e.col]
			}
			z[i] = s
		}
		for i := n - 1; i >= 0; i-- {
			s := z[i]
			for _, e := range f.upper[i] {
				s -= e.val * z[e.col]
			}
			z[i] = s / f.diag[i]
		}
		for k := 0; k < n; k++ {
			x[f.q[k]] = z[k]
		}

		return x
	}

	// Uᵀ·w = b[q], Lᵀ·v = w, x[perm] = v. Both sweeps scatter by rows.
	w := make([]float64, n)
	for k := 0; k < n; k++ {
		w[k] = b[f.q[k]]
	}
	for i := 0; i < n; i++ {
		w[i] /= f.diag[i]
		for _, e := range f.upper[i] {
			w[e.col] -= e.val * w[i]
		}
	}
	for i := n - 1; i >= 0; i-- {
		for _, e := range f.lower[i] {
			w[e.col] -= e.val * w[i]
		}
	}
	for i := 0; i < n; i++ {
		x[f.perm[i]] = w[i]
	}

	return x
}

// multiply computes M·x (ModeNormal) or Mᵀ·x from compressed-column arrays.
func multiply(mode Mode, n int, colStart, rowIndex []int, values []float64, x []float64) []float64 {
	y := make([]float64, n)
	for j := 0; j < n; j++ {
		for p := colStart[j]; p < colStart[j+1]; p++ {
			if mode == ModeNormal {
				y[rowIndex[p]] += values[p] * x[j]
			} else {
				y[j] += values[p] * x[rowIndex[p]]
			}
		}
	}

	return y
}

// FreeSymbolic releases a symbolic handle.
func (e *SparseLU) FreeSymbolic(sym Symbolic) {
	s, ok := sym.(*symbolic)
	if !ok || s == nil {
		return
	}
	if s.freed {
		e.doubleFrees.Add(1)
		return
	}
	s.freed = true
	s.q = nil
	e.liveSymbolic.Add(-1)
}

// FreeNumeric releases a numeric handle.
func (e *SparseLU) FreeNumeric(num Numeric) {
	f, ok := num.(*numeric)
	if !ok || f == nil {
		return
	}
	if f.freed {
		e.doubleFrees.Add(1)
		return
	}
	f.freed = true
	f.lower, f.upper, f.diag = nil, nil, nil
	e.liveNumeric.Add(-1)
}
