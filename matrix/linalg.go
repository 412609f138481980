// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
)

// ZeroPivot is the exact pivot value treated as singular by LU.
const ZeroPivot = 0.0

// MatVec computes y = m·x for any Matrix, dispatching to the sparse kernel
// for *CSR.
// Complexity: O(r*c) dense, O(N + NNZ) sparse.
func MatVec(m Matrix, x []float64) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if a, ok := m.(*CSR); ok {
		return a.MatVec(x)
	}
	if err := ValidateVecLen(x, m.Cols()); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	y := make([]float64, m.Rows())
	for i := 0; i < m.Rows(); i++ {
		var s float64
		for j := 0; j < m.Cols(); j++ {
			v, err := m.At(i, j)
			if err != nil {
				return nil, matrixErrorf(opMatVec, err)
			}
			s += v * x[j]
		}
		y[i] = s
	}

	return y, nil
}

// Transpose returns mᵀ as a Dense (or CSR for CSR input).
func Transpose(m Matrix) (Matrix, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	if a, ok := m.(*CSR); ok {
		return a.Transpose()
	}
	t, err := NewDense(m.Cols(), m.Rows())
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Cols(); j++ {
			v, err := m.At(i, j)
			if err != nil {
				return nil, matrixErrorf(opTranspose, err)
			}
			t.data[j*t.c+i] = v
		}
	}

	return t, nil
}

// Norm2 returns the Euclidean norm of x, scaled to avoid overflow.
func Norm2(x []float64) float64 {
	var scale, ssq float64 = 0, 1
	for _, v := range x {
		if v == 0 {
			continue
		}
		a := math.Abs(v)
		if scale < a {
			ssq = 1 + ssq*(scale/a)*(scale/a)
			scale = a
		} else {
			ssq += (a / scale) * (a / scale)
		}
	}

	return scale * math.Sqrt(ssq)
}

// LU computes P·m = L·U with partial (row) pivoting on a dense copy of m.
// L is unit lower triangular and perm[i] is the original row placed at i.
// Returns ErrSingular when a column has no non-zero pivot.
// Complexity: O(n³).
func LU(m Matrix) (L, U *Dense, perm []int, err error) {
	if err = ValidateSquare(m); err != nil {
		return nil, nil, nil, matrixErrorf(opLU, err)
	}
	n := m.Rows()
	work, err := NewDense(n, n)
	if err != nil {
		return nil, nil, nil, matrixErrorf(opLU, err)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v, aerr := m.At(i, j)
			if aerr != nil {
				return nil, nil, nil, matrixErrorf(opLU, aerr)
			}
			work.data[i*n+j] = v
		}
	}
	perm = make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	w := work.data
	for k := 0; k < n; k++ {
		// Choose the largest remaining entry of column k as pivot.
		p, best := k, math.Abs(w[k*n+k])
		for i := k + 1; i < n; i++ {
			if a := math.Abs(w[i*n+k]); a > best {
				p, best = i, a
			}
		}
		if best == ZeroPivot {
			return nil, nil, nil, matrixErrorf(opLU, fmt.Errorf("column %d: %w", k, ErrSingular))
		}
		if p != k {
			for j := 0; j < n; j++ {
				w[k*n+j], w[p*n+j] = w[p*n+j], w[k*n+j]
			}
			perm[k], perm[p] = perm[p], perm[k]
		}
		for i := k + 1; i < n; i++ {
			f := w[i*n+k] / w[k*n+k]
			w[i*n+k] = f
			for j := k + 1; j < n; j++ {
				w[i*n+j] -= f * w[k*n+j]
			}
		}
	}

	L, _ = NewDense(n, n)
	U, _ = NewDense(n, n)
	for i := 0; i < n; i++ {
		L.data[i*n+i] = 1
		for j := 0; j < n; j++ {
			if j < i {
				L.data[i*n+j] = w[i*n+j]
			} else {
				U.data[i*n+j] = w[i*n+j]
			}
		}
	}

	return L, U, perm, nil
}

// LUSolve solves m·x = b by dense LU with partial pivoting. It is an O(n³)
// reference used to cross-check sparse engines on small systems.
func LUSolve(m Matrix, b []float64) ([]float64, error) {
	L, U, perm, err := LU(m)
	if err != nil {
		return nil, matrixErrorf(opLUSolve, err)
	}
	n := L.r
	if err = ValidateVecLen(b, n); err != nil {
		return nil, matrixErrorf(opLUSolve, err)
	}
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		s := b[perm[i]]
		for k := 0; k < i; k++ {
			s -= L.data[i*n+k] * x[k]
		}
		x[i] = s
	}
	for i := n - 1; i >= 0; i-- {
		s := x[i]
		for k := i + 1; k < n; k++ {
			s -= U.data[i*n+k] * x[k]
		}
		x[i] = s / U.data[i*n+i]
	}

	return x, nil
}
