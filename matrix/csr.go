// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
)

// CSR is a compressed sparse row matrix: the entries of row i are
// ColIndex[RowStart[i]:RowStart[i+1]] paired with the same range of Values.
//
// ColIndex and Values may be longer than NNZ; only the prefix [0, NNZ) is
// meaningful. RowStart always has N+1 elements and RowStart[N] == NNZ.
//
// Read in column-major terms the same three slices describe the transpose,
// which is how factorization engines that expect compressed-column storage
// consume them.
type CSR struct {
	N, M     int       // rows, columns
	NNZ      int       // populated prefix of ColIndex/Values
	RowStart []int     // len N+1
	ColIndex []int     // len >= NNZ
	Values   []float64 // len >= NNZ
}

// NewCSR allocates an empty rows×cols CSR with room for capacity entries.
// Index/value slices get length max(rows, capacity) so that they are never
// empty for a non-empty matrix even when capacity is 0.
// Complexity: O(rows + capacity).
func NewCSR(rows, cols, capacity int) (*CSR, error) {
	if rows <= 0 || cols <= 0 {
		return nil, matrixErrorf(opNewCSR, ErrInvalidDimensions)
	}
	if capacity < 0 {
		return nil, matrixErrorf(opNewCSR, fmt.Errorf("capacity %d: %w", capacity, ErrInvalidDimensions))
	}
	alloc := max(rows, capacity)

	return &CSR{
		N:        rows,
		M:        cols,
		RowStart: make([]int, rows+1),
		ColIndex: make([]int, alloc),
		Values:   make([]float64, alloc),
	}, nil
}

// Rows returns the number of rows.
func (a *CSR) Rows() int { return a.N }

// Cols returns the number of columns.
func (a *CSR) Cols() int { return a.M }

// Validate checks the structural invariants of the compressed form:
// RowStart has N+1 monotone entries starting at 0 and ending at NNZ,
// the index/value slices hold at least NNZ elements, and every column
// index lies in [0, M).
// Complexity: O(N + NNZ).
func (a *CSR) Validate() error {
	if a == nil {
		return matrixErrorf(opCSRValidate, ErrNilMatrix)
	}
	if a.N <= 0 || a.M <= 0 {
		return matrixErrorf(opCSRValidate, ErrInvalidDimensions)
	}
	if len(a.RowStart) != a.N+1 {
		return matrixErrorf(opCSRValidate, fmt.Errorf("len(RowStart)=%d, want %d: %w", len(a.RowStart), a.N+1, ErrMalformedCSR))
	}
	if a.RowStart[0] != 0 || a.RowStart[a.N] != a.NNZ {
		return matrixErrorf(opCSRValidate, fmt.Errorf("RowStart bounds [%d,%d], NNZ %d: %w", a.RowStart[0], a.RowStart[a.N], a.NNZ, ErrMalformedCSR))
	}
	if len(a.ColIndex) < a.NNZ || len(a.Values) < a.NNZ {
		return matrixErrorf(opCSRValidate, fmt.Errorf("storage shorter than NNZ %d: %w", a.NNZ, ErrMalformedCSR))
	}
	for i := 0; i < a.N; i++ {
		if a.RowStart[i+1] < a.RowStart[i] {
			return matrixErrorf(opCSRValidate, fmt.Errorf("row %d: RowStart decreases: %w", i, ErrMalformedCSR))
		}
	}
	for p := 0; p < a.NNZ; p++ {
		if c := a.ColIndex[p]; c < 0 || c >= a.M {
			return matrixErrorf(opCSRValidate, fmt.Errorf("entry %d column %d: %w", p, c, ErrMalformedCSR))
		}
	}

	return nil
}

// find returns the storage position of (i, j), or -1 when it is not stored.
// Duplicates are resolved to the first occurrence.
func (a *CSR) find(i, j int) int {
	for p := a.RowStart[i]; p < a.RowStart[i+1]; p++ {
		if a.ColIndex[p] == j {
			return p
		}
	}

	return -1
}

// At returns the value at (i, j); unstored positions read as zero.
// Duplicate entries at one position are summed.
// Complexity: O(row length).
func (a *CSR) At(i, j int) (float64, error) {
	if i < 0 || i >= a.N || j < 0 || j >= a.M {
		return 0, matrixErrorf(opCSRAt, fmt.Errorf("(%d,%d): %w", i, j, ErrOutOfRange))
	}
	var sum float64
	for p := a.RowStart[i]; p < a.RowStart[i+1]; p++ {
		if a.ColIndex[p] == j {
			sum += a.Values[p]
		}
	}

	return sum, nil
}

// Set overwrites the first stored entry at (i, j). The sparsity pattern is
// fixed, so an unstored position yields ErrNotStructural.
func (a *CSR) Set(i, j int, v float64) error {
	if i < 0 || i >= a.N || j < 0 || j >= a.M {
		return matrixErrorf(opCSRSet, fmt.Errorf("(%d,%d): %w", i, j, ErrOutOfRange))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return matrixErrorf(opCSRSet, ErrNaNInf)
	}
	p := a.find(i, j)
	if p < 0 {
		return matrixErrorf(opCSRSet, fmt.Errorf("(%d,%d): %w", i, j, ErrNotStructural))
	}
	a.Values[p] = v

	return nil
}

// Row returns views of the column indices and values stored in row i.
// The returned slices alias the matrix storage.
func (a *CSR) Row(i int) ([]int, []float64) {
	if i < 0 || i >= a.N {
		return nil, nil
	}
	lo, hi := a.RowStart[i], a.RowStart[i+1]

	return a.ColIndex[lo:hi], a.Values[lo:hi]
}

// Clone returns a deep copy; spare capacity beyond NNZ is preserved.
func (a *CSR) Clone() Matrix {
	return &CSR{
		N:        a.N,
		M:        a.M,
		NNZ:      a.NNZ,
		RowStart: append([]int(nil), a.RowStart...),
		ColIndex: append([]int(nil), a.ColIndex...),
		Values:   append([]float64(nil), a.Values...),
	}
}

// MatVec computes y = A·x.
// Complexity: O(N + NNZ).
func (a *CSR) MatVec(x []float64) ([]float64, error) {
	if len(x) != a.M {
		return nil, matrixErrorf(opMatVec, fmt.Errorf("len(x)=%d, cols=%d: %w", len(x), a.M, ErrDimensionMismatch))
	}
	y := make([]float64, a.N)
	for i := 0; i < a.N; i++ {
		var s float64
		for p := a.RowStart[i]; p < a.RowStart[i+1]; p++ {
			s += a.Values[p] * x[a.ColIndex[p]]
		}
		y[i] = s
	}

	return y, nil
}

// MatVecTrans computes y = Aᵀ·x without forming the transpose.
// Complexity: O(N + NNZ).
func (a *CSR) MatVecTrans(x []float64) ([]float64, error) {
	if len(x) != a.N {
		return nil, matrixErrorf(opMatVecTrans, fmt.Errorf("len(x)=%d, rows=%d: %w", len(x), a.N, ErrDimensionMismatch))
	}
	y := make([]float64, a.M)
	for i := 0; i < a.N; i++ {
		xi := x[i]
		for p := a.RowStart[i]; p < a.RowStart[i+1]; p++ {
			y[a.ColIndex[p]] += a.Values[p] * xi
		}
	}

	return y, nil
}

// Transpose returns Aᵀ as a new CSR with columns ascending within each row
// (a counting sort over column indices).
// Complexity: O(N + M + NNZ).
func (a *CSR) Transpose() (*CSR, error) {
	t, err := NewCSR(a.M, a.N, a.NNZ)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	for p := 0; p < a.NNZ; p++ {
		t.RowStart[a.ColIndex[p]+1]++
	}
	for j := 0; j < a.M; j++ {
		t.RowStart[j+1] += t.RowStart[j]
	}
	next := append([]int(nil), t.RowStart[:a.M]...)
	for i := 0; i < a.N; i++ {
		for p := a.RowStart[i]; p < a.RowStart[i+1]; p++ {
			q := next[a.ColIndex[p]]
			t.ColIndex[q] = i
			t.Values[q] = a.Values[p]
			next[a.ColIndex[p]]++
		}
	}
	t.NNZ = a.NNZ

	return t, nil
}
