// SPDX-License-Identifier: MIT

package matrix

import "fmt"

// DenseToCSR compresses every non-zero of m into a CSR with ascending
// column indices per row. Explicit zeros on the diagonal are kept when
// keepDiagonal is true so that shifted systems keep a structural diagonal.
// Complexity: O(r*c).
func DenseToCSR(m Matrix, keepDiagonal bool) (*CSR, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opDenseToCSR, err)
	}
	rows, cols := m.Rows(), m.Cols()

	// First pass counts, second pass fills; avoids growing slices.
	nnz := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v, err := m.At(i, j)
			if err != nil {
				return nil, matrixErrorf(opDenseToCSR, err)
			}
			if v != 0 || (keepDiagonal && i == j) {
				nnz++
			}
		}
	}

	out, err := NewCSR(rows, cols, nnz)
	if err != nil {
		return nil, matrixErrorf(opDenseToCSR, err)
	}
	p := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v, _ := m.At(i, j) // indices validated in the counting pass
			if v != 0 || (keepDiagonal && i == j) {
				out.ColIndex[p] = j
				out.Values[p] = v
				p++
			}
		}
		out.RowStart[i+1] = p
	}
	out.NNZ = p

	return out, nil
}

// CSRToDense expands a CSR into a Dense matrix; duplicate entries are summed.
// Complexity: O(N*M + NNZ).
func CSRToDense(a *CSR) (*Dense, error) {
	if a == nil {
		return nil, matrixErrorf(opCSRToDense, ErrNilMatrix)
	}
	if err := a.Validate(); err != nil {
		return nil, matrixErrorf(opCSRToDense, err)
	}
	d, err := NewDense(a.N, a.M)
	if err != nil {
		return nil, matrixErrorf(opCSRToDense, err)
	}
	for i := 0; i < a.N; i++ {
		for p := a.RowStart[i]; p < a.RowStart[i+1]; p++ {
			d.data[i*a.M+a.ColIndex[p]] += a.Values[p]
		}
	}

	return d, nil
}

// Triplet is one (row, col, value) entry of a coordinate-format matrix.
type Triplet struct {
	Row, Col int
	Val      float64
}

// TripletsToCSR builds a rows×cols CSR from coordinate entries. Entries are
// bucketed by row, keeping their input order within a row; duplicates are
// stored as separate entries.
// Complexity: O(rows + len(ts)).
func TripletsToCSR(rows, cols int, ts []Triplet) (*CSR, error) {
	out, err := NewCSR(rows, cols, len(ts))
	if err != nil {
		return nil, err
	}
	for k, t := range ts {
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, fmt.Errorf("triplet %d (%d,%d): %w", k, t.Row, t.Col, ErrOutOfRange)
		}
		out.RowStart[t.Row+1]++
	}
	for i := 0; i < rows; i++ {
		out.RowStart[i+1] += out.RowStart[i]
	}
	next := append([]int(nil), out.RowStart[:rows]...)
	for _, t := range ts {
		p := next[t.Row]
		out.ColIndex[p] = t.Col
		out.Values[p] = t.Val
		next[t.Row]++
	}
	out.NNZ = len(ts)

	return out, nil
}
