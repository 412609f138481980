// SPDX-License-Identifier: MIT

package matrix

// Matrix represents a two-dimensional array of float64 values addressed by
// zero-based (row, col) indices. Dense and CSR implement it.
//
// Complexity notes: Rows/Cols are O(1); At/Set are O(1) for Dense and
// O(row length) for CSR; Clone copies the storage.
type Matrix interface {
	// Rows returns the number of rows.
	Rows() int

	// Cols returns the number of columns.
	Cols() int

	// At retrieves the element at (i, j); ErrOutOfRange on invalid indices.
	At(i, j int) (float64, error)

	// Set assigns v at (i, j). Sparse implementations may refuse positions
	// outside their pattern (ErrNotStructural).
	Set(i, j int, v float64) error

	// Clone returns an independent deep copy.
	Clone() Matrix
}
