// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// All functions in this package return these sentinels (possibly wrapped
// with an operation tag) and tests check them via errors.Is.

package matrix

import (
	"errors"
	"fmt"
)

// NOTE ON NAMING & PREFIXING
// --------------------------
// Every message is prefixed with "matrix: ..." for easy grepping across logs.
// Wrap with matrixErrorf(op, err) at the function boundary; callers still
// match the sentinel through errors.Is.

var (
	// ErrInvalidDimensions indicates that requested dimensions are non-positive.
	ErrInvalidDimensions = errors.New("matrix: dimensions must be > 0")

	// ErrOutOfRange indicates that a row or column index is outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible operand dimensions.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrNilMatrix indicates that a nil Matrix (receiver or argument) was used.
	ErrNilMatrix = errors.New("matrix: nil matrix")

	// ErrNaNInf signals a NaN or ±Inf where finite values are required.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrSingular is returned when a zero pivot is met during LU/LUSolve.
	ErrSingular = errors.New("matrix: singular matrix")

	// ErrMalformedCSR indicates a CSR whose RowStart is not monotone, does not
	// start at 0, or whose column indices fall outside [0, Cols()).
	ErrMalformedCSR = errors.New("matrix: malformed compressed form")

	// ErrNotStructural is returned by (*CSR).Set when the target position has
	// no stored entry; CSR structure is immutable after construction.
	ErrNotStructural = errors.New("matrix: position is not part of the sparsity pattern")

	// ErrMatrixMarket indicates an unreadable or unsupported Matrix Market stream.
	ErrMatrixMarket = errors.New("matrix: invalid Matrix Market input")
)

// Operation name constants for unified error wrapping.
const (
	opNewDense     = "NewDense"
	opNewDenseFrom = "NewDenseFrom"
	opNewCSR       = "NewCSR"
	opCSRValidate  = "CSR.Validate"
	opCSRAt        = "CSR.At"
	opCSRSet       = "CSR.Set"
	opMatVec       = "MatVec"
	opMatVecTrans  = "MatVecTrans"
	opTranspose    = "Transpose"
	opDenseToCSR   = "DenseToCSR"
	opCSRToDense   = "CSRToDense"
	opLU           = "LU"
	opLUSolve      = "LUSolve"
	opMatrixMarket = "ReadMatrixMarket"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
