// SPDX-License-Identifier: MIT

package distmat

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLayout indicates a GID assignment that is not a partition of [0, n).
	ErrInvalidLayout = errors.New("distmat: invalid layout")

	// ErrNotOwned indicates an operation on a row this rank does not own.
	ErrNotOwned = errors.New("distmat: row not owned by this rank")

	// ErrOutOfRange indicates a row/column/vector index outside valid bounds.
	ErrOutOfRange = errors.New("distmat: index out of range")

	// ErrNotFilled indicates a query that requires FillComplete.
	ErrNotFilled = errors.New("distmat: matrix is not fill-complete")

	// ErrInsufficientCapacity is returned by ExtractMyRowCopy when the
	// caller's buffers are shorter than the row.
	ErrInsufficientCapacity = errors.New("distmat: insufficient row buffer capacity")

	// ErrLayoutMismatch indicates operands distributed over different layouts.
	ErrLayoutMismatch = errors.New("distmat: layout mismatch")

	// ErrNoEntry is returned by ReplaceGlobalValues for a position that is
	// not part of the pattern.
	ErrNoEntry = errors.New("distmat: entry not in pattern")
)

// distErrorf wraps err with an operation tag.
func distErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
