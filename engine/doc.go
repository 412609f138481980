// SPDX-License-Identifier: MIT

// Package engine defines the contract of a single-process sparse direct
// solver and ships SparseLU, a reference implementation.
//
// Storage convention:
//
//	Engines receive three parallel slices (start offsets, indices, values)
//	and read them as COMPRESSED-COLUMN storage: the entries of column j are
//	idx[ptr[j]:ptr[j+1]]. A caller holding compressed-ROW arrays of A is
//	therefore handing the engine Aᵀ; solving A·x = b then needs ModeTranspose.
//
// Phases:
//
//	Symbolic analyses the pattern only and returns a Symbolic handle.
//	Numeric factors the values for a pattern identical to the analysed one.
//	Solve runs the triangular solves for one right-hand side.
//	Handles are released with FreeSymbolic / FreeNumeric; a Numeric handle
//	must be released before the Symbolic handle it was built from.
//
// Status codes follow the numbering of classic sparse LU libraries, so
// callers can report them verbatim: 0 is success, 1 a singular matrix,
// negative values are errors.
package engine
