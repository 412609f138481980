// SPDX-License-Identifier: MIT

// Package matrix provides the single-process storage formats used on the
// coordinating rank: a row-major Dense matrix, the compressed sparse row
// (CSR) form handed to factorization engines, converters between them,
// central validators and a Matrix Market reader.
//
// What & Why:
//
//	The distributed layer (package distmat) gathers rows onto one rank; this
//	package holds what that rank works with. CSR is the "compressed form"
//	triple (RowStart, ColIndex, Values). Its index and value slices may be
//	allocated longer than the populated prefix so that degenerate inputs
//	(empty rows, nnz < n) never produce zero-length arrays; NNZ records the
//	populated prefix.
//
// Error policy:
//
//	Every function returns package sentinels (errors.go) wrapped as
//	"<Op>: <cause>" via matrixErrorf; callers match with errors.Is.
//	Nothing panics on user input.
//
// Determinism:
//
//	All loops run in fixed i→j order. Conversions never reorder entries
//	within a row unless documented (DenseToCSR emits ascending columns).
//
// AI-Hints:
//   - Build small fixtures with NewDenseFrom, convert with DenseToCSR.
//   - Use (*CSR).MatVec / MatVecTrans for residual checks in tests.
//   - ReadMatrixMarket returns a CSR with ascending columns per row.
package matrix
