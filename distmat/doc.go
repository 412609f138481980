// SPDX-License-Identifier: MIT

// Package distmat provides row-distributed sparse matrices and dense
// multi-vectors over a comm.Communicator, plus the plans that move rows
// between two distributions.
//
// Layout:
//
//	A Layout assigns every global row index (GID) in [0, n) to exactly one
//	rank. Each rank stores its rows in local order (LID). Constructing a
//	Layout is collective: the per-rank GID lists are all-gathered so that
//	owner lookups never need communication afterwards.
//
// Matrix lifecycle:
//
//	NewCrsMatrix → InsertGlobalValues / SumIntoGlobalValues (owned rows) →
//	FillComplete (collective). Queries that describe the assembled matrix
//	require FillComplete. A FillComplete that changes the pattern bumps
//	StructureVersion on every rank.
//
// Plans:
//
//	A Plan maps a source Layout onto a target Layout. Forward moves data
//	source→target, Reverse moves it back. Both are collective AllToAll
//	exchanges.
//
// All collective methods take a context and must be called by every rank
// of the communicator in the same order.
package distmat
