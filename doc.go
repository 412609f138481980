// Package lvdirect drives a single-process sparse direct solver from a
// row-distributed linear system.
//
// Each rank owns some rows of A, X and B. The solver gathers them onto the
// coordinator (rank 0), converts the matrix to compressed form, runs the
// engine's symbolic, numeric and solve phases there, and scatters X back.
//
// Everything is organized under these subpackages:
//
//	comm/    : in-process SPMD world: ranks, barrier, broadcast, gather, all-to-all
//	distmat/ : layouts, distributed CRS matrices, multivectors, import/export plans
//	matrix/  : serial Dense and CSR matrices, dense LU reference, Matrix Market reader
//	ordering/: reverse Cuthill–McKee fill-reducing ordering
//	engine/  : the opaque engine contract and the SparseLU reference engine
//	solver/  : the bridge: phases, parameters, metrics, diagnostics
//	cmd/     : the lvdirect command line
//
// Quick sketch of the data flow:
//
//	rank 0 ─┐                     ┌─ rank 0
//	rank 1 ─┼─► gather ► engine ►─┼─ rank 1
//	rank 2 ─┘                     └─ rank 2
//
//	go get github.com/katalvlaran/lvdirect
package lvdirect
