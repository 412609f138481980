// SPDX-License-Identifier: MIT

// Package solver bridges a row-distributed linear problem to a
// single-process sparse LU engine.
//
// Every phase gathers what it needs onto the coordinator (rank 0), converts
// the matrix to compressed form, runs the engine there, and scatters the
// result back. All methods that take a context are collective: every rank
// calls them in the same order.
//
//	s, err := solver.New(ctx, problem, solver.WithLogger(log))
//	...
//	err = s.SymbolicFactorization(ctx)
//	err = s.NumericFactorization(ctx)
//	err = s.Solve(ctx)
//	rcond, err := s.ConditionEstimate(ctx)
//	err = s.Close(ctx)
//
// Solve chains implicitly: it runs NumericFactorization when no valid
// factorization exists, which in turn runs SymbolicFactorization.
//
// Engine failures are returned as *EngineError on the coordinator and as
// errors wrapping ErrEngineFailure on the other ranks; previously built
// handles stay valid and the Solver remains usable.
package solver
