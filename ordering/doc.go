// SPDX-License-Identifier: MIT

// Package ordering computes fill-reducing symmetric permutations for sparse
// factorization.
//
// The only algorithm provided is (reverse) Cuthill–McKee: a breadth-first
// walk over the symmetrized pattern of A that visits neighbors in ascending
// degree and starts each connected component at a pseudo-peripheral vertex.
// Reversing the visit order (the default) keeps the profile small, which
// bounds fill-in for banded and mesh-like matrices.
//
// The walker follows the usual BFS shape: a queue of (vertex, level) items,
// a visited set, hooks, and a context check once per dequeue.
//
// Complexity: O(n + nnz·log(maxDegree)) time, O(n + nnz) memory.
package ordering
