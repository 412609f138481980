// SPDX-License-Identifier: MIT

package distmat

// LinearProblem bundles A, the solution X and the right-hand side B of
// A·X = B. The caller owns all three.
type LinearProblem struct {
	A RowMatrix
	X *MultiVector
	B *MultiVector
}

// NewLinearProblem bundles the three operands; any may be nil and set later.
func NewLinearProblem(a RowMatrix, x, b *MultiVector) *LinearProblem {
	return &LinearProblem{A: a, X: x, B: b}
}

// Matrix returns A.
func (p *LinearProblem) Matrix() RowMatrix { return p.A }

// LHS returns the solution multi-vector X.
func (p *LinearProblem) LHS() *MultiVector { return p.X }

// RHS returns the right-hand side B.
func (p *LinearProblem) RHS() *MultiVector { return p.B }
