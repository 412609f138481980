// SPDX-License-Identifier: MIT

package distmat

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvdirect/matrix"
)

// NewTridiagonal assembles tridiag(off, diag, off) over layout. Collective.
func NewTridiagonal(ctx context.Context, layout *Layout, diag, off float64) (*CrsMatrix, error) {
	n := layout.NumGlobal()
	a, err := NewCrsMatrix(layout, n)
	if err != nil {
		return nil, err
	}
	for _, g := range layout.MyGIDs() {
		cols := []int{g}
		vals := []float64{diag}
		if g > 0 {
			cols, vals = append(cols, g-1), append(vals, off)
		}
		if g < n-1 {
			cols, vals = append(cols, g+1), append(vals, off)
		}
		if err = a.InsertGlobalValues(g, cols, vals); err != nil {
			return nil, err
		}
	}
	if err = a.FillComplete(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

// NewLaplace2D assembles the 5-point Laplacian on an nx×nx grid; layout
// must have nx² rows. Collective.
func NewLaplace2D(ctx context.Context, layout *Layout, nx int) (*CrsMatrix, error) {
	n := layout.NumGlobal()
	if nx <= 0 || nx*nx != n {
		return nil, distErrorf("NewLaplace2D", fmt.Errorf("nx=%d for %d rows: %w", nx, n, ErrLayoutMismatch))
	}
	a, err := NewCrsMatrix(layout, n)
	if err != nil {
		return nil, err
	}
	for _, g := range layout.MyGIDs() {
		i, j := g/nx, g%nx
		cols := []int{g}
		vals := []float64{4}
		if i > 0 {
			cols, vals = append(cols, g-nx), append(vals, -1)
		}
		if i < nx-1 {
			cols, vals = append(cols, g+nx), append(vals, -1)
		}
		if j > 0 {
			cols, vals = append(cols, g-1), append(vals, -1)
		}
		if j < nx-1 {
			cols, vals = append(cols, g+1), append(vals, -1)
		}
		if err = a.InsertGlobalValues(g, cols, vals); err != nil {
			return nil, err
		}
	}
	if err = a.FillComplete(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

// FromCSR distributes a serial matrix that every rank holds: each rank
// inserts the rows it owns. Collective.
func FromCSR(ctx context.Context, layout *Layout, src *matrix.CSR) (*CrsMatrix, error) {
	if src == nil {
		return nil, distErrorf("FromCSR", matrix.ErrNilMatrix)
	}
	if src.N != layout.NumGlobal() {
		return nil, distErrorf("FromCSR", fmt.Errorf("%d rows for layout of %d: %w", src.N, layout.NumGlobal(), ErrLayoutMismatch))
	}
	a, err := NewCrsMatrix(layout, src.M)
	if err != nil {
		return nil, err
	}
	for _, g := range layout.MyGIDs() {
		cols, vals := src.Row(g)
		if err = a.InsertGlobalValues(g, cols, vals); err != nil {
			return nil, err
		}
	}
	if err = a.FillComplete(ctx); err != nil {
		return nil, err
	}

	return a, nil
}
