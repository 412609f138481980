// SPDX-License-Identifier: MIT

package distmat

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/lvdirect/comm"
)

// MultiVector is a set of k dense column vectors distributed like a Layout.
type MultiVector struct {
	layout *Layout
	cols   [][]float64 // cols[j][lid]
}

// NewMultiVector allocates k zero columns over layout.
func NewMultiVector(layout *Layout, k int) (*MultiVector, error) {
	if layout == nil {
		return nil, distErrorf("NewMultiVector", ErrInvalidLayout)
	}
	if k <= 0 {
		return nil, distErrorf("NewMultiVector", fmt.Errorf("k=%d: %w", k, ErrOutOfRange))
	}
	mv := &MultiVector{layout: layout, cols: make([][]float64, k)}
	for j := range mv.cols {
		mv.cols[j] = make([]float64, layout.NumMy())
	}

	return mv, nil
}

// Layout returns the row distribution.
func (v *MultiVector) Layout() *Layout { return v.layout }

// NumVectors returns k.
func (v *MultiVector) NumVectors() int { return len(v.cols) }

// MyLength is the number of locally stored rows.
func (v *MultiVector) MyLength() int { return v.layout.NumMy() }

// Column returns a mutable view of local column j.
func (v *MultiVector) Column(j int) []float64 { return v.cols[j] }

// PutScalar sets every local entry to a.
func (v *MultiVector) PutScalar(a float64) {
	for _, c := range v.cols {
		for i := range c {
			c[i] = a
		}
	}
}

// SetGlobal stores a in column j at global row gid when it is owned here;
// rows owned elsewhere are ignored so every rank may call it for all rows.
func (v *MultiVector) SetGlobal(gid, j int, a float64) {
	if lid := v.layout.LID(gid); lid >= 0 && j >= 0 && j < len(v.cols) {
		v.cols[j][lid] = a
	}
}

// Clone returns a deep copy on the same layout.
func (v *MultiVector) Clone() *MultiVector {
	out := &MultiVector{layout: v.layout, cols: make([][]float64, len(v.cols))}
	for j, c := range v.cols {
		out.cols[j] = append([]float64(nil), c...)
	}

	return out
}

// Update sets v = alpha·a + beta·v column-wise.
func (v *MultiVector) Update(alpha float64, a *MultiVector, beta float64) error {
	if !a.layout.SameAs(v.layout) || len(a.cols) != len(v.cols) {
		return distErrorf("Update", ErrLayoutMismatch)
	}
	for j, c := range v.cols {
		for i := range c {
			c[i] = alpha*a.cols[j][i] + beta*c[i]
		}
	}

	return nil
}

// Norm2 returns the global two-norm of each column. Collective.
func (v *MultiVector) Norm2(ctx context.Context) ([]float64, error) {
	local := make([]float64, len(v.cols))
	for j, c := range v.cols {
		for _, a := range c {
			local[j] += a * a
		}
	}
	sums, err := comm.AllReduceSumSlice(ctx, v.layout.Comm(), local)
	if err != nil {
		return nil, distErrorf("Norm2", err)
	}
	for j := range sums {
		sums[j] = math.Sqrt(sums[j])
	}

	return sums, nil
}

// gatherColumn assembles the full global column j on every rank. Collective.
func (v *MultiVector) gatherColumn(ctx context.Context, j int) ([]float64, error) {
	parts, err := comm.AllGatherFloat64s(ctx, v.layout.Comm(), v.cols[j])
	if err != nil {
		return nil, err
	}
	full := make([]float64, v.layout.NumGlobal())
	for r, p := range parts {
		for k, g := range v.layout.all[r] {
			full[g] = p[k]
		}
	}

	return full, nil
}

// GatherGlobal returns every column in global row order on every rank.
// Intended for small problems and reporting. Collective.
func (v *MultiVector) GatherGlobal(ctx context.Context) ([][]float64, error) {
	out := make([][]float64, len(v.cols))
	for j := range v.cols {
		full, err := v.gatherColumn(ctx, j)
		if err != nil {
			return nil, distErrorf("GatherGlobal", err)
		}
		out[j] = full
	}

	return out, nil
}
