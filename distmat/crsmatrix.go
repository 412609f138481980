// SPDX-License-Identifier: MIT

package distmat

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/katalvlaran/lvdirect/comm"
)

// RowMatrix is the read side of a row-distributed sparse matrix.
type RowMatrix interface {
	// Comm is the communicator the matrix is distributed over.
	Comm() comm.Communicator

	// RowLayout describes which rank owns which rows.
	RowLayout() *Layout

	NumGlobalRows() int
	NumGlobalCols() int
	NumGlobalNonzeros() int
	NumMyRows() int

	// MaxNumEntries is the largest local row length on this rank.
	MaxNumEntries() int

	// ExtractMyRowCopy copies local row lid into vals/cols (global column
	// indices) and returns the row length. When the buffers are too short
	// it returns the length and ErrInsufficientCapacity.
	ExtractMyRowCopy(lid int, vals []float64, cols []int) (int, error)

	// StructureVersion changes whenever the assembled pattern changes.
	StructureVersion() uint64

	// Multiply computes y = A·x, or y = Aᵀ·x when trans is set. Collective.
	Multiply(ctx context.Context, trans bool, x, y *MultiVector) error
}

// crsRow holds one local row; columns are sorted and unique once filled.
type crsRow struct {
	cols []int
	vals []float64
}

// CrsMatrix is a row-distributed compressed-row matrix.
type CrsMatrix struct {
	layout *Layout
	ncols  int
	rows   []crsRow

	filled     bool
	globalNNZ  int
	maxEntries int
	signature  uint64
	version    uint64
}

var _ RowMatrix = (*CrsMatrix)(nil)

// NewCrsMatrix creates an empty matrix with rows distributed by layout and
// ncols global columns.
func NewCrsMatrix(layout *Layout, ncols int) (*CrsMatrix, error) {
	if layout == nil {
		return nil, distErrorf("NewCrsMatrix", ErrInvalidLayout)
	}
	if ncols < 0 {
		return nil, distErrorf("NewCrsMatrix", fmt.Errorf("ncols=%d: %w", ncols, ErrOutOfRange))
	}

	return &CrsMatrix{
		layout: layout,
		ncols:  ncols,
		rows:   make([]crsRow, layout.NumMy()),
	}, nil
}

func (m *CrsMatrix) Comm() comm.Communicator { return m.layout.Comm() }
func (m *CrsMatrix) RowLayout() *Layout       { return m.layout }
func (m *CrsMatrix) NumGlobalRows() int       { return m.layout.NumGlobal() }
func (m *CrsMatrix) NumGlobalCols() int       { return m.ncols }
func (m *CrsMatrix) NumMyRows() int           { return len(m.rows) }
func (m *CrsMatrix) Filled() bool             { return m.filled }
func (m *CrsMatrix) StructureVersion() uint64 { return m.version }

// NumGlobalNonzeros is the assembled entry count, valid after FillComplete.
func (m *CrsMatrix) NumGlobalNonzeros() int { return m.globalNNZ }

// MaxNumEntries is the longest local row, valid after FillComplete.
func (m *CrsMatrix) MaxNumEntries() int { return m.maxEntries }

// checkRow resolves gid to a local row and validates the column indices.
func (m *CrsMatrix) checkRow(op string, gid int, cols []int, vals []float64) (int, error) {
	lid := m.layout.LID(gid)
	if lid < 0 {
		return -1, distErrorf(op, fmt.Errorf("gid %d: %w", gid, ErrNotOwned))
	}
	if len(cols) != len(vals) {
		return -1, distErrorf(op, fmt.Errorf("%d cols, %d vals: %w", len(cols), len(vals), ErrOutOfRange))
	}
	for _, c := range cols {
		if c < 0 || c >= m.ncols {
			return -1, distErrorf(op, fmt.Errorf("column %d: %w", c, ErrOutOfRange))
		}
	}

	return lid, nil
}

// InsertGlobalValues appends entries to owned row gid. Duplicate positions
// are summed by FillComplete. Inserting into a filled matrix reopens it.
func (m *CrsMatrix) InsertGlobalValues(gid int, cols []int, vals []float64) error {
	lid, err := m.checkRow("InsertGlobalValues", gid, cols, vals)
	if err != nil {
		return err
	}
	r := &m.rows[lid]
	r.cols = append(r.cols, cols...)
	r.vals = append(r.vals, vals...)
	m.filled = false

	return nil
}

// ReplaceGlobalValues overwrites existing entries of row gid without
// changing the pattern; the matrix must be filled.
func (m *CrsMatrix) ReplaceGlobalValues(gid int, cols []int, vals []float64) error {
	return m.update("ReplaceGlobalValues", gid, cols, vals, false)
}

// SumIntoGlobalValues adds to existing entries of row gid; the matrix must
// be filled.
func (m *CrsMatrix) SumIntoGlobalValues(gid int, cols []int, vals []float64) error {
	return m.update("SumIntoGlobalValues", gid, cols, vals, true)
}

func (m *CrsMatrix) update(op string, gid int, cols []int, vals []float64, sum bool) error {
	if !m.filled {
		return distErrorf(op, ErrNotFilled)
	}
	lid, err := m.checkRow(op, gid, cols, vals)
	if err != nil {
		return err
	}
	r := &m.rows[lid]
	for k, c := range cols {
		p := sort.SearchInts(r.cols, c)
		if p == len(r.cols) || r.cols[p] != c {
			return distErrorf(op, fmt.Errorf("(%d,%d): %w", gid, c, ErrNoEntry))
		}
		if sum {
			r.vals[p] += vals[k]
		} else {
			r.vals[p] = vals[k]
		}
	}

	return nil
}

// FillComplete sorts and merges every local row, then agrees on global
// counts. Collective. StructureVersion is bumped on all ranks when any
// rank's pattern changed since the previous FillComplete.
func (m *CrsMatrix) FillComplete(ctx context.Context) error {
	const op = "FillComplete"
	local, longest := 0, 0
	for i := range m.rows {
		mergeRow(&m.rows[i])
		local += len(m.rows[i].cols)
		longest = max(longest, len(m.rows[i].cols))
	}

	sig := m.patternSignature()
	changed := 0
	if sig != m.signature || m.version == 0 {
		changed = 1
	}
	nnz, err := comm.AllReduceSumInt(ctx, m.Comm(), local)
	if err != nil {
		return distErrorf(op, err)
	}
	anyChanged, err := comm.AllReduceMaxInt(ctx, m.Comm(), changed)
	if err != nil {
		return distErrorf(op, err)
	}

	m.globalNNZ = nnz
	m.maxEntries = longest
	m.signature = sig
	if anyChanged > 0 {
		m.version++
	}
	m.filled = true

	return nil
}

// mergeRow sorts a row by column and sums duplicates.
func mergeRow(r *crsRow) {
	if len(r.cols) == 0 {
		return
	}
	idx := make([]int, len(r.cols))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return r.cols[idx[a]] < r.cols[idx[b]] })
	cols := make([]int, 0, len(idx))
	vals := make([]float64, 0, len(idx))
	for _, i := range idx {
		if n := len(cols); n > 0 && cols[n-1] == r.cols[i] {
			vals[n-1] += r.vals[i]
			continue
		}
		cols = append(cols, r.cols[i])
		vals = append(vals, r.vals[i])
	}
	r.cols, r.vals = cols, vals
}

// patternSignature hashes local row lengths and columns.
func (m *CrsMatrix) patternSignature() uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}
	for _, r := range m.rows {
		put(len(r.cols))
		for _, c := range r.cols {
			put(c)
		}
	}

	return d.Sum64()
}

// ExtractMyRowCopy implements RowMatrix.
func (m *CrsMatrix) ExtractMyRowCopy(lid int, vals []float64, cols []int) (int, error) {
	if lid < 0 || lid >= len(m.rows) {
		return 0, distErrorf("ExtractMyRowCopy", fmt.Errorf("lid %d: %w", lid, ErrOutOfRange))
	}
	r := m.rows[lid]
	n := len(r.cols)
	if len(vals) < n || len(cols) < n {
		return n, distErrorf("ExtractMyRowCopy", fmt.Errorf("row %d has %d entries: %w", lid, n, ErrInsufficientCapacity))
	}
	copy(cols, r.cols)
	copy(vals, r.vals)

	return n, nil
}

// Multiply implements RowMatrix for square matrices whose domain is
// distributed like the rows. Collective.
func (m *CrsMatrix) Multiply(ctx context.Context, trans bool, x, y *MultiVector) error {
	const op = "Multiply"
	if !m.filled {
		return distErrorf(op, ErrNotFilled)
	}
	if m.ncols != m.layout.NumGlobal() {
		return distErrorf(op, fmt.Errorf("%dx%d: %w", m.layout.NumGlobal(), m.ncols, ErrLayoutMismatch))
	}
	if !x.Layout().SameAs(m.layout) || !y.Layout().SameAs(m.layout) || x.NumVectors() != y.NumVectors() {
		return distErrorf(op, ErrLayoutMismatch)
	}
	n := m.layout.NumGlobal()
	gids := m.layout.MyGIDs()

	for k := 0; k < x.NumVectors(); k++ {
		xs, ys := x.Column(k), y.Column(k)
		if !trans {
			full, err := x.gatherColumn(ctx, k)
			if err != nil {
				return distErrorf(op, err)
			}
			for i, r := range m.rows {
				var s float64
				for p, c := range r.cols {
					s += r.vals[p] * full[c]
				}
				ys[i] = s
			}
			continue
		}

		partial := make([]float64, n)
		for i, r := range m.rows {
			for p, c := range r.cols {
				partial[c] += r.vals[p] * xs[i]
			}
		}
		sum, err := comm.AllReduceSumSlice(ctx, m.Comm(), partial)
		if err != nil {
			return distErrorf(op, err)
		}
		for i, g := range gids {
			ys[i] = sum[g]
		}
	}

	return nil
}

// NormInf is max_i Σ_j |a_ij|. Collective.
func (m *CrsMatrix) NormInf(ctx context.Context) (float64, error) {
	best := 0.0
	for _, r := range m.rows {
		var s float64
		for _, v := range r.vals {
			s += math.Abs(v)
		}
		best = max(best, s)
	}
	all, err := comm.AllGatherFloat64s(ctx, m.Comm(), []float64{best})
	if err != nil {
		return 0, distErrorf("NormInf", err)
	}
	for _, p := range all {
		best = max(best, p[0])
	}

	return best, nil
}
