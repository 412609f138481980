// SPDX-License-Identifier: MIT

package distmat

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvdirect/comm"
)

// Plan moves rows between a source and a target Layout over the same
// communicator. Since both layouts are one-to-one, the mapping is fully
// determined by the all-gathered ownership tables and is built without
// communication.
type Plan struct {
	source, target *Layout

	// sendLIDs[r] are source-local rows this rank sends to rank r (forward).
	sendLIDs [][]int
	// recvLIDs[r] are target-local rows this rank receives from rank r, in
	// the order rank r sends them.
	recvLIDs [][]int
}

// NewExport builds a plan that pushes source rows to their target owners.
func NewExport(source, target *Layout) (*Plan, error) {
	return newPlan("NewExport", source, target)
}

// NewImport builds a plan that pulls target rows from their source owners.
// With one-to-one layouts it is the same mapping as NewExport.
func NewImport(target, source *Layout) (*Plan, error) {
	return newPlan("NewImport", source, target)
}

func newPlan(op string, source, target *Layout) (*Plan, error) {
	if source == nil || target == nil {
		return nil, distErrorf(op, ErrInvalidLayout)
	}
	if source.n != target.n || source.c.Size() != target.c.Size() || source.c.Rank() != target.c.Rank() {
		return nil, distErrorf(op, fmt.Errorf("source n=%d target n=%d: %w", source.n, target.n, ErrLayoutMismatch))
	}
	size, me := source.c.Size(), source.c.Rank()
	p := &Plan{
		source:   source,
		target:   target,
		sendLIDs: make([][]int, size),
		recvLIDs: make([][]int, size),
	}
	for lid, g := range source.all[me] {
		dst := target.owner[g]
		p.sendLIDs[dst] = append(p.sendLIDs[dst], lid)
	}
	for r := 0; r < size; r++ {
		for _, g := range source.all[r] {
			if target.owner[g] == me {
				p.recvLIDs[r] = append(p.recvLIDs[r], target.lid[g])
			}
		}
	}

	return p, nil
}

// Source returns the layout data is moved from by Forward.
func (p *Plan) Source() *Layout { return p.source }

// Target returns the layout data is moved to by Forward.
func (p *Plan) Target() *Layout { return p.target }

// Forward copies src (source layout) into dst (target layout). Collective.
func (p *Plan) Forward(ctx context.Context, src, dst *MultiVector) error {
	if !src.layout.SameAs(p.source) || !dst.layout.SameAs(p.target) {
		return distErrorf("Plan.Forward", ErrLayoutMismatch)
	}

	return moveVectors(ctx, p.source.c, src, dst, p.sendLIDs, p.recvLIDs)
}

// Reverse copies src (target layout) back into dst (source layout). Collective.
func (p *Plan) Reverse(ctx context.Context, src, dst *MultiVector) error {
	if !src.layout.SameAs(p.target) || !dst.layout.SameAs(p.source) {
		return distErrorf("Plan.Reverse", ErrLayoutMismatch)
	}

	return moveVectors(ctx, p.source.c, src, dst, p.recvLIDs, p.sendLIDs)
}

// moveVectors sends, for each destination, the listed local rows of every
// column packed column-major, and unpacks into the receive positions.
func moveVectors(ctx context.Context, c comm.Communicator, src, dst *MultiVector, send, recv [][]int) error {
	if src.NumVectors() != dst.NumVectors() {
		return distErrorf("Plan", fmt.Errorf("%d vs %d vectors: %w", src.NumVectors(), dst.NumVectors(), ErrLayoutMismatch))
	}
	k := src.NumVectors()
	out := make([][]float64, len(send))
	for r, lids := range send {
		buf := make([]float64, 0, k*len(lids))
		for j := 0; j < k; j++ {
			col := src.cols[j]
			for _, lid := range lids {
				buf = append(buf, col[lid])
			}
		}
		out[r] = buf
	}
	in, err := comm.AllToAllTyped(ctx, c, out)
	if err != nil {
		return distErrorf("Plan", err)
	}
	for r, lids := range recv {
		buf := in[r]
		if len(buf) != k*len(lids) {
			return distErrorf("Plan", fmt.Errorf("rank %d sent %d values, want %d: %w", r, len(buf), k*len(lids), ErrLayoutMismatch))
		}
		for j := 0; j < k; j++ {
			col := dst.cols[j]
			for q, lid := range lids {
				col[lid] = buf[j*len(lids)+q]
			}
		}
	}

	return nil
}

// rowPayload carries one matrix row between ranks.
type rowPayload struct {
	GID  int
	Cols []int
	Vals []float64
}

// ExportMatrix inserts every row of src (source layout) into dst (target
// layout) with insert semantics. dst is left unfilled; callers finish with
// FillComplete. A source reporting Filled() == false is rejected on every
// rank. Collective.
func (p *Plan) ExportMatrix(ctx context.Context, src RowMatrix, dst *CrsMatrix) error {
	const op = "Plan.ExportMatrix"
	if !src.RowLayout().SameAs(p.source) || !dst.layout.SameAs(p.target) {
		return distErrorf(op, ErrLayoutMismatch)
	}
	width := src.MaxNumEntries()
	vals := make([]float64, width)
	cols := make([]int, width)
	out := make([][]rowPayload, len(p.sendLIDs))
	var extractErr error
	if f, ok := src.(interface{ Filled() bool }); ok && !f.Filled() {
		extractErr = ErrNotFilled
	}
	for r, lids := range p.sendLIDs {
		if extractErr != nil {
			break
		}
		for _, lid := range lids {
			n, err := src.ExtractMyRowCopy(lid, vals, cols)
			if err != nil {
				// Keep participating in the exchange; report afterwards.
				extractErr = err
				break
			}
			out[r] = append(out[r], rowPayload{
				GID:  p.source.GID(lid),
				Cols: append([]int(nil), cols[:n]...),
				Vals: append([]float64(nil), vals[:n]...),
			})
		}
	}
	in, err := comm.AllToAllTyped(ctx, p.source.c, out)
	if err != nil {
		return distErrorf(op, err)
	}
	failed := 0
	if extractErr != nil {
		failed = 1
	}
	if failed, err = comm.AllReduceMaxInt(ctx, p.source.c, failed); err != nil {
		return distErrorf(op, err)
	}
	if extractErr != nil {
		return distErrorf(op, extractErr)
	}
	if failed > 0 {
		return distErrorf(op, fmt.Errorf("row extraction failed on another rank: %w", ErrInsufficientCapacity))
	}
	for _, rows := range in {
		for _, row := range rows {
			if err := dst.InsertGlobalValues(row.GID, row.Cols, row.Vals); err != nil {
				return distErrorf(op, err)
			}
		}
	}

	return nil
}
