// SPDX-License-Identifier: MIT

package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/katalvlaran/lvdirect/comm"
	"github.com/katalvlaran/lvdirect/distmat"
)

// redistributor moves the problem between its distributed layout and the
// serial layout on the coordinator.
type redistributor struct {
	c       comm.Communicator
	metrics *Metrics

	// serial is the original matrix when local, else a gathered copy.
	serial distmat.RowMatrix
	local  bool

	// vecPlan is the cached vector plan and the version of the row layout
	// it was built from.
	vecPlan    *distmat.Plan
	vecVersion uint64
}

// gatherMatrix makes serial hold every row of a on the coordinator.
// When the coordinator already owns all rows a is aliased without a copy.
// Otherwise a fresh serial layout, export plan and matrix are built.
func (r *redistributor) gatherMatrix(ctx context.Context, a distmat.RowMatrix) error {
	defer r.metrics.track(PhaseMatrixRedistribution)()

	local, err := comm.BroadcastValue(ctx, r.c, comm.Coordinator,
		comm.IsCoordinator(r.c) && a.NumMyRows() == a.NumGlobalRows())
	if err != nil {
		return solverErrorf(opGather, err)
	}
	r.local = local
	if local {
		r.serial = a
		return nil
	}

	serialLayout, err := distmat.NewSerialLayout(ctx, r.c, a.NumGlobalRows(), comm.Coordinator)
	if err != nil {
		return solverErrorf(opGather, err)
	}
	plan, err := distmat.NewExport(a.RowLayout(), serialLayout)
	if err != nil {
		return solverErrorf(opGather, err)
	}
	sm, err := distmat.NewCrsMatrix(serialLayout, a.NumGlobalCols())
	if err != nil {
		return solverErrorf(opGather, err)
	}
	if err = plan.ExportMatrix(ctx, a, sm); err != nil {
		if errors.Is(err, distmat.ErrInsufficientCapacity) {
			err = fmt.Errorf("%w: %w", ErrStructuralInconsistency, err)
		}
		return solverErrorf(opGather, err)
	}
	if err = sm.FillComplete(ctx); err != nil {
		return solverErrorf(opGather, err)
	}
	r.serial = sm

	return nil
}

// vectorPlan returns the cached vector plan, rebuilding it when the row
// layout of a is not the one it was built from. The rebuilt target puts
// all NumGlobalRows rows on the coordinator and none elsewhere.
func (r *redistributor) vectorPlan(ctx context.Context, a distmat.RowMatrix) (*distmat.Plan, error) {
	src := a.RowLayout()
	if r.vecPlan != nil && r.vecVersion == src.Version() {
		return r.vecPlan, nil
	}
	target, err := distmat.NewSerialLayout(ctx, r.c, a.NumGlobalRows(), comm.Coordinator)
	if err != nil {
		return nil, err
	}
	plan, err := distmat.NewImport(target, src)
	if err != nil {
		return nil, err
	}
	r.vecPlan, r.vecVersion = plan, src.Version()

	return plan, nil
}

// gatherVector returns v itself when the matrix is local, else a serial
// copy imported through the vector plan.
func (r *redistributor) gatherVector(ctx context.Context, a distmat.RowMatrix, v *distmat.MultiVector) (*distmat.MultiVector, error) {
	defer r.metrics.track(PhaseVectorRedistribution)()
	if r.local {
		return v, nil
	}
	plan, err := r.vectorPlan(ctx, a)
	if err != nil {
		return nil, solverErrorf(opGatherVec, err)
	}
	sv, err := distmat.NewMultiVector(plan.Target(), v.NumVectors())
	if err != nil {
		return nil, solverErrorf(opGatherVec, err)
	}
	if err = plan.Forward(ctx, v, sv); err != nil {
		return nil, solverErrorf(opGatherVec, err)
	}

	return sv, nil
}

// serialLHS returns the buffer the coordinator writes solutions into:
// x itself when local, else a zeroed serial vector.
func (r *redistributor) serialLHS(ctx context.Context, a distmat.RowMatrix, x *distmat.MultiVector) (*distmat.MultiVector, error) {
	if r.local {
		return x, nil
	}
	plan, err := r.vectorPlan(ctx, a)
	if err != nil {
		return nil, solverErrorf(opScatterVec, err)
	}

	return distmat.NewMultiVector(plan.Target(), x.NumVectors())
}

// scatterVector exports the serial solution back into x. A no-op when
// local, since the coordinator wrote into x directly.
func (r *redistributor) scatterVector(ctx context.Context, a distmat.RowMatrix, xs, x *distmat.MultiVector) error {
	defer r.metrics.track(PhaseVectorRedistribution)()
	if r.local {
		return nil
	}
	plan, err := r.vectorPlan(ctx, a)
	if err != nil {
		return solverErrorf(opScatterVec, err)
	}

	return solverErrorf(opScatterVec, plan.Reverse(ctx, xs, x))
}

// release drops gathered storage; the vector plan stays cached.
func (r *redistributor) release() {
	r.serial = nil
	r.local = false
}
