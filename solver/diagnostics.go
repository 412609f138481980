// SPDX-License-Identifier: MIT

package solver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/katalvlaran/lvdirect/comm"
	"github.com/katalvlaran/lvdirect/distmat"
)

// solveDiagnostics emits the per-solve vector norms and true residual
// enabled by the parameters. Collective whenever either is enabled; only
// the coordinator logs.
func (s *Solver) solveDiagnostics(ctx context.Context) error {
	p := s.params
	norms := p.diagnosticsOn(p.ComputeVectorNorms)
	resid := p.diagnosticsOn(p.ComputeTrueResidual)
	if !norms && !resid {
		return nil
	}
	x, b := s.problem.X, s.problem.B
	root := comm.IsCoordinator(s.c)

	if norms {
		nx, err := x.Norm2(ctx)
		if err != nil {
			return solverErrorf(opDiagnostics, err)
		}
		nb, err := b.Norm2(ctx)
		if err != nil {
			return solverErrorf(opDiagnostics, err)
		}
		if root {
			for j := range nx {
				s.log.Info("vector norms", zap.Int("column", j),
					zap.Float64("norm_x", nx[j]), zap.Float64("norm_b", nb[j]))
			}
		}
	}

	if resid {
		r, err := s.residual(ctx, x, b)
		if err != nil {
			return solverErrorf(opDiagnostics, err)
		}
		nb, err := b.Norm2(ctx)
		if err != nil {
			return solverErrorf(opDiagnostics, err)
		}
		if root {
			for j := range r {
				rel := r[j]
				if nb[j] != 0 {
					rel /= nb[j]
				}
				s.log.Info("true residual", zap.Int("column", j),
					zap.Float64("residual", r[j]), zap.Float64("relative", rel),
					zap.Bool("use_transpose", p.UseTranspose))
			}
		}
	}

	return nil
}

// residual returns ‖op(A)·x − b‖₂ per column, op(A) being Aᵀ when
// UseTranspose is set.
func (s *Solver) residual(ctx context.Context, x, b *distmat.MultiVector) ([]float64, error) {
	ax, err := distmat.NewMultiVector(x.Layout(), x.NumVectors())
	if err != nil {
		return nil, err
	}
	if err = s.problem.A.Multiply(ctx, s.params.UseTranspose, x, ax); err != nil {
		return nil, err
	}
	if err = ax.Update(-1, b, 1); err != nil {
		return nil, err
	}

	return ax.Norm2(ctx)
}

// teardownReport logs the timing and status reports on the coordinator.
func (s *Solver) teardownReport() {
	if !comm.IsCoordinator(s.c) {
		return
	}
	p := s.params
	if p.diagnosticsOn(p.PrintTiming) {
		s.reportTiming()
	}
	if p.diagnosticsOn(p.PrintStatus) {
		s.reportStatus()
	}
}

func (s *Solver) reportTiming() {
	for _, ps := range s.metrics.Snapshot().Phases {
		s.log.Info("phase timing",
			zap.String("phase", ps.Phase),
			zap.Int("calls", ps.Calls),
			zap.Duration("total", ps.Total),
			zap.Duration("average", ps.Average()))
	}
}

func (s *Solver) reportStatus() {
	a := s.problem.A
	n, nnz := a.NumGlobalRows(), a.NumGlobalNonzeros()
	var perRow, percent float64
	if n > 0 {
		perRow = float64(nnz) / float64(n)
		percent = 100 * float64(nnz) / (float64(n) * float64(a.NumGlobalCols()))
	}
	s.log.Info("solver status",
		zap.Int("rows", n),
		zap.Int("nonzeros", nnz),
		zap.Float64("nonzeros_per_row", perRow),
		zap.String("percent_nonzero", fmt.Sprintf("%.2f%%", percent)),
		zap.Bool("use_transpose", s.params.UseTranspose),
		zap.Int("ranks", s.c.Size()))
}
