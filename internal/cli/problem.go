// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/katalvlaran/lvdirect/distmat"
	"github.com/katalvlaran/lvdirect/matrix"
)

// Problem kinds accepted by --problem.
const (
	ProblemTridiag   = "tridiag"
	ProblemLaplace2D = "laplace2d"
	ProblemFile      = "file"
)

// problemSource describes the matrix every rank assembles its rows of.
type problemSource struct {
	kind string
	rows int
	nx   int         // grid side for laplace2d
	csr  *matrix.CSR // shared read-only for file
}

// loadProblem validates the problem flags and reads the Matrix Market file
// once, before any rank starts.
func loadProblem(opts *SolveOptions) (*problemSource, error) {
	switch opts.Problem {
	case ProblemTridiag:
		if opts.N < 1 {
			return nil, fmt.Errorf("--n must be positive, got %d", opts.N)
		}
		return &problemSource{kind: opts.Problem, rows: opts.N}, nil

	case ProblemLaplace2D:
		if opts.N < 1 {
			return nil, fmt.Errorf("--n must be positive, got %d", opts.N)
		}
		return &problemSource{kind: opts.Problem, rows: opts.N * opts.N, nx: opts.N}, nil

	case ProblemFile:
		if opts.File == "" {
			return nil, fmt.Errorf("--problem file needs --file")
		}
		fh, err := os.Open(opts.File)
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		csr, err := matrix.ReadMatrixMarket(fh)
		if err != nil {
			return nil, err
		}
		if err = matrix.ValidateSquare(csr); err != nil {
			return nil, err
		}
		return &problemSource{kind: opts.Problem, rows: csr.N, csr: csr}, nil
	}

	return nil, fmt.Errorf("unknown problem %q: must be %s, %s or %s", opts.Problem, ProblemTridiag, ProblemLaplace2D, ProblemFile)
}

// build assembles this rank's rows over l. Collective.
func (p *problemSource) build(ctx context.Context, l *distmat.Layout) (*distmat.CrsMatrix, error) {
	switch p.kind {
	case ProblemLaplace2D:
		return distmat.NewLaplace2D(ctx, l, p.nx)
	case ProblemFile:
		return distmat.FromCSR(ctx, l, p.csr)
	default:
		return distmat.NewTridiagonal(ctx, l, 2, -1)
	}
}
