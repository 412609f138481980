package distmat_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvdirect/comm"
	"github.com/katalvlaran/lvdirect/distmat"
	"github.com/katalvlaran/lvdirect/matrix"
)

// spmd runs fn on size ranks and fails the test on the first error.
func spmd(t *testing.T, size int, fn func(ctx context.Context, c comm.Communicator) error) {
	t.Helper()
	require.NoError(t, comm.Run(context.Background(), size, fn))
}

func check(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return fmt.Errorf(format, args...)
}

func TestLayout_UniformSerialAndLookup(t *testing.T) {
	spmd(t, 3, func(ctx context.Context, c comm.Communicator) error {
		l, err := distmat.NewUniformLayout(ctx, c, 7)
		if err != nil {
			return err
		}
		want := map[int][]int{0: {0, 1, 2}, 1: {3, 4}, 2: {5, 6}}[c.Rank()]
		if err = check(fmt.Sprint(l.MyGIDs()) == fmt.Sprint(want), "rank %d gids %v", c.Rank(), l.MyGIDs()); err != nil {
			return err
		}
		if err = check(l.Owner(4) == 1 && l.NumOn(0) == 3 && !l.IsLocalTo(0), "owner/num"); err != nil {
			return err
		}
		if c.Rank() == 1 {
			if err = check(l.LID(4) == 1 && l.GID(0) == 3 && l.LID(0) == -1, "lid/gid"); err != nil {
				return err
			}
		}

		s, err := distmat.NewSerialLayout(ctx, c, 7, comm.Coordinator)
		if err != nil {
			return err
		}
		if err = check(s.IsLocalTo(0) && !s.SameAs(l) && s.Version() != l.Version(), "serial layout"); err != nil {
			return err
		}
		u2, err := distmat.NewUniformLayout(ctx, c, 7)
		if err != nil {
			return err
		}

		return check(u2.SameAs(l) && u2.Version() != l.Version(), "same layout, distinct versions")
	})
}

func TestLayout_RejectsNonPartition(t *testing.T) {
	spmd(t, 2, func(ctx context.Context, c comm.Communicator) error {
		_, err := distmat.NewLayout(ctx, c, 3, []int{0, 1}) // both ranks claim 0 and 1
		return check(err != nil && errorIs(err, distmat.ErrInvalidLayout), "overlap: %v", err)
	})
	spmd(t, 2, func(ctx context.Context, c comm.Communicator) error {
		_, err := distmat.NewLayout(ctx, c, 3, []int{c.Rank()}) // gid 2 unowned
		return check(errorIs(err, distmat.ErrInvalidLayout), "gap: %v", err)
	})
}

func TestCrsMatrix_FillExtractAndVersion(t *testing.T) {
	spmd(t, 2, func(ctx context.Context, c comm.Communicator) error {
		l, err := distmat.NewUniformLayout(ctx, c, 4)
		if err != nil {
			return err
		}
		a, err := distmat.NewTridiagonal(ctx, l, 2, -1)
		if err != nil {
			return err
		}
		if err = check(a.NumGlobalNonzeros() == 10 && a.MaxNumEntries() == 3 && a.StructureVersion() == 1, "counts %d %d %d", a.NumGlobalNonzeros(), a.MaxNumEntries(), a.StructureVersion()); err != nil {
			return err
		}

		vals := make([]float64, 3)
		cols := make([]int, 3)
		n, err := a.ExtractMyRowCopy(1, vals, cols)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			if err = check(n == 3 && fmt.Sprint(cols) == "[0 1 2]" && fmt.Sprint(vals) == "[-1 2 -1]", "row 1: %v %v", cols, vals); err != nil {
				return err
			}
		}
		n, err = a.ExtractMyRowCopy(1, vals[:1], cols[:1])
		if err = check(n > 1 && errorIs(err, distmat.ErrInsufficientCapacity), "capacity: %d %v", n, err); err != nil {
			return err
		}

		// Values only: version unchanged.
		g := l.GID(0)
		if err = a.ReplaceGlobalValues(g, []int{g}, []float64{5}); err != nil {
			return err
		}
		if err = a.FillComplete(ctx); err != nil {
			return err
		}
		if err = check(a.StructureVersion() == 1, "value change bumped version"); err != nil {
			return err
		}
		if err = check(errorIs(a.ReplaceGlobalValues(0, []int{3}, []float64{1}), distmat.ErrNoEntry) || c.Rank() != 0, "no entry"); err != nil {
			return err
		}

		// Pattern change on rank 1 only: every rank bumps.
		if c.Rank() == 1 {
			if err = a.InsertGlobalValues(3, []int{0}, []float64{0.5}); err != nil {
				return err
			}
		}
		if err = a.FillComplete(ctx); err != nil {
			return err
		}

		return check(a.StructureVersion() == 2 && a.NumGlobalNonzeros() == 11, "version %d nnz %d", a.StructureVersion(), a.NumGlobalNonzeros())
	})
}

func TestCrsMatrix_InsertErrors(t *testing.T) {
	l, err := distmat.NewSerialLayout(context.Background(), comm.NewSelf(), 2, 0)
	require.NoError(t, err)
	a, err := distmat.NewCrsMatrix(l, 2)
	require.NoError(t, err)
	require.ErrorIs(t, a.InsertGlobalValues(5, []int{0}, []float64{1}), distmat.ErrNotOwned)
	require.ErrorIs(t, a.InsertGlobalValues(0, []int{2}, []float64{1}), distmat.ErrOutOfRange)
	require.ErrorIs(t, a.InsertGlobalValues(0, []int{0}, nil), distmat.ErrOutOfRange)
	require.ErrorIs(t, a.ReplaceGlobalValues(0, []int{0}, []float64{1}), distmat.ErrNotFilled)

	require.NoError(t, a.InsertGlobalValues(0, []int{1, 0, 1}, []float64{1, 2, 3}))
	require.NoError(t, a.FillComplete(context.Background()))
	vals := make([]float64, 2)
	cols := make([]int, 2)
	n, err := a.ExtractMyRowCopy(0, vals, cols)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{0, 1}, cols)
	assert.Equal(t, []float64{2, 4}, vals, "duplicates are summed")
	require.NoError(t, a.SumIntoGlobalValues(0, []int{0}, []float64{1}))
	_, _ = a.ExtractMyRowCopy(0, vals, cols)
	assert.Equal(t, 3.0, vals[0])
}

func TestMultiply_NormalAndTranspose(t *testing.T) {
	dense := [][]float64{
		{1, 2, 0},
		{0, 3, 4},
		{5, 0, 6},
	}
	d, err := matrix.NewDenseFrom(dense)
	require.NoError(t, err)
	src, err := matrix.DenseToCSR(d, false)
	require.NoError(t, err)

	spmd(t, 2, func(ctx context.Context, c comm.Communicator) error {
		l, err := distmat.NewUniformLayout(ctx, c, 3)
		if err != nil {
			return err
		}
		a, err := distmat.FromCSR(ctx, l, src)
		if err != nil {
			return err
		}
		x, _ := distmat.NewMultiVector(l, 1)
		y, _ := distmat.NewMultiVector(l, 1)
		x.PutScalar(1)

		if err = a.Multiply(ctx, false, x, y); err != nil {
			return err
		}
		full, err := y.GatherGlobal(ctx)
		if err != nil {
			return err
		}
		if err = check(fmt.Sprint(full[0]) == "[3 7 11]", "A·1 = %v", full[0]); err != nil {
			return err
		}

		if err = a.Multiply(ctx, true, x, y); err != nil {
			return err
		}
		if full, err = y.GatherGlobal(ctx); err != nil {
			return err
		}
		if err = check(fmt.Sprint(full[0]) == "[6 5 10]", "Aᵀ·1 = %v", full[0]); err != nil {
			return err
		}

		nrm, err := a.NormInf(ctx)
		if err != nil {
			return err
		}
		norms, err := x.Norm2(ctx)
		if err != nil {
			return err
		}

		return check(nrm == 11 && norms[0]*norms[0] > 2.999 && norms[0]*norms[0] < 3.001, "norms %v %v", nrm, norms)
	})
}

func TestPlan_VectorRoundTripAndMatrixExport(t *testing.T) {
	spmd(t, 3, func(ctx context.Context, c comm.Communicator) error {
		dist, err := distmat.NewUniformLayout(ctx, c, 5)
		if err != nil {
			return err
		}
		serial, err := distmat.NewSerialLayout(ctx, c, 5, comm.Coordinator)
		if err != nil {
			return err
		}
		plan, err := distmat.NewImport(serial, dist)
		if err != nil {
			return err
		}
		if err = check(plan.Source() == dist && plan.Target() == serial, "plan endpoints"); err != nil {
			return err
		}

		v, _ := distmat.NewMultiVector(dist, 2)
		for _, g := range dist.MyGIDs() {
			v.SetGlobal(g, 0, float64(g))
			v.SetGlobal(g, 1, float64(10*g))
		}
		s, _ := distmat.NewMultiVector(serial, 2)
		if err = plan.Forward(ctx, v, s); err != nil {
			return err
		}
		if c.Rank() == 0 {
			if err = check(fmt.Sprint(s.Column(0), s.Column(1)) == "[0 1 2 3 4] [0 10 20 30 40]", "gathered %v %v", s.Column(0), s.Column(1)); err != nil {
				return err
			}
		}

		back, _ := distmat.NewMultiVector(dist, 2)
		if err = plan.Reverse(ctx, s, back); err != nil {
			return err
		}
		for i := range back.Column(0) {
			if err = check(back.Column(1)[i] == v.Column(1)[i], "round trip"); err != nil {
				return err
			}
		}
		if err = check(errorIs(plan.Forward(ctx, s, back), distmat.ErrLayoutMismatch), "mismatch"); err != nil {
			return err
		}

		a, err := distmat.NewTridiagonal(ctx, dist, 4, -1)
		if err != nil {
			return err
		}
		export, err := distmat.NewExport(dist, serial)
		if err != nil {
			return err
		}
		sa, err := distmat.NewCrsMatrix(serial, 5)
		if err != nil {
			return err
		}
		if err = export.ExportMatrix(ctx, a, sa); err != nil {
			return err
		}
		if err = sa.FillComplete(ctx); err != nil {
			return err
		}

		return check(sa.NumGlobalNonzeros() == 13 && sa.NumMyRows() == map[bool]int{true: 5, false: 0}[c.Rank() == 0], "serial nnz %d rows %d", sa.NumGlobalNonzeros(), sa.NumMyRows())
	})
}

func TestPlan_ExportMatrixRejectsUnfilledSource(t *testing.T) {
	spmd(t, 2, func(ctx context.Context, c comm.Communicator) error {
		dist, err := distmat.NewUniformLayout(ctx, c, 4)
		if err != nil {
			return err
		}
		serial, err := distmat.NewSerialLayout(ctx, c, 4, comm.Coordinator)
		if err != nil {
			return err
		}
		a, err := distmat.NewCrsMatrix(dist, 4)
		if err != nil {
			return err
		}
		for _, g := range dist.MyGIDs() {
			if err = a.InsertGlobalValues(g, []int{g}, []float64{1}); err != nil {
				return err
			}
		}
		if err = check(!a.Filled(), "filled before FillComplete"); err != nil {
			return err
		}
		export, err := distmat.NewExport(dist, serial)
		if err != nil {
			return err
		}
		sa, err := distmat.NewCrsMatrix(serial, 4)
		if err != nil {
			return err
		}
		err = export.ExportMatrix(ctx, a, sa)
		if err = check(errorIs(err, distmat.ErrNotFilled), "rank %d: %v", c.Rank(), err); err != nil {
			return err
		}

		if err = a.FillComplete(ctx); err != nil {
			return err
		}
		if err = check(a.Filled(), "not filled after FillComplete"); err != nil {
			return err
		}

		return export.ExportMatrix(ctx, a, sa)
	})
}

func TestCrsMatrix_VersionFollowsPatternOnly(t *testing.T) {
	ctx := context.Background()
	l, err := distmat.NewSerialLayout(ctx, comm.NewSelf(), 3, 0)
	require.NoError(t, err)
	a, err := distmat.NewCrsMatrix(l, 3)
	require.NoError(t, err)
	require.NoError(t, a.InsertGlobalValues(0, []int{0, 2}, []float64{1, 2}))
	require.NoError(t, a.InsertGlobalValues(1, []int{1}, []float64{3}))
	require.NoError(t, a.FillComplete(ctx))
	assert.Equal(t, uint64(1), a.StructureVersion())

	// Duplicate positions merge into the existing pattern.
	require.NoError(t, a.InsertGlobalValues(0, []int{2}, []float64{1}))
	require.NoError(t, a.FillComplete(ctx))
	assert.Equal(t, uint64(1), a.StructureVersion())
	assert.Equal(t, 3, a.NumGlobalNonzeros())

	// A new column in a row that already has one entry changes the pattern.
	require.NoError(t, a.InsertGlobalValues(1, []int{0}, []float64{4}))
	require.NoError(t, a.FillComplete(ctx))
	assert.Equal(t, uint64(2), a.StructureVersion())

	require.NoError(t, a.InsertGlobalValues(2, []int{2}, []float64{5}))
	require.NoError(t, a.FillComplete(ctx))
	assert.Equal(t, uint64(3), a.StructureVersion())
	assert.Equal(t, 5, a.NumGlobalNonzeros())
}

func TestLaplace2D(t *testing.T) {
	spmd(t, 2, func(ctx context.Context, c comm.Communicator) error {
		l, err := distmat.NewUniformLayout(ctx, c, 9)
		if err != nil {
			return err
		}
		a, err := distmat.NewLaplace2D(ctx, l, 3)
		if err != nil {
			return err
		}
		if err = check(a.NumGlobalNonzeros() == 33, "nnz %d", a.NumGlobalNonzeros()); err != nil {
			return err
		}
		_, err = distmat.NewLaplace2D(ctx, l, 2)

		return check(errorIs(err, distmat.ErrLayoutMismatch), "bad nx: %v", err)
	})
}

func TestLinearProblemAccessors(t *testing.T) {
	l, err := distmat.NewSerialLayout(context.Background(), comm.NewSelf(), 1, 0)
	require.NoError(t, err)
	a, _ := distmat.NewCrsMatrix(l, 1)
	x, _ := distmat.NewMultiVector(l, 1)
	p := distmat.NewLinearProblem(a, x, nil)
	assert.Same(t, a, p.Matrix().(*distmat.CrsMatrix))
	assert.Same(t, x, p.LHS())
	assert.Nil(t, p.RHS())
}
