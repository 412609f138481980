package matrix_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvdirect/matrix"
)

// tridiag4 is the 4×4 SPD matrix tridiag(-1, 2, -1).
func tridiag4(t *testing.T) *matrix.Dense {
	t.Helper()
	d, err := matrix.NewDenseFrom([][]float64{
		{2, -1, 0, 0},
		{-1, 2, -1, 0},
		{0, -1, 2, -1},
		{0, 0, -1, 2},
	})
	require.NoError(t, err)

	return d
}

func TestNewCSR_AllocatesAtLeastRows(t *testing.T) {
	a, err := matrix.NewCSR(5, 5, 0)
	require.NoError(t, err)
	assert.Len(t, a.RowStart, 6)
	assert.Len(t, a.ColIndex, 5)
	assert.Len(t, a.Values, 5)
	require.NoError(t, a.Validate())

	a, err = matrix.NewCSR(2, 2, 7)
	require.NoError(t, err)
	assert.Len(t, a.ColIndex, 7)

	_, err = matrix.NewCSR(0, 3, 1)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
	_, err = matrix.NewCSR(3, 3, -1)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
}

func TestCSR_Validate(t *testing.T) {
	a, err := matrix.DenseToCSR(tridiag4(t), false)
	require.NoError(t, err)
	require.NoError(t, a.Validate())

	bad := a.Clone().(*matrix.CSR)
	bad.RowStart[2], bad.RowStart[1] = bad.RowStart[1], bad.RowStart[2]+1
	require.ErrorIs(t, bad.Validate(), matrix.ErrMalformedCSR)

	bad = a.Clone().(*matrix.CSR)
	bad.ColIndex[0] = 9
	require.ErrorIs(t, bad.Validate(), matrix.ErrMalformedCSR)

	bad = a.Clone().(*matrix.CSR)
	bad.NNZ--
	require.ErrorIs(t, bad.Validate(), matrix.ErrMalformedCSR)

	var nilCSR *matrix.CSR
	require.ErrorIs(t, nilCSR.Validate(), matrix.ErrNilMatrix)
}

func TestCSR_AtSetRow(t *testing.T) {
	a, err := matrix.DenseToCSR(tridiag4(t), false)
	require.NoError(t, err)
	assert.Equal(t, 10, a.NNZ)

	v, err := a.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)
	v, err = a.At(0, 3)
	require.NoError(t, err)
	assert.Zero(t, v)
	_, err = a.At(4, 0)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)

	require.NoError(t, a.Set(2, 2, 7))
	v, _ = a.At(2, 2)
	assert.Equal(t, 7.0, v)
	require.ErrorIs(t, a.Set(0, 3, 1), matrix.ErrNotStructural)

	cols, vals := a.Row(0)
	assert.Equal(t, []int{0, 1}, cols)
	assert.Equal(t, []float64{2, -1}, vals)
}

func TestCSR_MatVecAndTranspose(t *testing.T) {
	d, err := matrix.NewDenseFrom([][]float64{
		{1, 2, 0},
		{0, 3, 4},
		{5, 0, 6},
	})
	require.NoError(t, err)
	a, err := matrix.DenseToCSR(d, false)
	require.NoError(t, err)

	y, err := a.MatVec([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 7, 11}, y)

	yt, err := a.MatVecTrans([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 5, 10}, yt)

	at, err := a.Transpose()
	require.NoError(t, err)
	require.NoError(t, at.Validate())
	y2, err := at.MatVec([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, yt, y2)

	_, err = a.MatVec([]float64{1})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestDenseToCSR_KeepDiagonal(t *testing.T) {
	d, err := matrix.NewDenseFrom([][]float64{{0, 1}, {1, 0}})
	require.NoError(t, err)

	plain, err := matrix.DenseToCSR(d, false)
	require.NoError(t, err)
	assert.Equal(t, 2, plain.NNZ)

	withDiag, err := matrix.DenseToCSR(d, true)
	require.NoError(t, err)
	assert.Equal(t, 4, withDiag.NNZ)

	back, err := matrix.CSRToDense(withDiag)
	require.NoError(t, err)
	assert.Equal(t, d.RawRow(0), back.RawRow(0))
	assert.Equal(t, d.RawRow(1), back.RawRow(1))
}

func TestTripletsToCSR_OutOfRange(t *testing.T) {
	_, err := matrix.TripletsToCSR(2, 2, []matrix.Triplet{{Row: 2, Col: 0, Val: 1}})
	require.ErrorIs(t, err, matrix.ErrOutOfRange)
}

func TestLUSolve_MatchesClosedForm(t *testing.T) {
	// tridiag(-1,2,-1)·x = 1 has x_i = (i+1)(n-i)/2.
	x, err := matrix.LUSolve(tridiag4(t), []float64{1, 1, 1, 1})
	require.NoError(t, err)
	for i, want := range []float64{2, 3, 3, 2} {
		assert.InDelta(t, want, x[i], 1e-12)
	}

	sing, err := matrix.NewDenseFrom([][]float64{{1, 2, 3}, {2, 4, 6}, {1, 1, 1}})
	require.NoError(t, err)
	_, err = matrix.LUSolve(sing, []float64{1, 1, 1})
	require.ErrorIs(t, err, matrix.ErrSingular)

	rect, err := matrix.NewDense(2, 3)
	require.NoError(t, err)
	_, _, _, err = matrix.LU(rect)
	require.ErrorIs(t, err, matrix.ErrNonSquare)
}

func TestNorm2(t *testing.T) {
	assert.Zero(t, matrix.Norm2(nil))
	assert.InDelta(t, 5.0, matrix.Norm2([]float64{3, -4}), 1e-15)
	assert.InDelta(t, 5e200, matrix.Norm2([]float64{3e200, 4e200}), 1e186)
}

func TestReadMatrixMarket(t *testing.T) {
	src := `%%MatrixMarket matrix coordinate real symmetric
% 3x3 tridiagonal
3 3 5
1 1 2.0
2 1 -1.0
2 2 2.0
3 2 -1.0
3 3 2.0
`
	a, err := matrix.ReadMatrixMarket(strings.NewReader(src))
	require.NoError(t, err)
	require.NoError(t, a.Validate())
	assert.Equal(t, 7, a.NNZ)
	cols, vals := a.Row(1)
	assert.Equal(t, []int{0, 1, 2}, cols)
	assert.Equal(t, []float64{-1, 2, -1}, vals)

	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"array format", "%%MatrixMarket matrix array real general\n2 2\n"},
		{"complex", "%%MatrixMarket matrix coordinate complex general\n1 1 1\n1 1 1 0\n"},
		{"short", "%%MatrixMarket matrix coordinate real general\n2 2 2\n1 1 1\n"},
		{"index", "%%MatrixMarket matrix coordinate real general\n2 2 1\n3 1 1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := matrix.ReadMatrixMarket(strings.NewReader(tc.src))
			require.ErrorIs(t, err, matrix.ErrMatrixMarket)
		})
	}
}
