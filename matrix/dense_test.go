package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvdirect/matrix"
)

func TestDense_Basics(t *testing.T) {
	_, err := matrix.NewDense(0, 1)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)

	m, err := matrix.NewDense(2, 3)
	require.NoError(t, err)
	require.Equal(t, 2, m.Rows())
	require.Equal(t, 3, m.Cols())

	require.NoError(t, m.Set(1, 2, 4.5))
	v, err := m.At(1, 2)
	require.NoError(t, err)
	require.Equal(t, 4.5, v)

	require.ErrorIs(t, m.Set(2, 0, 1), matrix.ErrOutOfRange)
	require.ErrorIs(t, m.Set(0, 0, math.NaN()), matrix.ErrNaNInf)

	c := m.Clone()
	require.NoError(t, c.Set(1, 2, 0))
	v, _ = m.At(1, 2)
	require.Equal(t, 4.5, v, "clone must not alias")
	require.Equal(t, "[0, 0, 0]\n[0, 0, 4.5]\n", m.String())
}

func TestNewDenseFrom_Errors(t *testing.T) {
	_, err := matrix.NewDenseFrom(nil)
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
	_, err = matrix.NewDenseFrom([][]float64{{1, 2}, {3}})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = matrix.NewDenseFrom([][]float64{{math.Inf(1)}})
	require.ErrorIs(t, err, matrix.ErrNaNInf)
}

func TestValidators(t *testing.T) {
	var d *matrix.Dense
	require.ErrorIs(t, matrix.ValidateNotNil(d), matrix.ErrNilMatrix)
	require.ErrorIs(t, matrix.ValidateNotNil(nil), matrix.ErrNilMatrix)

	rect, _ := matrix.NewDense(2, 3)
	require.ErrorIs(t, matrix.ValidateSquare(rect), matrix.ErrNonSquare)
	require.ErrorIs(t, matrix.ValidateVecLen([]float64{1}, 2), matrix.ErrDimensionMismatch)
	require.ErrorIs(t, matrix.ValidateFinite([]float64{1, math.NaN()}), matrix.ErrNaNInf)
	require.NoError(t, matrix.ValidateFinite([]float64{1, 2}))
}

func TestTransposeAndMatVec_Dense(t *testing.T) {
	m, err := matrix.NewDenseFrom([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	tr, err := matrix.Transpose(m)
	require.NoError(t, err)
	require.Equal(t, 3, tr.Rows())
	v, _ := tr.At(2, 1)
	require.Equal(t, 6.0, v)

	y, err := matrix.MatVec(m, []float64{1, 0, -1})
	require.NoError(t, err)
	require.Equal(t, []float64{-2, -2}, y)
}
