package ordering_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvdirect/ordering"
)

// pattern builds a compressed row pattern from adjacency rows.
func pattern(rows [][]int) (int, []int, []int) {
	ptr := []int{0}
	var idx []int
	for _, r := range rows {
		idx = append(idx, r...)
		ptr = append(ptr, len(idx))
	}

	return len(rows), ptr, idx
}

// shuffledPath is a path graph 0-1-2-3-4-5 relabelled so that the natural
// ordering has a wide band.
func shuffledPath() (int, []int, []int) {
	// path order: 0, 5, 1, 4, 2, 3
	return pattern([][]int{
		{0, 5},
		{1, 5, 4},
		{2, 4, 3},
		{3, 2},
		{4, 1, 2},
		{5, 0, 1},
	})
}

func isPermutation(t *testing.T, n int, p []int) {
	t.Helper()
	require.Len(t, p, n)
	seen := make([]bool, n)
	for _, v := range p {
		require.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
	}
}

func TestRCM_ReducesBandwidth(t *testing.T) {
	n, ptr, idx := shuffledPath()
	res, err := ordering.RCM(n, ptr, idx)
	require.NoError(t, err)
	isPermutation(t, n, res.Perm)
	for k, v := range res.Perm {
		assert.Equal(t, k, res.Inverse[v])
	}

	assert.Equal(t, 5, ordering.Bandwidth(n, ptr, idx, nil))
	assert.Equal(t, 1, ordering.Bandwidth(n, ptr, idx, res.Inverse))
	assert.Equal(t, 1, res.Components)
}

func TestRCM_ReverseIsMirrorOfCM(t *testing.T) {
	n, ptr, idx := shuffledPath()
	rcm, err := ordering.RCM(n, ptr, idx)
	require.NoError(t, err)
	cm, err := ordering.RCM(n, ptr, idx, ordering.WithReverse(false))
	require.NoError(t, err)
	for k := range cm.Perm {
		assert.Equal(t, cm.Perm[k], rcm.Perm[n-1-k])
	}
}

func TestRCM_DisconnectedAndDiagonalOnly(t *testing.T) {
	n, ptr, idx := pattern([][]int{{0}, {1, 2}, {2, 1}, {3}})
	res, err := ordering.RCM(n, ptr, idx)
	require.NoError(t, err)
	isPermutation(t, n, res.Perm)
	assert.Equal(t, 3, res.Components)
}

func TestRCM_UnsymmetricPatternIsSymmetrized(t *testing.T) {
	// Only the upper triangle is stored.
	n, ptr, idx := pattern([][]int{{0, 1}, {1, 2}, {2}})
	res, err := ordering.RCM(n, ptr, idx, ordering.WithPeripheralPasses(0))
	require.NoError(t, err)
	isPermutation(t, n, res.Perm)
	assert.Equal(t, 1, res.Components)
}

func TestRCM_Errors(t *testing.T) {
	_, err := ordering.RCM(0, []int{0}, nil)
	require.ErrorIs(t, err, ordering.ErrEmptyPattern)

	_, err = ordering.RCM(2, []int{0, 1}, []int{0})
	require.ErrorIs(t, err, ordering.ErrBadPattern)

	_, err = ordering.RCM(2, []int{0, 1, 2}, []int{0, 7})
	require.ErrorIs(t, err, ordering.ErrBadPattern)

	_, err = ordering.RCM(2, []int{0, 2, 1}, []int{0, 1})
	require.ErrorIs(t, err, ordering.ErrBadPattern)

	_, err = ordering.RCM(1, []int{0, 0}, nil, ordering.WithPeripheralPasses(-1))
	require.ErrorIs(t, err, ordering.ErrOptionViolation)
}

func TestRCM_HooksAndCancellation(t *testing.T) {
	n, ptr, idx := shuffledPath()
	var visited []int
	_, err := ordering.RCM(n, ptr, idx, ordering.WithOnVisit(func(v, level int) error {
		visited = append(visited, v)
		return nil
	}))
	require.NoError(t, err)
	assert.Len(t, visited, n)

	stop := errors.New("stop")
	_, err = ordering.RCM(n, ptr, idx, ordering.WithOnVisit(func(int, int) error { return stop }))
	require.ErrorIs(t, err, stop)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ordering.RCM(n, ptr, idx, ordering.WithContext(ctx))
	require.ErrorIs(t, err, context.Canceled)
}
