package comm_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvdirect/comm"
)

func TestNewWorld_InvalidSize(t *testing.T) {
	_, err := comm.NewWorld(0)
	require.ErrorIs(t, err, comm.ErrInvalidWorldSize)

	err = comm.Run(context.Background(), -1, func(context.Context, comm.Communicator) error { return nil })
	require.ErrorIs(t, err, comm.ErrInvalidWorldSize)
}

func TestBroadcastAndGather(t *testing.T) {
	const size = 4
	var mu sync.Mutex
	gathered := map[int][]any{}

	err := comm.Run(context.Background(), size, func(ctx context.Context, c comm.Communicator) error {
		v, err := comm.BroadcastValue(ctx, c, 2, fmt.Sprintf("from-%d", c.Rank()))
		if err != nil {
			return err
		}
		if v != "from-2" {
			return fmt.Errorf("rank %d got %q", c.Rank(), v)
		}

		all, err := c.Gather(ctx, comm.Coordinator, c.Rank()*10)
		if err != nil {
			return err
		}
		mu.Lock()
		gathered[c.Rank()] = all
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []any{0, 10, 20, 30}, gathered[0])
	for r := 1; r < size; r++ {
		assert.Nil(t, gathered[r], "rank %d must not receive gathered data", r)
	}
}

func TestScatterAndAllToAll(t *testing.T) {
	const size = 3
	err := comm.Run(context.Background(), size, func(ctx context.Context, c comm.Communicator) error {
		var parts []any
		if comm.IsCoordinator(c) {
			parts = []any{"a", "b", "c"}
		}
		got, err := c.Scatter(ctx, comm.Coordinator, parts)
		if err != nil {
			return err
		}
		if want := string(rune('a' + c.Rank())); got != want {
			return fmt.Errorf("scatter rank %d: got %v want %s", c.Rank(), got, want)
		}

		send := make([][]int, size)
		for dst := range send {
			send[dst] = []int{c.Rank(), dst}
		}
		recv, err := comm.AllToAllTyped(ctx, c, send)
		if err != nil {
			return err
		}
		for src, p := range recv {
			if p[0] != src || p[1] != c.Rank() {
				return fmt.Errorf("alltoall rank %d from %d: %v", c.Rank(), src, p)
			}
		}

		return nil
	})
	require.NoError(t, err)
}

func TestScatter_PartsMismatchFailsEverywhere(t *testing.T) {
	var mu sync.Mutex
	errs := make([]error, 2)
	_ = comm.Run(context.Background(), 2, func(ctx context.Context, c comm.Communicator) error {
		_, err := c.Scatter(ctx, comm.Coordinator, []any{"only-one"})
		mu.Lock()
		errs[c.Rank()] = err
		mu.Unlock()
		return nil
	})
	for r, err := range errs {
		require.ErrorIs(t, err, comm.ErrPartsMismatch, "rank %d", r)
	}
}

func TestAllReduce(t *testing.T) {
	err := comm.Run(context.Background(), 5, func(ctx context.Context, c comm.Communicator) error {
		s, err := comm.AllReduceSum(ctx, c, float64(c.Rank()))
		if err != nil {
			return err
		}
		if s != 10 {
			return fmt.Errorf("sum = %v", s)
		}
		m, err := comm.AllReduceMaxInt(ctx, c, c.Rank()*c.Rank())
		if err != nil {
			return err
		}
		if m != 16 {
			return fmt.Errorf("max = %d", m)
		}
		v, err := comm.AllReduceSumSlice(ctx, c, []float64{1, float64(c.Rank())})
		if err != nil {
			return err
		}
		if v[0] != 5 || v[1] != 10 {
			return fmt.Errorf("slice sum = %v", v)
		}
		n, err := comm.AllReduceSumInt(ctx, c, 2)
		if err != nil {
			return err
		}
		if n != 10 {
			return fmt.Errorf("int sum = %d", n)
		}

		return c.Barrier(ctx)
	})
	require.NoError(t, err)
}

func TestInvalidRoot(t *testing.T) {
	c := comm.NewSelf()
	_, err := c.Broadcast(context.Background(), 1, nil)
	require.ErrorIs(t, err, comm.ErrInvalidRank)
	_, err = c.Gather(context.Background(), -1, nil)
	require.ErrorIs(t, err, comm.ErrInvalidRank)
}

func TestBroadcastError_PropagatesSentinel(t *testing.T) {
	sentinel := errors.New("boom")
	var mu sync.Mutex
	errs := make([]error, 3)
	err := comm.Run(context.Background(), 3, func(ctx context.Context, c comm.Communicator) error {
		var local error
		if comm.IsCoordinator(c) {
			local = fmt.Errorf("step: %w", sentinel)
		}
		got := comm.BroadcastError(ctx, c, comm.Coordinator, local, sentinel)
		mu.Lock()
		errs[c.Rank()] = got
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	for r, e := range errs {
		require.ErrorIs(t, e, sentinel, "rank %d", r)
	}
	require.Contains(t, errs[1].Error(), "rank 0")

	// nil on root means nil everywhere.
	err = comm.Run(context.Background(), 2, func(ctx context.Context, c comm.Communicator) error {
		return comm.BroadcastError(ctx, c, comm.Coordinator, nil)
	})
	require.NoError(t, err)
}

func TestRun_FirstErrorCancelsBlockedRanks(t *testing.T) {
	sentinel := errors.New("rank 1 failed")
	done := make(chan error, 1)
	go func() {
		done <- comm.Run(context.Background(), 3, func(ctx context.Context, c comm.Communicator) error {
			if c.Rank() == 1 {
				return sentinel
			}
			// Ranks 0 and 2 wait for a barrier rank 1 never enters.
			return c.Barrier(ctx)
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, sentinel)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after a rank failed")
	}
}
