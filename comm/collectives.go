// SPDX-License-Identifier: MIT

package comm

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Typed wrappers over the untyped Communicator collectives. Slices received
// from other ranks are copied so callers may mutate the results freely.

// BroadcastValue broadcasts root's v to every rank.
func BroadcastValue[T any](ctx context.Context, c Communicator, root int, v T) (T, error) {
	var zero T
	got, err := c.Broadcast(ctx, root, v)
	if err != nil {
		return zero, err
	}
	out, ok := got.(T)
	if !ok {
		return zero, commErrorf(opBroadcast, fmt.Errorf("%T: %w", got, ErrPayloadType))
	}

	return out, nil
}

// BroadcastError broadcasts root's error (nil meaning success) so that every
// rank returns an error for a failure that happened only on root.
// Non-root ranks receive a new error carrying root's message; when root's
// error wraps one of the given sentinels, the received error wraps it too.
func BroadcastError(ctx context.Context, c Communicator, root int, err error, sentinels ...error) error {
	type status struct {
		msg      string
		sentinel int // index into sentinels, -1 for none
	}
	var st *status
	if c.Rank() == root && err != nil {
		st = &status{msg: err.Error(), sentinel: -1}
		for i, s := range sentinels {
			if errors.Is(err, s) {
				st.sentinel = i
				break
			}
		}
	}
	got, berr := BroadcastValue(ctx, c, root, st)
	if berr != nil {
		return berr
	}
	if got == nil {
		return nil
	}
	if c.Rank() == root {
		return err
	}
	if got.sentinel >= 0 {
		return &remoteError{rank: root, msg: got.msg, sentinel: sentinels[got.sentinel]}
	}

	return &remoteError{rank: root, msg: got.msg}
}

// remoteError is an error raised on another rank and delivered by BroadcastError.
type remoteError struct {
	rank     int
	msg      string
	sentinel error
}

func (e *remoteError) Error() string { return fmt.Sprintf("rank %d: %s", e.rank, e.msg) }
func (e *remoteError) Unwrap() error { return e.sentinel }

// AllGatherInts gathers one int slice per rank on every rank.
func AllGatherInts(ctx context.Context, c Communicator, xs []int) ([][]int, error) {
	vals, err := c.AllGather(ctx, xs)
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(vals))
	for r, v := range vals {
		p, ok := v.([]int)
		if !ok && v != nil {
			return nil, commErrorf(opAllGather, fmt.Errorf("%T: %w", v, ErrPayloadType))
		}
		out[r] = append([]int(nil), p...)
	}

	return out, nil
}

// AllGatherFloat64s gathers one float64 slice per rank on every rank.
func AllGatherFloat64s(ctx context.Context, c Communicator, xs []float64) ([][]float64, error) {
	vals, err := c.AllGather(ctx, xs)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(vals))
	for r, v := range vals {
		p, ok := v.([]float64)
		if !ok && v != nil {
			return nil, commErrorf(opAllGather, fmt.Errorf("%T: %w", v, ErrPayloadType))
		}
		out[r] = append([]float64(nil), p...)
	}

	return out, nil
}

// AllReduceSum returns the sum of x over all ranks, on every rank.
// Summation runs in rank order so every rank gets bit-identical results.
func AllReduceSum(ctx context.Context, c Communicator, x float64) (float64, error) {
	sums, err := AllReduceSumSlice(ctx, c, []float64{x})
	if err != nil {
		return 0, err
	}

	return sums[0], nil
}

// AllReduceSumSlice returns the element-wise sum of xs over all ranks.
// All ranks must pass slices of the same length.
func AllReduceSumSlice(ctx context.Context, c Communicator, xs []float64) ([]float64, error) {
	parts, err := AllGatherFloat64s(ctx, c, xs)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(xs))
	for _, p := range parts {
		if len(p) != len(xs) {
			return nil, commErrorf(opAllGather, ErrPartsMismatch)
		}
		for i, v := range p {
			out[i] += v
		}
	}

	return out, nil
}

// AllReduceMaxInt returns the maximum of x over all ranks.
func AllReduceMaxInt(ctx context.Context, c Communicator, x int) (int, error) {
	parts, err := AllGatherInts(ctx, c, []int{x})
	if err != nil {
		return 0, err
	}
	best := math.MinInt
	for _, p := range parts {
		if len(p) == 1 && p[0] > best {
			best = p[0]
		}
	}

	return best, nil
}

// AllReduceSumInt returns the sum of x over all ranks.
func AllReduceSumInt(ctx context.Context, c Communicator, x int) (int, error) {
	parts, err := AllGatherInts(ctx, c, []int{x})
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range parts {
		if len(p) == 1 {
			total += p[0]
		}
	}

	return total, nil
}

// AllToAllTyped delivers parts[r] to rank r and returns the received parts
// indexed by source rank.
func AllToAllTyped[T any](ctx context.Context, c Communicator, parts []T) ([]T, error) {
	untyped := make([]any, len(parts))
	for i, p := range parts {
		untyped[i] = p
	}
	got, err := c.AllToAll(ctx, untyped)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(got))
	for src, v := range got {
		p, ok := v.(T)
		if !ok {
			return nil, commErrorf(opAllToAll, fmt.Errorf("%T: %w", v, ErrPayloadType))
		}
		out[src] = p
	}

	return out, nil
}
