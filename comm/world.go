// SPDX-License-Identifier: MIT

package comm

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Operation tags used in error wrapping.
const (
	opBarrier   = "Barrier"
	opBroadcast = "Broadcast"
	opGather    = "Gather"
	opAllGather = "AllGather"
	opScatter   = "Scatter"
	opAllToAll  = "AllToAll"
)

// World is an in-process group of ranks that exchange values through shared
// memory. Each rank must be driven by its own goroutine.
//
// Every collective is one "round": each rank deposits a value, the last one
// to arrive closes the round, and all ranks read the complete contribution
// vector. A new round is opened as soon as the previous one closes, so a
// rank can never deposit into round r+1 before round r has completed.
type World struct {
	size int

	mu  sync.Mutex // protects cur
	cur *round
}

// round is one collective exchange.
type round struct {
	vals    []any
	arrived int
	done    chan struct{} // closed when arrived == size
}

// NewWorld creates an in-process world with size ranks.
// Returns ErrInvalidWorldSize when size < 1.
func NewWorld(size int) (*World, error) {
	if size < 1 {
		return nil, ErrInvalidWorldSize
	}

	return &World{size: size, cur: newRound(size)}, nil
}

func newRound(size int) *round {
	return &round{vals: make([]any, size), done: make(chan struct{})}
}

// Size returns the number of ranks.
func (w *World) Size() int { return w.size }

// Comm returns the Communicator of the given rank.
// Panics on an out-of-range rank: that is a wiring bug, not a runtime condition.
func (w *World) Comm(rank int) Communicator {
	if rank < 0 || rank >= w.size {
		panic("comm: World.Comm: rank out of range")
	}

	return &endpoint{w: w, rank: rank}
}

// exchange deposits v for rank and waits until every rank has deposited.
// The returned slice is shared by all ranks and must not be mutated.
func (w *World) exchange(ctx context.Context, rank int, v any) ([]any, error) {
	w.mu.Lock()
	r := w.cur
	r.vals[rank] = v
	r.arrived++
	if r.arrived == w.size {
		close(r.done)
		w.cur = newRound(w.size)
	}
	w.mu.Unlock()

	select {
	case <-r.done:
		return r.vals, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// endpoint is one rank's view of a World.
type endpoint struct {
	w    *World
	rank int
}

func (e *endpoint) Rank() int { return e.rank }
func (e *endpoint) Size() int { return e.w.size }

func (e *endpoint) Barrier(ctx context.Context) error {
	if _, err := e.w.exchange(ctx, e.rank, nil); err != nil {
		return commErrorf(opBarrier, err)
	}

	return nil
}

func (e *endpoint) Broadcast(ctx context.Context, root int, v any) (any, error) {
	if err := validateRoot(root, e.w.size); err != nil {
		return nil, commErrorf(opBroadcast, err)
	}
	if e.rank != root {
		v = nil
	}
	vals, err := e.w.exchange(ctx, e.rank, v)
	if err != nil {
		return nil, commErrorf(opBroadcast, err)
	}

	return vals[root], nil
}

func (e *endpoint) Gather(ctx context.Context, root int, v any) ([]any, error) {
	if err := validateRoot(root, e.w.size); err != nil {
		return nil, commErrorf(opGather, err)
	}
	vals, err := e.w.exchange(ctx, e.rank, v)
	if err != nil {
		return nil, commErrorf(opGather, err)
	}
	if e.rank != root {
		return nil, nil
	}

	return append([]any(nil), vals...), nil
}

func (e *endpoint) AllGather(ctx context.Context, v any) ([]any, error) {
	vals, err := e.w.exchange(ctx, e.rank, v)
	if err != nil {
		return nil, commErrorf(opAllGather, err)
	}

	return append([]any(nil), vals...), nil
}

func (e *endpoint) Scatter(ctx context.Context, root int, parts []any) (any, error) {
	if err := validateRoot(root, e.w.size); err != nil {
		return nil, commErrorf(opScatter, err)
	}
	var deposit any
	if e.rank == root {
		deposit = parts
	}
	vals, err := e.w.exchange(ctx, e.rank, deposit)
	if err != nil {
		return nil, commErrorf(opScatter, err)
	}
	// Every rank checks root's parts so a bad call fails everywhere.
	rootParts, _ := vals[root].([]any)
	if len(rootParts) != e.w.size {
		return nil, commErrorf(opScatter, ErrPartsMismatch)
	}

	return rootParts[e.rank], nil
}

func (e *endpoint) AllToAll(ctx context.Context, parts []any) ([]any, error) {
	vals, err := e.w.exchange(ctx, e.rank, parts)
	if err != nil {
		return nil, commErrorf(opAllToAll, err)
	}
	out := make([]any, e.w.size)
	for src, v := range vals {
		p, _ := v.([]any)
		if len(p) != e.w.size {
			return nil, commErrorf(opAllToAll, ErrPartsMismatch)
		}
		out[src] = p[e.rank]
	}

	return out, nil
}

// NewSelf returns a single-rank Communicator. Every collective completes
// immediately; it is the natural communicator for serial callers.
func NewSelf() Communicator {
	w, _ := NewWorld(1) // size 1 is always valid

	return w.Comm(0)
}

// Run executes fn on size ranks of a fresh World, one goroutine per rank,
// and waits for all of them. The first error cancels the context passed to
// every other rank, so ranks blocked in a collective return promptly.
//
// Returns ErrInvalidWorldSize for size < 1, otherwise the first error
// returned by any rank.
func Run(ctx context.Context, size int, fn func(ctx context.Context, c Communicator) error) error {
	w, err := NewWorld(size)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for rank := 0; rank < size; rank++ {
		c := w.Comm(rank)
		g.Go(func() error {
			return fn(gctx, c)
		})
	}

	return g.Wait()
}
