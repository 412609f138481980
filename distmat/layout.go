// SPDX-License-Identifier: MIT

package distmat

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/katalvlaran/lvdirect/comm"
)

// layoutVersions hands out a unique version to every Layout instance.
var layoutVersions atomic.Uint64

// Layout is the row map of a distributed object: which rank owns which
// global indices, and in what local order.
type Layout struct {
	c       comm.Communicator
	n       int
	all     [][]int // GIDs per rank, in local order
	owner   []int   // owner rank per GID
	lid     []int   // local index per GID on its owner
	version uint64
}

// NewLayout builds a layout in which this rank owns myGIDs (in that local
// order). Collective: every rank supplies its own list. The union of all
// lists must be a partition of [0, n).
func NewLayout(ctx context.Context, c comm.Communicator, n int, myGIDs []int) (*Layout, error) {
	const op = "NewLayout"
	if n < 0 {
		return nil, distErrorf(op, fmt.Errorf("n=%d: %w", n, ErrInvalidLayout))
	}
	all, err := comm.AllGatherInts(ctx, c, myGIDs)
	if err != nil {
		return nil, distErrorf(op, err)
	}

	l := &Layout{
		c:     c,
		n:     n,
		all:   all,
		owner: make([]int, n),
		lid:   make([]int, n),
	}
	for i := range l.owner {
		l.owner[i] = -1
	}
	for r, gids := range all {
		for k, g := range gids {
			if g < 0 || g >= n {
				return nil, distErrorf(op, fmt.Errorf("rank %d gid %d not in [0,%d): %w", r, g, n, ErrInvalidLayout))
			}
			if l.owner[g] >= 0 {
				return nil, distErrorf(op, fmt.Errorf("gid %d owned by ranks %d and %d: %w", g, l.owner[g], r, ErrInvalidLayout))
			}
			l.owner[g] = r
			l.lid[g] = k
		}
	}
	for g, r := range l.owner {
		if r < 0 {
			return nil, distErrorf(op, fmt.Errorf("gid %d has no owner: %w", g, ErrInvalidLayout))
		}
	}
	l.version = layoutVersions.Add(1)

	return l, nil
}

// NewUniformLayout splits [0, n) into contiguous blocks, the first n%size
// ranks getting one extra row. Collective.
func NewUniformLayout(ctx context.Context, c comm.Communicator, n int) (*Layout, error) {
	size, rank := c.Size(), c.Rank()
	base, extra := n/size, n%size
	if n < 0 {
		base, extra = 0, 0
	}
	lo := rank*base + min(rank, extra)
	cnt := base
	if rank < extra {
		cnt++
	}
	gids := make([]int, cnt)
	for i := range gids {
		gids[i] = lo + i
	}

	return NewLayout(ctx, c, n, gids)
}

// NewSerialLayout places all n rows on rank root. Collective.
func NewSerialLayout(ctx context.Context, c comm.Communicator, n, root int) (*Layout, error) {
	var gids []int
	if c.Rank() == root {
		gids = make([]int, n)
		for i := range gids {
			gids[i] = i
		}
	}

	return NewLayout(ctx, c, n, gids)
}

// Comm returns the communicator the layout lives on.
func (l *Layout) Comm() comm.Communicator { return l.c }

// NumGlobal is the total number of indices.
func (l *Layout) NumGlobal() int { return l.n }

// NumMy is the number of indices owned by this rank.
func (l *Layout) NumMy() int { return len(l.all[l.c.Rank()]) }

// NumOn is the number of indices owned by rank r.
func (l *Layout) NumOn(r int) int {
	if r < 0 || r >= len(l.all) {
		return 0
	}

	return len(l.all[r])
}

// MyGIDs returns this rank's global indices in local order. Read-only view.
func (l *Layout) MyGIDs() []int { return l.all[l.c.Rank()] }

// GID maps a local index to its global index, or -1.
func (l *Layout) GID(lid int) int {
	mine := l.MyGIDs()
	if lid < 0 || lid >= len(mine) {
		return -1
	}

	return mine[lid]
}

// LID maps a global index to its local index on this rank, or -1 when the
// index is owned elsewhere.
func (l *Layout) LID(gid int) int {
	if gid < 0 || gid >= l.n || l.owner[gid] != l.c.Rank() {
		return -1
	}

	return l.lid[gid]
}

// Owner returns the rank owning gid, or -1.
func (l *Layout) Owner(gid int) int {
	if gid < 0 || gid >= l.n {
		return -1
	}

	return l.owner[gid]
}

// Version is unique to this Layout instance; equal versions imply the same
// instance. Plans record the version of the layout they were built from.
func (l *Layout) Version() uint64 { return l.version }

// SameAs reports whether both layouts assign the same GIDs to the same
// ranks in the same local order.
func (l *Layout) SameAs(o *Layout) bool {
	if l == o {
		return true
	}
	if l == nil || o == nil || l.n != o.n || len(l.all) != len(o.all) {
		return false
	}
	for r := range l.all {
		if !slices.Equal(l.all[r], o.all[r]) {
			return false
		}
	}

	return true
}

// IsLocalTo reports whether rank r owns every index.
func (l *Layout) IsLocalTo(r int) bool { return l.NumOn(r) == l.n }
