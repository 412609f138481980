// SPDX-License-Identifier: MIT

package comm

import (
	"context"
	"errors"
	"fmt"
)

// Coordinator is the rank on which serial work is executed.
const Coordinator = 0

// Sentinel errors for collective operations.
var (
	// ErrInvalidRank is returned when a root/rank argument is outside [0, Size()).
	ErrInvalidRank = errors.New("comm: invalid rank")

	// ErrInvalidWorldSize is returned when a World is requested with size < 1.
	ErrInvalidWorldSize = errors.New("comm: world size must be > 0")

	// ErrPartsMismatch is returned by Scatter/AllToAll when the number of parts
	// supplied by a rank does not equal Size().
	ErrPartsMismatch = errors.New("comm: number of parts does not match world size")

	// ErrPayloadType is returned by typed helpers when a received payload has
	// an unexpected dynamic type (a programming error on some rank).
	ErrPayloadType = errors.New("comm: unexpected payload type")
)

// Communicator is one rank's handle on a group of cooperating processes.
//
// All methods except Rank and Size are blocking collectives.
type Communicator interface {
	// Rank returns this process' index in [0, Size()).
	Rank() int

	// Size returns the number of ranks in the group.
	Size() int

	// Barrier blocks until every rank has entered it.
	Barrier(ctx context.Context) error

	// Broadcast returns root's v on every rank. Non-root ranks' v is ignored.
	Broadcast(ctx context.Context, root int, v any) (any, error)

	// Gather returns all contributions ordered by rank on root and nil elsewhere.
	Gather(ctx context.Context, root int, v any) ([]any, error)

	// AllGather returns all contributions ordered by rank on every rank.
	AllGather(ctx context.Context, v any) ([]any, error)

	// Scatter delivers parts[r] from root to rank r. Only root's parts are read.
	Scatter(ctx context.Context, root int, parts []any) (any, error)

	// AllToAll delivers parts[r] of every rank to rank r; the result is
	// indexed by source rank.
	AllToAll(ctx context.Context, parts []any) ([]any, error)
}

// IsCoordinator reports whether c is the coordinating rank.
func IsCoordinator(c Communicator) bool { return c.Rank() == Coordinator }

// commErrorf wraps err with an operation tag, preserving it for errors.Is.
func commErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// validateRoot checks 0 <= root < size.
func validateRoot(root, size int) error {
	if root < 0 || root >= size {
		return fmt.Errorf("root %d of %d: %w", root, size, ErrInvalidRank)
	}

	return nil
}
