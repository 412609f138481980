// SPDX-License-Identifier: MIT

package ordering

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for ordering.
var (
	// ErrEmptyPattern is returned for n <= 0.
	ErrEmptyPattern = errors.New("ordering: pattern has no rows")

	// ErrBadPattern is returned when ptr/idx do not describe a valid
	// compressed pattern of an n×n matrix.
	ErrBadPattern = errors.New("ordering: malformed pattern")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("ordering: invalid option supplied")
)

// Option configures an ordering run via functional arguments.
// Invalid options are recorded and surfaced as ErrOptionViolation.
type Option func(*Options)

// Options holds parameters and callbacks for RCM.
type Options struct {
	// Ctx allows cancellation of long orderings.
	Ctx context.Context

	// Reverse selects reverse Cuthill–McKee (true, default) or plain
	// Cuthill–McKee (false).
	Reverse bool

	// PeripheralPasses bounds the pseudo-peripheral start search per
	// component. 0 starts at the minimum-degree vertex.
	PeripheralPasses int

	// OnVisit is called for each vertex in Cuthill–McKee visit order with
	// its BFS level inside its component. A non-nil error aborts the run.
	OnVisit func(v, level int) error

	err error
}

// DefaultOptions returns reverse ordering, up to 4 peripheral passes,
// a background context and a no-op visit hook.
func DefaultOptions() Options {
	return Options{
		Ctx:              context.Background(),
		Reverse:          true,
		PeripheralPasses: 4,
		OnVisit:          func(int, int) error { return nil },
	}
}

// WithContext sets a custom context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if ctx != nil {
			o.Ctx = ctx
		}
	}
}

// WithReverse toggles reversal of the Cuthill–McKee order.
func WithReverse(rev bool) Option {
	return func(o *Options) { o.Reverse = rev }
}

// WithPeripheralPasses sets the start-vertex refinement budget; negative
// values are rejected.
func WithPeripheralPasses(n int) Option {
	return func(o *Options) {
		if n < 0 {
			o.err = fmt.Errorf("%w: PeripheralPasses cannot be negative (%d)", ErrOptionViolation, n)
			return
		}
		o.PeripheralPasses = n
	}
}

// WithOnVisit registers a visit hook.
func WithOnVisit(fn func(v, level int) error) Option {
	return func(o *Options) {
		if fn != nil {
			o.OnVisit = fn
		}
	}
}

// Result is a symmetric permutation.
//   - Perm[k] is the original index placed at position k.
//   - Inverse[i] is the position of original index i.
//   - Components is the number of connected components in the pattern.
type Result struct {
	Perm       []int
	Inverse    []int
	Components int
}
