// SPDX-License-Identifier: MIT

package engine

import (
	"errors"
	"fmt"
)

// ErrOptionViolation is returned by NewSparseLU for an invalid Option.
var ErrOptionViolation = errors.New("engine: invalid option supplied")

// Option configures a SparseLU engine.
type Option func(*Options)

// Options holds SparseLU tuning knobs.
type Options struct {
	// Reorder applies a reverse Cuthill–McKee column ordering in the
	// symbolic phase. Disabled, the natural order is used.
	Reorder bool

	// RefineSteps is the number of iterative refinement sweeps Solve runs
	// using the caller's arrays. 0 disables refinement.
	RefineSteps int

	err error
}

// DefaultOptions enables reordering and disables refinement.
func DefaultOptions() Options {
	return Options{Reorder: true}
}

// WithReorder toggles the fill-reducing ordering.
func WithReorder(on bool) Option {
	return func(o *Options) { o.Reorder = on }
}

// WithRefinement sets the number of refinement sweeps; negative is invalid.
func WithRefinement(steps int) Option {
	return func(o *Options) {
		if steps < 0 {
			o.err = fmt.Errorf("%w: RefineSteps cannot be negative (%d)", ErrOptionViolation, steps)
			return
		}
		o.RefineSteps = steps
	}
}
