// SPDX-License-Identifier: MIT

package solver

import (
	"go.uber.org/zap"

	"github.com/katalvlaran/lvdirect/engine"
)

// Option configures a Solver at construction.
type Option func(*options)

type options struct {
	log    *zap.Logger
	eng    engine.Engine
	params Params
}

func defaultOptions() options {
	return options{log: zap.NewNop(), params: DefaultParams()}
}

// WithLogger sets the diagnostics logger; nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithEngine replaces the default SparseLU engine.
func WithEngine(e engine.Engine) Option {
	return func(o *options) {
		if e != nil {
			o.eng = e
		}
	}
}

// WithParams sets the initial parameters.
func WithParams(p Params) Option {
	return func(o *options) { o.params = p }
}
