// SPDX-License-Identifier: MIT

package solver

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvdirect/engine"
)

var (
	// ErrConfiguration indicates a missing solution or right-hand side,
	// mismatched column counts, or an invalid parameter value.
	ErrConfiguration = errors.New("solver: invalid configuration")

	// ErrShape indicates a non-square matrix.
	ErrShape = errors.New("solver: matrix is not square")

	// ErrEngineFailure is matched by every *EngineError.
	ErrEngineFailure = errors.New("solver: factorization engine failed")

	// ErrStructuralInconsistency indicates a row extraction that reported
	// more entries than the matrix declared.
	ErrStructuralInconsistency = errors.New("solver: structural inconsistency")

	// ErrClosed is returned by any phase call after Close.
	ErrClosed = errors.New("solver: solver is closed")
)

// stepSentinels are the sentinels preserved when a coordinator step's error
// is broadcast to the other ranks.
var stepSentinels = []error{ErrEngineFailure, ErrStructuralInconsistency, ErrConfiguration, ErrShape}

// EngineError reports a non-zero engine status. It is returned on the
// coordinator; other ranks receive an error wrapping ErrEngineFailure with
// the same message.
type EngineError struct {
	Phase  string
	Status engine.Status
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("solver: engine %s phase: %s", e.Phase, e.Status)
}

// Unwrap makes errors.Is(err, ErrEngineFailure) hold.
func (e *EngineError) Unwrap() error { return ErrEngineFailure }

// Operation tags for error wrapping.
const (
	opNew         = "New"
	opSymbolic    = "SymbolicFactorization"
	opNumeric     = "NumericFactorization"
	opSolve       = "Solve"
	opCondition   = "ConditionEstimate"
	opParameters  = "SetParameters"
	opLoadConfig  = "LoadConfig"
	opClose       = "Close"
	opConvert     = "toCompressedForm"
	opGather      = "gatherMatrix"
	opGatherVec   = "gatherVector"
	opScatterVec  = "scatterVector"
	opDiagnostics = "diagnostics"
)

// solverErrorf wraps err with an operation tag; nil stays nil.
func solverErrorf(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", op, err)
}
