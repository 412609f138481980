// SPDX-License-Identifier: MIT

package engine

import "fmt"

// Status is the integer result code of an engine call.
type Status int

// Status codes.
const (
	StatusOK               Status = 0
	StatusSingular         Status = 1
	StatusOutOfMemory      Status = -1
	StatusInvalidNumeric   Status = -3
	StatusInvalidSymbolic  Status = -4
	StatusArgumentMissing  Status = -5
	StatusNNonpositive     Status = -6
	StatusInvalidMatrix    Status = -8
	StatusDifferentPattern Status = -11
	StatusInvalidSystem    Status = -13
)

var statusNames = map[Status]string{
	StatusOK:               "ok",
	StatusSingular:         "singular matrix",
	StatusOutOfMemory:      "out of memory",
	StatusInvalidNumeric:   "invalid numeric object",
	StatusInvalidSymbolic:  "invalid symbolic object",
	StatusArgumentMissing:  "argument missing",
	StatusNNonpositive:     "n nonpositive",
	StatusInvalidMatrix:    "invalid matrix",
	StatusDifferentPattern: "different pattern",
	StatusInvalidSystem:    "invalid system",
}

// String returns a short description with the numeric code.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return fmt.Sprintf("%s (%d)", name, int(s))
	}

	return fmt.Sprintf("unknown status (%d)", int(s))
}

// OK reports whether s is StatusOK.
func (s Status) OK() bool { return s == StatusOK }

// Mode selects which system Solve works on.
type Mode int

const (
	// ModeNormal solves M·x = b for the matrix M the arrays describe.
	ModeNormal Mode = iota
	// ModeTranspose solves Mᵀ·x = b.
	ModeTranspose
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeTranspose:
		return "transpose"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Symbolic is an opaque symbolic-analysis handle.
type Symbolic interface {
	// Size is the order n of the analysed matrix.
	Size() int
}

// Numeric is an opaque numeric-factorization handle.
type Numeric interface {
	// Size is the order n of the factored matrix.
	Size() int
}

// Engine is a single-process sparse LU solver. Arrays are read as
// compressed-column storage and must not be modified while a call runs.
// Implementations need not be safe for concurrent use of one handle.
type Engine interface {
	// Symbolic analyses the n×n pattern.
	Symbolic(n int, colStart, rowIndex []int, values []float64) (Symbolic, Status)

	// Numeric factors values whose pattern equals the one sym was built from.
	// The float64 result is a reciprocal condition estimate.
	Numeric(colStart, rowIndex []int, values []float64, sym Symbolic) (Numeric, float64, Status)

	// Solve returns the solution of the selected system for right-hand side b.
	Solve(mode Mode, colStart, rowIndex []int, values []float64, num Numeric, b []float64) ([]float64, Status)

	// FreeSymbolic releases sym. Releasing an already released handle is a no-op.
	FreeSymbolic(sym Symbolic)

	// FreeNumeric releases num. Releasing an already released handle is a no-op.
	FreeNumeric(num Numeric)
}
