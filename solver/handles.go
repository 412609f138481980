// SPDX-License-Identifier: MIT

package solver

import (
	"errors"

	"github.com/katalvlaran/lvdirect/engine"
)

// errHandleOrder is returned when a numeric handle would be installed
// without the symbolic handle it was built from.
var errHandleOrder = errors.New("solver: numeric handle requires a live symbolic handle")

// symbolicSlot owns at most one symbolic handle. Every installation bumps
// gen so dependent numeric handles can tell whether their parent is still
// the live one.
type symbolicSlot struct {
	eng engine.Engine
	h   engine.Symbolic
	gen uint64
}

// replace releases dep and the current handle, then installs h.
func (s *symbolicSlot) replace(h engine.Symbolic, dep *numericSlot) {
	s.release(dep)
	s.h = h
	s.gen++
}

// release frees dep first, then the symbolic handle. Safe to call twice.
func (s *symbolicSlot) release(dep *numericSlot) {
	if dep != nil {
		dep.release()
	}
	if s.h != nil {
		s.eng.FreeSymbolic(s.h)
		s.h = nil
	}
}

func (s *symbolicSlot) live() bool { return s.h != nil }

// numericSlot owns at most one numeric handle and the generation of the
// symbolic handle it depends on.
type numericSlot struct {
	eng    engine.Engine
	h      engine.Numeric
	symGen uint64
}

// replace installs h built from parent's current handle, releasing the
// previous numeric handle. h is freed and an error returned when parent
// holds no handle.
func (n *numericSlot) replace(h engine.Numeric, parent *symbolicSlot) error {
	if !parent.live() {
		if h != nil {
			n.eng.FreeNumeric(h)
		}
		return errHandleOrder
	}
	n.release()
	n.h = h
	n.symGen = parent.gen

	return nil
}

// release frees the handle. Safe to call twice.
func (n *numericSlot) release() {
	if n.h != nil {
		n.eng.FreeNumeric(n.h)
		n.h = nil
	}
}

// validFor reports whether the handle was built from parent's live handle.
func (n *numericSlot) validFor(parent *symbolicSlot) bool {
	return n.h != nil && parent.live() && n.symGen == parent.gen
}
