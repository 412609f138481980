// SPDX-License-Identifier: MIT

package solver

import (
	"fmt"

	"github.com/katalvlaran/lvdirect/distmat"
	"github.com/katalvlaran/lvdirect/matrix"
)

// conversion is the compressed form of the serial matrix plus the number
// of rows a non-zero shift could not be applied to.
type conversion struct {
	csr             *matrix.CSR
	missingDiagonal int
}

// toCompressedForm builds the compressed-row arrays of the rows held
// locally by serial, in global row order. A non-zero shift is added to the
// first stored diagonal entry of each row; rows without one are counted and
// left unchanged. A row longer than MaxNumEntries fails with
// ErrStructuralInconsistency.
func toCompressedForm(serial distmat.RowMatrix, shift float64) (*conversion, error) {
	n := serial.NumGlobalRows()
	layout := serial.RowLayout()
	csr, err := matrix.NewCSR(n, serial.NumGlobalCols(), serial.NumGlobalNonzeros())
	if err != nil {
		return nil, solverErrorf(opConvert, err)
	}

	width := serial.MaxNumEntries()
	vals := make([]float64, width)
	cols := make([]int, width)
	out := &conversion{csr: csr}
	p := 0
	for gid := 0; gid < n; gid++ {
		lid := layout.LID(gid)
		if lid < 0 {
			csr.RowStart[gid+1] = p
			continue
		}
		cnt, err := serial.ExtractMyRowCopy(lid, vals, cols)
		if err != nil || cnt > width {
			return nil, solverErrorf(opConvert, fmt.Errorf("row %d: %d entries, max %d (%v): %w", gid, cnt, width, err, ErrStructuralInconsistency))
		}
		if p+cnt > len(csr.ColIndex) {
			return nil, solverErrorf(opConvert, fmt.Errorf("row %d overflows %d declared entries: %w", gid, len(csr.ColIndex), ErrStructuralInconsistency))
		}
		if shift != 0 {
			found := false
			for k := 0; k < cnt; k++ {
				if cols[k] == gid {
					vals[k] += shift
					found = true
					break
				}
			}
			if !found {
				out.missingDiagonal++
			}
		}
		copy(csr.ColIndex[p:], cols[:cnt])
		copy(csr.Values[p:], vals[:cnt])
		p += cnt
		csr.RowStart[gid+1] = p
	}
	csr.NNZ = p

	return out, nil
}
