package solver

import "github.com/katalvlaran/lvdirect/distmat"

// ToCompressedForm exposes the conversion to tests.
func ToCompressedForm(serial distmat.RowMatrix, shift float64) (rowStart, colIndex []int, values []float64, missing int, err error) {
	c, err := toCompressedForm(serial, shift)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	return c.csr.RowStart, c.csr.ColIndex[:c.csr.NNZ], c.csr.Values[:c.csr.NNZ], c.missingDiagonal, nil
}

// SerialMatrix is the matrix the coordinator last converted.
func (s *Solver) SerialMatrix() distmat.RowMatrix { return s.redist.serial }

// VectorPlan is the cached vector plan, nil before the first Solve.
func (s *Solver) VectorPlan() *distmat.Plan { return s.redist.vecPlan }

// Ready reports the symbolic and numeric ready flags.
func (s *Solver) Ready() (symbolic, numeric bool) { return s.symbolicReady, s.numericReady }
