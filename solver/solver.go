// SPDX-License-Identifier: MIT

package solver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/knadh/koanf/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/katalvlaran/lvdirect/comm"
	"github.com/katalvlaran/lvdirect/distmat"
	"github.com/katalvlaran/lvdirect/engine"
)

// Solver drives an engine.Engine for one distributed LinearProblem.
// A Solver is not safe for concurrent use; distinct Solvers are independent.
type Solver struct {
	id        string
	c         comm.Communicator
	problem   *distmat.LinearProblem
	eng       engine.Engine
	log       *zap.Logger
	params    Params
	metrics   *Metrics
	collector *metricsCollector

	redist redistributor
	conv   *conversion // coordinator only

	sym           symbolicSlot
	num           numericSlot
	symbolicReady bool
	numericReady  bool
	symVersion    uint64

	rcond      float64
	rcondValid bool

	closed bool
}

// New creates a Solver for problem. Collective: the coordinator picks the
// solver ID and broadcasts it so log entries correlate across ranks.
func New(ctx context.Context, problem *distmat.LinearProblem, opts ...Option) (*Solver, error) {
	if problem == nil || problem.A == nil {
		return nil, solverErrorf(opNew, fmt.Errorf("nil problem or matrix: %w", ErrConfiguration))
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	params, err := o.params.merge(koanf.New("."))
	if err != nil {
		return nil, solverErrorf(opNew, err)
	}
	eng := o.eng
	if eng == nil {
		if eng, err = engine.NewSparseLU(); err != nil {
			return nil, solverErrorf(opNew, err)
		}
	}

	c := problem.A.Comm()
	var id string
	if comm.IsCoordinator(c) {
		id = uuid.NewString()
	}
	if id, err = comm.BroadcastValue(ctx, c, comm.Coordinator, id); err != nil {
		return nil, solverErrorf(opNew, err)
	}

	s := &Solver{
		id:      id,
		c:       c,
		problem: problem,
		eng:     eng,
		log:     o.log.With(zap.String("solver_id", id), zap.Int("rank", c.Rank())),
		params:  params,
		metrics: &Metrics{},
		sym:     symbolicSlot{eng: eng},
		num:     numericSlot{eng: eng},
	}
	s.redist = redistributor{c: c, metrics: s.metrics}
	s.collector = newMetricsCollector(s.metrics, id)

	return s, nil
}

// ID is the solver instance ID shared by all ranks.
func (s *Solver) ID() string { return s.id }

// Problem returns the current problem.
func (s *Solver) Problem() *distmat.LinearProblem { return s.problem }

// SetProblem switches to p, releasing every handle and cached conversion.
// The next phase call starts from scratch. p must live on the same
// communicator.
func (s *Solver) SetProblem(p *distmat.LinearProblem) error {
	if s.closed {
		return solverErrorf("SetProblem", ErrClosed)
	}
	if p == nil || p.A == nil || p.A.Comm() != s.c {
		return solverErrorf("SetProblem", fmt.Errorf("nil problem or foreign communicator: %w", ErrConfiguration))
	}
	s.resetFactorization()
	s.problem = p

	return nil
}

func (s *Solver) resetFactorization() {
	s.sym.release(&s.num)
	s.symbolicReady, s.numericReady = false, false
	s.rcond, s.rcondValid = 0, false
	s.redist.release()
	s.conv = nil
}

// onCoordinator runs fn on the coordinator only, then broadcasts its
// outcome so that every rank returns an error exactly when fn failed.
// Sentinels in stepSentinels survive the broadcast.
func (s *Solver) onCoordinator(ctx context.Context, step string, fn func() error) error {
	var err error
	if comm.IsCoordinator(s.c) {
		err = fn()
	}

	return solverErrorf(step, comm.BroadcastError(ctx, s.c, comm.Coordinator, err, stepSentinels...))
}

// prepareMatrix gathers the matrix and converts it to compressed form on
// the coordinator.
func (s *Solver) prepareMatrix(ctx context.Context) error {
	if err := s.redist.gatherMatrix(ctx, s.problem.A); err != nil {
		return err
	}

	return s.onCoordinator(ctx, "convert", func() error {
		defer s.metrics.track(PhaseConversion)()
		conv, err := toCompressedForm(s.redist.serial, s.params.AddToDiag)
		if err != nil {
			return err
		}
		if conv.missingDiagonal > 0 {
			s.log.Debug("diagonal shift skipped rows without a stored diagonal",
				zap.Int("rows", conv.missingDiagonal), zap.Float64("shift", s.params.AddToDiag))
		}
		s.conv = conv

		return nil
	})
}

// SymbolicFactorization gathers and converts the matrix and runs the
// engine's symbolic phase, replacing the previous symbolic handle (and the
// numeric handle depending on it) only on success. Collective.
func (s *Solver) SymbolicFactorization(ctx context.Context) error {
	if s.closed {
		return solverErrorf(opSymbolic, ErrClosed)
	}
	s.symbolicReady, s.numericReady = false, false
	s.metrics.count(PhaseSymbolic)

	if err := s.prepareMatrix(ctx); err != nil {
		return solverErrorf(opSymbolic, err)
	}
	err := s.onCoordinator(ctx, "symbolic", func() error {
		defer s.metrics.timer(PhaseSymbolic)()
		csr := s.conv.csr
		h, st := s.eng.Symbolic(csr.N, csr.RowStart, csr.ColIndex, csr.Values)
		if !st.OK() {
			if h != nil {
				s.eng.FreeSymbolic(h)
			}
			return &EngineError{Phase: "symbolic", Status: st}
		}
		s.sym.replace(h, &s.num)
		s.log.Debug("symbolic factorization done", zap.Int("n", csr.N), zap.Int("nnz", csr.NNZ))

		return nil
	})
	if err != nil {
		return solverErrorf(opSymbolic, err)
	}
	s.symVersion = s.problem.A.StructureVersion()
	// Without ReuseSymbolic the flag stays false so every numeric
	// factorization redoes the symbolic phase.
	s.symbolicReady = s.params.ReuseSymbolic

	return nil
}

// NumericFactorization gathers and converts the matrix, runs
// SymbolicFactorization first when no reusable symbolic result exists,
// then runs the engine's numeric phase. Collective.
func (s *Solver) NumericFactorization(ctx context.Context) error {
	if s.closed {
		return solverErrorf(opNumeric, ErrClosed)
	}
	s.numericReady = false
	s.metrics.count(PhaseNumeric)

	if err := s.prepareMatrix(ctx); err != nil {
		return solverErrorf(opNumeric, err)
	}
	if !s.symbolicReady || s.symVersion != s.problem.A.StructureVersion() {
		if err := s.SymbolicFactorization(ctx); err != nil {
			return solverErrorf(opNumeric, err)
		}
	}

	s.rcondValid = false
	err := s.onCoordinator(ctx, "numeric", func() error {
		defer s.metrics.timer(PhaseNumeric)()
		csr := s.conv.csr
		h, rcond, st := s.eng.Numeric(csr.RowStart, csr.ColIndex, csr.Values, s.sym.h)
		if !st.OK() {
			if h != nil {
				s.eng.FreeNumeric(h)
			}
			return &EngineError{Phase: "numeric", Status: st}
		}
		if err := s.num.replace(h, &s.sym); err != nil {
			return err
		}
		s.rcond = rcond
		s.log.Debug("numeric factorization done", zap.Float64("rcond", rcond))

		return nil
	})
	if err != nil {
		return solverErrorf(opNumeric, err)
	}
	s.numericReady = true

	return nil
}

// Solve computes X from A·X = B (Aᵀ·X = B when UseTranspose is set),
// factoring first when needed. Collective.
func (s *Solver) Solve(ctx context.Context) error {
	if s.closed {
		return solverErrorf(opSolve, ErrClosed)
	}
	s.metrics.count(PhaseSolve)

	a, x, b := s.problem.A, s.problem.X, s.problem.B
	if x == nil || b == nil {
		return solverErrorf(opSolve, fmt.Errorf("missing solution or right-hand side: %w", ErrConfiguration))
	}
	if x.NumVectors() != b.NumVectors() {
		return solverErrorf(opSolve, fmt.Errorf("%d solution vs %d right-hand-side columns: %w", x.NumVectors(), b.NumVectors(), ErrConfiguration))
	}
	if !x.Layout().SameAs(a.RowLayout()) || !b.Layout().SameAs(a.RowLayout()) {
		return solverErrorf(opSolve, fmt.Errorf("vectors not distributed like the matrix rows: %w", ErrConfiguration))
	}

	if !s.numericReady {
		if err := s.NumericFactorization(ctx); err != nil {
			return solverErrorf(opSolve, err)
		}
	}

	bs, err := s.redist.gatherVector(ctx, a, b)
	if err != nil {
		return solverErrorf(opSolve, err)
	}
	xs, err := s.redist.serialLHS(ctx, a, x)
	if err != nil {
		return solverErrorf(opSolve, err)
	}

	// The engine reads our row arrays as columns, i.e. it holds Aᵀ, so the
	// transpose senses swap here.
	mode := engine.ModeTranspose
	if s.params.UseTranspose {
		mode = engine.ModeNormal
	}
	err = s.onCoordinator(ctx, "solve", func() error {
		defer s.metrics.timer(PhaseSolve)()
		return s.solveColumns(mode, bs, xs)
	})
	if err != nil {
		return solverErrorf(opSolve, err)
	}
	if err = s.redist.scatterVector(ctx, a, xs, x); err != nil {
		return solverErrorf(opSolve, err)
	}

	return solverErrorf(opSolve, s.solveDiagnostics(ctx))
}

// solveColumns runs the engine once per column on the coordinator.
// Local rows are mapped through their global indices so that any local
// ordering of an aliased vector is honored.
func (s *Solver) solveColumns(mode engine.Mode, bs, xs *distmat.MultiVector) error {
	if !s.num.validFor(&s.sym) {
		return errHandleOrder
	}
	csr := s.conv.csr
	rhs := make([]float64, csr.N)
	bg, xg := bs.Layout().MyGIDs(), xs.Layout().MyGIDs()
	for j := 0; j < bs.NumVectors(); j++ {
		col := bs.Column(j)
		for lid, g := range bg {
			rhs[g] = col[lid]
		}
		sol, st := s.eng.Solve(mode, csr.RowStart, csr.ColIndex, csr.Values, s.num.h, rhs)
		if !st.OK() {
			return &EngineError{Phase: "solve", Status: st}
		}
		out := xs.Column(j)
		for lid, g := range xg {
			out[lid] = sol[g]
		}
	}

	return nil
}

// ConditionEstimate returns the reciprocal condition estimate of the last
// numeric factorization, broadcasting it from the coordinator on the first
// call after each factorization. Collective on that first call.
func (s *Solver) ConditionEstimate(ctx context.Context) (float64, error) {
	if s.closed {
		return 0, solverErrorf(opCondition, ErrClosed)
	}
	if !s.rcondValid {
		v, err := comm.BroadcastValue(ctx, s.c, comm.Coordinator, s.rcond)
		if err != nil {
			return 0, solverErrorf(opCondition, err)
		}
		s.rcond, s.rcondValid = v, true
	}

	return s.rcond, nil
}

// MatrixShapeOK reports whether the matrix is square.
func (s *Solver) MatrixShapeOK() bool {
	a := s.problem.A
	return a.NumGlobalRows() == a.NumGlobalCols()
}

// ValidateShape returns ErrShape when MatrixShapeOK is false.
func (s *Solver) ValidateShape() error {
	if s.MatrixShapeOK() {
		return nil
	}
	a := s.problem.A

	return fmt.Errorf("%dx%d: %w", a.NumGlobalRows(), a.NumGlobalCols(), ErrShape)
}

// SetUseTranspose selects solving Aᵀ·X = B. The factorization is reused.
func (s *Solver) SetUseTranspose(on bool) { s.params.UseTranspose = on }

// UseTranspose reports the transpose setting.
func (s *Solver) UseTranspose() bool { return s.params.UseTranspose }

// Params returns the current parameters.
func (s *Solver) Params() Params { return s.params }

// SetParameters overlays recognized keys of m onto the parameters.
// Keys match case-insensitively with or without underscores
// ("AddToDiag", "add_to_diag"); unrecognized keys are ignored.
func (s *Solver) SetParameters(m map[string]any) error {
	k := koanf.New(".")
	for key, v := range m {
		if err := k.Set(key, v); err != nil {
			return solverErrorf(opParameters, err)
		}
	}

	return s.ApplyConfig(k)
}

// ApplyConfig overlays recognized keys of k onto the parameters. On error
// the parameters are unchanged.
func (s *Solver) ApplyConfig(k *koanf.Koanf) error {
	if k == nil {
		return nil
	}
	p, err := s.params.merge(k)
	if err != nil {
		return solverErrorf(opParameters, err)
	}
	s.params = p

	return nil
}

// Metrics returns a snapshot of this rank's phase metrics.
func (s *Solver) Metrics() MetricsSnapshot { return s.metrics.Snapshot() }

// Collector exposes the metrics to a prometheus registry.
func (s *Solver) Collector() prometheus.Collector { return s.collector }

// Close emits the teardown reports enabled by the parameters, releases the
// numeric and symbolic handles in that order, and drops gathered storage.
// Collective; further phase calls return ErrClosed. Closing twice is a no-op.
func (s *Solver) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.teardownReport()
	s.resetFactorization()
	s.closed = true

	return solverErrorf(opClose, s.c.Barrier(ctx))
}
