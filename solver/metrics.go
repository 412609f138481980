// SPDX-License-Identifier: MIT

package solver

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Phase identifies a timed stage of the solver.
type Phase int

const (
	// PhaseConversion is building the compressed arrays on the coordinator.
	PhaseConversion Phase = iota
	// PhaseMatrixRedistribution is gathering A onto the coordinator.
	PhaseMatrixRedistribution
	// PhaseVectorRedistribution covers gathering X/B and scattering X back.
	PhaseVectorRedistribution
	// PhaseSymbolic is the engine's symbolic analysis.
	PhaseSymbolic
	// PhaseNumeric is the engine's numeric factorization.
	PhaseNumeric
	// PhaseSolve is the engine's triangular solves.
	PhaseSolve
	numPhases
)

var phaseNames = [numPhases]string{
	"conversion",
	"matrix_redistribution",
	"vector_redistribution",
	"symbolic",
	"numeric",
	"solve",
}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}

	return phaseNames[p]
}

// PhaseStats is the cumulative record of one phase. Encoders see the
// cumulative time only as TotalNanos.
type PhaseStats struct {
	Phase      string        `json:"phase" yaml:"phase"`
	Calls      int           `json:"calls" yaml:"calls"`
	Total      time.Duration `json:"-" yaml:"-"`
	TotalNanos int64         `json:"total_ns" yaml:"total_ns"`
}

// Average is Total/Calls, or zero before the first call.
func (s PhaseStats) Average() time.Duration {
	if s.Calls == 0 {
		return 0
	}

	return s.Total / time.Duration(s.Calls)
}

// MetricsSnapshot is a point-in-time copy of the solver metrics, one entry
// per phase in Phase order.
type MetricsSnapshot struct {
	Phases []PhaseStats `json:"phases" yaml:"phases"`
}

// Get returns the stats of phase p.
func (m MetricsSnapshot) Get(p Phase) PhaseStats {
	if p < 0 || int(p) >= len(m.Phases) {
		return PhaseStats{Phase: p.String()}
	}

	return m.Phases[p]
}

// Metrics holds per-phase call counts and cumulative durations. It is
// mutated only by its Solver; the mutex lets a prometheus scrape read it
// concurrently.
type Metrics struct {
	mu    sync.Mutex
	calls [numPhases]int
	total [numPhases]time.Duration
}

// count records one invocation of p.
func (m *Metrics) count(p Phase) {
	m.mu.Lock()
	m.calls[p]++
	m.mu.Unlock()
}

// timer starts timing p; the returned func adds the elapsed time.
func (m *Metrics) timer(p Phase) func() {
	start := time.Now()

	return func() {
		d := time.Since(start)
		m.mu.Lock()
		m.total[p] += d
		m.mu.Unlock()
	}
}

// track counts p and starts its timer.
func (m *Metrics) track(p Phase) func() {
	m.count(p)

	return m.timer(p)
}

// Snapshot copies the current values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := MetricsSnapshot{Phases: make([]PhaseStats, numPhases)}
	for p := Phase(0); p < numPhases; p++ {
		out.Phases[p] = PhaseStats{
			Phase:      p.String(),
			Calls:      m.calls[p],
			Total:      m.total[p],
			TotalNanos: m.total[p].Nanoseconds(),
		}
	}

	return out
}

// metricsCollector exposes a Metrics as constant prometheus metrics.
type metricsCollector struct {
	m       *Metrics
	seconds *prometheus.Desc
	calls   *prometheus.Desc
}

var _ prometheus.Collector = (*metricsCollector)(nil)

func newMetricsCollector(m *Metrics, solverID string) *metricsCollector {
	labels := prometheus.Labels{"solver_id": solverID}

	return &metricsCollector{
		m: m,
		seconds: prometheus.NewDesc("lvdirect_phase_seconds_total",
			"Cumulative wall time spent per solver phase.", []string{"phase"}, labels),
		calls: prometheus.NewDesc("lvdirect_phase_calls_total",
			"Number of invocations per solver phase.", []string{"phase"}, labels),
	}
}

func (c *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.seconds
	ch <- c.calls
}

func (c *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, ps := range c.m.Snapshot().Phases {
		ch <- prometheus.MustNewConstMetric(c.seconds, prometheus.CounterValue, ps.Total.Seconds(), ps.Phase)
		ch <- prometheus.MustNewConstMetric(c.calls, prometheus.CounterValue, float64(ps.Calls), ps.Phase)
	}
}
