// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/lvdirect/comm"
	"github.com/katalvlaran/lvdirect/distmat"
	"github.com/katalvlaran/lvdirect/solver"
)

// SolveOptions holds the solve command flags.
type SolveOptions struct {
	Ranks     int
	Problem   string
	N         int
	File      string
	Config    string
	Transpose bool
	Metrics   bool
}

// Report is the result of one solve.
type Report struct {
	SolverID     string              `json:"solver_id" yaml:"solver_id"`
	Problem      string              `json:"problem" yaml:"problem"`
	Rows         int                 `json:"rows" yaml:"rows"`
	Nonzeros     int                 `json:"nonzeros" yaml:"nonzeros"`
	Ranks        int                 `json:"ranks" yaml:"ranks"`
	UseTranspose bool                `json:"use_transpose" yaml:"use_transpose"`
	Rcond        float64             `json:"rcond" yaml:"rcond"`
	ErrorNorm    float64             `json:"error_norm" yaml:"error_norm"` // ‖x − 1‖₂
	Phases       []solver.PhaseStats `json:"phases" yaml:"phases"`
	Metrics      string              `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "solver: %s\n", r.SolverID)
	fmt.Fprintf(&b, "problem: %s\n", r.Problem)
	fmt.Fprintf(&b, "rows: %d\n", r.Rows)
	fmt.Fprintf(&b, "nonzeros: %d\n", r.Nonzeros)
	fmt.Fprintf(&b, "ranks: %d\n", r.Ranks)
	fmt.Fprintf(&b, "use_transpose: %t\n", r.UseTranspose)
	fmt.Fprintf(&b, "rcond: %.6g\n", r.Rcond)
	fmt.Fprintf(&b, "error_norm: %.3g\n", r.ErrorNorm)
	for _, ps := range r.Phases {
		fmt.Fprintf(&b, "phase %-22s calls=%d total=%s average=%s\n", ps.Phase, ps.Calls, ps.Total, ps.Average())
	}
	b.WriteString(r.Metrics)

	return strings.TrimRight(b.String(), "\n")
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SolveOptions{}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Factor and solve A·x = A·1 on in-process ranks",
		Long: `Build or load a square sparse matrix, distribute its rows uniformly over
--ranks in-process ranks, and solve A·x = b with b = A·1 (Aᵀ·1 with
--transpose), so the exact solution is the all-ones vector.

Solver parameters come from --config (YAML, optionally under "solver:")
and LVDIRECT_* environment variables, which take precedence.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd.Context(), rootOpts, opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Ranks, "ranks", "r", 2, "number of in-process ranks")
	cmd.Flags().StringVarP(&opts.Problem, "problem", "p", ProblemTridiag, "problem kind (tridiag|laplace2d|file)")
	cmd.Flags().IntVar(&opts.N, "n", 16, "tridiag size, or laplace2d grid side")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Matrix Market file for --problem file")
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "YAML solver parameters")
	cmd.Flags().BoolVarP(&opts.Transpose, "transpose", "t", false, "solve with Aᵀ")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "append the prometheus metrics exposition")

	return cmd
}

func runSolve(ctx context.Context, rootOpts *RootOptions, opts *SolveOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	if opts.Ranks < 1 {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, fmt.Sprintf("--ranks must be positive, got %d", opts.Ranks), nil)
	}
	src, err := loadProblem(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "cannot load problem", err)
	}
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, "cannot load configuration", err)
	}

	log := newLogger(formatter.GetErrWriter(), rootOpts.Verbose)
	defer func() { _ = log.Sync() }()

	report, err := solveProblem(ctx, src, cfg, opts, log)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeSolve, "solve failed", err)
	}

	return formatter.Success(report)
}

// loadConfig reads the optional YAML file and the environment.
func loadConfig(path string) (*koanf.Koanf, error) {
	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}

	return solver.LoadConfig(data)
}

// newLogger writes console-encoded entries to w; Debug when verbose, Info
// otherwise.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())

	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level))
}

// solveProblem runs one solve on opts.Ranks ranks and returns the
// coordinator's report.
func solveProblem(ctx context.Context, src *problemSource, cfg *koanf.Koanf, opts *SolveOptions, log *zap.Logger) (*Report, error) {
	var report *Report
	err := comm.Run(ctx, opts.Ranks, func(ctx context.Context, c comm.Communicator) error {
		l, err := distmat.NewUniformLayout(ctx, c, src.rows)
		if err != nil {
			return err
		}
		a, err := src.build(ctx, l)
		if err != nil {
			return err
		}
		ones, err := distmat.NewMultiVector(l, 1)
		if err != nil {
			return err
		}
		ones.PutScalar(1)
		x, err := distmat.NewMultiVector(l, 1)
		if err != nil {
			return err
		}
		b, err := distmat.NewMultiVector(l, 1)
		if err != nil {
			return err
		}

		s, err := solver.New(ctx, distmat.NewLinearProblem(a, x, b), solver.WithLogger(log))
		if err != nil {
			return err
		}
		if err = s.ApplyConfig(cfg); err != nil {
			return err
		}
		if opts.Transpose {
			s.SetUseTranspose(true)
		}
		if err = s.ValidateShape(); err != nil {
			return err
		}
		if err = a.Multiply(ctx, s.UseTranspose(), ones, b); err != nil {
			return err
		}
		if err = s.Solve(ctx); err != nil {
			return err
		}
		rcond, err := s.ConditionEstimate(ctx)
		if err != nil {
			return err
		}
		diff := x.Clone()
		if err = diff.Update(-1, ones, 1); err != nil {
			return err
		}
		norms, err := diff.Norm2(ctx)
		if err != nil {
			return err
		}

		if comm.IsCoordinator(c) {
			report = &Report{
				SolverID:     s.ID(),
				Problem:      src.kind,
				Rows:         a.NumGlobalRows(),
				Nonzeros:     a.NumGlobalNonzeros(),
				Ranks:        c.Size(),
				UseTranspose: s.UseTranspose(),
				Rcond:        rcond,
				ErrorNorm:    norms[0],
				Phases:       s.Metrics().Phases,
			}
			if opts.Metrics {
				if report.Metrics, err = exposition(s.Collector()); err != nil {
					return err
				}
			}
		}

		return s.Close(ctx)
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// exposition registers col on a private registry and renders the gathered
// families in the text exposition format.
func exposition(col prometheus.Collector) (string, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(col); err != nil {
		return "", err
	}
	families, err := reg.Gather()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("\n")
	for _, mf := range families {
		if _, err = expfmt.MetricFamilyToText(&b, mf); err != nil {
			return "", err
		}
	}

	return b.String(), nil
}
