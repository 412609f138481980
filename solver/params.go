// SPDX-License-Identifier: MIT

package solver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the environment prefix read by LoadConfig.
const EnvPrefix = "LVDIRECT_"

// configSection is an optional YAML section holding the parameters.
const configSection = "solver"

// Params are the recognized solver options.
type Params struct {
	UseTranspose        bool    `json:"use_transpose" yaml:"use_transpose"`
	PrintTiming         bool    `json:"print_timing" yaml:"print_timing"`
	PrintStatus         bool    `json:"print_status" yaml:"print_status"`
	AddToDiag           float64 `json:"add_to_diag" yaml:"add_to_diag"`
	ComputeVectorNorms  bool    `json:"compute_vector_norms" yaml:"compute_vector_norms"`
	ComputeTrueResidual bool    `json:"compute_true_residual" yaml:"compute_true_residual"`

	// OutputLevel 0 silences diagnostics, 1 honors the individual flags,
	// 2 forces every diagnostic.
	OutputLevel int `json:"output_level" yaml:"output_level"`

	// ReuseSymbolic keeps a symbolic factorization across numeric
	// factorizations while the matrix structure version is unchanged.
	ReuseSymbolic bool `json:"reuse_symbolic" yaml:"reuse_symbolic"`
}

// DefaultParams returns every flag off, no shift and OutputLevel 1.
func DefaultParams() Params {
	return Params{OutputLevel: 1}
}

// normalizeKey folds "UseTranspose", "use_transpose" and "use-transpose"
// onto one lookup key.
func normalizeKey(k string) string {
	k = strings.ToLower(k)
	k = strings.TrimPrefix(k, configSection+".")

	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

// merge overlays every recognized key present in k onto p. Keys under the
// "solver" section are applied first so top-level keys (including the
// environment) take precedence. Unrecognized keys are ignored.
func (p Params) merge(k *koanf.Koanf) (Params, error) {
	keys := k.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return strings.HasPrefix(keys[i], configSection+".") && !strings.HasPrefix(keys[j], configSection+".")
	})
	for _, key := range keys {
		switch normalizeKey(key) {
		case "usetranspose":
			p.UseTranspose = k.Bool(key)
		case "printtiming":
			p.PrintTiming = k.Bool(key)
		case "printstatus":
			p.PrintStatus = k.Bool(key)
		case "addtodiag":
			p.AddToDiag = k.Float64(key)
		case "computevectornorms":
			p.ComputeVectorNorms = k.Bool(key)
		case "computetrueresidual":
			p.ComputeTrueResidual = k.Bool(key)
		case "outputlevel":
			p.OutputLevel = k.Int(key)
		case "reusesymbolic":
			p.ReuseSymbolic = k.Bool(key)
		}
	}
	if p.OutputLevel < 0 || p.OutputLevel > 2 {
		return p, fmt.Errorf("OutputLevel %d not in [0,2]: %w", p.OutputLevel, ErrConfiguration)
	}

	return p, nil
}

// diagnosticsOn reports whether a per-solve diagnostic guarded by flag is
// emitted.
func (p Params) diagnosticsOn(flag bool) bool {
	return p.OutputLevel > 0 && (flag || p.OutputLevel == 2)
}

// LoadConfig reads solver parameters from YAML (may be empty) and then
// from LVDIRECT_* environment variables, which take precedence:
//
//	LVDIRECT_USE_TRANSPOSE=true -> use_transpose
//	LVDIRECT_OUTPUT_LEVEL=2     -> output_level
//
// The YAML may hold the keys at top level or under a "solver:" section.
func LoadConfig(yamlData []byte) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if len(yamlData) > 0 {
		if err := k.Load(rawbytes.Provider(yamlData), yaml.Parser()); err != nil {
			return nil, solverErrorf(opLoadConfig, fmt.Errorf("yaml: %v: %w", err, ErrConfiguration))
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, solverErrorf(opLoadConfig, err)
	}

	return k, nil
}
