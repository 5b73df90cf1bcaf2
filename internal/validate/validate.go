// Package validate implements the Validator & ArgBuilder (C1):
// bounds-checking a Request and translating it into an engine.Call.
package validate

import (
	"fmt"

	"github.com/kevichi7/bench-sort/internal/apierr"
	"github.com/kevichi7/bench-sort/internal/config"
	"github.com/kevichi7/bench-sort/internal/engine"
	"github.com/kevichi7/bench-sort/internal/model"
)

var elemTypeSet = func() map[model.ElemType]struct{} {
	s := make(map[model.ElemType]struct{}, len(model.ElemTypes))
	for _, t := range model.ElemTypes {
		s[t] = struct{}{}
	}
	return s
}()

var distSet = func() map[model.Distribution]struct{} {
	s := make(map[model.Distribution]struct{}, len(model.Distributions))
	for _, d := range model.Distributions {
		s[d] = struct{}{}
	}
	return s
}()

// Validate bounds-checks every numeric field and membership-checks the
// enumerated fields. It never returns a partial config: on failure the
// caller gets a single *apierr.Error and nothing else.
func Validate(req *model.Request, limits config.LimitsConfig) *apierr.Error {
	if req.N <= 0 {
		return apierr.Validationf("N must be in [1,%d]", limits.MaxN)
	}
	if req.N > limits.MaxN {
		return apierr.Validationf("N must be in [1,%d]", limits.MaxN)
	}
	if req.Repeats < 0 || req.Repeats > limits.MaxRepeats {
		return apierr.Validationf("repeats must be in [0,%d]", limits.MaxRepeats)
	}
	if req.Warmup < 0 {
		return apierr.Validationf("warmup must be >= 0")
	}
	if limits.MaxThreads > 0 && (req.Threads < 0 || req.Threads > limits.MaxThreads) {
		return apierr.Validationf("threads must be in [0,%d]", limits.MaxThreads)
	}
	if req.TimeoutMs < 0 {
		return apierr.Validationf("timeout_ms must be >= 0")
	}

	if _, ok := elemTypeSet[req.ElemType]; !ok {
		return apierr.Validationf("invalid elem_type")
	}
	if _, ok := distSet[req.Distribution]; !ok {
		return apierr.Validationf("invalid dist")
	}

	if req.PartialShufflePct < 0 || req.PartialShufflePct > 100 {
		return apierr.Validationf("partial_shuffle_pct must be in [0,100]")
	}
	if req.DupValues < 0 {
		return apierr.Validationf("dup_values must be >= 0")
	}
	if req.ZipfS < 0 {
		return apierr.Validationf("zipf_s must be >= 0")
	}
	if req.StaggerBlock < 0 {
		return apierr.Validationf("stagger_block must be >= 0")
	}

	return nil
}

// BuildCall translates a validated Request into a deterministic,
// total engine.Call. Unknown algorithm/baseline names are tolerated
// here (the engine produces no row for them); see Strict below for the
// opt-in behavior spec.md §4.1 describes.
func BuildCall(req *model.Request) engine.Call {
	seed := engine.DefaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	return engine.Call{
		N:                 req.N,
		Distribution:      req.Distribution,
		ElemType:          req.ElemType,
		Repeats:           maxOf(1, req.Repeats),
		Warmup:            req.Warmup,
		Seed:              seed,
		Threads:           req.Threads,
		AssertSorted:      req.AssertSorted,
		Baseline:          req.Baseline,
		Algorithms:        append([]string(nil), req.Algorithms...),
		Plugins:           append([]string(nil), req.Plugins...),
		PartialShufflePct: req.PartialShufflePct,
		DupValues:         req.DupValues,
		ZipfS:             req.ZipfS,
		RunsAlpha:         req.RunsAlpha,
		StaggerBlock:      req.StaggerBlock,
	}
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Strict validates unknown algorithm/baseline references against the
// set known to the engine for req.ElemType. Disabled by default per
// spec.md §4.1; the engine otherwise tolerates unknown names silently.
func Strict(req *model.Request, known []string) error {
	index := make(map[string]struct{}, len(known))
	for _, name := range known {
		index[name] = struct{}{}
	}
	for _, a := range req.Algorithms {
		if _, ok := index[a]; !ok {
			return fmt.Errorf("unknown algorithm %q", a)
		}
	}
	if req.Baseline != "" {
		if _, ok := index[req.Baseline]; !ok {
			return fmt.Errorf("unknown baseline %q", req.Baseline)
		}
	}
	return nil
}
