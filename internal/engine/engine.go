// Package engine is the Benchmark Engine collaborator (C4): it
// generates input, runs algorithms under timing, and returns stats.
// The orchestrator never sees algorithm code, only Run/ListAlgorithms
// and the JSON bytes they produce.
package engine

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kevichi7/bench-sort/internal/model"
	"github.com/kevichi7/bench-sort/internal/plugin"
)

// Runner is the contract both the in-process Engine and the
// child-process shell.Engine satisfy, so the orchestrator (sync
// executor and worker pool) never branches on execution mode beyond
// picking which Runner to construct at startup.
type Runner interface {
	Run(ctx context.Context, call Call) ([]model.ResultRow, error)
	ListAlgorithms(elemType model.ElemType, pluginPaths []string) ([]string, error)
}

// Engine runs benchmark calls in-process. Its plugin loader is
// process-global and optional: nil disables plugin support entirely.
type Engine struct {
	plugins *plugin.Loader
}

var _ Runner = (*Engine)(nil)

func New(plugins *plugin.Loader) *Engine {
	return &Engine{plugins: plugins}
}

// ListAlgorithms enumerates the built-in names for elemType plus any
// additional names contributed by the requested plugin paths
// (spec.md §4.4/§4.12). Plugin handles loaded here persist only while
// at least one loaded algorithm is usable.
func (e *Engine) ListAlgorithms(elemType model.ElemType, pluginPaths []string) ([]string, error) {
	names := append([]string(nil), builtinNames(elemType)...)
	for _, a := range e.loadPlugins(pluginPaths, elemType) {
		names = append(names, a.Name)
	}
	return names, nil
}

// Run executes call and returns one ResultRow per selected algorithm,
// in selection order. Returns ctx.Err() (never wrapped) if the
// deadline elapses or the caller cancels mid-run, so the orchestrator
// can distinguish cancellation from a genuine engine failure.
func (e *Engine) Run(ctx context.Context, call Call) ([]model.ResultRow, error) {
	switch call.ElemType {
	case model.I32:
		return runFor(ctx, call, genNumeric[int32], builtinAlgosInt32(), e.pluginAlgosI32(call.Plugins))
	case model.U32:
		return runFor(ctx, call, genNumeric[uint32], builtinAlgosUint32(), e.pluginAlgosU32(call.Plugins))
	case model.I64:
		return runFor(ctx, call, genNumeric[int64], builtinAlgosInt64(), e.pluginAlgosI64(call.Plugins))
	case model.U64:
		return runFor(ctx, call, genNumeric[uint64], builtinAlgosUint64(), e.pluginAlgosU64(call.Plugins))
	case model.F32:
		return runFor(ctx, call, genNumeric[float32], builtinAlgosFloat32(), e.pluginAlgosF32(call.Plugins))
	case model.F64:
		return runFor(ctx, call, genNumeric[float64], builtinAlgosFloat64(), e.pluginAlgosF64(call.Plugins))
	case model.Str:
		return runFor(ctx, call, genStrings, builtinAlgosString(), nil)
	default:
		return nil, newErr(InvalidConfig, fmt.Sprintf("unsupported elem_type %q", call.ElemType))
	}
}

// loadPlugins skips any path the loader fails to open; the load error
// is neither logged nor returned to the caller.
func (e *Engine) loadPlugins(paths []string, elemType model.ElemType) []plugin.Algo {
	if e.plugins == nil {
		return nil
	}
	var out []plugin.Algo
	for _, path := range paths {
		algos, err := e.plugins.Load(path)
		if err != nil {
			continue
		}
		out = append(out, plugin.AlgosFor(algos, elemType)...)
	}
	return out
}

func (e *Engine) pluginAlgosI32(paths []string) []algo[int32] {
	var out []algo[int32]
	for _, a := range e.loadPlugins(paths, model.I32) {
		fn := a.I32
		out = append(out, algo[int32]{name: a.Name, fn: fn})
	}
	return out
}

func (e *Engine) pluginAlgosU32(paths []string) []algo[uint32] {
	var out []algo[uint32]
	for _, a := range e.loadPlugins(paths, model.U32) {
		fn := a.U32
		out = append(out, algo[uint32]{name: a.Name, fn: fn})
	}
	return out
}

func (e *Engine) pluginAlgosI64(paths []string) []algo[int64] {
	var out []algo[int64]
	for _, a := range e.loadPlugins(paths, model.I64) {
		fn := a.I64
		out = append(out, algo[int64]{name: a.Name, fn: fn})
	}
	return out
}

func (e *Engine) pluginAlgosU64(paths []string) []algo[uint64] {
	var out []algo[uint64]
	for _, a := range e.loadPlugins(paths, model.U64) {
		fn := a.U64
		out = append(out, algo[uint64]{name: a.Name, fn: fn})
	}
	return out
}

func (e *Engine) pluginAlgosF32(paths []string) []algo[float32] {
	var out []algo[float32]
	for _, a := range e.loadPlugins(paths, model.F32) {
		fn := a.F32
		out = append(out, algo[float32]{name: a.Name, fn: fn})
	}
	return out
}

func (e *Engine) pluginAlgosF64(paths []string) []algo[float64] {
	var out []algo[float64]
	for _, a := range e.loadPlugins(paths, model.F64) {
		fn := a.F64
		out = append(out, algo[float64]{name: a.Name, fn: fn})
	}
	return out
}

// runFor is instantiated once per element type: it owns the
// generate -> warmup -> timed-pass -> stats loop shared by every type,
// per the spec's "generate per-type code paths rather than runtime
// casts" design note (generics monomorphize this body per T).
func runFor[T cmp.Ordered](
	ctx context.Context,
	call Call,
	gen func(Call) ([]T, error),
	builtin []algo[T],
	pluginAlgos []algo[T],
) ([]model.ResultRow, error) {
	selected := selectAlgos(call, append(builtin, pluginAlgos...))

	rows := make([]model.ResultRow, 0, len(selected))
	baselineMedian := -1.0

	for _, a := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		base, err := gen(call)
		if err != nil {
			return nil, err
		}

		durations := make([]float64, 0, call.Warmup+call.Repeats)
		totalPasses := call.Warmup + max(1, call.Repeats)
		for pass := 0; pass < totalPasses; pass++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			buf := make([]T, len(base))
			copy(buf, base)

			start := time.Now()
			a.fn(buf)
			elapsed := time.Since(start)

			if call.AssertSorted && !isSorted(buf) {
				return nil, newErr(SortAssertion, fmt.Sprintf("%s produced an unsorted array", a.name))
			}

			if pass >= call.Warmup {
				durations = append(durations, float64(elapsed.Microseconds())/1000.0)
			}
		}

		stats := computeStats(durations)
		rows = append(rows, model.ResultRow{
			Algo:  a.name,
			N:     call.N,
			Dist:  call.Distribution,
			Stats: stats,
		})

		if a.name == call.Baseline {
			baselineMedian = stats.MedianMs
		}
	}

	if baselineMedian > 0 {
		for i := range rows {
			if rows[i].Stats.MedianMs > 0 {
				speedup := baselineMedian / rows[i].Stats.MedianMs
				rows[i].SpeedupVsBaseline = &speedup
			}
		}
	}

	return rows, nil
}

// selectAlgos filters the available algorithms to call.Algorithms, in
// request order; an empty selection means the full set, spec.md §4.1.
func selectAlgos[T cmp.Ordered](call Call, available []algo[T]) []algo[T] {
	if len(call.Algorithms) == 0 {
		return available
	}

	index := make(map[string]algo[T], len(available))
	for _, a := range available {
		index[a.name] = a
	}

	var selected []algo[T]
	for _, name := range call.Algorithms {
		if a, ok := index[name]; ok {
			selected = append(selected, a)
		}
		// Unknown names produce no row, per spec.md §4.1 default tolerance.
	}
	return selected
}

func computeStats(durationsMs []float64) model.TimingStats {
	if len(durationsMs) == 0 {
		return model.TimingStats{}
	}

	sorted := append([]float64(nil), durationsMs...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, d := range sorted {
		sum += d
	}
	mean := sum / float64(len(sorted))

	variance := 0.0
	for _, d := range sorted {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(sorted))

	return model.TimingStats{
		MedianMs: median(sorted),
		MeanMs:   mean,
		MinMs:    sorted[0],
		MaxMs:    sorted[len(sorted)-1],
		StddevMs: math.Sqrt(variance),
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
