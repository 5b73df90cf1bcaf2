package engine

import "github.com/kevichi7/bench-sort/internal/model"

// DefaultSeed is used whenever a Request omits seed, per spec.md §4.4:
// "deterministic given the same (seed, request); the default seed is
// a fixed constant."
const DefaultSeed int64 = 0x5eed

// Call is the canonical, total engine invocation built by the
// validator's ArgBuilder (spec.md §4.1) — not a shell command line,
// a plain struct.
type Call struct {
	N                 int
	Distribution      model.Distribution
	ElemType          model.ElemType
	Repeats           int
	Warmup            int
	Seed              int64
	Threads           int
	AssertSorted      bool
	Baseline          string
	Algorithms        []string
	Plugins           []string
	PartialShufflePct float64
	DupValues         int
	ZipfS             float64
	RunsAlpha         float64
	StaggerBlock      int
}

// Kind enumerates engine failure categories, spec.md §3.
type Kind string

const (
	InvalidConfig Kind = "invalid-config"
	SortAssertion Kind = "sort-assertion"
	PluginLoad    Kind = "plugin-load"
	Internal      Kind = "internal"
)

// Error is the engine's error type; the orchestrator maps it to
// apierr.Engine without inspecting Kind beyond logging.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}
