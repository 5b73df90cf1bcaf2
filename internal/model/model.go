// Package model holds the request/result/job data types shared across
// the validator, engine, executor and job store (spec.md §3).
package model

import "time"

// ElemType enumerates the seven supported element types.
type ElemType string

const (
	I32 ElemType = "i32"
	U32 ElemType = "u32"
	I64 ElemType = "i64"
	U64 ElemType = "u64"
	F32 ElemType = "f32"
	F64 ElemType = "f64"
	Str ElemType = "str"
)

var ElemTypes = []ElemType{I32, U32, I64, U64, F32, F64, Str}

// Distribution enumerates the thirteen supported input generators.
type Distribution string

const (
	DistRandom         Distribution = "random"
	DistSorted         Distribution = "sorted"
	DistReverseSorted  Distribution = "reverse_sorted"
	DistNearlySorted   Distribution = "nearly_sorted"
	DistRuns           Distribution = "runs"
	DistZipf           Distribution = "zipf"
	DistDupHeavy       Distribution = "dup_heavy"
	DistPartialShuffle Distribution = "partial_shuffle"
	DistAllEqual       Distribution = "all_equal"
	DistSawtooth       Distribution = "sawtooth"
	DistStagger        Distribution = "stagger"
	DistOrganPipe      Distribution = "organ_pipe"
	DistStringRandom   Distribution = "string_random"
)

var Distributions = []Distribution{
	DistRandom, DistSorted, DistReverseSorted, DistNearlySorted, DistRuns,
	DistZipf, DistDupHeavy, DistPartialShuffle, DistAllEqual, DistSawtooth,
	DistStagger, DistOrganPipe, DistStringRandom,
}

// Request is the client-submitted benchmark request, spec.md §3.
type Request struct {
	N           int          `json:"N"`
	Distribution Distribution `json:"distribution"`
	ElemType    ElemType     `json:"elem_type"`
	Repeats     int          `json:"repeats"`
	Warmup      int          `json:"warmup"`
	Seed        *int64       `json:"seed"`
	Threads     int          `json:"threads"`
	AssertSorted bool        `json:"assert_sorted"`
	Baseline    string       `json:"baseline"`
	Algorithms  []string     `json:"algorithms"`
	Plugins     []string     `json:"plugins"`
	TimeoutMs   int          `json:"timeout_ms"`

	// Distribution tunables, optional and default-valued.
	PartialShufflePct float64 `json:"partial_shuffle_pct"`
	DupValues         int     `json:"dup_values"`
	ZipfS             float64 `json:"zipf_s"`
	RunsAlpha         float64 `json:"runs_alpha"`
	StaggerBlock      int     `json:"stagger_block"`
}

// TimingStats is the per-algorithm timing summary, spec.md §3.
type TimingStats struct {
	MedianMs float64 `json:"median_ms"`
	MeanMs   float64 `json:"mean_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	StddevMs float64 `json:"stddev_ms"`
}

// ResultRow is one algorithm's outcome within a run.
type ResultRow struct {
	Algo              string       `json:"algo"`
	N                 int          `json:"N"`
	Dist              Distribution `json:"dist"`
	Stats             TimingStats  `json:"stats"`
	SpeedupVsBaseline *float64     `json:"speedup_vs_baseline,omitempty"`
}

// Status is a job's lifecycle state, spec.md §3: pending -> running ->
// terminal (done|failed|canceled). See internal/job for the guarded
// transition table.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Terminal reports whether s is a sticky terminal state.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusCanceled
}

// JobView is the JSON shape returned by GET /jobs/{id}, spec.md §6.
type JobView struct {
	ID         string          `json:"id"`
	Status     Status          `json:"status"`
	Error      *string         `json:"error,omitempty"`
	Result     []ResultRow     `json:"result,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	DurationMs *int64          `json:"duration_ms,omitempty"`
}
