package engine

import (
	"context"
	"sort"
	"testing"

	"github.com/kevichi7/bench-sort/internal/model"
)

func TestEngine_RunSortsEveryAlgorithm(t *testing.T) {
	e := New(nil)

	call := Call{
		N:            500,
		Distribution: model.DistRandom,
		ElemType:     model.I32,
		Repeats:      2,
		Seed:         DefaultSeed,
		AssertSorted: true,
	}

	rows, err := e.Run(context.Background(), call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := builtinNames(model.I32)
	if len(rows) != len(names) {
		t.Fatalf("expected %d rows, got %d", len(names), len(rows))
	}
	for _, row := range rows {
		if row.N != call.N {
			t.Errorf("row %s: expected N=%d, got %d", row.Algo, call.N, row.N)
		}
		if row.Stats.MedianMs < 0 {
			t.Errorf("row %s: expected non-negative median, got %f", row.Algo, row.Stats.MedianMs)
		}
	}
}

func TestEngine_RunIsDeterministicGivenSameSeed(t *testing.T) {
	e := New(nil)
	call := Call{
		N: 200, Distribution: model.DistRandom, ElemType: model.I32,
		Repeats: 1, Seed: 1234, Algorithms: []string{"std_sort"},
	}

	rows1, err := e.Run(context.Background(), call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows2, err := e.Run(context.Background(), call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Timing stats vary between runs, so only the deterministic part of
	// the output (which rows, in which order) is compared here; input
	// determinism is covered by TestGenNumeric_DeterministicGivenSeed.
	if len(rows1) != len(rows2) {
		t.Fatalf("expected identical row count across identical calls")
	}
	for i := range rows1 {
		if rows1[i].Algo != rows2[i].Algo || rows1[i].N != rows2[i].N || rows1[i].Dist != rows2[i].Dist {
			t.Errorf("row %d differs across identical calls: %+v vs %+v", i, rows1[i], rows2[i])
		}
	}
}

func TestEngine_SelectAlgorithms(t *testing.T) {
	e := New(nil)
	call := Call{
		N: 100, Distribution: model.DistRandom, ElemType: model.I32,
		Repeats: 1, Seed: DefaultSeed, Algorithms: []string{"heap_sort", "bogus_algo"},
	}

	rows, err := e.Run(context.Background(), call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 row (unknown names silently dropped), got %d", len(rows))
	}
	if rows[0].Algo != "heap_sort" {
		t.Errorf("expected heap_sort, got %s", rows[0].Algo)
	}
}

func TestEngine_BaselineSpeedup(t *testing.T) {
	e := New(nil)
	call := Call{
		N: 300, Distribution: model.DistRandom, ElemType: model.I32,
		Repeats: 1, Seed: DefaultSeed, Baseline: "std_sort",
		Algorithms: []string{"std_sort", "insertion_sort"},
	}

	rows, err := e.Run(context.Background(), call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, row := range rows {
		if row.Algo == "std_sort" {
			if row.SpeedupVsBaseline == nil {
				t.Skip("baseline median was non-positive on this run; speedup omitted as designed")
			}
			if *row.SpeedupVsBaseline != 1.0 {
				t.Errorf("baseline's own speedup should be 1.0, got %f", *row.SpeedupVsBaseline)
			}
		}
	}
}

func TestEngine_SortAssertionFailureIsImpossibleForCorrectAlgorithms(t *testing.T) {
	e := New(nil)
	call := Call{
		N: 1000, Distribution: model.DistReverseSorted, ElemType: model.I64,
		Repeats: 1, Seed: DefaultSeed, AssertSorted: true,
	}
	if _, err := e.Run(context.Background(), call); err != nil {
		t.Fatalf("expected every builtin algorithm to produce a sorted array, got %v", err)
	}
}

func TestEngine_ContextCancellation(t *testing.T) {
	e := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	call := Call{
		N: 1_000_000, Distribution: model.DistRandom, ElemType: model.I32,
		Repeats: 5, Seed: DefaultSeed,
	}

	_, err := e.Run(ctx, call)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEngine_UnsupportedElemType(t *testing.T) {
	e := New(nil)
	call := Call{N: 10, Distribution: model.DistRandom, ElemType: model.ElemType("bogus")}

	if _, err := e.Run(context.Background(), call); err == nil {
		t.Error("expected an error for an unsupported elem_type")
	}
}

func TestListAlgorithms_Builtins(t *testing.T) {
	e := New(nil)
	names, err := e.ListAlgorithms(model.I32, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]bool{"std_sort": true, "insertion_sort": true, "quicksort": true, "heap_sort": true, "counting_sort": true}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected algorithm name %q", n)
		}
		delete(want, n)
	}
	if len(want) != 0 {
		t.Errorf("missing expected algorithms: %v", want)
	}
}

func TestListAlgorithms_StringExcludesCountingSort(t *testing.T) {
	e := New(nil)
	names, err := e.ListAlgorithms(model.Str, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, n := range names {
		if n == "counting_sort" {
			t.Error("counting_sort should not be offered for elem_type=str")
		}
	}
}

func TestGenNumeric_DistributionShapes(t *testing.T) {
	tests := []struct {
		dist  model.Distribution
		check func(t *testing.T, vals []int32)
	}{
		{model.DistSorted, func(t *testing.T, vals []int32) {
			if !sort.SliceIsSorted(vals, func(i, j int) bool { return vals[i] < vals[j] }) {
				t.Error("expected sorted distribution to already be ascending")
			}
		}},
		{model.DistReverseSorted, func(t *testing.T, vals []int32) {
			if !sort.SliceIsSorted(vals, func(i, j int) bool { return vals[i] > vals[j] }) {
				t.Error("expected reverse_sorted distribution to already be descending")
			}
		}},
		{model.DistAllEqual, func(t *testing.T, vals []int32) {
			for _, v := range vals {
				if v != vals[0] {
					t.Error("expected all_equal distribution to produce one distinct value")
					break
				}
			}
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.dist), func(t *testing.T) {
			call := Call{N: 200, Distribution: tt.dist, Seed: DefaultSeed}
			vals, err := genNumeric[int32](call)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(vals) != call.N {
				t.Fatalf("expected %d values, got %d", call.N, len(vals))
			}
			tt.check(t, vals)
		})
	}
}

func TestGenNumeric_DeterministicGivenSeed(t *testing.T) {
	call := Call{N: 500, Distribution: model.DistRandom, Seed: 99}
	a, err := genNumeric[int64](call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := genNumeric[int64](call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical output for identical seed at index %d: %d != %d", i, a[i], b[i])
		}
	}
}

func TestGenStrings_SortedIsAscending(t *testing.T) {
	call := Call{N: 50, Distribution: model.DistSorted, Seed: DefaultSeed}
	vals, err := genStrings(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sort.StringsAreSorted(vals) {
		t.Error("expected sorted string distribution to already be ascending")
	}
}

func TestIsSorted(t *testing.T) {
	if !isSorted([]int{1, 2, 2, 3}) {
		t.Error("expected ascending-with-duplicates slice to be sorted")
	}
	if isSorted([]int{3, 1, 2}) {
		t.Error("expected unsorted slice to be reported as unsorted")
	}
	if !isSorted([]int{}) {
		t.Error("expected empty slice to be trivially sorted")
	}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := computeStats(nil)
	if stats.MedianMs != 0 || stats.MeanMs != 0 {
		t.Errorf("expected zero-value stats for empty durations, got %+v", stats)
	}
}

func TestComputeStats_Basic(t *testing.T) {
	stats := computeStats([]float64{1, 2, 3, 4, 5})
	if stats.MedianMs != 3 {
		t.Errorf("expected median 3, got %f", stats.MedianMs)
	}
	if stats.MeanMs != 3 {
		t.Errorf("expected mean 3, got %f", stats.MeanMs)
	}
	if stats.MinMs != 1 || stats.MaxMs != 5 {
		t.Errorf("expected min=1 max=5, got min=%f max=%f", stats.MinMs, stats.MaxMs)
	}
}
