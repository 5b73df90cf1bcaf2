package engine

import "github.com/kevichi7/bench-sort/internal/model"

// builtinNames lists the names available for an element type before
// any plugin contributions, used by ListAlgorithms and /meta. Must
// match the per-type algo tables below exactly: counting_sort only
// exists for the integer types, never for floats or strings.
func builtinNames(elemType model.ElemType) []string {
	switch elemType {
	case model.I32, model.U32, model.I64, model.U64:
		return []string{"std_sort", "insertion_sort", "quicksort", "heap_sort", "counting_sort"}
	default:
		return []string{"std_sort", "insertion_sort", "quicksort", "heap_sort"}
	}
}

func builtinAlgosInt32() []algo[int32] {
	return []algo[int32]{
		{"std_sort", stdSort[int32]},
		{"insertion_sort", insertionSort[int32]},
		{"quicksort", quicksort[int32]},
		{"heap_sort", heapSort[int32]},
		{"counting_sort", countingSort[int32]},
	}
}

func builtinAlgosUint32() []algo[uint32] {
	return []algo[uint32]{
		{"std_sort", stdSort[uint32]},
		{"insertion_sort", insertionSort[uint32]},
		{"quicksort", quicksort[uint32]},
		{"heap_sort", heapSort[uint32]},
		{"counting_sort", countingSort[uint32]},
	}
}

func builtinAlgosInt64() []algo[int64] {
	return []algo[int64]{
		{"std_sort", stdSort[int64]},
		{"insertion_sort", insertionSort[int64]},
		{"quicksort", quicksort[int64]},
		{"heap_sort", heapSort[int64]},
		{"counting_sort", countingSort[int64]},
	}
}

func builtinAlgosUint64() []algo[uint64] {
	return []algo[uint64]{
		{"std_sort", stdSort[uint64]},
		{"insertion_sort", insertionSort[uint64]},
		{"quicksort", quicksort[uint64]},
		{"heap_sort", heapSort[uint64]},
		{"counting_sort", countingSort[uint64]},
	}
}

func builtinAlgosFloat32() []algo[float32] {
	return []algo[float32]{
		{"std_sort", stdSort[float32]},
		{"insertion_sort", insertionSort[float32]},
		{"quicksort", quicksort[float32]},
		{"heap_sort", heapSort[float32]},
	}
}

func builtinAlgosFloat64() []algo[float64] {
	return []algo[float64]{
		{"std_sort", stdSort[float64]},
		{"insertion_sort", insertionSort[float64]},
		{"quicksort", quicksort[float64]},
		{"heap_sort", heapSort[float64]},
	}
}

func builtinAlgosString() []algo[string] {
	return []algo[string]{
		{"std_sort", stdSort[string]},
		{"insertion_sort", insertionSort[string]},
		{"quicksort", quicksort[string]},
		{"heap_sort", heapSort[string]},
	}
}
