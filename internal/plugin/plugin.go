//go:build linux || darwin

// Package plugin loads sort-algorithm plugins through the stable C
// ABI described in spec.md §4.5/§6, generalizing the teacher's
// mini-47 plugin.Open/Lookup pattern (which only loads Go-native
// plugins with Go-side symbol types) to a cgo dlopen/dlsym loader that
// can load a shared library built from any language, exporting either
// get_algorithms_v1 (int-only) or get_algorithms_v2 (per-type entry
// points).
package plugin

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	const char *name;
	void (*run_int)(int32_t *data, int64_t len);
} bs_algo_v1;

typedef struct {
	int64_t count;
	bs_algo_v1 *entries;
} bs_algo_list_v1;

typedef bs_algo_list_v1 (*get_algorithms_v1_fn)(void);

typedef struct {
	const char *name;
	void (*run_i32)(int32_t *data, int64_t len);
	void (*run_u32)(uint32_t *data, int64_t len);
	void (*run_i64)(int64_t *data, int64_t len);
	void (*run_u64)(uint64_t *data, int64_t len);
	void (*run_f32)(float *data, int64_t len);
	void (*run_f64)(double *data, int64_t len);
} bs_algo_v2;

typedef struct {
	int64_t count;
	bs_algo_v2 *entries;
} bs_algo_list_v2;

typedef bs_algo_list_v2 (*get_algorithms_v2_fn)(void);

static void *bs_dlopen(const char *path) {
	return dlopen(path, RTLD_NOW);
}

static void *bs_dlsym(void *handle, const char *name) {
	return dlsym(handle, name);
}

static int bs_dlclose(void *handle) {
	return dlclose(handle);
}

static bs_algo_list_v1 bs_call_v1(get_algorithms_v1_fn fn) { return fn(); }
static bs_algo_list_v2 bs_call_v2(get_algorithms_v2_fn fn) { return fn(); }

static void bs_invoke_i32(void (*fn)(int32_t*, int64_t), int32_t *data, int64_t len) { fn(data, len); }
static void bs_invoke_u32(void (*fn)(uint32_t*, int64_t), uint32_t *data, int64_t len) { fn(data, len); }
static void bs_invoke_i64(void (*fn)(int64_t*, int64_t), int64_t *data, int64_t len) { fn(data, len); }
static void bs_invoke_u64(void (*fn)(uint64_t*, int64_t), uint64_t *data, int64_t len) { fn(data, len); }
static void bs_invoke_f32(void (*fn)(float*, int64_t), float *data, int64_t len) { fn(data, len); }
static void bs_invoke_f64(void (*fn)(double*, int64_t), double *data, int64_t len) { fn(data, len); }
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/kevichi7/bench-sort/internal/model"
)

// Algo is one plugin-contributed sort routine, with an entry point per
// numeric element type. A nil field means the plugin doesn't support
// that element type — spec.md §4.5: "any pointer may be absent".
type Algo struct {
	Name string
	I32  func([]int32)
	U32  func([]uint32)
	I64  func([]int64)
	U64  func([]uint64)
	F32  func([]float32)
	F64  func([]float64)
}

// handle is a loaded shared library kept alive for the process
// lifetime because in-flight benchmarks may still reference its
// function pointers (spec.md §9 "Plugin lifetime").
type handle struct {
	path   string
	cHand  unsafe.Pointer
	algos  []Algo
}

// Loader discovers and holds plugin handles. It is process-global
// state initialized once and protected by a mutex (spec.md §9).
type Loader struct {
	mu      sync.Mutex
	loaded  map[string]*handle
}

func NewLoader() *Loader {
	return &Loader{loaded: make(map[string]*handle)}
}

// Load opens path, preferring get_algorithms_v2 and falling back to
// get_algorithms_v1 (i32 only) if v2 is absent, per spec.md §4.5. A
// library contributing no usable entry point is unloaded immediately;
// one contributing at least one algorithm is held for the process
// lifetime. Load errors are non-fatal to the caller: they're returned
// so the caller can skip the plugin and continue.
func (l *Loader) Load(path string) ([]Algo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.loaded[path]; ok {
		return h.algos, nil
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	cHandle := C.bs_dlopen(cPath)
	if cHandle == nil {
		return nil, fmt.Errorf("plugin-load: dlopen %s failed", path)
	}

	algos := l.loadV2(cHandle)
	if len(algos) == 0 {
		algos = l.loadV1(cHandle)
	}

	if len(algos) == 0 {
		C.bs_dlclose(cHandle)
		return nil, fmt.Errorf("plugin-load: %s exports no usable algorithms", path)
	}

	l.loaded[path] = &handle{path: path, cHand: cHandle, algos: algos}
	return algos, nil
}

func (l *Loader) loadV2(cHandle unsafe.Pointer) []Algo {
	name := C.CString("get_algorithms_v2")
	defer C.free(unsafe.Pointer(name))
	sym := C.bs_dlsym(cHandle, name)
	if sym == nil {
		return nil
	}
	fn := C.get_algorithms_v2_fn(sym)
	list := C.bs_call_v2(fn)
	entries := unsafe.Slice(list.entries, int(list.count))

	out := make([]Algo, 0, len(entries))
	for _, e := range entries {
		a := Algo{Name: C.GoString(e.name)}
		if e.run_i32 != nil {
			fp := e.run_i32
			a.I32 = func(data []int32) {
				if len(data) == 0 {
					return
				}
				C.bs_invoke_i32(fp, (*C.int32_t)(unsafe.Pointer(&data[0])), C.int64_t(len(data)))
			}
		}
		if e.run_u32 != nil {
			fp := e.run_u32
			a.U32 = func(data []uint32) {
				if len(data) == 0 {
					return
				}
				C.bs_invoke_u32(fp, (*C.uint32_t)(unsafe.Pointer(&data[0])), C.int64_t(len(data)))
			}
		}
		if e.run_i64 != nil {
			fp := e.run_i64
			a.I64 = func(data []int64) {
				if len(data) == 0 {
					return
				}
				C.bs_invoke_i64(fp, (*C.int64_t)(unsafe.Pointer(&data[0])), C.int64_t(len(data)))
			}
		}
		if e.run_u64 != nil {
			fp := e.run_u64
			a.U64 = func(data []uint64) {
				if len(data) == 0 {
					return
				}
				C.bs_invoke_u64(fp, (*C.uint64_t)(unsafe.Pointer(&data[0])), C.int64_t(len(data)))
			}
		}
		if e.run_f32 != nil {
			fp := e.run_f32
			a.F32 = func(data []float32) {
				if len(data) == 0 {
					return
				}
				C.bs_invoke_f32(fp, (*C.float)(unsafe.Pointer(&data[0])), C.int64_t(len(data)))
			}
		}
		if e.run_f64 != nil {
			fp := e.run_f64
			a.F64 = func(data []float64) {
				if len(data) == 0 {
					return
				}
				C.bs_invoke_f64(fp, (*C.double)(unsafe.Pointer(&data[0])), C.int64_t(len(data)))
			}
		}
		out = append(out, a)
	}
	return out
}

func (l *Loader) loadV1(cHandle unsafe.Pointer) []Algo {
	name := C.CString("get_algorithms_v1")
	defer C.free(unsafe.Pointer(name))
	sym := C.bs_dlsym(cHandle, name)
	if sym == nil {
		return nil
	}
	fn := C.get_algorithms_v1_fn(sym)
	list := C.bs_call_v1(fn)
	entries := unsafe.Slice(list.entries, int(list.count))

	out := make([]Algo, 0, len(entries))
	for _, e := range entries {
		if e.run_int == nil {
			continue
		}
		fp := e.run_int
		out = append(out, Algo{
			Name: C.GoString(e.name),
			I32: func(data []int32) {
				if len(data) == 0 {
					return
				}
				C.bs_invoke_i32(fp, (*C.int32_t)(unsafe.Pointer(&data[0])), C.int64_t(len(data)))
			},
		})
	}
	return out
}

// AlgosFor filters the plugin's algorithms to those usable for
// elemType (spec.md §4.5: "filtered to the current element type").
func AlgosFor(algos []Algo, elemType model.ElemType) []Algo {
	var out []Algo
	for _, a := range algos {
		usable := false
		switch elemType {
		case model.I32:
			usable = a.I32 != nil
		case model.U32:
			usable = a.U32 != nil
		case model.I64:
			usable = a.I64 != nil
		case model.U64:
			usable = a.U64 != nil
		case model.F32:
			usable = a.F32 != nil
		case model.F64:
			usable = a.F64 != nil
		}
		if usable {
			out = append(out, a)
		}
	}
	return out
}

// Close releases every held handle. Called only at process shutdown.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for path, h := range l.loaded {
		C.bs_dlclose(h.cHand)
		delete(l.loaded, path)
	}
}
