//go:build !linux && !darwin

// Plugin loading requires dlopen/dlsym, available on Linux and macOS
// only (spec.md §6 plugin ABI note). Other platforms get a Loader that
// always reports plugin-load errors, so startup and request handling
// don't need a separate code path.
package plugin

import (
	"fmt"

	"github.com/kevichi7/bench-sort/internal/model"
)

type Algo struct {
	Name string
	I32  func([]int32)
	U32  func([]uint32)
	I64  func([]int64)
	U64  func([]uint64)
	F32  func([]float32)
	F64  func([]float64)
}

type Loader struct{}

func NewLoader() *Loader { return &Loader{} }

func (l *Loader) Load(path string) ([]Algo, error) {
	return nil, fmt.Errorf("plugin-load: plugins unsupported on this platform")
}

func (l *Loader) Close() {}

func AlgosFor(algos []Algo, elemType model.ElemType) []Algo { return nil }
