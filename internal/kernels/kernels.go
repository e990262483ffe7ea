// Package kernels holds the ten benchmark workloads. Each kernel builds its
// problem instance through the shared allocator, generates its data from the
// worker's random sequence and keeps the untimed reload in Prepare apart from
// the timed work in Run.
package kernels

import (
	"errors"
	"fmt"

	"github.com/utkarsh5026/nbench/internal/harness"
	"github.com/utkarsh5026/nbench/internal/memory"
)

// Kernel names, in the classic suite order.
const (
	NumSort  = "numsort"
	StrSort  = "strsort"
	Bitfield = "bitfield"
	EmFloat  = "emfloat"
	Fourier  = "fourier"
	Assign   = "assign"
	IDEA     = "idea"
	Huffman  = "huffman"
	NNet     = "nnet"
	LU       = "lu"
)

// ErrUnknown is returned by Lookup for a name no kernel answers to.
var ErrUnknown = errors.New("unknown kernel")

// Options tunes kernels that read external data.
type Options struct {
	// NNetData overrides the embedded neural-net training patterns.
	NNetData []byte
}

// Names returns every kernel name in suite order.
func Names() []string {
	return []string{NumSort, StrSort, Bitfield, EmFloat, Fourier, Assign, IDEA, Huffman, NNet, LU}
}

// All returns every kernel in suite order.
func All(opts Options) ([]harness.Workload, error) {
	nn, err := NewNeuralNet(opts.NNetData)
	if err != nil {
		return nil, err
	}
	return []harness.Workload{
		NewNumericSort(),
		NewStringSort(),
		NewBitfield(),
		NewFPEmulation(),
		NewFourier(),
		NewAssignment(),
		NewIDEA(),
		NewHuffman(),
		nn,
		NewLU(),
	}, nil
}

// Lookup returns the kernel called name.
func Lookup(name string, opts Options) (harness.Workload, error) {
	all, err := All(opts)
	if err != nil {
		return nil, err
	}
	for _, w := range all {
		if w.Name() == name {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// arena remembers every buffer an instance allocated so that Teardown, or a
// failed Setup, can hand them all back.
type arena struct {
	alloc *memory.Allocator
	frees []func() error
}

func newArena(a *memory.Allocator) *arena {
	return &arena{alloc: a}
}

func allocate[T memory.Element](ar *arena, n int) ([]T, error) {
	s, err := memory.Make[T](ar.alloc, n)
	if err != nil {
		return nil, err
	}
	ar.frees = append(ar.frees, func() error { return memory.Free(ar.alloc, s) })
	return s, nil
}

// release frees in reverse allocation order. It is safe to call twice.
func (ar *arena) release() error {
	var errs []error
	for i := len(ar.frees) - 1; i >= 0; i-- {
		if err := ar.frees[i](); err != nil {
			errs = append(errs, err)
		}
	}
	ar.frees = nil
	return errors.Join(errs...)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
