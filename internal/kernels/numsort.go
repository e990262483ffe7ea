package kernels

import (
	"github.com/utkarsh5026/nbench/internal/harness"
	"github.com/utkarsh5026/nbench/internal/rng"
)

const (
	numSortArraySize = 8111
	numSortMaxArrays = 10000
)

// NumericSort heapsorts NumArrays copies of the same ArraySize random int32
// array per iteration.
type NumericSort struct{}

func NewNumericSort() *NumericSort { return &NumericSort{} }

func (*NumericSort) Name() string { return NumSort }

func (*NumericSort) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamNumArrays,
		Start: 1,
		Max:   numSortMaxArrays,
		Grow:  harness.Step(1),
	}
}

func (*NumericSort) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	inst := &numSortInstance{
		ar:        newArena(env.Alloc),
		rand:      env.Rand,
		arraySize: orDefault(sizes.ArraySize, numSortArraySize),
		numArrays: orDefault(sizes.NumArrays, 1),
	}
	data, err := allocate[int32](inst.ar, inst.arraySize*inst.numArrays)
	if err != nil {
		return nil, err
	}
	inst.data = data
	return inst, nil
}

type numSortInstance struct {
	ar        *arena
	rand      *rng.Sequence
	data      []int32
	arraySize int
	numArrays int
}

// Prepare refills the first array from a freshly reseeded sequence and copies
// it into the others.
func (n *numSortInstance) Prepare() {
	n.rand.Reseed(13)
	first := n.data[:n.arraySize]
	for i := range first {
		first[i] = n.rand.Next()
	}
	for k := 1; k < n.numArrays; k++ {
		copy(n.data[k*n.arraySize:(k+1)*n.arraySize], first)
	}
}

func (n *numSortInstance) Run() error {
	for k := 0; k < n.numArrays; k++ {
		heapSort(n.data[k*n.arraySize : (k+1)*n.arraySize])
	}
	return nil
}

func (n *numSortInstance) Units() float64 { return float64(n.numArrays) }

func (n *numSortInstance) Teardown() { _ = n.ar.release() }

func heapSort(a []int32) {
	for i := len(a)/2 - 1; i >= 0; i-- {
		siftDown(a, i, len(a))
	}
	for end := len(a) - 1; end > 0; end-- {
		a[0], a[end] = a[end], a[0]
		siftDown(a, 0, end)
	}
}

// siftDown restores the max-heap property below root within a[:n].
func siftDown(a []int32, root, n int) {
	for {
		child := 2*root + 1
		if child >= n {
			return
		}
		if child+1 < n && a[child] < a[child+1] {
			child++
		}
		if a[root] >= a[child] {
			return
		}
		a[root], a[child] = a[child], a[root]
		root = child
	}
}
