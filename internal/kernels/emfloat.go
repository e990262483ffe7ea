package kernels

import (
	"github.com/utkarsh5026/nbench/internal/harness"
)

const (
	emFloatArraySize = 3000
	emFloatMaxLoops  = 500000
)

// FPEmulation runs Loops passes of add, subtract, multiply and divide over
// arrays of software floats.
type FPEmulation struct{}

func NewFPEmulation() *FPEmulation { return &FPEmulation{} }

func (*FPEmulation) Name() string { return EmFloat }

func (*FPEmulation) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamLoops,
		Start: 1,
		Max:   emFloatMaxLoops,
		Grow:  harness.Double(),
	}
}

// Setup builds a[i] = r1/r2 and b[i] = r1/r3 from three draws each. The
// arrays hold structs, so they come from the Go heap rather than the
// allocator.
func (*FPEmulation) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	n := orDefault(sizes.ArraySize, emFloatArraySize)
	e := &emFloatInstance{
		a:     make([]emFloat, n),
		b:     make([]emFloat, n),
		c:     make([]emFloat, n),
		loops: orDefault(sizes.Loops, 1),
	}

	r := env.Rand
	r.Reseed(13)
	for i := range e.a {
		num := emFromInt32(r.NextBounded(50000))
		den := emFromInt32(r.NextBounded(50000) + 1)
		e.a[i] = emDiv(num, den)
		den = emFromInt32(r.NextBounded(50000) + 1)
		e.b[i] = emDiv(num, den)
	}
	return e, nil
}

type emFloatInstance struct {
	a, b, c []emFloat
	loops   int
}

// Prepare is a no-op: Run only writes c.
func (e *emFloatInstance) Prepare() {}

func (e *emFloatInstance) Run() error {
	for l := 0; l < e.loops; l++ {
		for i := range e.c {
			switch i % 4 {
			case 0:
				e.c[i] = emAdd(e.a[i], e.b[i])
			case 1:
				e.c[i] = emSub(e.a[i], e.b[i])
			case 2:
				e.c[i] = emMul(e.a[i], e.b[i])
			case 3:
				e.c[i] = emDiv(e.a[i], e.b[i])
			}
		}
	}
	return nil
}

func (e *emFloatInstance) Units() float64 { return float64(e.loops) }

func (e *emFloatInstance) Teardown() {}
