package kernels

import (
	"math"

	"github.com/utkarsh5026/nbench/internal/harness"
)

const (
	fourierStart    = 100
	fourierMaxSize  = 1 << 20
	fourierSteps    = 200
	fourierInterval = 2.0
)

// FourierSeries computes the first ArraySize coefficient pairs of the
// Fourier series of f(x) = (x+1)^x on [0, 2] by trapezoid integration.
// An iteration is credited with the 2n-1 coefficients it produces.
type FourierSeries struct{}

func NewFourier() *FourierSeries { return &FourierSeries{} }

func (*FourierSeries) Name() string { return Fourier }

func (*FourierSeries) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamArraySize,
		Start: fourierStart,
		Max:   fourierMaxSize,
		Grow:  harness.Step(50),
	}
}

func (*FourierSeries) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	f := &fourierInstance{ar: newArena(env.Alloc)}
	n := orDefault(sizes.ArraySize, fourierStart)

	a, err := allocate[float64](f.ar, n)
	if err != nil {
		return nil, err
	}
	b, err := allocate[float64](f.ar, n)
	if err != nil {
		_ = f.ar.release()
		return nil, err
	}
	f.a, f.b = a, b
	return f, nil
}

type fourierInstance struct {
	ar   *arena
	a, b []float64
}

func (f *fourierInstance) Prepare() {}

func (f *fourierInstance) Run() error {
	f.a[0] = trapezoid(0, fourierInterval, fourierSteps, 0, fourierConst) / 2

	const omega = math.Pi
	for i := 1; i < len(f.a); i++ {
		w := omega * float64(i)
		f.a[i] = trapezoid(0, fourierInterval, fourierSteps, w, fourierCos)
		f.b[i] = trapezoid(0, fourierInterval, fourierSteps, w, fourierSin)
	}
	return nil
}

func (f *fourierInstance) Units() float64 { return float64(2*len(f.a) - 1) }

func (f *fourierInstance) Teardown() { _ = f.ar.release() }

type fourierTerm int

const (
	fourierConst fourierTerm = iota
	fourierCos
	fourierSin
)

func fourierFunc(x, omegaN float64, term fourierTerm) float64 {
	v := math.Pow(x+1, x)
	switch term {
	case fourierCos:
		return v * math.Cos(omegaN*x)
	case fourierSin:
		return v * math.Sin(omegaN*x)
	}
	return v
}

// trapezoid integrates the selected term over [x0, x1] in n equal steps.
func trapezoid(x0, x1 float64, n int, omegaN float64, term fourierTerm) float64 {
	dx := (x1 - x0) / float64(n)
	sum := (fourierFunc(x0, omegaN, term) + fourierFunc(x1, omegaN, term)) / 2
	for i := 1; i < n; i++ {
		sum += fourierFunc(x0+float64(i)*dx, omegaN, term)
	}
	return sum * dx
}
