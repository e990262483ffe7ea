package kernels

import (
	"errors"
	"math"

	"github.com/utkarsh5026/nbench/internal/harness"
)

const (
	luRows      = 101
	luCols      = 101
	luMaxArrays = 10000
	luTiny      = 1.0e-20
)

// ErrSingular is returned when a matrix has an all-zero row.
var ErrSingular = errors.New("singular matrix")

// LUDecomposition solves NumArrays copies of a 101x101 linear system by LU
// decomposition with partial pivoting and back substitution.
type LUDecomposition struct{}

func NewLU() *LUDecomposition { return &LUDecomposition{} }

func (*LUDecomposition) Name() string { return LU }

func (*LUDecomposition) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamNumArrays,
		Start: 1,
		Max:   luMaxArrays,
		Grow:  harness.Double(),
	}
}

func (*LUDecomposition) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	l := &luInstance{
		ar:        newArena(env.Alloc),
		numArrays: orDefault(sizes.NumArrays, 1),
	}
	n := l.numArrays + 1
	a, err := allocate[float64](l.ar, luRows*luCols*n)
	if err != nil {
		return nil, err
	}
	b, err := allocate[float64](l.ar, luRows*n)
	if err != nil {
		_ = l.ar.release()
		return nil, err
	}
	scale, err := allocate[float64](l.ar, luRows)
	if err != nil {
		_ = l.ar.release()
		return nil, err
	}
	l.a, l.b = a[:luRows*luCols], b[:luRows]
	l.workA, l.workB = a[luRows*luCols:], b[luRows:]
	l.scale = scale

	buildProblem(l.a, l.b, env)
	return l, nil
}

type luInstance struct {
	ar        *arena
	a         []float64
	b         []float64
	workA     []float64
	workB     []float64
	scale     []float64
	indx      [luRows]int
	numArrays int
}

// buildProblem starts from a diagonal system with a known solution and
// scrambles it with 8n random row additions and subtractions, which leave
// the solution unchanged.
func buildProblem(a, b []float64, env harness.Env) {
	r := env.Rand
	r.Reseed(13)
	for i := 0; i < luRows; i++ {
		b[i] = float64(r.NextPositiveBounded(100) + 1)
		for j := 0; j < luCols; j++ {
			if i == j {
				a[i*luCols+j] = float64(r.NextPositiveBounded(1000) + 1)
			} else {
				a[i*luCols+j] = 0
			}
		}
	}

	for i := 0; i < 8*luRows; i++ {
		k := int(r.NextPositiveBounded(luRows))
		k1 := int(r.NextPositiveBounded(luRows))
		if k == k1 {
			continue
		}
		sign := 1.0
		if k > k1 {
			sign = -1.0
		}
		for j := 0; j < luCols; j++ {
			a[k*luCols+j] += a[k1*luCols+j] * sign
		}
		b[k] += b[k1] * sign
	}
}

func (l *luInstance) matrix(k int) ([]float64, []float64) {
	return l.workA[k*luRows*luCols : (k+1)*luRows*luCols], l.workB[k*luRows : (k+1)*luRows]
}

func (l *luInstance) Prepare() {
	for k := 0; k < l.numArrays; k++ {
		a, b := l.matrix(k)
		copy(a, l.a)
		copy(b, l.b)
	}
}

func (l *luInstance) Run() error {
	for k := 0; k < l.numArrays; k++ {
		a, b := l.matrix(k)
		if err := luSolve(a, b, l.indx[:], l.scale); err != nil {
			return err
		}
	}
	return nil
}

func (l *luInstance) Units() float64 { return float64(l.numArrays) }

func (l *luInstance) Teardown() { _ = l.ar.release() }

func luSolve(a, b []float64, indx []int, scale []float64) error {
	if err := luDecompose(a, indx, scale); err != nil {
		return err
	}
	luBackSubstitute(a, indx, b)
	return nil
}

// luDecompose replaces a with its LU decomposition using Crout's method with
// implicit partial pivoting, recording the row permutation in indx.
func luDecompose(a []float64, indx []int, scale []float64) error {
	const n = luRows
	at := func(i, j int) *float64 { return &a[i*luCols+j] }

	for i := 0; i < n; i++ {
		big := 0.0
		for j := 0; j < n; j++ {
			big = max(big, math.Abs(*at(i, j)))
		}
		if big == 0 {
			return ErrSingular
		}
		scale[i] = 1 / big
	}

	for j := 0; j < n; j++ {
		for i := 0; i < j; i++ {
			sum := *at(i, j)
			for k := 0; k < i; k++ {
				sum -= *at(i, k) * *at(k, j)
			}
			*at(i, j) = sum
		}

		big := 0.0
		imax := j
		for i := j; i < n; i++ {
			sum := *at(i, j)
			for k := 0; k < j; k++ {
				sum -= *at(i, k) * *at(k, j)
			}
			*at(i, j) = sum
			if d := scale[i] * math.Abs(sum); d >= big {
				big = d
				imax = i
			}
		}

		if j != imax {
			for k := 0; k < n; k++ {
				*at(imax, k), *at(j, k) = *at(j, k), *at(imax, k)
			}
			scale[imax] = scale[j]
		}
		indx[j] = imax

		if *at(j, j) == 0 {
			*at(j, j) = luTiny
		}
		if j != n-1 {
			d := 1 / *at(j, j)
			for i := j + 1; i < n; i++ {
				*at(i, j) *= d
			}
		}
	}
	return nil
}

// luBackSubstitute solves the decomposed system for b in place.
func luBackSubstitute(a []float64, indx []int, b []float64) {
	const n = luRows
	ii := -1
	for i := 0; i < n; i++ {
		ip := indx[i]
		sum := b[ip]
		b[ip] = b[i]
		if ii != -1 {
			for j := ii; j < i; j++ {
				sum -= a[i*luCols+j] * b[j]
			}
		} else if sum != 0 {
			ii = i
		}
		b[i] = sum
	}
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i*luCols+j] * b[j]
		}
		b[i] = sum / a[i*luCols+i]
	}
}
