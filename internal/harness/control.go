package harness

import "fmt"

// SizeParam names one problem-size knob of a TestControl.
type SizeParam int

const (
	// ParamNumArrays is the number of independent arrays sorted or solved per iteration.
	ParamNumArrays SizeParam = iota
	// ParamArraySize is the number of elements in each array.
	ParamArraySize
	// ParamLoops is the number of inner loops per iteration.
	ParamLoops
	// ParamBitOpArraySize is the number of bitfield operations per iteration.
	ParamBitOpArraySize
	// ParamBitFieldArraySize is the number of words in the bitmap.
	ParamBitFieldArraySize
)

func (p SizeParam) String() string {
	switch p {
	case ParamNumArrays:
		return "numarrays"
	case ParamArraySize:
		return "arraysize"
	case ParamLoops:
		return "loops"
	case ParamBitOpArraySize:
		return "bitoparraysize"
	case ParamBitFieldArraySize:
		return "bitfieldarraysize"
	default:
		return fmt.Sprintf("SizeParam(%d)", int(p))
	}
}

// Sizes holds the problem-size parameters of one benchmark. Each kernel reads
// the fields it cares about and ignores the rest.
type Sizes struct {
	NumArrays         int `json:"num_arrays,omitempty" yaml:"num_arrays,omitempty"`
	ArraySize         int `json:"array_size,omitempty" yaml:"array_size,omitempty"`
	Loops             int `json:"loops,omitempty" yaml:"loops,omitempty"`
	BitOpArraySize    int `json:"bitop_array_size,omitempty" yaml:"bitop_array_size,omitempty"`
	BitFieldArraySize int `json:"bitfield_array_size,omitempty" yaml:"bitfield_array_size,omitempty"`
}

// Get returns the value of p.
func (s Sizes) Get(p SizeParam) int {
	switch p {
	case ParamNumArrays:
		return s.NumArrays
	case ParamArraySize:
		return s.ArraySize
	case ParamLoops:
		return s.Loops
	case ParamBitOpArraySize:
		return s.BitOpArraySize
	case ParamBitFieldArraySize:
		return s.BitFieldArraySize
	}
	return 0
}

// Set assigns v to p.
func (s *Sizes) Set(p SizeParam, v int) {
	switch p {
	case ParamNumArrays:
		s.NumArrays = v
	case ParamArraySize:
		s.ArraySize = v
	case ParamLoops:
		s.Loops = v
	case ParamBitOpArraySize:
		s.BitOpArraySize = v
	case ParamBitFieldArraySize:
		s.BitFieldArraySize = v
	}
}

// Overlay returns s with every non-zero field of o copied over it.
func (s Sizes) Overlay(o Sizes) Sizes {
	for _, p := range []SizeParam{ParamNumArrays, ParamArraySize, ParamLoops, ParamBitOpArraySize, ParamBitFieldArraySize} {
		if v := o.Get(p); v != 0 {
			s.Set(p, v)
		}
	}
	return s
}

// TestResult is what one worker, or the merge of several, measured.
type TestResult struct {
	Iterations  float64 `json:"iterations"`
	CPUSeconds  float64 `json:"cpu_seconds"`
	RealSeconds float64 `json:"real_seconds"`
}

// Merge folds o into r: iterations and CPU seconds add up, real seconds is
// the longest wall-clock span, since concurrent workers overlap in time.
// The operation is commutative and associative, so join order is irrelevant.
func (r *TestResult) Merge(o TestResult) {
	r.Iterations += o.Iterations
	r.CPUSeconds += o.CPUSeconds
	r.RealSeconds = max(r.RealSeconds, o.RealSeconds)
}

// MergeAll merges results in order, starting from the zero result.
func MergeAll(results ...TestResult) TestResult {
	var agg TestResult
	for _, r := range results {
		agg.Merge(r)
	}
	return agg
}

// TestControl is the per-benchmark control block. The driver owns it;
// workers only ever see a Params copy.
type TestControl struct {
	// Context labels errors raised while running this test.
	Context string
	// Adjusted is set once calibration has fixed Sizes.
	Adjusted bool
	// RequestSecs is how long each worker keeps iterating.
	RequestSecs float64
	Sizes       Sizes
	Concurrency int

	Result   TestResult
	CPURate  float64
	RealRate float64
}

// NewTestControl returns a zeroed control block with one worker.
func NewTestControl(context string, requestSecs float64, sizes Sizes) *TestControl {
	return &TestControl{
		Context:     context,
		RequestSecs: requestSecs,
		Sizes:       sizes,
		Concurrency: 1,
	}
}

// Params is the immutable snapshot handed to each worker.
type Params struct {
	Context     string
	RequestSecs float64
	Sizes       Sizes
	Concurrency int
}

// Params snapshots the fields workers need.
func (c *TestControl) Params() Params {
	return Params{
		Context:     c.Context,
		RequestSecs: c.RequestSecs,
		Sizes:       c.Sizes,
		Concurrency: max(c.Concurrency, 1),
	}
}

// ComputeRates derives CPURate and RealRate from Result. CPU seconds are
// divided by the concurrency so the CPU rate stays per worker-second.
func (c *TestControl) ComputeRates() {
	n := float64(max(c.Concurrency, 1))
	c.CPURate = 0
	c.RealRate = 0
	if c.Result.CPUSeconds > 0 {
		c.CPURate = c.Result.Iterations / (c.Result.CPUSeconds / n)
	}
	if c.Result.RealSeconds > 0 {
		c.RealRate = c.Result.Iterations / c.Result.RealSeconds
	}
}
