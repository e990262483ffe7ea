package suite

import "github.com/utkarsh5026/nbench/internal/kernels"

// Group is the Linux index a test contributes to.
type Group int

const (
	GroupMemory Group = iota
	GroupInteger
	GroupFloat
)

func (g Group) String() string {
	switch g {
	case GroupMemory:
		return "memory"
	case GroupInteger:
		return "integer"
	default:
		return "floating-point"
	}
}

// Test describes one benchmark of the suite.
type Test struct {
	Kernel string
	// Title is the name printed in reports.
	Title string
	// Context labels errors raised by this test.
	Context string
	Group   Group
	// ByteMark is the rate of the Dell Pentium 90 reference machine.
	ByteMark float64
	// Linux is the rate of the AMD K6-233 reference machine.
	Linux float64
}

var tests = []Test{
	{Kernel: kernels.NumSort, Title: "NUMERIC SORT", Context: "CPU:Numeric Sort", Group: GroupInteger, ByteMark: 38.993, Linux: 118.73},
	{Kernel: kernels.StrSort, Title: "STRING SORT", Context: "CPU:String Sort", Group: GroupMemory, ByteMark: 2.238, Linux: 14.459},
	{Kernel: kernels.Bitfield, Title: "BITFIELD", Context: "CPU:Bitfields", Group: GroupMemory, ByteMark: 5829704, Linux: 27910000},
	{Kernel: kernels.EmFloat, Title: "FP EMULATION", Context: "CPU:FP Emulation", Group: GroupInteger, ByteMark: 2.084, Linux: 9.0314},
	{Kernel: kernels.Fourier, Title: "FOURIER", Context: "CPU:Fourier", Group: GroupFloat, ByteMark: 879.278, Linux: 1565.5},
	{Kernel: kernels.Assign, Title: "ASSIGNMENT", Context: "CPU:Assignment", Group: GroupMemory, ByteMark: .2628, Linux: 1.0132},
	{Kernel: kernels.IDEA, Title: "IDEA", Context: "CPU:IDEA", Group: GroupInteger, ByteMark: 65.382, Linux: 220.21},
	{Kernel: kernels.Huffman, Title: "HUFFMAN", Context: "CPU:Huffman", Group: GroupInteger, ByteMark: 36.062, Linux: 112.93},
	{Kernel: kernels.NNet, Title: "NEURAL NET", Context: "CPU:NNET", Group: GroupFloat, ByteMark: .6225, Linux: 1.4799},
	{Kernel: kernels.LU, Title: "LU DECOMPOSITION", Context: "CPU:LU", Group: GroupFloat, ByteMark: 19.3031, Linux: 26.732},
}

// Tests returns the suite table in classic order.
func Tests() []Test {
	out := make([]Test, len(tests))
	copy(out, tests)
	return out
}

// LookupTest returns the table entry for a kernel name.
func LookupTest(kernel string) (Test, bool) {
	for _, t := range tests {
		if t.Kernel == kernel {
			return t, true
		}
	}
	return Test{}, false
}
