package suite

import (
	"github.com/aclements/go-moremath/stats"

	"github.com/utkarsh5026/nbench/internal/kernels"
)

// Baseline selects the reference machine an index is relative to.
type Baseline int

const (
	BaselineByteMark Baseline = iota
	BaselineLinux
)

// Index is the geometric mean of member rates relative to a baseline.
type Index struct {
	Name     string   `json:"name"`
	Baseline Baseline `json:"-"`
	Members  []string `json:"members"`
	Value    float64  `json:"value"`
}

// indexDefs lists the classic indexes. The BYTEmark integer index covers
// every test outside the floating-point group.
var indexDefs = []Index{
	{
		Name:     "BYTEmark INTEGER INDEX",
		Baseline: BaselineByteMark,
		Members:  []string{kernels.NumSort, kernels.StrSort, kernels.Bitfield, kernels.EmFloat, kernels.Assign, kernels.IDEA, kernels.Huffman},
	},
	{
		Name:     "BYTEmark FLOATING-POINT INDEX",
		Baseline: BaselineByteMark,
		Members:  []string{kernels.Fourier, kernels.NNet, kernels.LU},
	},
	{
		Name:     "MEMORY INDEX",
		Baseline: BaselineLinux,
		Members:  []string{kernels.StrSort, kernels.Bitfield, kernels.Assign},
	},
	{
		Name:     "INTEGER INDEX",
		Baseline: BaselineLinux,
		Members:  []string{kernels.NumSort, kernels.EmFloat, kernels.IDEA, kernels.Huffman},
	},
	{
		Name:     "FLOATING-POINT INDEX",
		Baseline: BaselineLinux,
		Members:  []string{kernels.Fourier, kernels.NNet, kernels.LU},
	},
}

// Relative returns rate divided by the test's reference rate.
func (t Test) Relative(rate float64, b Baseline) float64 {
	if b == BaselineLinux {
		return rate / t.Linux
	}
	return rate / t.ByteMark
}

// Indexes computes every classic index whose member tests all appear in
// outcomes. Rates are real-time rates.
func Indexes(outcomes []Outcome) []Index {
	byKernel := make(map[string]Outcome, len(outcomes))
	for _, o := range outcomes {
		byKernel[o.Kernel] = o
	}

	var out []Index
	for _, def := range indexDefs {
		sample := stats.Sample{Xs: make([]float64, 0, len(def.Members))}
		for _, m := range def.Members {
			o, ok := byKernel[m]
			t, known := LookupTest(m)
			if !ok || !known || o.RealRate <= 0 {
				break
			}
			sample.Xs = append(sample.Xs, t.Relative(o.RealRate, def.Baseline))
		}
		if len(sample.Xs) != len(def.Members) {
			continue
		}
		idx := def
		idx.Members = append([]string(nil), def.Members...)
		idx.Value = sample.GeoMean()
		out = append(out, idx)
	}
	return out
}
