package report

import (
	"math"

	"github.com/aclements/go-moremath/stats"
)

// Summary describes the spread of repeated measurements of one test.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes a Summary over xs. StdDev is zero for fewer than two
// samples.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	s := stats.Sample{Xs: xs}
	lo, hi := s.Bounds()
	sum := Summary{
		N:    len(xs),
		Mean: s.Mean(),
		Min:  lo,
		Max:  hi,
	}
	if len(xs) > 1 {
		sum.StdDev = s.StdDev()
	}
	return sum
}

// RelStdDev returns the standard deviation as a percentage of the mean.
func (s Summary) RelStdDev() float64 {
	if s.Mean == 0 || math.IsNaN(s.StdDev) {
		return 0
	}
	return 100 * s.StdDev / s.Mean
}
