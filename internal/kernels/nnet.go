package kernels

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/utkarsh5026/nbench/internal/harness"
)

//go:embed nnet.dat
var defaultPatterns []byte

const (
	nnetMaxLoops = 500000
	nnetMaxPats  = 10
	nnetInX      = 5
	nnetInY      = 7
	nnetIn       = nnetInX * nnetInY
	nnetMid      = 8
	nnetOut      = 8

	nnetBeta  = 0.09
	nnetAlpha = 0.09
	// nnetStop is the worst per-output error at which training is done.
	nnetStop = 0.1
	// nnetDiverged is a per-pattern error no sigmoid network can produce.
	nnetDiverged = 16.0
	// nnetMaxPasses bounds training so a net that never converges fails
	// instead of hanging.
	nnetMaxPasses = 100000
)

var (
	// ErrPatternFormat is returned for malformed training pattern data.
	ErrPatternFormat = errors.New("malformed neural net pattern data")
	// ErrNoConvergence is returned when training exceeds its pass limit or
	// diverges.
	ErrNoConvergence = errors.New("neural net did not converge")
)

// NeuralNet trains a 35-8-8 back-propagation network on letter bitmaps until
// every output is within 0.1 of its target, Loops times per iteration.
type NeuralNet struct {
	in  [][nnetIn]float64
	out [][nnetOut]float64
}

// NewNeuralNet parses training patterns. A nil or empty data selects the
// built-in letter set.
func NewNeuralNet(data []byte) (*NeuralNet, error) {
	if len(data) == 0 {
		data = defaultPatterns
	}
	return parsePatterns(data)
}

func (*NeuralNet) Name() string { return NNet }

func (*NeuralNet) Calibration() harness.Calibration {
	return harness.Calibration{
		Param: harness.ParamLoops,
		Start: 1,
		Max:   nnetMaxLoops,
		Grow:  harness.Step(1),
	}
}

// Patterns returns the number of training patterns in use.
func (n *NeuralNet) Patterns() int { return len(n.in) }

// parsePatterns reads the classic format: a "5 7 8" header, the pattern
// count, then for each pattern seven rows of five inputs followed by eight
// outputs. At most ten patterns are used and inputs are clamped to
// [0.1, 0.9].
func parsePatterns(data []byte) (*NeuralNet, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Split(bufio.ScanWords)
	next := func(what string) (int, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("%w: missing %s", ErrPatternFormat, what)
		}
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrPatternFormat, what, err)
		}
		return v, nil
	}

	var header [3]int
	for i := range header {
		v, err := next("header")
		if err != nil {
			return nil, err
		}
		header[i] = v
	}
	if header != [3]int{nnetInX, nnetInY, nnetOut} {
		return nil, fmt.Errorf("%w: layout %v, want [%d %d %d]", ErrPatternFormat, header, nnetInX, nnetInY, nnetOut)
	}

	count, err := next("pattern count")
	if err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: pattern count %d", ErrPatternFormat, count)
	}
	count = min(count, nnetMaxPats)

	nn := &NeuralNet{
		in:  make([][nnetIn]float64, count),
		out: make([][nnetOut]float64, count),
	}
	for p := 0; p < count; p++ {
		for i := 0; i < nnetIn; i++ {
			v, err := next(fmt.Sprintf("input %d of pattern %d", i, p))
			if err != nil {
				return nil, err
			}
			nn.in[p][i] = min(max(float64(v), 0.1), 0.9)
		}
		for i := 0; i < nnetOut; i++ {
			v, err := next(fmt.Sprintf("output %d of pattern %d", i, p))
			if err != nil {
				return nil, err
			}
			nn.out[p][i] = float64(v)
		}
	}
	return nn, nil
}

func (n *NeuralNet) Setup(sizes harness.Sizes, env harness.Env) (harness.Instance, error) {
	inst := &nnetInstance{
		ar:    newArena(env.Alloc),
		net:   n,
		env:   env,
		loops: orDefault(sizes.Loops, 1),
	}
	npats := len(n.in)
	size := 3*nnetMid*nnetIn + 3*nnetOut*nnetMid + 2*nnetMid + 2*nnetOut + 2*npats
	buf, err := allocate[float64](inst.ar, size)
	if err != nil {
		return nil, err
	}
	take := func(k int) []float64 {
		s := buf[:k:k]
		buf = buf[k:]
		return s
	}
	inst.midWts = take(nnetMid * nnetIn)
	inst.midChange = take(nnetMid * nnetIn)
	inst.midCum = take(nnetMid * nnetIn)
	inst.outWts = take(nnetOut * nnetMid)
	inst.outChange = take(nnetOut * nnetMid)
	inst.outCum = take(nnetOut * nnetMid)
	inst.midOut = take(nnetMid)
	inst.midErr = take(nnetMid)
	inst.outOut = take(nnetOut)
	inst.outErr = take(nnetOut)
	inst.totErr = take(npats)
	inst.avgErr = take(npats)
	return inst, nil
}

type nnetInstance struct {
	ar    *arena
	net   *NeuralNet
	env   harness.Env
	loops int

	midWts, midChange, midCum []float64
	outWts, outChange, outCum []float64
	midOut, midErr            []float64
	outOut, outErr            []float64
	totErr, avgErr            []float64

	worstErr float64
	avgPass  float64
	passes   int
}

// Prepare reseeds so every iteration starts from the same weights.
func (t *nnetInstance) Prepare() {
	t.env.Rand.Reseed(3)
}

func (t *nnetInstance) Run() error {
	for l := 0; l < t.loops; l++ {
		if err := t.train(); err != nil {
			return err
		}
	}
	return nil
}

func (t *nnetInstance) Units() float64 { return float64(t.loops) }

func (t *nnetInstance) Teardown() { _ = t.ar.release() }

func (t *nnetInstance) train() error {
	t.randomizeWeights()
	clear(t.midChange)
	clear(t.midCum)
	clear(t.outChange)
	clear(t.outCum)

	t.passes = 0
	for {
		for p := range t.net.in {
			t.moveWeightChanges()
			t.forward(p)
			t.backward(p)
		}
		t.passes++

		learned, err := t.checkError()
		if err != nil {
			return err
		}
		if learned {
			return nil
		}
		if t.passes >= nnetMaxPasses {
			return fmt.Errorf("%w: worst error %.4f after %d passes", ErrNoConvergence, t.worstErr, t.passes)
		}
	}
}

func (t *nnetInstance) randomizeWeights() {
	r := t.env.Rand
	for i := range t.midWts {
		v := float64(r.NextPositiveBounded(100000))/100000.0 - 0.5
		t.midWts[i] = v / 2
	}
	for i := range t.outWts {
		v := float64(r.NextPositiveBounded(100000))/10000.0 - 0.5
		t.outWts[i] = v / 2
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func (t *nnetInstance) forward(p int) {
	in := &t.net.in[p]
	for n := 0; n < nnetMid; n++ {
		w := t.midWts[n*nnetIn : (n+1)*nnetIn]
		var sum float64
		for i, x := range in {
			sum += w[i] * x
		}
		t.midOut[n] = sigmoid(sum)
	}
	for n := 0; n < nnetOut; n++ {
		w := t.outWts[n*nnetMid : (n+1)*nnetMid]
		var sum float64
		for i, x := range t.midOut {
			sum += w[i] * x
		}
		t.outOut[n] = sigmoid(sum)
	}
}

func (t *nnetInstance) backward(p int) {
	t.outputError(p)
	t.middleError()
	t.adjustOutputWeights()
	t.adjustMiddleWeights(p)
}

// outputError records the error of each output and the worst and average
// absolute error of pattern p.
func (t *nnetInstance) outputError(p int) {
	var worst, sum float64
	for n := 0; n < nnetOut; n++ {
		e := t.net.out[p][n] - t.outOut[n]
		t.outErr[n] = e
		a := math.Abs(e)
		sum += a
		worst = max(worst, a)
	}
	t.avgErr[p] = sum / nnetOut
	t.totErr[p] = worst
}

func (t *nnetInstance) middleError() {
	for n := 0; n < nnetMid; n++ {
		var sum float64
		for i := 0; i < nnetOut; i++ {
			sum += t.outWts[i*nnetMid+n] * t.outErr[i]
		}
		o := t.midOut[n]
		t.midErr[n] = o * (1 - o) * sum
	}
}

func (t *nnetInstance) adjustOutputWeights() {
	for n := 0; n < nnetOut; n++ {
		for w := 0; w < nnetMid; w++ {
			k := n*nnetMid + w
			delta := nnetBeta*t.outErr[n]*t.midOut[w] + nnetAlpha*t.outChange[k]
			t.outWts[k] += delta
			t.outCum[k] += delta
		}
	}
}

func (t *nnetInstance) adjustMiddleWeights(p int) {
	in := &t.net.in[p]
	for n := 0; n < nnetMid; n++ {
		for w := 0; w < nnetIn; w++ {
			k := n*nnetIn + w
			delta := nnetBeta*t.midErr[n]*in[w] + nnetAlpha*t.midChange[k]
			t.midWts[k] += delta
			t.midCum[k] += delta
		}
	}
}

// moveWeightChanges turns the changes accumulated since the last pattern
// into the momentum terms for the next one.
func (t *nnetInstance) moveWeightChanges() {
	copy(t.midChange, t.midCum)
	clear(t.midCum)
	copy(t.outChange, t.outCum)
	clear(t.outCum)
}

// checkError reports whether every pattern's worst output error is below
// the stop threshold.
func (t *nnetInstance) checkError() (bool, error) {
	t.worstErr, t.avgPass = 0, 0
	for i, e := range t.totErr {
		t.worstErr = max(t.worstErr, e)
		t.avgPass += t.avgErr[i]
		if e >= nnetDiverged {
			return false, fmt.Errorf("%w: pattern %d error %.2f", ErrNoConvergence, i, e)
		}
	}
	t.avgPass /= float64(len(t.totErr))
	return t.worstErr < nnetStop, nil
}
