package suite

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/utkarsh5026/nbench/internal/config"
	"github.com/utkarsh5026/nbench/internal/harness"
	"github.com/utkarsh5026/nbench/internal/kernels"
	"github.com/utkarsh5026/nbench/internal/stopwatch"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *manualClock) Real() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) CPU() time.Duration { return c.Real() }

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// stepWorkload takes size*unit of clock time per iteration.
type stepWorkload struct {
	name   string
	unit   time.Duration
	clock  *manualClock
	runErr error

	mu     sync.Mutex
	setups []harness.Sizes
}

func (w *stepWorkload) Name() string { return w.name }

func (w *stepWorkload) Calibration() harness.Calibration {
	return harness.Calibration{Param: harness.ParamNumArrays, Start: 1, Max: 100, Grow: harness.Step(1)}
}

func (w *stepWorkload) Setup(sizes harness.Sizes, _ harness.Env) (harness.Instance, error) {
	w.mu.Lock()
	w.setups = append(w.setups, sizes)
	w.mu.Unlock()
	return &stepInstance{w: w, size: sizes.NumArrays}, nil
}

type stepInstance struct {
	w    *stepWorkload
	size int
}

func (i *stepInstance) Prepare() {}

func (i *stepInstance) Run() error {
	if i.w.runErr != nil {
		return i.w.runErr
	}
	i.w.clock.advance(time.Duration(i.size) * i.w.unit)
	return nil
}

func (i *stepInstance) Units() float64 { return 1 }

func (i *stepInstance) Teardown() {}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.MinSeconds = 0.05
	cfg.MinIterationSeconds = 0.01
	return cfg
}

func newSuite(t *testing.T, cfg *config.Config, ws ...*stepWorkload) *Suite {
	t.Helper()
	clock := &manualClock{}
	var workloads []harness.Workload
	for _, w := range ws {
		w.clock = clock
		workloads = append(workloads, w)
	}
	s, err := New(cfg,
		WithWorkloads(workloads...),
		WithHarnessOptions(harness.WithClock(func() stopwatch.Clock { return clock })))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSuite_Run(t *testing.T) {
	cfg := testConfig()
	cfg.Repeat = 2
	w := &stepWorkload{name: kernels.NumSort, unit: 4 * time.Millisecond}
	s := newSuite(t, cfg, w)

	outcomes, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}
	o := outcomes[0]

	// 3 arrays take 12ms, the first size above 10ms.
	if o.Sizes.NumArrays != 3 {
		t.Errorf("calibrated NumArrays = %d, want 3", o.Sizes.NumArrays)
	}
	if o.Title != "NUMERIC SORT" {
		t.Errorf("Title = %q", o.Title)
	}
	// Each repeat needs five 12ms iterations to pass 50ms.
	if o.Result.Iterations != 10 {
		t.Errorf("Iterations = %v, want 10", o.Result.Iterations)
	}
	if math.Abs(o.Result.RealSeconds-0.12) > 1e-9 {
		t.Errorf("RealSeconds = %v, want 0.12", o.Result.RealSeconds)
	}
	if len(o.Runs) != 2 {
		t.Fatalf("Runs = %v, want 2 entries", o.Runs)
	}
	for _, r := range append(o.Runs, o.RealRate, o.CPURate) {
		if math.Abs(r-1/0.012) > 1e-6 {
			t.Errorf("rate %v, want %v", r, 1/0.012)
		}
	}
	wantIndex := o.RealRate / 38.993
	if math.Abs(o.ByteMark-wantIndex) > 1e-9 {
		t.Errorf("ByteMark = %v, want %v", o.ByteMark, wantIndex)
	}
}

func TestSuite_CustomRun(t *testing.T) {
	cfg := testConfig()
	cfg.CustomRun = true
	cfg.Sizes = map[string]harness.Sizes{kernels.NumSort: {NumArrays: 7}}
	fixed := &stepWorkload{name: kernels.NumSort, unit: time.Millisecond}
	calibrated := &stepWorkload{name: kernels.LU, unit: 4 * time.Millisecond}
	s := newSuite(t, cfg, fixed, calibrated)

	outcomes, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Sizes.NumArrays != 7 {
		t.Errorf("custom sizes = %+v, want NumArrays 7", outcomes[0].Sizes)
	}
	for _, sz := range fixed.setups {
		if sz.NumArrays != 7 {
			t.Errorf("custom run set up size %d; calibration should be skipped", sz.NumArrays)
		}
	}
	if outcomes[1].Sizes.NumArrays != 3 {
		t.Errorf("kernel without custom sizes calibrated to %d, want 3", outcomes[1].Sizes.NumArrays)
	}
}

func TestSuite_DisabledTests(t *testing.T) {
	cfg := testConfig()
	cfg.Tests = map[string]bool{kernels.StrSort: false}
	s := newSuite(t, cfg,
		&stepWorkload{name: kernels.NumSort, unit: 4 * time.Millisecond},
		&stepWorkload{name: kernels.StrSort, unit: 4 * time.Millisecond})

	enabled := s.Enabled()
	if len(enabled) != 1 || enabled[0].Name() != kernels.NumSort {
		t.Fatalf("Enabled() = %v", enabled)
	}
	outcomes, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 1 {
		t.Errorf("got %d outcomes, want 1", len(outcomes))
	}
}

func TestSuite_Errors(t *testing.T) {
	errBoom := errors.New("boom")
	s := newSuite(t, testConfig(),
		&stepWorkload{name: kernels.Fourier, unit: 4 * time.Millisecond, runErr: errBoom})

	outcomes, err := s.Run(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if outcomes != nil {
		t.Errorf("outcomes = %v, want none", outcomes)
	}
	if harness.Code(err) != harness.CodeWorkload {
		t.Errorf("Code() = %d, want %d", harness.Code(err), harness.CodeWorkload)
	}
	if !strings.HasPrefix(err.Error(), "CPU:Fourier: error code") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency = 0
	if _, err := New(cfg); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("New() error = %v, want ErrInvalid", err)
	}
}

func TestNew_BuiltinKernels(t *testing.T) {
	s, err := New(config.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var names []string
	for _, w := range s.Enabled() {
		names = append(names, w.Name())
	}
	if strings.Join(names, ",") != strings.Join(kernels.Names(), ",") {
		t.Errorf("enabled = %v", names)
	}
}
