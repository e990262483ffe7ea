// Package suite drives the benchmark table: it calibrates and measures each
// enabled kernel, repeats runs on request and computes the classic indexes.
package suite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utkarsh5026/nbench/internal/config"
	"github.com/utkarsh5026/nbench/internal/harness"
	"github.com/utkarsh5026/nbench/internal/kernels"
	"github.com/utkarsh5026/nbench/internal/memory"
)

// Outcome is the measured result of one test.
type Outcome struct {
	Kernel      string             `json:"kernel"`
	Title       string             `json:"title"`
	Sizes       harness.Sizes      `json:"sizes"`
	Concurrency int                `json:"concurrency"`
	Result      harness.TestResult `json:"result"`
	CPURate     float64            `json:"cpu_rate"`
	RealRate    float64            `json:"real_rate"`
	// Runs holds the real rate of every repeat.
	Runs []float64 `json:"runs"`
	// ByteMark and Linux are RealRate relative to the two reference
	// machines.
	ByteMark float64 `json:"bytemark_index"`
	Linux    float64 `json:"linux_index"`
}

// Option configures a Suite.
type Option func(*Suite)

// WithLogger sets the logger used for the suite and the harness.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Suite) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHarnessOptions appends options for the calibrator and runner, such
// as progress reporting or a clock.
func WithHarnessOptions(opts ...harness.Option) Option {
	return func(s *Suite) {
		s.harnessOpts = append(s.harnessOpts, opts...)
	}
}

// WithWatchdogHandler is called when a test outlives the configured
// watchdog.
func WithWatchdogHandler(fn func(error)) Option {
	return func(s *Suite) {
		s.onWatchdog = fn
	}
}

// WithWorkloads replaces the kernel set.
func WithWorkloads(ws ...harness.Workload) Option {
	return func(s *Suite) {
		s.workloads = ws
	}
}

// Suite runs the enabled tests of a configuration.
type Suite struct {
	cfg         *config.Config
	logger      *slog.Logger
	alloc       *memory.Allocator
	workloads   []harness.Workload
	harnessOpts []harness.Option
	onWatchdog  func(error)
	calibrator  *harness.Calibrator
	runner      *harness.Runner
}

// New builds a suite for cfg. Kernels come from the built-in set unless
// WithWorkloads is given.
func New(cfg *config.Config, opts ...Option) (*Suite, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Suite{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if s.workloads == nil {
		kopts, err := cfg.KernelOptions()
		if err != nil {
			return nil, err
		}
		all, err := kernels.All(kopts)
		if err != nil {
			return nil, &harness.Error{Context: "CPU:NNET", Code: harness.CodeWorkload, Err: err}
		}
		s.workloads = all
	}

	alloc, err := memory.New(memory.WithAlignment(cfg.Align))
	if err != nil {
		return nil, err
	}
	s.alloc = alloc

	hopts := []harness.Option{
		harness.WithLogger(s.logger),
		harness.WithAllocator(alloc),
		harness.WithWorkerPinning(cfg.PinWorkers),
		harness.WithMinIterationSeconds(cfg.MinIterationSeconds),
		harness.WithWatchdog(cfg.Watchdog, s.onWatchdog),
	}
	hopts = append(hopts, s.harnessOpts...)
	s.calibrator = harness.NewCalibrator(hopts...)
	s.runner = harness.NewRunner(hopts...)
	return s, nil
}

// Enabled returns the tests that will run, in suite order.
func (s *Suite) Enabled() []harness.Workload {
	var out []harness.Workload
	for _, w := range s.workloads {
		if s.cfg.Enabled(w.Name()) {
			out = append(out, w)
		}
	}
	return out
}

// MinIterationSeconds is the calibration threshold in effect.
func (s *Suite) MinIterationSeconds() float64 {
	return s.calibrator.MinIterationSeconds()
}

// Run calibrates and measures every enabled test. The first error stops the
// suite; no outcomes are returned with it.
func (s *Suite) Run(ctx context.Context) ([]Outcome, error) {
	var outcomes []Outcome
	for _, w := range s.Enabled() {
		o, err := s.RunTest(ctx, w)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// RunTest calibrates w unless a custom size is configured for it, then
// measures it Repeat times.
func (s *Suite) RunTest(ctx context.Context, w harness.Workload) (Outcome, error) {
	t, ok := LookupTest(w.Name())
	if !ok {
		t = Test{Kernel: w.Name(), Title: w.Name(), Context: "CPU:" + w.Name()}
	}

	ctl := harness.NewTestControl(t.Context, s.cfg.MinSeconds, harness.Sizes{})
	ctl.Concurrency = s.cfg.Concurrency
	if sizes, ok := s.cfg.Sizes[w.Name()]; s.cfg.CustomRun && ok {
		ctl.Sizes = sizes
		ctl.Adjusted = true
	}

	logger := s.logger.With(slog.String("test", t.Title))
	logger.Info("test start", slog.Bool("custom", ctl.Adjusted), slog.Int("workers", ctl.Concurrency))

	if err := s.calibrator.Calibrate(ctx, ctl, w); err != nil {
		return Outcome{}, err
	}

	var total harness.TestResult
	runs := make([]float64, 0, s.cfg.Repeat)
	for i := 0; i < s.cfg.Repeat; i++ {
		if err := s.runner.Run(ctx, ctl, w); err != nil {
			return Outcome{}, err
		}
		runs = append(runs, ctl.RealRate)
		// Repeats are sequential, so their spans add up.
		total.Iterations += ctl.Result.Iterations
		total.CPUSeconds += ctl.Result.CPUSeconds
		total.RealSeconds += ctl.Result.RealSeconds
	}
	ctl.Result = total
	ctl.ComputeRates()

	o := Outcome{
		Kernel:      t.Kernel,
		Title:       t.Title,
		Sizes:       ctl.Sizes,
		Concurrency: ctl.Concurrency,
		Result:      ctl.Result,
		CPURate:     ctl.CPURate,
		RealRate:    ctl.RealRate,
		Runs:        runs,
	}
	if t.ByteMark > 0 {
		o.ByteMark = t.Relative(o.RealRate, BaselineByteMark)
		o.Linux = t.Relative(o.RealRate, BaselineLinux)
	}
	logger.Info("test done",
		slog.Float64("rate", o.RealRate),
		slog.Float64("cpu_rate", o.CPURate),
		slog.String("sizes", fmt.Sprintf("%+v", o.Sizes)))
	return o, nil
}
