package harness

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/utkarsh5026/nbench/internal/stopwatch"
)

func tickingClocks(step time.Duration) Option {
	return WithClock(func() stopwatch.Clock { return &tickingClock{step: step} })
}

func calibrated(concurrency int, requestSecs float64) *TestControl {
	ctl := NewTestControl("CPU:Fake", requestSecs, Sizes{NumArrays: 1})
	ctl.Adjusted = true
	ctl.Concurrency = concurrency
	return ctl
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name         string
		concurrency  int
		wantIters    float64
		wantCPU      float64
		wantReal     float64
		wantCPURate  float64
		wantRealRate float64
	}{
		{
			name:         "single worker",
			concurrency:  1,
			wantIters:    10,
			wantCPU:      0.05,
			wantReal:     0.1,
			wantCPURate:  200,
			wantRealRate: 100,
		},
		{
			name:         "four workers",
			concurrency:  4,
			wantIters:    40,
			wantCPU:      0.2,
			wantReal:     0.1,
			wantCPURate:  800,
			wantRealRate: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWorkload{cal: Calibration{Param: ParamNumArrays, Start: 1, Max: 10, Grow: Step(1)}}
			ctl := calibrated(tt.concurrency, 0.1)

			r := NewRunner(tickingClocks(10 * time.Millisecond))
			if err := r.Run(context.Background(), ctl, w); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if ctl.Result.Iterations != tt.wantIters {
				t.Errorf("Iterations = %v, want %v", ctl.Result.Iterations, tt.wantIters)
			}
			if math.Abs(ctl.Result.CPUSeconds-tt.wantCPU) > 1e-9 {
				t.Errorf("CPUSeconds = %v, want %v", ctl.Result.CPUSeconds, tt.wantCPU)
			}
			if math.Abs(ctl.Result.RealSeconds-tt.wantReal) > 1e-9 {
				t.Errorf("RealSeconds = %v, want %v", ctl.Result.RealSeconds, tt.wantReal)
			}
			if math.Abs(ctl.CPURate-tt.wantCPURate) > 1e-6 {
				t.Errorf("CPURate = %v, want %v", ctl.CPURate, tt.wantCPURate)
			}
			if math.Abs(ctl.RealRate-tt.wantRealRate) > 1e-6 {
				t.Errorf("RealRate = %v, want %v", ctl.RealRate, tt.wantRealRate)
			}
			if got := w.setups.Load(); got != int32(tt.concurrency) {
				t.Errorf("setups = %d, want one per worker (%d)", got, tt.concurrency)
			}
			if w.teardowns.Load() != w.setups.Load() {
				t.Errorf("teardowns = %d, setups = %d", w.teardowns.Load(), w.setups.Load())
			}
		})
	}
}

func TestRunner_AtLeastOneIteration(t *testing.T) {
	w := &fakeWorkload{cal: Calibration{Param: ParamNumArrays, Start: 1, Max: 10, Grow: Step(1)}}
	ctl := calibrated(1, 0)

	if err := NewRunner(tickingClocks(time.Millisecond)).Run(context.Background(), ctl, w); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ctl.Result.Iterations != 1 {
		t.Errorf("Iterations = %v, want 1", ctl.Result.Iterations)
	}
}

func TestRunner_Progress(t *testing.T) {
	var (
		mu     sync.Mutex
		events = map[int]int{}
		done   = map[int]bool{}
	)
	w := &fakeWorkload{cal: Calibration{Param: ParamNumArrays, Start: 1, Max: 10, Grow: Step(1)}}
	r := NewRunner(tickingClocks(10*time.Millisecond), WithProgress(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Phase != PhaseMeasure {
			t.Errorf("unexpected phase %s", ev.Phase)
		}
		events[ev.Worker]++
		if ev.Done {
			done[ev.Worker] = true
		}
	}))

	if err := r.Run(context.Background(), calibrated(3, 0.05), w); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for id := 0; id < 3; id++ {
		if events[id] != 5 {
			t.Errorf("worker %d reported %d events, want 5", id, events[id])
		}
		if !done[id] {
			t.Errorf("worker %d never reported done", id)
		}
	}
}

func TestRunner_Errors(t *testing.T) {
	tests := []struct {
		name     string
		ctl      *TestControl
		workload *fakeWorkload
		opts     []Option
		wantErr  error
		wantCode int
	}{
		{
			name:     "not calibrated",
			ctl:      NewTestControl("CPU:Fake", 0.1, Sizes{}),
			workload: &fakeWorkload{},
			wantErr:  ErrNotCalibrated,
			wantCode: CodeNotCalibrated,
		},
		{
			name:     "launch failure",
			ctl:      calibrated(4, 0.1),
			workload: &fakeWorkload{},
			opts:     []Option{WithMaxWorkers(2)},
			wantErr:  ErrLaunch,
			wantCode: CodeLaunch,
		},
		{
			name:     "one worker fails setup",
			ctl:      calibrated(4, 0.1),
			workload: &fakeWorkload{failSetupAt: 3},
			wantErr:  errSetup,
			wantCode: CodeWorkload,
		},
		{
			name:     "iteration error",
			ctl:      calibrated(2, 0.1),
			workload: &fakeWorkload{runErr: errors.New("bad state")},
			wantCode: CodeWorkload,
		},
		{
			name:     "panic",
			ctl:      calibrated(2, 0.1),
			workload: &fakeWorkload{panicInRun: true},
			wantErr:  ErrPanic,
			wantCode: CodePanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.workload.cal = Calibration{Param: ParamNumArrays, Start: 1, Max: 10, Grow: Step(1)}
			opts := append([]Option{tickingClocks(10 * time.Millisecond)}, tt.opts...)

			err := NewRunner(opts...).Run(context.Background(), tt.ctl, tt.workload)
			if err == nil {
				t.Fatal("Run() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if Code(err) != tt.wantCode {
				t.Errorf("Code() = %d, want %d", Code(err), tt.wantCode)
			}
			if tt.ctl.Result != (TestResult{}) {
				t.Errorf("failed run wrote result %+v", tt.ctl.Result)
			}
		})
	}
}

func TestRunner_Watchdog(t *testing.T) {
	var fired atomic.Bool
	w := &fakeWorkload{
		cal:   Calibration{Param: ParamNumArrays, Start: 1, Max: 10, Grow: Step(1)},
		sleep: 50 * time.Millisecond,
	}
	r := NewRunner(
		tickingClocks(10*time.Millisecond),
		WithWatchdog(5*time.Millisecond, func(error) { fired.Store(true) }),
	)

	err := r.Run(context.Background(), calibrated(1, 0.01), w)
	if !errors.Is(err, ErrWatchdog) {
		t.Fatalf("Run() error = %v, want ErrWatchdog", err)
	}
	if Code(err) != CodeWatchdog {
		t.Errorf("Code() = %d, want %d", Code(err), CodeWatchdog)
	}
	if !fired.Load() {
		t.Error("watchdog callback not invoked")
	}
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &fakeWorkload{cal: Calibration{Param: ParamNumArrays, Start: 1, Max: 10, Grow: Step(1)}}
	err := NewRunner(tickingClocks(time.Millisecond)).Run(ctx, calibrated(2, 0.1), w)
	if Code(err) != CodeCanceled {
		t.Errorf("Code() = %d, want %d (err %v)", Code(err), CodeCanceled, err)
	}
}

// spinWorkload burns CPU for a fixed number of multiply-adds per iteration.
type spinWorkload struct{}

func (spinWorkload) Name() string { return "spin" }

func (spinWorkload) Calibration() Calibration {
	return Calibration{Param: ParamLoops, Start: 1, Max: 1 << 30, Grow: Double()}
}

func (spinWorkload) Setup(sizes Sizes, env Env) (Instance, error) {
	return &spinInstance{loops: sizes.Loops}, nil
}

type spinInstance struct {
	loops int
	sink  float64
}

func (s *spinInstance) Prepare() {}

func (s *spinInstance) Run() error {
	x := 1.0
	for i := 0; i < s.loops; i++ {
		x = x*1.0000001 + 1e-9
	}
	s.sink = x
	return nil
}

func (s *spinInstance) Units() float64 { return 1 }
func (s *spinInstance) Teardown()      {}

func TestRunner_ConcurrencyScales(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	if runtime.NumCPU() < 4 {
		t.Skip("needs at least 4 CPUs")
	}

	ctx := context.Background()
	ctl := NewTestControl("CPU:Spin", 0.5, Sizes{})
	if err := NewCalibrator(WithMinIterationSeconds(0.01)).Calibrate(ctx, ctl, spinWorkload{}); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}

	rate := func(n int) float64 {
		c := *ctl
		c.Concurrency = n
		if err := NewRunner().Run(ctx, &c, spinWorkload{}); err != nil {
			t.Fatalf("Run(%d) error = %v", n, err)
		}
		return c.RealRate
	}

	one := rate(1)
	four := rate(4)
	if ratio := four / one; ratio < 2.5 || ratio > 5.5 {
		t.Errorf("4-worker rate / 1-worker rate = %.2f, want within [2.5, 5.5]", ratio)
	}
}
