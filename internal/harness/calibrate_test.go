package harness

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/utkarsh5026/nbench/internal/memory"
)

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name     string
		cal      Calibration
		unit     time.Duration
		wantSize int
	}{
		{
			name:     "step growth",
			cal:      Calibration{Param: ParamNumArrays, Start: 1, Max: 100, Grow: Step(1)},
			unit:     15 * time.Millisecond,
			wantSize: 7,
		},
		{
			name:     "doubling growth",
			cal:      Calibration{Param: ParamLoops, Start: 1, Max: 500000, Grow: Double()},
			unit:     15 * time.Millisecond,
			wantSize: 8,
		},
		{
			name:     "equal to threshold is not enough",
			cal:      Calibration{Param: ParamArraySize, Start: 1, Max: 100, Grow: Step(1)},
			unit:     20 * time.Millisecond,
			wantSize: 6,
		},
		{
			name:     "first size already long enough",
			cal:      Calibration{Param: ParamArraySize, Start: 100, Max: 1000, Grow: Step(50)},
			unit:     time.Millisecond,
			wantSize: 150,
		},
		{
			name:     "non-growing policy still progresses",
			cal:      Calibration{Param: ParamLoops, Start: 3, Max: 100, Grow: func(n int) int { return n }},
			unit:     25 * time.Millisecond,
			wantSize: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWorkload{cal: tt.cal, unit: tt.unit, clock: &manualClock{}}
			c := NewCalibrator(WithClock(w.clockFactory), WithMinIterationSeconds(0.1))
			ctl := NewTestControl("CPU:Fake", 1, Sizes{ArraySize: 42})
			if tt.cal.Param == ParamArraySize {
				ctl.Sizes = Sizes{}
			}

			if err := c.Calibrate(context.Background(), ctl, w); err != nil {
				t.Fatalf("Calibrate() error = %v", err)
			}
			if !ctl.Adjusted {
				t.Error("control block not marked adjusted")
			}
			if got := ctl.Sizes.Get(tt.cal.Param); got != tt.wantSize {
				t.Errorf("calibrated %s = %d, want %d", tt.cal.Param, got, tt.wantSize)
			}
			if tt.cal.Param != ParamArraySize && ctl.Sizes.ArraySize != 42 {
				t.Errorf("unrelated size changed: %+v", ctl.Sizes)
			}
			if s, d := w.setups.Load(), w.teardowns.Load(); s != d {
				t.Errorf("setups = %d, teardowns = %d", s, d)
			}
		})
	}
}

func TestCalibrate_SizesIncreaseStrictly(t *testing.T) {
	var sizes []int
	w := &fakeWorkload{
		cal:   Calibration{Param: ParamLoops, Start: 1, Max: 1 << 20, Grow: Double()},
		unit:  time.Microsecond,
		clock: &manualClock{},
	}
	c := NewCalibrator(
		WithClock(w.clockFactory),
		WithMinIterationSeconds(0.1),
		WithProgress(func(ev Event) { sizes = append(sizes, ev.Size) }),
	)
	ctl := NewTestControl("CPU:Fake", 1, Sizes{})

	if err := c.Calibrate(context.Background(), ctl, w); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if len(sizes) < 2 {
		t.Fatalf("expected several attempts, got %v", sizes)
	}
	for i := 1; i < len(sizes); i++ {
		if sizes[i] <= sizes[i-1] {
			t.Errorf("attempt %d size %d does not exceed %d", i, sizes[i], sizes[i-1])
		}
	}
	if last := sizes[len(sizes)-1]; last != ctl.Sizes.Loops {
		t.Errorf("last attempted size %d, calibrated %d", last, ctl.Sizes.Loops)
	}
}

func TestCalibrate_AlreadyAdjusted(t *testing.T) {
	w := &fakeWorkload{
		cal:   Calibration{Param: ParamNumArrays, Start: 1, Max: 10, Grow: Step(1)},
		unit:  time.Second,
		clock: &manualClock{},
	}
	c := NewCalibrator(WithClock(w.clockFactory))
	ctl := NewTestControl("CPU:Fake", 1, Sizes{NumArrays: 9})
	ctl.Adjusted = true

	if err := c.Calibrate(context.Background(), ctl, w); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if w.setups.Load() != 0 {
		t.Errorf("adjusted control block was recalibrated")
	}
	if ctl.Sizes.NumArrays != 9 {
		t.Errorf("NumArrays = %d, want 9", ctl.Sizes.NumArrays)
	}
}

func TestCalibrate_Ceiling(t *testing.T) {
	w := &fakeWorkload{
		cal:   Calibration{Param: ParamNumArrays, Start: 1, Max: 5, Grow: Step(1)},
		unit:  time.Millisecond,
		clock: &manualClock{},
	}
	c := NewCalibrator(WithClock(w.clockFactory), WithMinIterationSeconds(0.1))
	ctl := NewTestControl("CPU:Fake", 1, Sizes{})

	err := c.Calibrate(context.Background(), ctl, w)
	if !errors.Is(err, ErrCeiling) {
		t.Fatalf("Calibrate() error = %v, want ErrCeiling", err)
	}
	if Code(err) != CodeCeiling {
		t.Errorf("Code() = %d, want %d", Code(err), CodeCeiling)
	}
	if ctl.Adjusted {
		t.Error("control block marked adjusted after ceiling")
	}
	if w.setups.Load() != 5 || w.teardowns.Load() != 5 {
		t.Errorf("setups = %d, teardowns = %d, want 5 each", w.setups.Load(), w.teardowns.Load())
	}
}

func TestCalibrate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		workload *fakeWorkload
		wantCode int
		wantErr  error
	}{
		{
			name: "setup error",
			workload: &fakeWorkload{
				cal:         Calibration{Param: ParamNumArrays, Start: 1, Max: 5, Grow: Step(1)},
				failSetupAt: 2,
			},
			wantCode: CodeWorkload,
			wantErr:  errSetup,
		},
		{
			name: "run error",
			workload: &fakeWorkload{
				cal:    Calibration{Param: ParamNumArrays, Start: 1, Max: 5, Grow: Step(1)},
				runErr: fmt.Errorf("alloc: %w", memory.ErrOutOfMemory),
			},
			wantCode: CodeMemory,
			wantErr:  memory.ErrOutOfMemory,
		},
		{
			name: "panic",
			workload: &fakeWorkload{
				cal:        Calibration{Param: ParamNumArrays, Start: 1, Max: 5, Grow: Step(1)},
				panicInRun: true,
			},
			wantCode: CodePanic,
			wantErr:  ErrPanic,
		},
		{
			name: "invalid calibration",
			workload: &fakeWorkload{
				cal: Calibration{Param: ParamNumArrays, Start: 0, Max: 5, Grow: Step(1)},
			},
			wantCode: CodeWorkload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.workload.clock = &manualClock{}
			tt.workload.unit = time.Millisecond
			c := NewCalibrator(WithClock(tt.workload.clockFactory), WithMinIterationSeconds(0.1))
			ctl := NewTestControl("CPU:Fake", 1, Sizes{})

			err := c.Calibrate(context.Background(), ctl, tt.workload)
			if err == nil {
				t.Fatal("Calibrate() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Calibrate() error = %v, want %v", err, tt.wantErr)
			}
			if Code(err) != tt.wantCode {
				t.Errorf("Code() = %d, want %d", Code(err), tt.wantCode)
			}
			if s, d := tt.workload.setups.Load(), tt.workload.teardowns.Load(); tt.wantErr != errSetup && s != d {
				t.Errorf("setups = %d, teardowns = %d", s, d)
			}
		})
	}
}

func TestCalibrate_Canceled(t *testing.T) {
	w := &fakeWorkload{
		cal:   Calibration{Param: ParamNumArrays, Start: 1, Max: 5, Grow: Step(1)},
		unit:  time.Millisecond,
		clock: &manualClock{},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCalibrator(WithClock(w.clockFactory)).Calibrate(ctx, NewTestControl("CPU:Fake", 1, Sizes{}), w)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Calibrate() error = %v, want context.Canceled", err)
	}
	if Code(err) != CodeCanceled {
		t.Errorf("Code() = %d, want %d", Code(err), CodeCanceled)
	}
}
