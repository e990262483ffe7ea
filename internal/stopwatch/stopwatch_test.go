package stopwatch

import (
	"math"
	"runtime"
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	wall time.Duration
	cpu  time.Duration
}

func (f *fakeClock) Real() time.Duration { return f.wall }
func (f *fakeClock) CPU() time.Duration  { return f.cpu }

func (f *fakeClock) advance(wall, cpu time.Duration) {
	f.wall += wall
	f.cpu += cpu
}

func TestStopwatch_AccumulatesBrackets(t *testing.T) {
	clock := &fakeClock{}
	sw := NewWithClock(clock)
	sw.Reset()

	brackets := []struct {
		wall time.Duration
		cpu  time.Duration
	}{
		{100 * time.Millisecond, 90 * time.Millisecond},
		{250 * time.Millisecond, 200 * time.Millisecond},
		{50 * time.Millisecond, 50 * time.Millisecond},
	}

	for _, b := range brackets {
		sw.Start()
		clock.advance(b.wall, b.cpu)
		sw.Stop()
		// time between brackets is not counted
		clock.advance(time.Second, time.Second)
	}

	if got, want := sw.RealSeconds(), 0.4; math.Abs(got-want) > 1e-9 {
		t.Errorf("RealSeconds() = %v, want %v", got, want)
	}
	if got, want := sw.CPUSeconds(), 0.34; math.Abs(got-want) > 1e-9 {
		t.Errorf("CPUSeconds() = %v, want %v", got, want)
	}
}

func TestStopwatch_Reset(t *testing.T) {
	clock := &fakeClock{}
	sw := NewWithClock(clock)

	sw.Start()
	clock.advance(time.Second, time.Second)
	sw.Stop()
	sw.Reset()

	if sw.RealSeconds() != 0 || sw.CPUSeconds() != 0 {
		t.Errorf("after Reset got real=%v cpu=%v, want zeros", sw.RealSeconds(), sw.CPUSeconds())
	}
}

func TestStopwatch_StopWithoutStart(t *testing.T) {
	clock := &fakeClock{}
	sw := NewWithClock(clock)

	clock.advance(time.Second, time.Second)
	sw.Stop()

	if sw.RealSeconds() != 0 {
		t.Errorf("RealSeconds() = %v, want 0", sw.RealSeconds())
	}
}

func TestMinIterationSeconds(t *testing.T) {
	tests := []struct {
		name string
		res  time.Duration
		want float64
	}{
		{name: "nanosecond clock", res: time.Nanosecond, want: 100e-9},
		{name: "microsecond clock", res: time.Microsecond, want: 100e-6},
		{name: "coarse clock is capped", res: 10 * time.Millisecond, want: MinimumIterationSeconds},
		{name: "unknown resolution", res: 0, want: MinimumIterationSeconds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := minIterationSeconds(tt.res); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("minIterationSeconds(%v) = %v, want %v", tt.res, got, tt.want)
			}
		})
	}
}

func TestSystemClock_Monotonic(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	sw := New()
	sw.Start()
	deadline := time.Now().Add(20 * time.Millisecond)
	x := 0
	for time.Now().Before(deadline) {
		x++
	}
	sw.Stop()

	if sw.RealSeconds() < 0.02 {
		t.Errorf("RealSeconds() = %v, want >= 0.02", sw.RealSeconds())
	}
	if sw.CPUSeconds() < 0 {
		t.Errorf("CPUSeconds() = %v, want non-negative", sw.CPUSeconds())
	}
	_ = x
}
