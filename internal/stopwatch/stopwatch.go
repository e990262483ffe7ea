// Package stopwatch measures wall-clock and CPU time over one or more
// start/stop brackets.
package stopwatch

import (
	"time"
)

// MinimumIterationSeconds caps the minimum duration a single timed iteration
// must reach during calibration.
const MinimumIterationSeconds = 0.1

// Clock supplies the two readings a Stopwatch brackets.
type Clock interface {
	// Real returns monotonic time elapsed since an arbitrary fixed origin.
	Real() time.Duration
	// CPU returns CPU time consumed so far by the calling OS thread, or by the
	// whole process when no per-thread clock is available.
	CPU() time.Duration
}

// Stopwatch accumulates CPU and real time across start/stop brackets.
// It is owned by a single worker and is not safe for concurrent use.
type Stopwatch struct {
	clock Clock

	cpu  time.Duration
	wall time.Duration

	startCPU  time.Duration
	startReal time.Duration
	running   bool
}

// New returns a stopwatch reading the system clocks.
func New() *Stopwatch {
	return NewWithClock(System())
}

// NewWithClock returns a stopwatch reading c.
func NewWithClock(c Clock) *Stopwatch {
	return &Stopwatch{clock: c}
}

// Reset zeroes the accumulated times.
func (s *Stopwatch) Reset() {
	s.cpu = 0
	s.wall = 0
	s.running = false
}

// Start captures the interval start stamps.
func (s *Stopwatch) Start() {
	s.startReal = s.clock.Real()
	s.startCPU = s.clock.CPU()
	s.running = true
}

// Stop adds the time since the matching Start to the accumulators.
// Calling Stop without a Start is a no-op.
func (s *Stopwatch) Stop() {
	if !s.running {
		return
	}
	wallNow := s.clock.Real()
	cpuNow := s.clock.CPU()
	s.wall += wallNow - s.startReal
	if d := cpuNow - s.startCPU; d > 0 {
		s.cpu += d
	}
	s.running = false
}

// CPUSeconds returns the accumulated CPU time in seconds.
func (s *Stopwatch) CPUSeconds() float64 {
	return s.cpu.Seconds()
}

// RealSeconds returns the accumulated wall-clock time in seconds.
func (s *Stopwatch) RealSeconds() float64 {
	return s.wall.Seconds()
}

// Elapsed returns the accumulated CPU and real durations.
func (s *Stopwatch) Elapsed() (cpu, wall time.Duration) {
	return s.cpu, s.wall
}

// MinIterationSeconds derives the calibration threshold from the monotonic
// clock resolution: one hundred ticks, capped at MinimumIterationSeconds.
func MinIterationSeconds() float64 {
	return minIterationSeconds(Resolution())
}

func minIterationSeconds(res time.Duration) float64 {
	if res <= 0 {
		return MinimumIterationSeconds
	}
	return min(res.Seconds()*100, MinimumIterationSeconds)
}

type systemClock struct {
	origin time.Time
}

// System returns the platform clock: monotonic wall time and per-thread CPU
// time. Callers must lock the goroutine to its OS thread for the CPU reading
// to be meaningful.
func System() Clock {
	return &systemClock{origin: time.Now()}
}

func (c *systemClock) Real() time.Duration {
	return time.Since(c.origin)
}

func (c *systemClock) CPU() time.Duration {
	if d, ok := threadCPU(); ok {
		return d
	}
	if d, ok := processCPU(); ok {
		return d
	}
	return time.Since(c.origin)
}

// ThreadCPUAvailable reports whether CPU readings are per thread on this
// platform, as opposed to the process-wide fallback.
func ThreadCPUAvailable() bool {
	_, ok := threadCPU()
	return ok
}
