package harness

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utkarsh5026/nbench/internal/stopwatch"
)

// manualClock only moves when advanced.
type manualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *manualClock) Real() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) CPU() time.Duration {
	return c.Real()
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// fakeWorkload builds instances whose Run advances a clock by size*unit.
type fakeWorkload struct {
	cal  Calibration
	unit time.Duration
	// clock is advanced by Run when set; runner tests use tickingClock instead
	clock *manualClock

	setups    atomic.Int32
	teardowns atomic.Int32
	runs      atomic.Int32

	failSetupAt int32
	runErr      error
	panicInRun  bool
	sleep       time.Duration
}

func (f *fakeWorkload) Name() string { return "fake" }

func (f *fakeWorkload) Calibration() Calibration { return f.cal }

func (f *fakeWorkload) Setup(sizes Sizes, env Env) (Instance, error) {
	n := f.setups.Add(1)
	if f.failSetupAt > 0 && n == f.failSetupAt {
		return nil, errSetup
	}
	env.Rand.Reseed(13)
	return &fakeInstance{w: f, size: sizes.Get(f.cal.Param)}, nil
}

func (f *fakeWorkload) clockFactory() stopwatch.Clock {
	return f.clock
}

var errSetup = errors.New("setup failed")

type fakeInstance struct {
	w        *fakeWorkload
	size     int
	prepared int
	torn     bool
}

func (i *fakeInstance) Prepare() { i.prepared++ }

func (i *fakeInstance) Run() error {
	i.w.runs.Add(1)
	if i.w.panicInRun {
		panic("kernel exploded")
	}
	if i.w.runErr != nil {
		return i.w.runErr
	}
	if i.w.sleep > 0 {
		time.Sleep(i.w.sleep)
	}
	if i.w.clock != nil {
		i.w.clock.advance(time.Duration(i.size) * i.w.unit)
	}
	return nil
}

func (i *fakeInstance) Units() float64 { return 1 }

func (i *fakeInstance) Teardown() {
	if !i.torn {
		i.torn = true
		i.w.teardowns.Add(1)
	}
}

// tickingClock advances by step on every Real read, so each Start/Stop
// bracket measures exactly one step.
type tickingClock struct {
	step time.Duration
	wall time.Duration
	cpu  time.Duration
}

func (c *tickingClock) Real() time.Duration {
	c.wall += c.step
	return c.wall
}

func (c *tickingClock) CPU() time.Duration {
	c.cpu += c.step / 2
	return c.cpu
}
