package harness

import (
	"log/slog"
	"time"

	"github.com/utkarsh5026/nbench/internal/memory"
	"github.com/utkarsh5026/nbench/internal/stopwatch"
)

// Option is a functional option for configuring a Calibrator or Runner.
type Option func(*config)

type config struct {
	minIterSecs float64
	pinWorkers  bool
	maxWorkers  int
	logger      *slog.Logger
	alloc       *memory.Allocator
	progress    ProgressFunc
	clock       func() stopwatch.Clock
	watchdog    time.Duration
	onWatchdog  func(error)
}

func newConfig(opts []Option) config {
	cfg := config{
		minIterSecs: stopwatch.MinIterationSeconds(),
		logger:      slog.Default(),
		clock:       stopwatch.System,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.alloc == nil {
		cfg.alloc, _ = memory.New()
	}
	return cfg
}

// WithMinIterationSeconds sets the duration a single calibration iteration
// must exceed. If not specified, it is derived from the clock resolution.
func WithMinIterationSeconds(secs float64) Option {
	return func(cfg *config) {
		if secs > 0 {
			cfg.minIterSecs = secs
		}
	}
}

// WithWorkerPinning pins worker i to core i mod NumCPU instead of merely
// locking it to an OS thread.
func WithWorkerPinning(enabled bool) Option {
	return func(cfg *config) {
		cfg.pinWorkers = enabled
	}
}

// WithMaxWorkers caps how many workers a Runner may start. A control block
// asking for more concurrency fails with ErrLaunch rather than running with
// fewer workers. Zero means no cap.
func WithMaxWorkers(n int) Option {
	return func(cfg *config) {
		if n >= 0 {
			cfg.maxWorkers = n
		}
	}
}

// WithLogger sets the logger for calibration and worker diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithAllocator sets the allocator handed to workloads. If not specified, a
// naturally aligned allocator without a limit is used.
func WithAllocator(a *memory.Allocator) Option {
	return func(cfg *config) {
		cfg.alloc = a
	}
}

// WithProgress registers a callback receiving calibration and measurement
// events. It is called from worker goroutines and must be safe for
// concurrent use.
func WithProgress(fn ProgressFunc) Option {
	return func(cfg *config) {
		cfg.progress = fn
	}
}

// WithClock replaces the clock every stopwatch reads. The factory is called
// once per worker.
func WithClock(factory func() stopwatch.Clock) Option {
	return func(cfg *config) {
		if factory != nil {
			cfg.clock = factory
		}
	}
}

// WithWatchdog reports a test that runs longer than d. A running kernel
// iteration cannot be interrupted, so onExpire is the only way out of a hung
// test; it receives an *Error with code CodeWatchdog. The run itself still
// fails with that error if it eventually returns.
//
// Example:
//
//	WithWatchdog(10*time.Minute, func(err error) { log.Fatal(err) })
func WithWatchdog(d time.Duration, onExpire func(error)) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.watchdog = d
			cfg.onWatchdog = onExpire
		}
	}
}
