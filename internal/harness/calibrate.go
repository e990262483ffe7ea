package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utkarsh5026/nbench/internal/cpu"
	"github.com/utkarsh5026/nbench/internal/rng"
	"github.com/utkarsh5026/nbench/internal/stopwatch"
)

// Calibrator finds, once per control block, the smallest problem size whose
// single timed iteration exceeds the minimum iteration time.
type Calibrator struct {
	cfg config
}

// NewCalibrator creates a calibrator with the given options.
func NewCalibrator(opts ...Option) *Calibrator {
	return &Calibrator{cfg: newConfig(opts)}
}

// MinIterationSeconds returns the threshold a calibrated iteration exceeds.
func (c *Calibrator) MinIterationSeconds() float64 {
	return c.cfg.minIterSecs
}

// Calibrate grows the workload's size parameter until one iteration takes
// longer than the minimum iteration time, stores that size in ctl.Sizes and
// marks ctl adjusted. A control block that is already adjusted is left alone.
//
// Every attempt builds a fresh instance and tears it down before the next,
// so failed attempts never accumulate memory. Passing the workload's ceiling
// fails with ErrCeiling.
func (c *Calibrator) Calibrate(ctx context.Context, ctl *TestControl, w Workload) error {
	if ctl.Adjusted {
		return nil
	}

	cal := w.Calibration()
	if err := cal.validate(); err != nil {
		return wrap(ctl.Context, err)
	}

	wd := c.cfg.startWatchdog(ctl.Context, "calibration")
	err := c.calibrate(ctx, ctl, w, cal)
	if wdErr := wd.stop(); wdErr != nil {
		return wdErr
	}
	return wrap(ctl.Context, err)
}

func (c *Calibrator) calibrate(ctx context.Context, ctl *TestControl, w Workload, cal Calibration) error {
	unlock := cpu.LockThread()
	defer unlock()

	env := Env{Rand: rng.New(), Alloc: c.cfg.alloc}
	sw := stopwatch.NewWithClock(c.cfg.clock())
	threshold := c.cfg.minIterSecs

	for size := cal.Start; ; size = cal.next(size) {
		if size > cal.Max {
			return fmt.Errorf("%w: %s passed %d without an iteration exceeding %.6fs",
				ErrCeiling, cal.Param, cal.Max, threshold)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		sizes := ctl.Sizes
		sizes.Set(cal.Param, size)

		secs, err := timeOnce(w, sizes, env, sw)
		if err != nil {
			return err
		}

		done := secs > threshold
		c.cfg.logger.Debug("calibration attempt",
			slog.String("test", ctl.Context),
			slog.String("param", cal.Param.String()),
			slog.Int("size", size),
			slog.Float64("seconds", secs),
			slog.Bool("accepted", done))
		c.cfg.emit(Event{
			Test:    ctl.Context,
			Phase:   PhaseCalibrate,
			Size:    size,
			Elapsed: secs,
			Target:  threshold,
			Done:    done,
		})

		if done {
			ctl.Sizes = sizes
			ctl.Adjusted = true
			return nil
		}
	}
}

// timeOnce builds an instance, times exactly one iteration and releases it.
func timeOnce(w Workload, sizes Sizes, env Env, sw *stopwatch.Stopwatch) (secs float64, err error) {
	defer recoverPanic(&err)

	inst, err := w.Setup(sizes, env)
	if err != nil {
		return 0, err
	}
	defer inst.Teardown()

	inst.Prepare()
	sw.Reset()
	sw.Start()
	err = inst.Run()
	sw.Stop()
	if err != nil {
		return 0, err
	}
	return sw.RealSeconds(), nil
}
