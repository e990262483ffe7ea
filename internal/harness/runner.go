package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/nbench/internal/cpu"
	"github.com/utkarsh5026/nbench/internal/rng"
	"github.com/utkarsh5026/nbench/internal/stopwatch"
)

// Runner executes a calibrated workload on Concurrency workers and merges
// their results into the control block.
type Runner struct {
	cfg config
}

// NewRunner creates a runner with the given options.
func NewRunner(opts ...Option) *Runner {
	return &Runner{cfg: newConfig(opts)}
}

// Run measures w with the sizes and concurrency of ctl.
//
// Concurrency-1 workers are launched on their own goroutines and the calling
// goroutine runs worker 0 itself, so exactly Concurrency workers exist. Each
// one builds a private instance, iterates until its own stopwatch has
// accumulated RequestSecs of real time, and returns a private TestResult.
// Results are merged in whatever order workers finish, then CPURate and
// RealRate are computed.
//
// Any worker error aborts the whole run: remaining workers are cancelled at
// their next iteration boundary and no result is written to ctl.
func (r *Runner) Run(ctx context.Context, ctl *TestControl, w Workload) error {
	if !ctl.Adjusted {
		return wrap(ctl.Context, ErrNotCalibrated)
	}

	params := ctl.Params()
	wd := r.cfg.startWatchdog(ctl.Context, "measurement")

	agg, err := r.run(ctx, params, w)
	if wdErr := wd.stop(); wdErr != nil {
		return wdErr
	}
	if err != nil {
		return wrap(ctl.Context, err)
	}

	ctl.Result = agg
	ctl.ComputeRates()
	r.cfg.logger.Debug("run complete",
		slog.String("test", ctl.Context),
		slog.Int("workers", params.Concurrency),
		slog.Float64("iterations", agg.Iterations),
		slog.Float64("cpu_seconds", agg.CPUSeconds),
		slog.Float64("real_seconds", agg.RealSeconds))
	return nil
}

func (r *Runner) run(ctx context.Context, params Params, w Workload) (TestResult, error) {
	n := params.Concurrency
	if r.cfg.maxWorkers > 0 && n > r.cfg.maxWorkers {
		return TestResult{}, fmt.Errorf("%w: %d workers requested, at most %d allowed",
			ErrLaunch, n, r.cfg.maxWorkers)
	}

	if n == 1 {
		return r.worker(ctx, 0, params, w)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n - 1)

	results := make([]TestResult, n)
	for id := 1; id < n; id++ {
		launched := g.TryGo(func() error {
			res, err := r.worker(gctx, id, params, w)
			results[id] = res
			return err
		})
		if !launched {
			cancel()
			_ = g.Wait()
			return TestResult{}, fmt.Errorf("%w: worker %d of %d", ErrLaunch, id, n)
		}
	}

	res0, err0 := r.worker(gctx, 0, params, w)
	results[0] = res0
	if err0 != nil {
		cancel()
	}

	// A worker that failed first cancels the others, which then report
	// context.Canceled; surface the original cause.
	gErr := g.Wait()
	switch {
	case err0 != nil && !errors.Is(err0, context.Canceled):
		return TestResult{}, err0
	case gErr != nil:
		return TestResult{}, gErr
	case err0 != nil:
		return TestResult{}, err0
	}

	return MergeAll(results...), nil
}

// worker runs one measurement loop on a locked, optionally pinned, thread.
func (r *Runner) worker(ctx context.Context, id int, params Params, w Workload) (res TestResult, err error) {
	defer recoverPanic(&err)

	var release func()
	if r.cfg.pinWorkers {
		release = cpu.SetupWorkerAffinity(id)
	} else {
		release = cpu.LockThread()
	}
	defer release()

	env := Env{Rand: rng.New(), Alloc: r.cfg.alloc}
	inst, err := w.Setup(params.Sizes, env)
	if err != nil {
		return TestResult{}, err
	}
	defer inst.Teardown()

	sw := stopwatch.NewWithClock(r.cfg.clock())
	sw.Reset()

	for {
		if err := ctx.Err(); err != nil {
			return TestResult{}, err
		}

		inst.Prepare()
		sw.Start()
		err := inst.Run()
		sw.Stop()
		if err != nil {
			return TestResult{}, err
		}
		res.Iterations += inst.Units()

		done := sw.RealSeconds() >= params.RequestSecs
		r.cfg.emit(Event{
			Test:    params.Context,
			Phase:   PhaseMeasure,
			Worker:  id,
			Elapsed: sw.RealSeconds(),
			Target:  params.RequestSecs,
			Done:    done,
		})
		if done {
			break
		}
	}

	res.CPUSeconds = sw.CPUSeconds()
	res.RealSeconds = sw.RealSeconds()
	r.cfg.logger.Debug("worker finished",
		slog.String("test", params.Context),
		slog.Int("worker", id),
		slog.Int("core", cpu.PinnedCore()),
		slog.Float64("iterations", res.Iterations))
	return res, nil
}

// recoverPanic turns a panic in the deferring function into an ErrPanic
// error carrying the stack trace.
func recoverPanic(err *error) {
	if rec := recover(); rec != nil {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		*err = fmt.Errorf("%w: %v\nstack trace:\n%s", ErrPanic, rec, buf[:n])
	}
}
