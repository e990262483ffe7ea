package harness

import (
	"fmt"

	"github.com/utkarsh5026/nbench/internal/memory"
	"github.com/utkarsh5026/nbench/internal/rng"
)

// Workload is one benchmark kernel as seen by the harness. The harness never
// looks inside; it only sets up instances, times their iterations and counts
// the units they report.
type Workload interface {
	// Name identifies the kernel in logs and errors.
	Name() string

	// Calibration describes which size parameter grows during calibration,
	// from where, how fast and up to what ceiling.
	Calibration() Calibration

	// Setup builds a problem instance for sizes. It must reseed env.Rand to
	// the canonical state before generating data, so that repeated calls and
	// concurrent workers produce identical instances. On error, Setup releases
	// whatever it had already acquired.
	Setup(sizes Sizes, env Env) (Instance, error)
}

// Instance is a ready-to-run problem.
type Instance interface {
	// Prepare restores the input data consumed by the previous Run. It is
	// called before every Run and is not timed.
	Prepare()

	// Run performs one timed iteration. It has no effects outside the instance.
	Run() error

	// Units is the number of iterations one Run is credited with.
	Units() float64

	// Teardown releases the instance's resources. It is safe to call after a
	// partially successful Setup and more than once.
	Teardown()
}

// Env carries the per-worker services a workload builds its instance from.
type Env struct {
	// Rand is owned by the calling worker.
	Rand *rng.Sequence
	// Alloc is shared by all workers.
	Alloc *memory.Allocator
}

// Growth maps a size that was too small to the next size to try.
type Growth func(size int) int

// Step grows a size by a fixed increment.
func Step(k int) Growth {
	return func(size int) int { return size + k }
}

// Double grows a size by doubling it.
func Double() Growth {
	return func(size int) int { return size * 2 }
}

// Calibration is a workload's self-adjustment policy.
type Calibration struct {
	Param SizeParam
	Start int
	Max   int
	Grow  Growth
}

func (c Calibration) validate() error {
	if c.Start <= 0 {
		return fmt.Errorf("calibration start must be positive, got %d", c.Start)
	}
	if c.Max < c.Start {
		return fmt.Errorf("calibration ceiling %d below start %d", c.Max, c.Start)
	}
	if c.Grow == nil {
		return fmt.Errorf("calibration for %s has no growth policy", c.Param)
	}
	return nil
}

// next grows size and guarantees strict progress.
func (c Calibration) next(size int) int {
	n := c.Grow(size)
	if n <= size {
		n = size + 1
	}
	return n
}
