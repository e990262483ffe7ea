//go:build unix && !linux

package stopwatch

import (
	"time"

	"golang.org/x/sys/unix"
)

// No portable per-thread CPU clock outside Linux; readings are process wide.
func threadCPU() (time.Duration, bool) {
	return 0, false
}

func processCPU() (time.Duration, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano()), true
}

// Resolution returns the assumed resolution of the monotonic clock.
func Resolution() time.Duration {
	return time.Microsecond
}
