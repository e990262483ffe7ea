//go:build linux

package stopwatch

import (
	"time"

	"golang.org/x/sys/unix"
)

func threadCPU() (time.Duration, bool) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_THREAD_CPUTIME_ID, &ts); err != nil {
		return 0, false
	}
	return time.Duration(ts.Nano()), true
}

func processCPU() (time.Duration, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano()), true
}

// Resolution returns the resolution of the monotonic clock.
func Resolution() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGetres(unix.CLOCK_MONOTONIC, &ts); err != nil {
		if err := unix.ClockGetres(unix.CLOCK_REALTIME, &ts); err != nil {
			return 0
		}
	}
	return time.Duration(ts.Nano())
}
