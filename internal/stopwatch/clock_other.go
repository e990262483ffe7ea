//go:build !unix

package stopwatch

import "time"

func threadCPU() (time.Duration, bool) {
	return 0, false
}

// Without rusage the CPU reading degrades to wall time.
func processCPU() (time.Duration, bool) {
	return 0, false
}

// Resolution returns the assumed resolution of the monotonic clock.
func Resolution() time.Duration {
	return time.Millisecond
}
