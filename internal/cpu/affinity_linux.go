//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore binds the calling OS thread to one logical CPU.
// Must be called after runtime.LockOSThread().
func pinToCore(cpuID int) (int, error) {
	numCPU := runtime.NumCPU()
	if cpuID < 0 || cpuID >= numCPU {
		cpuID = cpuID % numCPU
		if cpuID < 0 {
			cpuID += numCPU
		}
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	if err := unix.SchedSetaffinity(0, &mask); err != nil { // 0 = current thread
		return 0, err
	}
	return cpuID, nil
}

// PinnedCore reports the single CPU the calling thread is bound to, or -1
// when the thread may run anywhere.
func PinnedCore() int {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil {
		return -1
	}
	if mask.Count() != 1 {
		return -1
	}
	for i := range runtime.NumCPU() {
		if mask.IsSet(i) {
			return i
		}
	}
	return -1
}

// SetupWorkerAffinity locks the goroutine to an OS thread and pins that
// thread to core workerID mod NumCPU. A failed pin still leaves the thread
// locked, which is all the stopwatch needs.
// Returns a cleanup function that should be deferred.
func SetupWorkerAffinity(workerID int) func() {
	runtime.LockOSThread()

	var original unix.CPUSet
	restore := unix.SchedGetaffinity(0, &original) == nil
	if _, err := pinToCore(workerID); err != nil {
		restore = false
	}

	return func() {
		if restore {
			_ = unix.SchedSetaffinity(0, &original)
		}
		runtime.UnlockOSThread()
	}
}
