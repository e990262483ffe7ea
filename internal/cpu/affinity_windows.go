//go:build windows

package cpu

import (
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// pinToCore binds the calling OS thread to one logical CPU and returns the
// previous affinity mask. Must be called after runtime.LockOSThread().
func pinToCore(cpuID int) (uintptr, error) {
	numCPU := runtime.NumCPU()
	if cpuID < 0 || cpuID >= numCPU {
		cpuID = cpuID % numCPU
	}

	handle, _, _ := getCurrentThread.Call()
	prevMask, _, err := setThreadAffinityMask.Call(handle, uintptr(1)<<cpuID)
	if prevMask == 0 {
		return 0, err
	}
	return prevMask, nil
}

// PinnedCore always reports -1: pinning is not tracked on this platform.
func PinnedCore() int { return -1 }

// SetupWorkerAffinity locks the goroutine to an OS thread and pins it to
// core workerID mod NumCPU, restoring the previous mask on cleanup.
func SetupWorkerAffinity(workerID int) func() {
	runtime.LockOSThread()
	prev, err := pinToCore(workerID)

	return func() {
		if err == nil && prev != 0 {
			handle, _, _ := getCurrentThread.Call()
			_, _, _ = setThreadAffinityMask.Call(handle, prev)
		}
		runtime.UnlockOSThread()
	}
}
