//go:build !linux && !windows

package cpu

import "runtime"

// PinnedCore always reports -1: pinning is not tracked on this platform.
func PinnedCore() int { return -1 }

// SetupWorkerAffinity locks the goroutine to an OS thread. macOS and the BSDs
// offer no portable way to bind a thread to a core, so workerID only matters
// on Linux and Windows.
func SetupWorkerAffinity(workerID int) func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
