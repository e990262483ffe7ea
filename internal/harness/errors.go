package harness

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/utkarsh5026/nbench/internal/memory"
)

var (
	// ErrCeiling is returned when calibration passes the workload's maximum
	// size without any single iteration reaching the minimum duration.
	ErrCeiling = errors.New("calibration ceiling reached")
	// ErrLaunch is returned when a worker cannot be started.
	ErrLaunch = errors.New("worker launch failed")
	// ErrWatchdog is returned when a test outlives its deadline.
	ErrWatchdog = errors.New("watchdog deadline exceeded")
	// ErrNotCalibrated is returned by Runner.Run for a control block whose
	// sizes were never fixed.
	ErrNotCalibrated = errors.New("test not calibrated")
	// ErrPanic wraps a recovered worker panic.
	ErrPanic = errors.New("worker panic")
)

// Error codes reported next to the context label.
const (
	CodeMemory        = 1
	CodeNotFound      = 3
	CodeFileRead      = 11
	CodeCeiling       = 20
	CodeLaunch        = 21
	CodePanic         = 22
	CodeWatchdog      = 23
	CodeNotCalibrated = 24
	CodeCanceled      = 25
	CodeWorkload      = 30
)

// Error is the single fatal error shape of the harness: which test failed,
// a numeric code, and the cause.
type Error struct {
	Context string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: error code %d: %v", e.Context, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code extracts the error code from err, or 0 when err carries none.
func Code(err error) int {
	var he *Error
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

// wrap labels err with the test context and the code matching its cause.
// Errors that already carry a label pass through unchanged.
func wrap(label string, err error) error {
	if err == nil {
		return nil
	}
	var he *Error
	if errors.As(err, &he) {
		return err
	}

	var pathErr *fs.PathError
	code := CodeWorkload
	switch {
	case errors.Is(err, memory.ErrOutOfMemory):
		code = CodeMemory
	case errors.Is(err, memory.ErrNotFound):
		code = CodeNotFound
	case errors.As(err, &pathErr):
		code = CodeFileRead
	case errors.Is(err, ErrCeiling):
		code = CodeCeiling
	case errors.Is(err, ErrLaunch):
		code = CodeLaunch
	case errors.Is(err, ErrPanic):
		code = CodePanic
	case errors.Is(err, ErrWatchdog):
		code = CodeWatchdog
	case errors.Is(err, ErrNotCalibrated):
		code = CodeNotCalibrated
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = CodeCanceled
	}
	return &Error{Context: label, Code: code, Err: err}
}
