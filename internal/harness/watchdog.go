package harness

import (
	"fmt"
	"sync/atomic"
	"time"
)

type watchdog struct {
	timer *time.Timer
	fired atomic.Bool
	err   error
}

// startWatchdog arms the configured deadline for one test phase. It returns
// nil when no watchdog is configured.
func (cfg *config) startWatchdog(label, phase string) *watchdog {
	if cfg.watchdog <= 0 {
		return nil
	}
	w := &watchdog{
		err: &Error{
			Context: label,
			Code:    CodeWatchdog,
			Err:     fmt.Errorf("%w: %s still running after %s", ErrWatchdog, phase, cfg.watchdog),
		},
	}
	onExpire := cfg.onWatchdog
	w.timer = time.AfterFunc(cfg.watchdog, func() {
		w.fired.Store(true)
		if onExpire != nil {
			onExpire(w.err)
		}
	})
	return w
}

// stop disarms the watchdog and returns its error if it already fired.
func (w *watchdog) stop() error {
	if w == nil {
		return nil
	}
	w.timer.Stop()
	if w.fired.Load() {
		return w.err
	}
	return nil
}
