package report

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/utkarsh5026/nbench/internal/harness"
)

// barSteps is the resolution of a bar; Elapsed/Target is scaled to it.
const barSteps = 1000

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Progress draws one bar per test phase from harness events. Intermediate
// events are rate limited; the final event of a phase always gets through.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	workers int
	limiter *rate.Limiter
	bar     *progressbar.ProgressBar
	key     string
	value   int
	done    map[int]bool
}

// NewProgress returns a Progress writing to w. workers is the number of
// measuring goroutines per test; a measurement bar finishes once each of
// them has reported its final event. refresh caps redraws per second.
func NewProgress(w io.Writer, workers int, refresh float64) *Progress {
	if workers < 1 {
		workers = 1
	}
	if refresh <= 0 {
		refresh = 15
	}
	return &Progress{
		w:       w,
		workers: workers,
		limiter: rate.NewLimiter(rate.Limit(refresh), 1),
		done:    make(map[int]bool),
	}
}

// Handle consumes one event. It is safe for concurrent use and may be passed
// to harness.WithProgress.
func (p *Progress) Handle(ev harness.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := ev.Phase.String() + " " + ev.Test
	if key != p.key {
		p.finish()
		p.start(key)
	}

	if ev.Done && ev.Phase == harness.PhaseMeasure {
		p.done[ev.Worker] = true
	}
	last := ev.Done && (ev.Phase == harness.PhaseCalibrate || len(p.done) >= p.workers)

	if v := scale(ev.Elapsed, ev.Target); v > p.value || ev.Phase == harness.PhaseCalibrate {
		p.value = v
	}
	if last {
		p.value = barSteps
	}
	if last || p.limiter.Allow() {
		_ = p.bar.Set(p.value)
	}
	if last {
		p.finish()
	}
}

// Close finishes any bar still on screen.
func (p *Progress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finish()
}

func (p *Progress) start(key string) {
	p.key = key
	p.value = 0
	clear(p.done)
	p.bar = progressbar.NewOptions(barSteps,
		progressbar.OptionSetDescription(key),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *Progress) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
	p.key = ""
}

func scale(elapsed, target float64) int {
	if target <= 0 {
		return 0
	}
	v := int(elapsed / target * barSteps)
	return min(max(v, 0), barSteps)
}
