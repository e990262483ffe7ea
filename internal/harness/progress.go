package harness

// Phase tells calibration events from measurement events.
type Phase int

const (
	PhaseCalibrate Phase = iota
	PhaseMeasure
)

func (p Phase) String() string {
	if p == PhaseCalibrate {
		return "calibrate"
	}
	return "measure"
}

// Event reports progress of a calibration attempt or a worker iteration.
type Event struct {
	Test   string
	Phase  Phase
	Worker int
	// Size is the value of the calibrated parameter being tried.
	Size int
	// Elapsed is the real seconds accumulated by the reporting stopwatch.
	Elapsed float64
	// Target is the duration the reporter is working towards.
	Target float64
	// Done is set on the last event of a phase.
	Done bool
}

// ProgressFunc receives Events.
type ProgressFunc func(Event)

func (cfg *config) emit(ev Event) {
	if cfg.progress != nil {
		cfg.progress(ev)
	}
}
