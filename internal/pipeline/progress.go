package pipeline

import (
	"time"

	"github.com/stellar-data/activity.report/internal/monitoring"
)

// Step names emitted around each pipeline stage. Index stages append the
// index name, e.g. "index-S".
const (
	StepCorrelate = "mask-correlation"
	StepPeakFit   = "peak-fit"
	StepRestFrame = "rest-frame-shift"
	StepMerge     = "order-merge"
	StepIndex     = "index-"
)

// StepObserver receives discrete step boundaries from a pipeline run. The
// pipeline never depends on an observer succeeding; implementations must not
// block.
type StepObserver interface {
	StepStarted(name string)
	StepCompleted(name string, elapsed time.Duration)
}

// nopObserver drops all events.
type nopObserver struct{}

func (nopObserver) StepStarted(string)                  {}
func (nopObserver) StepCompleted(string, time.Duration) {}

// LogObserver forwards step events to the monitoring logger.
type LogObserver struct {
	// Target labels the log lines, typically the star or file name.
	Target string
}

func (o LogObserver) StepStarted(name string) {
	monitoring.Logf("[pipeline] %s: %s started", o.Target, name)
}

func (o LogObserver) StepCompleted(name string, elapsed time.Duration) {
	monitoring.Logf("[pipeline] %s: %s completed in %s", o.Target, name, elapsed)
}

// stepTimer wraps an observer and records per-step durations for the Result.
type stepTimer struct {
	observer  StepObserver
	durations map[string]time.Duration
}

func newStepTimer(observer StepObserver) *stepTimer {
	if observer == nil {
		observer = nopObserver{}
	}
	return &stepTimer{
		observer:  observer,
		durations: make(map[string]time.Duration),
	}
}

// run executes fn bracketed by step events and records its duration.
func (t *stepTimer) run(name string, fn func() error) error {
	t.observer.StepStarted(name)
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	t.durations[name] = elapsed
	t.observer.StepCompleted(name, elapsed)
	return err
}
