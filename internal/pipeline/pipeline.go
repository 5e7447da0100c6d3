// Package pipeline orchestrates one star's processing run: cross-correlate
// against the line mask, fit the CCF peak, shift to the rest frame, merge
// the echelle orders and integrate the activity indices. Runs are
// independent units of work with no shared mutable state, so a batch may
// execute them on separate workers without coordination.
package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/stellar-data/activity.report/internal/ccf"
	"github.com/stellar-data/activity.report/internal/indices"
	"github.com/stellar-data/activity.report/internal/mask"
	"github.com/stellar-data/activity.report/internal/monitoring"
	"github.com/stellar-data/activity.report/internal/spectrum"
)

// Options configures a pipeline run. The zero value selects the defaults of
// each stage.
type Options struct {
	MaskID   string
	CCF      ccf.Config
	Fit      ccf.FitConfig
	Indices  indices.Config
	Observer StepObserver
}

// DefaultOptions returns the standard G2-mask setup.
func DefaultOptions() Options {
	return Options{
		MaskID:  "G2",
		CCF:     ccf.DefaultConfig(),
		Fit:     ccf.DefaultFitConfig(),
		Indices: indices.DefaultConfig(),
	}
}

// Input is one star's observation handed over by the extraction layer.
// BJD is an opaque pass-through value attached to the result.
type Input struct {
	Target     string
	Instrument string
	BJD        float64
	Orders     []spectrum.Order
}

// Result is the terminal output of one run. Indices that could not be
// computed are recorded in Indices.Failed rather than silently zeroed.
type Result struct {
	RunID      string
	Target     string
	Instrument string
	BJD        float64

	RV       float64
	RVErr    float64
	BIS      float64
	FWHM     float64
	Contrast float64

	Indices *indices.Set
	Merged  *spectrum.MergedSpectrum
	Profile *ccf.Profile
	Fit     *ccf.Result

	StepDurations map[string]time.Duration
}

// Index returns the named index value, with ok=false when the index was not
// computable for this spectrum.
func (r *Result) Index(name string) (indices.Value, bool) {
	if r.Indices == nil {
		return indices.Value{}, false
	}
	v, ok := r.Indices.Values[name]
	return v, ok
}

// IndexOr returns the named index value, or fallback when absent. Used by
// the writers to mark absent indices explicitly.
func (r *Result) IndexOr(name string, fallback float64) (value, errVal float64) {
	v, ok := r.Index(name)
	if !ok {
		return fallback, fallback
	}
	return v.Value, v.Err
}

// Run processes one star through all stages.
//
// The mask identifier is validated before any numeric work; errors from the
// correlation, fit, shift or merge stages abort this run only. Individual
// index failures are partial-result gaps recorded on the Result.
func Run(in Input, opts Options) (*Result, error) {
	m, err := mask.Load(opts.MaskID)
	if err != nil {
		return nil, err
	}
	if len(in.Orders) == 0 {
		return nil, fmt.Errorf("input %s has no orders", in.Target)
	}

	timer := newStepTimer(opts.Observer)
	res := &Result{
		RunID:      uuid.New().String(),
		Target:     in.Target,
		Instrument: in.Instrument,
		BJD:        in.BJD,
		BIS:        math.NaN(),
		FWHM:       math.NaN(),
	}

	var profile *ccf.Profile
	if err := timer.run(StepCorrelate, func() error {
		var err error
		profile, err = ccf.Correlate(in.Orders, m, opts.CCF)
		return err
	}); err != nil {
		return nil, fmt.Errorf("mask correlation: %w", err)
	}
	res.Profile = profile

	var fit *ccf.Result
	if err := timer.run(StepPeakFit, func() error {
		var err error
		fit, err = ccf.Fit(profile, opts.Fit)
		return err
	}); err != nil {
		return nil, fmt.Errorf("peak fit: %w", err)
	}
	res.Fit = fit
	res.RV = fit.RV
	res.RVErr = fit.RVErr
	res.BIS = fit.BIS
	res.FWHM = fit.FWHM
	res.Contrast = fit.Contrast

	var rest []spectrum.Order
	if err := timer.run(StepRestFrame, func() error {
		var err error
		rest, err = spectrum.ShiftToRestFrame(in.Orders, fit.RV)
		return err
	}); err != nil {
		return nil, fmt.Errorf("rest-frame shift: %w", err)
	}

	var merged spectrum.MergedSpectrum
	if err := timer.run(StepMerge, func() error {
		var dropped []spectrum.MergeDataError
		var err error
		merged, dropped, err = spectrum.Merge(rest)
		if len(dropped) > 0 {
			monitoring.Logf("[pipeline] %s: excluded %d unusable samples during merge", in.Target, len(dropped))
		}
		return err
	}); err != nil {
		return nil, fmt.Errorf("order merge: %w", err)
	}
	res.Merged = &merged

	set := &indices.Set{
		Values: make(map[string]indices.Value),
		Failed: make(map[string]error),
	}
	for _, name := range indices.Names() {
		idxName := name
		_ = timer.run(StepIndex+idxName, func() error {
			v, err := indices.ComputeIndex(merged, idxName, opts.Indices)
			if err != nil {
				set.Failed[idxName] = err
				monitoring.Logf("[pipeline] %s: index %s not computed: %v", in.Target, idxName, err)
				return nil
			}
			set.Values[idxName] = v
			return nil
		})
	}
	res.Indices = set

	res.StepDurations = timer.durations
	return res, nil
}
