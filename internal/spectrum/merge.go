package spectrum

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// orderInterp pairs an order with piecewise-linear interpolators over its
// flux and error sequences, so overlapping orders can be evaluated on the
// union wavelength grid.
type orderInterp struct {
	order Order
	flux  interp.PiecewiseLinear
	errs  interp.PiecewiseLinear
}

// Merge combines rest-frame orders into a single MergedSpectrum.
//
// The union wavelength grid is the sorted, deduplicated concatenation of all
// order wavelengths. At each grid point every covering order contributes its
// (interpolated) flux weighted by 1/error², so the noisier edge pixels of an
// order count less than the cleaner centre pixels of its neighbour. The
// merged error is the combined inverse-variance error. Grid points where no
// covering order has usable data are excluded and reported as
// MergeDataError values rather than aborting the whole spectrum.
func Merge(orders []Order) (MergedSpectrum, []MergeDataError, error) {
	if len(orders) == 0 {
		return MergedSpectrum{}, nil, fmt.Errorf("merge requires at least one order")
	}

	interps := make([]orderInterp, len(orders))
	total := 0
	for i, o := range orders {
		if err := o.Validate(); err != nil {
			return MergedSpectrum{}, nil, fmt.Errorf("order %d: %w", i, err)
		}
		oi := orderInterp{order: o}
		if err := oi.flux.Fit(o.Wavelength, o.Flux); err != nil {
			return MergedSpectrum{}, nil, fmt.Errorf("order %d flux interpolator: %w", i, err)
		}
		if err := oi.errs.Fit(o.Wavelength, o.Error); err != nil {
			return MergedSpectrum{}, nil, fmt.Errorf("order %d error interpolator: %w", i, err)
		}
		interps[i] = oi
		total += len(o.Wavelength)
	}

	grid := make([]float64, 0, total)
	for _, o := range orders {
		grid = append(grid, o.Wavelength...)
	}
	sort.Float64s(grid)
	grid = dedupeSorted(grid)

	waves := make([]float64, 0, len(grid))
	fluxes := make([]float64, 0, len(grid))
	errsOut := make([]float64, 0, len(grid))
	var dropped []MergeDataError

	for _, w := range grid {
		var (
			sumWeight, sumWeightedFlux float64
			covering, valid            int
			lastFlux, lastErr          float64
		)
		for i := range interps {
			if !interps[i].order.Covers(w) {
				continue
			}
			covering++
			f := interps[i].flux.Predict(w)
			e := interps[i].errs.Predict(w)
			if !usable(f, e) {
				continue
			}
			valid++
			lastFlux, lastErr = f, e
			weight := 1 / (e * e)
			sumWeight += weight
			sumWeightedFlux += weight * f
		}

		switch {
		case valid == 0:
			dropped = append(dropped, MergeDataError{Wavelength: w, Orders: covering})
		case valid == 1:
			// Single contribution passes through untouched so non-overlap
			// regions carry no weighting artifacts.
			waves = append(waves, w)
			fluxes = append(fluxes, lastFlux)
			errsOut = append(errsOut, lastErr)
		default:
			waves = append(waves, w)
			fluxes = append(fluxes, sumWeightedFlux/sumWeight)
			errsOut = append(errsOut, 1/math.Sqrt(sumWeight))
		}
	}

	if len(waves) < 2 {
		return MergedSpectrum{}, dropped, fmt.Errorf("merge produced only %d usable samples", len(waves))
	}

	merged := MergedSpectrum{
		Wavelength: waves,
		Flux:       fluxes,
		Error:      errsOut,
		SN:         estimateSN(fluxes, errsOut),
	}
	return merged, dropped, nil
}

// usable reports whether a flux/error pair can enter the inverse-variance
// combination: finite flux and a finite, strictly positive error.
func usable(f, e float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return e > 0 && !math.IsInf(e, 0)
}

// dedupeSorted removes exact duplicates from a sorted slice in place.
func dedupeSorted(xs []float64) []float64 {
	if len(xs) == 0 {
		return xs
	}
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
