// Package spectrum holds the echelle spectrum data model: individual
// diffraction orders, the rest-frame Doppler correction, and the merge of
// overlapping orders into a single one-dimensional spectrum.
package spectrum

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Order is a single echelle diffraction order: parallel wavelength, flux and
// flux-error sequences. Wavelengths are in Å and strictly increasing. Orders
// are immutable once read from the instrument reduction output.
type Order struct {
	Wavelength []float64
	Flux       []float64
	Error      []float64
}

// Validate checks the Order invariants: equal sequence lengths of at least
// two samples, strictly increasing wavelengths and non-negative errors.
func (o Order) Validate() error {
	n := len(o.Wavelength)
	if n < 2 {
		return fmt.Errorf("order has %d samples, need at least 2", n)
	}
	if len(o.Flux) != n || len(o.Error) != n {
		return fmt.Errorf("order sequence lengths differ: wavelength=%d flux=%d error=%d",
			n, len(o.Flux), len(o.Error))
	}
	for i := 1; i < n; i++ {
		if !(o.Wavelength[i] > o.Wavelength[i-1]) {
			return fmt.Errorf("order wavelengths not strictly increasing at index %d (%g >= %g)",
				i, o.Wavelength[i-1], o.Wavelength[i])
		}
	}
	for i, e := range o.Error {
		if e < 0 {
			return fmt.Errorf("order error negative at index %d (%g)", i, e)
		}
	}
	return nil
}

// Span returns the wavelength coverage of the order.
func (o Order) Span() (lo, hi float64) {
	return o.Wavelength[0], o.Wavelength[len(o.Wavelength)-1]
}

// Covers reports whether the wavelength w falls inside the order's span.
func (o Order) Covers(w float64) bool {
	lo, hi := o.Span()
	return w >= lo && w <= hi
}

// MergedSpectrum is a single monotonic one-dimensional spectrum assembled
// from overlapping orders, with a global signal-to-noise estimate.
type MergedSpectrum struct {
	Wavelength []float64
	Flux       []float64
	Error      []float64
	SN         float64
}

// Len returns the number of wavelength samples.
func (m MergedSpectrum) Len() int { return len(m.Wavelength) }

// Span returns the wavelength coverage of the merged spectrum.
func (m MergedSpectrum) Span() (lo, hi float64) {
	return m.Wavelength[0], m.Wavelength[len(m.Wavelength)-1]
}

// estimateSN computes the global signal-to-noise as the median flux divided
// by the median error. Returns NaN when either median is unusable.
func estimateSN(flux, errs []float64) float64 {
	medFlux := median(flux)
	medErr := median(errs)
	if medErr <= 0 || math.IsNaN(medFlux) || math.IsNaN(medErr) {
		return math.NaN()
	}
	return medFlux / medErr
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
