// Package testutil provides shared synthetic-spectrum fixtures for tests.
//
// This package centralises the builders used to fabricate echelle orders
// with known properties (flat continua, injected absorption lines at exact
// velocity offsets) so numeric tests across packages stay consistent.
package testutil

import (
	"math"

	"github.com/stellar-data/activity.report/internal/mask"
	"github.com/stellar-data/activity.report/internal/spectrum"
	"github.com/stellar-data/activity.report/internal/units"
)

// FlatOrder builds an order with a flat continuum at the given flux level
// and a constant per-pixel error, sampled on a uniform wavelength grid.
func FlatOrder(lo, hi, step, flux, errVal float64) spectrum.Order {
	n := int((hi-lo)/step) + 1
	o := spectrum.Order{
		Wavelength: make([]float64, n),
		Flux:       make([]float64, n),
		Error:      make([]float64, n),
	}
	for i := 0; i < n; i++ {
		o.Wavelength[i] = lo + float64(i)*step
		o.Flux[i] = flux
		o.Error[i] = errVal
	}
	return o
}

// InjectAbsorptionLine subtracts a Gaussian absorption feature from an
// order's flux. center is the observed line centre in Å, depth the fractional
// depth of the line core, and sigmaKMS the line width expressed in velocity.
func InjectAbsorptionLine(o *spectrum.Order, center, depth, sigmaKMS float64) {
	sigma := units.VelocityWindowToWavelength(center, sigmaKMS)
	for i, w := range o.Wavelength {
		d := (w - center) / sigma
		o.Flux[i] -= depth * math.Exp(-0.5*d*d)
	}
}

// MaskedOrder builds a flat order spanning [lo, hi] and injects every mask
// line inside the span as an absorption feature Doppler-shifted by rvKMS.
// Line depths scale with the mask weights, so cross-correlating the result
// against the same mask must recover rvKMS.
func MaskedOrder(m *mask.Mask, rvKMS, lo, hi, step float64) spectrum.Order {
	o := FlatOrder(lo, hi, step, 1.0, 0.005)
	gamma := units.DopplerFactor(rvKMS)
	for _, line := range m.Lines {
		observed := line.Center * gamma
		if observed < lo || observed > hi {
			continue
		}
		InjectAbsorptionLine(&o, observed, 0.6*line.Weight, 3.0)
	}
	return o
}
