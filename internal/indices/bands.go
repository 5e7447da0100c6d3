// Package indices integrates narrow wavelength bands of a merged spectrum
// into named stellar activity indicators with propagated uncertainties.
package indices

import "math"

// Diagnostic line centres in Å (air).
const (
	CaK    = 3933.664
	CaH    = 3968.47
	CaV    = 3901.0 // violet continuum reference for the S-index
	CaR    = 4001.0 // red continuum reference for the S-index
	Halpha = 6562.808
	HeID3  = 5875.62
	NaID1  = 5895.92
	NaID2  = 5889.95
)

// Index names exposed in ActivityIndices results.
const (
	IndexS       = "S"
	IndexHalpha  = "Halpha"
	IndexHeI     = "HeI"
	IndexNaID1   = "NaID1"
	IndexNaID2   = "NaID2"
	IndexNaID1D2 = "NaID1D2"
)

// Names returns the computed index names in their fixed reporting order.
func Names() []string {
	return []string{IndexS, IndexHalpha, IndexHeI, IndexNaID1, IndexNaID2, IndexNaID1D2}
}

// Shape selects the response window of a passband.
type Shape int

const (
	// Square is a rectangular window; Width is the full width of the band.
	Square Shape = iota
	// Triangle is a triangular window; Width is its FWHM, so the support
	// extends a full Width to either side of the centre.
	Triangle
)

// Band is one rectangular or triangular passband.
type Band struct {
	Name   string
	Center float64
	Width  float64
	Shape  Shape
}

// Support returns the wavelength range over which the band's response is
// non-zero.
func (b Band) Support() (lo, hi float64) {
	h := b.halfWidth()
	return b.Center - h, b.Center + h
}

func (b Band) halfWidth() float64 {
	if b.Shape == Triangle {
		return b.Width
	}
	return b.Width / 2
}

// response evaluates the band's window at wavelength w.
func (b Band) response(w float64) float64 {
	d := math.Abs(w - b.Center)
	h := b.halfWidth()
	if d > h {
		return 0
	}
	if b.Shape == Triangle {
		return 1 - d/h
	}
	return 1
}

// CoreBands returns the core passbands of the named index, or nil for an
// unknown name. Used by plot rendering to shade the line regions.
func CoreBands(name string) []Band {
	for _, def := range definitions() {
		if def.name == name {
			return def.core
		}
	}
	return nil
}

// denomMode selects how multiple reference bands combine in an index
// denominator.
type denomMode int

const (
	denomSum  denomMode = iota // N1 + N2
	denomMean                  // 0.5·(F1 + F2)
)

// definition is the full recipe for one activity index: core bands summed in
// the numerator over reference bands in the denominator.
type definition struct {
	name      string
	core      []Band
	reference []Band
	denom     denomMode
	scaled    bool // multiplied by the instrument calibration scale (S-index)
}

// definitions returns the canonical recipes for all computed indices.
// Band centres and widths follow the Mount-Wilson style S-index calibration
// and the standard H-alpha, He I D3 and Na I D1/D2 definitions.
func definitions() []definition {
	sRef := []Band{
		{Name: "CaV", Center: CaV, Width: 20, Shape: Square},
		{Name: "CaR", Center: CaR, Width: 20, Shape: Square},
	}
	naRef := []Band{
		{Name: "NaL", Center: 5805, Width: 10, Shape: Square},
		{Name: "NaR", Center: 6090, Width: 20, Shape: Square},
	}
	return []definition{
		{
			name: IndexS,
			core: []Band{
				{Name: "CaH", Center: CaH, Width: 1.09, Shape: Triangle},
				{Name: "CaK", Center: CaK, Width: 1.09, Shape: Triangle},
			},
			reference: sRef,
			denom:     denomSum,
			scaled:    true,
		},
		{
			name: IndexHalpha,
			core: []Band{{Name: "Halpha", Center: Halpha, Width: 0.678, Shape: Square}},
			reference: []Band{
				{Name: "HaF1", Center: 6550.87, Width: 10.75, Shape: Square},
				{Name: "HaF2", Center: 6580.309, Width: 8.75, Shape: Square},
			},
			denom: denomMean,
		},
		{
			name: IndexHeI,
			core: []Band{{Name: "HeI", Center: HeID3, Width: 0.2, Shape: Square}},
			reference: []Band{
				{Name: "HeF1", Center: 5874.5, Width: 0.5, Shape: Square},
				{Name: "HeF2", Center: 5879, Width: 0.5, Shape: Square},
			},
			denom: denomMean,
		},
		{
			name:      IndexNaID1,
			core:      []Band{{Name: "NaID1", Center: NaID1, Width: 1, Shape: Square}},
			reference: naRef,
			denom:     denomSum,
		},
		{
			name:      IndexNaID2,
			core:      []Band{{Name: "NaID2", Center: NaID2, Width: 1, Shape: Square}},
			reference: naRef,
			denom:     denomSum,
		},
		{
			name: IndexNaID1D2,
			core: []Band{
				{Name: "NaID1", Center: NaID1, Width: 1, Shape: Square},
				{Name: "NaID2", Center: NaID2, Width: 1, Shape: Square},
			},
			reference: naRef,
			denom:     denomSum,
		},
	}
}
