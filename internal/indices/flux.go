package indices

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"

	"github.com/stellar-data/activity.report/internal/spectrum"
)

// CoverageError reports a required band whose wavelength range is not
// covered by the merged spectrum. It fails only the index that needs the
// band; other indices are still computed.
type CoverageError struct {
	Index string
	Band  string
	Lo    float64
	Hi    float64
}

func (e CoverageError) Error() string {
	if e.Index != "" {
		return fmt.Sprintf("index %s: band %s [%.2f, %.2f] Å not covered by spectrum",
			e.Index, e.Band, e.Lo, e.Hi)
	}
	return fmt.Sprintf("band %s [%.2f, %.2f] Å not covered by spectrum", e.Band, e.Lo, e.Hi)
}

// bandFlux integrates the spectrum flux through the band's response window.
//
// The flux inside the band is rebinned onto a uniform grid, convolved with
// the response, trapezoid-integrated and normalised by the integrated
// response. The returned sigma is the response-weighted quadrature sum of
// the per-pixel flux errors over the same window.
func bandFlux(ms spectrum.MergedSpectrum, b Band) (flux, sigma float64, err error) {
	lo, hi := b.Support()
	first, last := ms.Span()
	if lo < first || hi > last {
		return 0, 0, CoverageError{Band: b.Name, Lo: lo, Hi: hi}
	}

	ini := nearestIndex(ms.Wavelength, lo)
	end := nearestIndex(ms.Wavelength, hi)
	npts := end - ini
	if npts < 2 {
		return 0, 0, CoverageError{Band: b.Name, Lo: lo, Hi: hi}
	}

	// Interpolate over the band with a two-pixel margin where available.
	start := ini - 2
	if start < 0 {
		start = 0
	}
	stop := end + 2
	if stop > len(ms.Wavelength) {
		stop = len(ms.Wavelength)
	}
	var pl interp.PiecewiseLinear
	if fitErr := pl.Fit(ms.Wavelength[start:stop], ms.Flux[start:stop]); fitErr != nil {
		return 0, 0, fmt.Errorf("band %s interpolator: %w", b.Name, fitErr)
	}

	ws := make([]float64, npts)
	weighted := make([]float64, npts)
	resp := make([]float64, npts)
	dw := (hi - lo) / float64(npts-1)
	for i := range ws {
		w := lo + float64(i)*dw
		r := b.response(w)
		ws[i] = w
		resp[i] = r
		weighted[i] = pl.Predict(w) * r
	}

	respArea := integrate.Trapezoidal(ws, resp)
	if respArea <= 0 {
		return 0, 0, CoverageError{Band: b.Name, Lo: lo, Hi: hi}
	}
	flux = integrate.Trapezoidal(ws, weighted) / respArea

	// Error from the actual pixels inside the window, weighted identically
	// to the flux sum.
	var num, den float64
	for i := ini; i < end; i++ {
		r := b.response(ms.Wavelength[i])
		num += ms.Error[i] * ms.Error[i] * r * r
		den += r * r
	}
	if den == 0 {
		return 0, 0, CoverageError{Band: b.Name, Lo: lo, Hi: hi}
	}
	sigma = math.Sqrt(num / den)
	return flux, sigma, nil
}

// nearestIndex returns the index of the wavelength sample closest to w.
func nearestIndex(waves []float64, w float64) int {
	i := sort.SearchFloat64s(waves, w)
	if i == 0 {
		return 0
	}
	if i == len(waves) {
		return len(waves) - 1
	}
	if w-waves[i-1] <= waves[i]-w {
		return i - 1
	}
	return i
}
