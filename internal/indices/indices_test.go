package indices

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar-data/activity.report/internal/spectrum"
)

// flatSpectrum builds a merged spectrum with constant flux and error over
// the given range.
func flatSpectrum(lo, hi, step, flux, errVal float64) spectrum.MergedSpectrum {
	var ms spectrum.MergedSpectrum
	for w := lo; w <= hi+step/2; w += step {
		ms.Wavelength = append(ms.Wavelength, w)
		ms.Flux = append(ms.Flux, flux)
		ms.Error = append(ms.Error, errVal)
	}
	ms.SN = flux / errVal
	return ms
}

// gappedSpectrum builds a flat spectrum with a wavelength hole over
// [gapLo, gapHi].
func gappedSpectrum(lo, hi, gapLo, gapHi, step, flux, errVal float64) spectrum.MergedSpectrum {
	var ms spectrum.MergedSpectrum
	for w := lo; w <= hi+step/2; w += step {
		if w > gapLo && w < gapHi {
			continue
		}
		ms.Wavelength = append(ms.Wavelength, w)
		ms.Flux = append(ms.Flux, flux)
		ms.Error = append(ms.Error, errVal)
	}
	ms.SN = flux / errVal
	return ms
}

func TestComputeCanonicalRatiosOnFlatSpectrum(t *testing.T) {
	// With a globally constant flux every band integrates to the same
	// value, so each index must reproduce its canonical ratio exactly.
	ms := flatSpectrum(3880, 6620, 0.02, 1.0, 0.01)

	set := Compute(ms, DefaultConfig())
	require.Empty(t, set.Failed, "no index should fail on full coverage: %v", set.Failed)

	tests := []struct {
		name string
		want float64
	}{
		{IndexS, 1.0},       // (H+K)/(R+V)
		{IndexHalpha, 1.0},  // core / mean(F1, F2)
		{IndexHeI, 1.0},     // core / mean(F1, F2)
		{IndexNaID1, 0.5},   // D1 / (L+R)
		{IndexNaID2, 0.5},   // D2 / (L+R)
		{IndexNaID1D2, 1.0}, // (D1+D2) / (L+R)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, set.Has(tt.name))
			v := set.Values[tt.name]
			assert.InDelta(t, tt.want, v.Value, 1e-9)
			assert.True(t, v.Err > 0 && !math.IsNaN(v.Err), "index error should be positive, got %v", v.Err)
		})
	}
}

func TestComputeIgnoresFluxOutsideBands(t *testing.T) {
	// Zeroing the flux outside every band support (with a margin wider than
	// the interpolation stencil) must not change any index.
	ms := flatSpectrum(3880, 6620, 0.02, 1.0, 0.01)
	inBand := func(w float64) bool {
		for _, def := range definitions() {
			for _, b := range append(append([]Band{}, def.core...), def.reference...) {
				lo, hi := b.Support()
				if w >= lo-0.2 && w <= hi+0.2 {
					return true
				}
			}
		}
		return false
	}
	for i, w := range ms.Wavelength {
		if !inBand(w) {
			ms.Flux[i] = 0
		}
	}

	set := Compute(ms, DefaultConfig())
	require.Empty(t, set.Failed)
	assert.InDelta(t, 1.0, set.Values[IndexS].Value, 1e-9)
	assert.InDelta(t, 1.0, set.Values[IndexHalpha].Value, 1e-9)
	assert.InDelta(t, 1.0, set.Values[IndexNaID1D2].Value, 1e-9)
}

func TestComputeSCalibrationScale(t *testing.T) {
	ms := flatSpectrum(3880, 4020, 0.02, 1.0, 0.01)

	set := Compute(ms, Config{SCalibration: 2.5})
	require.True(t, set.Has(IndexS))
	assert.InDelta(t, 2.5, set.Values[IndexS].Value, 1e-9)
}

func TestComputePartialResultsOnMissingHeICoverage(t *testing.T) {
	// A hole over the He I D3 region fails only the HeI index; the S-index,
	// H-alpha and Na I D1/D2 remain present and correctly valued.
	ms := gappedSpectrum(3880, 6620, 5874.0, 5880.0, 0.02, 1.0, 0.01)

	set := Compute(ms, DefaultConfig())

	require.False(t, set.Has(IndexHeI), "HeI should be absent")
	var cov CoverageError
	require.True(t, errors.As(set.Failed[IndexHeI], &cov), "HeI failure = %v, want CoverageError", set.Failed[IndexHeI])
	assert.Equal(t, IndexHeI, cov.Index)

	for _, name := range []string{IndexS, IndexHalpha, IndexNaID1, IndexNaID2, IndexNaID1D2} {
		require.True(t, set.Has(name), "%s should still be computed", name)
	}
	assert.InDelta(t, 1.0, set.Values[IndexS].Value, 1e-9)
	assert.InDelta(t, 1.0, set.Values[IndexHalpha].Value, 1e-9)
	assert.InDelta(t, 0.5, set.Values[IndexNaID1].Value, 1e-9)
	assert.InDelta(t, 0.5, set.Values[IndexNaID2].Value, 1e-9)
}

func TestComputeNoCoverageAtAll(t *testing.T) {
	// A spectrum far away from every diagnostic line fails all indices.
	ms := flatSpectrum(7000, 7100, 0.1, 1.0, 0.01)

	set := Compute(ms, DefaultConfig())
	assert.Empty(t, set.Values)
	assert.Len(t, set.Failed, len(Names()))
}

func TestBandSupport(t *testing.T) {
	square := Band{Name: "sq", Center: 5000, Width: 20, Shape: Square}
	lo, hi := square.Support()
	assert.Equal(t, 4990.0, lo)
	assert.Equal(t, 5010.0, hi)
	assert.Equal(t, 1.0, square.response(5000))
	assert.Equal(t, 1.0, square.response(4990))
	assert.Equal(t, 0.0, square.response(4989.9))

	tri := Band{Name: "tri", Center: 5000, Width: 1.0, Shape: Triangle}
	lo, hi = tri.Support()
	assert.Equal(t, 4999.0, lo)
	assert.Equal(t, 5001.0, hi)
	assert.Equal(t, 1.0, tri.response(5000))
	assert.InDelta(t, 0.5, tri.response(5000.5), 1e-12)
	assert.Equal(t, 0.0, tri.response(5001.1))
}
