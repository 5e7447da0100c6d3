// Package ccf computes the cross-correlation function of an observed order
// set against a binary line mask over a velocity grid, and fits the CCF peak
// for the radial velocity and its profile diagnostics (FWHM, contrast,
// bisector span).
package ccf

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/stellar-data/activity.report/internal/mask"
	"github.com/stellar-data/activity.report/internal/spectrum"
	"github.com/stellar-data/activity.report/internal/units"
)

// Config controls the velocity grid and the per-line accumulation window.
type Config struct {
	// VelocityMinKMS and VelocityMaxKMS bound the trial velocity grid (km/s).
	VelocityMinKMS float64
	VelocityMaxKMS float64

	// VelocityStepKMS is the grid spacing (km/s).
	VelocityStepKMS float64

	// WindowKMS is the half-width, in velocity units, of the flux window
	// accumulated around each Doppler-shifted mask line. Roughly a fraction
	// of a resolution element.
	WindowKMS float64
}

// DefaultConfig returns the velocity grid used for typical echelle spectra.
func DefaultConfig() Config {
	return Config{
		VelocityMinKMS:  -200,
		VelocityMaxKMS:  200,
		VelocityStepKMS: 0.25,
		WindowKMS:       2.0,
	}
}

func (c Config) validate() error {
	if c.VelocityMinKMS >= c.VelocityMaxKMS {
		return fmt.Errorf("velocity grid [%g, %g] km/s is empty", c.VelocityMinKMS, c.VelocityMaxKMS)
	}
	if c.VelocityStepKMS <= 0 {
		return fmt.Errorf("velocity step %g km/s must be positive", c.VelocityStepKMS)
	}
	if c.WindowKMS <= 0 {
		return fmt.Errorf("accumulation window %g km/s must be positive", c.WindowKMS)
	}
	return nil
}

// Profile is the cross-correlation function sampled on the velocity grid.
// Grid velocities where no mask line fell inside any order's coverage hold
// NaN and are excluded from fitting, never defaulted to zero.
type Profile struct {
	Velocity []float64
	Value    []float64
}

// ValidCount returns the number of non-NaN correlation samples.
func (p *Profile) ValidCount() int {
	n := 0
	for _, v := range p.Value {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// orderAccum accelerates windowed flux accumulation over one order with a
// flux prefix sum for pixel averages and a linear interpolant for windows
// narrower than the pixel spacing.
type orderAccum struct {
	wave   []float64
	prefix []float64
	flux   interp.PiecewiseLinear
}

func newOrderAccum(o spectrum.Order) (orderAccum, error) {
	a := orderAccum{wave: o.Wavelength}
	a.prefix = make([]float64, len(o.Flux)+1)
	for i, f := range o.Flux {
		a.prefix[i+1] = a.prefix[i] + f
	}
	if err := a.flux.Fit(o.Wavelength, o.Flux); err != nil {
		return orderAccum{}, err
	}
	return a, nil
}

// meanFlux returns the mean flux inside [lo, hi], clamped to the order span.
// When no pixel centre falls inside the window, the flux is interpolated at
// the window centre instead.
func (a orderAccum) meanFlux(lo, hi float64) float64 {
	i := sort.SearchFloat64s(a.wave, lo)
	j := sort.Search(len(a.wave), func(k int) bool { return a.wave[k] > hi })
	if j > i {
		return (a.prefix[j] - a.prefix[i]) / float64(j-i)
	}
	return a.flux.Predict((lo + hi) / 2)
}

// Correlate computes the CCF of the observed orders against the mask.
//
// For each grid velocity every mask line centre is Doppler-shifted by that
// velocity; each shifted centre falling inside an order's span contributes
// weight × (mean flux in a ±WindowKMS window) to the correlation sum, which
// is normalised by the sum of weights actually used so samples with
// differing line coverage stay comparable. The profile is finally scaled by
// its median so the continuum sits near unity.
func Correlate(orders []spectrum.Order, m *mask.Mask, cfg Config) (*Profile, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("correlate requires at least one order")
	}

	accums := make([]orderAccum, len(orders))
	spans := make([][2]float64, len(orders))
	for i, o := range orders {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		a, err := newOrderAccum(o)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		accums[i] = a
		spans[i][0], spans[i][1] = o.Span()
	}

	n := int(math.Floor((cfg.VelocityMaxKMS-cfg.VelocityMinKMS)/cfg.VelocityStepKMS)) + 1
	p := &Profile{
		Velocity: make([]float64, n),
		Value:    make([]float64, n),
	}

	for k := 0; k < n; k++ {
		v := cfg.VelocityMinKMS + float64(k)*cfg.VelocityStepKMS
		p.Velocity[k] = v
		gamma := units.DopplerFactor(v)

		var sum, weightSum float64
		for _, line := range m.Lines {
			shifted := line.Center * gamma
			halfWidth := units.VelocityWindowToWavelength(shifted, cfg.WindowKMS)
			for i := range accums {
				if shifted < spans[i][0] || shifted > spans[i][1] {
					continue
				}
				lo := math.Max(shifted-halfWidth, spans[i][0])
				hi := math.Min(shifted+halfWidth, spans[i][1])
				sum += line.Weight * accums[i].meanFlux(lo, hi)
				weightSum += line.Weight
			}
		}

		if weightSum == 0 {
			p.Value[k] = math.NaN()
			continue
		}
		p.Value[k] = sum / weightSum
	}

	normalizeByMedian(p)
	return p, nil
}

// normalizeByMedian scales the profile by the median of its valid samples.
func normalizeByMedian(p *Profile) {
	valid := make([]float64, 0, len(p.Value))
	for _, v := range p.Value {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return
	}
	sort.Float64s(valid)
	med := stat.Quantile(0.5, stat.Empirical, valid, nil)
	if med == 0 || math.IsNaN(med) {
		return
	}
	for i, v := range p.Value {
		if !math.IsNaN(v) {
			p.Value[i] = v / med
		}
	}
}
