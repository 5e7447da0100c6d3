// Package plotting renders diagnostic PNGs for a processed observation:
// the CCF profile with its Gaussian fit, and the merged spectrum with the
// activity line regions shaded.
package plotting

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/stellar-data/activity.report/internal/ccf"
	"github.com/stellar-data/activity.report/internal/indices"
	"github.com/stellar-data/activity.report/internal/spectrum"
)

var (
	profileColor = color.RGBA{R: 60, G: 100, B: 180, A: 255}
	fitColor     = color.RGBA{R: 200, G: 60, B: 60, A: 255}
	bandColor    = color.RGBA{R: 120, G: 180, B: 120, A: 80}
)

// SaveProfilePlot renders a CCF profile and its fitted Gaussian to a PNG.
// The fit curve is reconstructed from the derived quantities, with the
// continuum estimated as the median of the valid profile values.
func SaveProfilePlot(path string, profile *ccf.Profile, fit *ccf.Result) error {
	p := plot.New()
	p.Title.Text = "Mask correlation profile"
	p.X.Label.Text = "velocity (km/s)"
	p.Y.Label.Text = "CCF"

	pts := make(plotter.XYs, 0, len(profile.Velocity))
	var valid []float64
	for i, v := range profile.Velocity {
		y := profile.Value[i]
		if math.IsNaN(y) {
			continue
		}
		pts = append(pts, plotter.XY{X: v, Y: y})
		valid = append(valid, y)
	}
	if len(pts) == 0 {
		return fmt.Errorf("profile has no valid samples to plot")
	}

	profLine, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build profile line: %w", err)
	}
	profLine.Color = profileColor
	p.Add(profLine)
	p.Legend.Add("profile", profLine)

	if fit != nil && !math.IsNaN(fit.RV) {
		sort.Float64s(valid)
		cont := stat.Quantile(0.5, stat.Empirical, valid, nil)
		sigma := fit.FWHM / ccf.FWHMFactor
		depth := -fit.Contrast * cont

		fitPts := make(plotter.XYs, 0, 400)
		lo, hi := pts[0].X, pts[len(pts)-1].X
		step := (hi - lo) / 400
		for v := lo; v <= hi; v += step {
			d := (v - fit.RV) / sigma
			fitPts = append(fitPts, plotter.XY{X: v, Y: cont + depth*math.Exp(-0.5*d*d)})
		}
		fitLine, err := plotter.NewLine(fitPts)
		if err != nil {
			return fmt.Errorf("failed to build fit line: %w", err)
		}
		fitLine.Color = fitColor
		fitLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(fitLine)
		p.Legend.Add(fmt.Sprintf("fit RV=%.3f km/s", fit.RV), fitLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save profile plot: %w", err)
	}
	return nil
}

// SaveSpectrumPlot renders a merged spectrum to a PNG with the core bands of
// every activity index shaded where the spectrum covers them.
func SaveSpectrumPlot(path string, ms *spectrum.MergedSpectrum) error {
	if len(ms.Wavelength) == 0 {
		return fmt.Errorf("merged spectrum is empty")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Merged spectrum (S/N %.0f)", ms.SN)
	p.X.Label.Text = "wavelength (Å)"
	p.Y.Label.Text = "flux"

	pts := make(plotter.XYs, len(ms.Wavelength))
	maxFlux := math.Inf(-1)
	for i := range ms.Wavelength {
		pts[i] = plotter.XY{X: ms.Wavelength[i], Y: ms.Flux[i]}
		if ms.Flux[i] > maxFlux {
			maxFlux = ms.Flux[i]
		}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build spectrum line: %w", err)
	}
	line.Color = profileColor
	p.Add(line)

	wmin := ms.Wavelength[0]
	wmax := ms.Wavelength[len(ms.Wavelength)-1]
	for _, name := range indices.Names() {
		for _, band := range indices.CoreBands(name) {
			lo, hi := band.Support()
			if hi < wmin || lo > wmax {
				continue
			}
			poly, err := plotter.NewPolygon(plotter.XYs{
				{X: lo, Y: 0}, {X: hi, Y: 0},
				{X: hi, Y: maxFlux}, {X: lo, Y: maxFlux},
			})
			if err != nil {
				return fmt.Errorf("failed to shade band %s: %w", band.Name, err)
			}
			poly.Color = bandColor
			poly.LineStyle.Width = 0
			p.Add(poly)
		}
	}

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save spectrum plot: %w", err)
	}
	return nil
}
