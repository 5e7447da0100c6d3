package ccf

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// FWHMFactor converts a Gaussian sigma to the full width at half maximum.
const FWHMFactor = 2.3548

// FitConfig controls the Gaussian peak fit and the bisector computation.
type FitConfig struct {
	// WindowKMS is the half-width of the fit window centred on the CCF
	// minimum (km/s).
	WindowKMS float64

	// MaxIterations bounds the least-squares iteration budget.
	MaxIterations int

	// MinValidSamples is the minimum number of non-NaN profile samples
	// required inside the fit window.
	MinValidSamples int

	// BISLowDepth and BISHighDepth are the fractional-depth bands used for
	// the bisector span: depth 0 at the continuum, 1 at the profile minimum.
	BISLowDepth  [2]float64
	BISHighDepth [2]float64

	// BISDepthSteps is the number of depth levels sampled per band.
	BISDepthSteps int
}

// DefaultFitConfig returns the fit window and bisector bands used for
// typical CCF profiles.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		WindowKMS:       25,
		MaxIterations:   500,
		MinValidSamples: 9,
		BISLowDepth:     [2]float64{0.10, 0.40},
		BISHighDepth:    [2]float64{0.60, 0.90},
		BISDepthSteps:   10,
	}
}

// Result holds the quantities derived from one CCF profile.
type Result struct {
	RV       float64 // fitted centre, km/s
	RVErr    float64 // 1-sigma from the fit covariance, km/s
	FWHM     float64 // 2.3548·sigma, km/s
	Contrast float64 // fractional CCF depth, positive for absorption
	BIS      float64 // bisector span from raw profile crossings, km/s;
	// NaN when the profile does not support the bisector bands
}

// ConvergenceError reports a peak fit that did not converge within the
// iteration budget, or a profile with too few valid samples to fit.
type ConvergenceError struct {
	Reason     string
	Iterations int
}

func (e ConvergenceError) Error() string {
	if e.Iterations > 0 {
		return fmt.Sprintf("CCF peak fit did not converge after %d iterations: %s", e.Iterations, e.Reason)
	}
	return fmt.Sprintf("CCF peak fit failed: %s", e.Reason)
}

// gaussModel evaluates cont + depth·exp(−(v−mu)²/(2σ²)).
// Parameter order matches the optimisation vector: depth, mu, sigma, cont.
func gaussModel(x []float64, v float64) float64 {
	depth, mu, sigma, cont := x[0], x[1], x[2], x[3]
	d := (v - mu) / sigma
	return cont + depth*math.Exp(-0.5*d*d)
}

// Fit fits a Gaussian to the CCF minimum and derives the radial velocity,
// its uncertainty, FWHM, contrast and bisector span.
func Fit(p *Profile, cfg FitConfig) (*Result, error) {
	if cfg.MinValidSamples < 5 {
		// Four model parameters: anything fewer leaves no degrees of freedom.
		cfg.MinValidSamples = 5
	}

	minIdx := -1
	minVal := math.Inf(1)
	for i, y := range p.Value {
		if !math.IsNaN(y) && y < minVal {
			minVal = y
			minIdx = i
		}
	}
	if minIdx < 0 {
		return nil, ConvergenceError{Reason: "profile has no valid samples"}
	}

	center := p.Velocity[minIdx]
	var vs, ys []float64
	for i, y := range p.Value {
		if math.IsNaN(y) {
			continue
		}
		if math.Abs(p.Velocity[i]-center) <= cfg.WindowKMS {
			vs = append(vs, p.Velocity[i])
			ys = append(ys, y)
		}
	}
	if len(vs) < cfg.MinValidSamples {
		return nil, ConvergenceError{
			Reason: fmt.Sprintf("only %d valid samples in fit window, need %d", len(vs), cfg.MinValidSamples),
		}
	}

	cont0 := medianOf(ys)
	x0 := []float64{minVal - cont0, center, cfg.WindowKMS / 5, cont0}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			var sse float64
			for i, v := range vs {
				r := gaussModel(x, v) - ys[i]
				sse += r * r
			}
			return sse
		},
	}
	settings := &optimize.Settings{
		MajorIterations: cfg.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, ConvergenceError{Reason: err.Error(), Iterations: statsIterations(res)}
	}
	switch res.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.Failure, optimize.NotTerminated:
		return nil, ConvergenceError{
			Reason:     fmt.Sprintf("optimiser stopped with status %v", res.Status),
			Iterations: statsIterations(res),
		}
	}

	depth, mu, sigma, cont := res.X[0], res.X[1], math.Abs(res.X[2]), res.X[3]
	if !finite(mu) || !finite(sigma) || sigma == 0 || !finite(cont) || cont == 0 {
		return nil, ConvergenceError{
			Reason:     fmt.Sprintf("degenerate fit parameters (mu=%g sigma=%g cont=%g)", mu, sigma, cont),
			Iterations: statsIterations(res),
		}
	}

	result := &Result{
		RV:       mu,
		RVErr:    rvUncertainty(res.X, vs, ys),
		FWHM:     FWHMFactor * sigma,
		Contrast: -depth / cont,
		BIS:      bisectorSpan(vs, ys, cont, cfg),
	}
	return result, nil
}

// rvUncertainty propagates the 1-sigma uncertainty of the fitted centre from
// the least-squares covariance s²·(JᵀJ)⁻¹ with the analytic Jacobian of the
// Gaussian model.
func rvUncertainty(x, vs, ys []float64) float64 {
	n := len(vs)
	dof := n - len(x)
	if dof <= 0 {
		return math.NaN()
	}

	depth, mu, sigma := x[0], x[1], x[2]
	jac := mat.NewDense(n, 4, nil)
	var sse float64
	for i, v := range vs {
		d := (v - mu) / sigma
		e := math.Exp(-0.5 * d * d)
		jac.Set(i, 0, e)
		jac.Set(i, 1, depth*e*(v-mu)/(sigma*sigma))
		jac.Set(i, 2, depth*e*(v-mu)*(v-mu)/(sigma*sigma*sigma))
		jac.Set(i, 3, 1)

		r := gaussModel(x, v) - ys[i]
		sse += r * r
	}

	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)
	var inv mat.Dense
	if err := inv.Inverse(&jtj); err != nil {
		return math.NaN()
	}

	s2 := sse / float64(dof)
	variance := s2 * inv.At(1, 1)
	if variance < 0 {
		return math.NaN()
	}
	return math.Sqrt(variance)
}

func statsIterations(res *optimize.Result) int {
	if res == nil {
		return 0
	}
	return res.Stats.MajorIterations
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
