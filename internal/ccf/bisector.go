package ccf

import "math"

// bisectorSpan measures line-profile asymmetry directly from the raw CCF
// samples, independent of the Gaussian fit. At each fractional depth level
// between the profile minimum and the continuum, the bisector is the
// midpoint velocity between the two profile crossings at that level. The
// span is the mean bisector of the low-depth band (near the continuum) minus
// the mean bisector of the high-depth band (near the core).
//
// vs and ys are the valid fit-window samples in increasing velocity order.
// Returns NaN when the profile does not cross one of the requested bands.
func bisectorSpan(vs, ys []float64, cont float64, cfg FitConfig) float64 {
	if len(vs) < 3 {
		return math.NaN()
	}

	minIdx := 0
	for i, y := range ys {
		if y < ys[minIdx] {
			minIdx = i
		}
	}
	depthRange := cont - ys[minIdx]
	if depthRange <= 0 {
		return math.NaN()
	}

	low, okLow := meanBisector(vs, ys, minIdx, cont, depthRange, cfg.BISLowDepth, cfg.BISDepthSteps)
	high, okHigh := meanBisector(vs, ys, minIdx, cont, depthRange, cfg.BISHighDepth, cfg.BISDepthSteps)
	if !okLow || !okHigh {
		return math.NaN()
	}
	return low - high
}

// meanBisector averages the bisector velocity over a band of fractional
// depths. A level that the profile never crosses on one side is skipped; a
// band with no crossing at all reports !ok.
func meanBisector(vs, ys []float64, minIdx int, cont, depthRange float64, band [2]float64, steps int) (float64, bool) {
	if steps < 2 {
		steps = 2
	}

	var sum float64
	count := 0
	for k := 0; k < steps; k++ {
		t := band[0] + (band[1]-band[0])*float64(k)/float64(steps-1)
		level := cont - t*depthRange

		left, okL := crossLeft(vs, ys, minIdx, level)
		right, okR := crossRight(vs, ys, minIdx, level)
		if !okL || !okR {
			continue
		}
		sum += (left + right) / 2
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// crossLeft walks from the minimum towards lower velocities and linearly
// interpolates the first crossing of the level.
func crossLeft(vs, ys []float64, minIdx int, level float64) (float64, bool) {
	for i := minIdx; i > 0; i-- {
		if ys[i-1] >= level && ys[i] < level {
			return lerpCross(vs[i-1], ys[i-1], vs[i], ys[i], level), true
		}
	}
	return 0, false
}

// crossRight walks from the minimum towards higher velocities.
func crossRight(vs, ys []float64, minIdx int, level float64) (float64, bool) {
	for i := minIdx; i < len(vs)-1; i++ {
		if ys[i] < level && ys[i+1] >= level {
			return lerpCross(vs[i], ys[i], vs[i+1], ys[i+1], level), true
		}
	}
	return 0, false
}

func lerpCross(v0, y0, v1, y1, level float64) float64 {
	if y1 == y0 {
		return (v0 + v1) / 2
	}
	return v0 + (v1-v0)*(level-y0)/(y1-y0)
}
