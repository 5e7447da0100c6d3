package indices

import (
	"errors"
	"fmt"
	"math"

	"github.com/stellar-data/activity.report/internal/spectrum"
)

// Config holds the calculator tuning.
type Config struct {
	// SCalibration is the instrument-specific scale applied to the S-index
	// to place it on the Mount-Wilson system.
	SCalibration float64
}

// DefaultConfig returns an uncalibrated setup (raw band ratio S-index).
func DefaultConfig() Config {
	return Config{SCalibration: 1.0}
}

// Value is one activity index with its propagated 1-sigma uncertainty.
type Value struct {
	Value float64
	Err   float64
}

// Set holds the computed indices and, for indices that could not be
// computed, the per-index failure. A missing band fails only its own index;
// the rest of the set is still valid.
type Set struct {
	Values map[string]Value
	Failed map[string]error
}

// Has reports whether the named index was computed.
func (s *Set) Has(name string) bool {
	_, ok := s.Values[name]
	return ok
}

// Compute integrates every activity index from the merged spectrum.
//
// Each index is a ratio of summed core-band fluxes to combined reference-band
// fluxes, with the uncertainty propagated to first order through the ratio:
// σ_idx = idx · sqrt((σ_num/num)² + (σ_den/den)²).
func Compute(ms spectrum.MergedSpectrum, cfg Config) *Set {
	if cfg.SCalibration == 0 {
		cfg.SCalibration = 1.0
	}

	set := &Set{
		Values: make(map[string]Value),
		Failed: make(map[string]error),
	}

	for _, def := range definitions() {
		val, err := computeOne(ms, def, cfg)
		if err != nil {
			set.Failed[def.name] = err
			continue
		}
		set.Values[def.name] = val
	}
	return set
}

// ComputeIndex integrates a single named index. Unknown names report an
// error; a band without wavelength coverage reports CoverageError.
func ComputeIndex(ms spectrum.MergedSpectrum, name string, cfg Config) (Value, error) {
	if cfg.SCalibration == 0 {
		cfg.SCalibration = 1.0
	}
	for _, def := range definitions() {
		if def.name == name {
			return computeOne(ms, def, cfg)
		}
	}
	return Value{}, fmt.Errorf("unknown activity index %q", name)
}

func computeOne(ms spectrum.MergedSpectrum, def definition, cfg Config) (Value, error) {
	var num, numVar float64
	for _, b := range def.core {
		f, s, err := bandFlux(ms, b)
		if err != nil {
			return Value{}, tagIndex(err, def.name)
		}
		num += f
		numVar += s * s
	}

	var den, denVar float64
	for _, b := range def.reference {
		f, s, err := bandFlux(ms, b)
		if err != nil {
			return Value{}, tagIndex(err, def.name)
		}
		den += f
		denVar += s * s
	}
	if def.denom == denomMean {
		den /= float64(len(def.reference))
		denVar /= float64(len(def.reference) * len(def.reference))
	}
	if num == 0 || den == 0 {
		return Value{}, fmt.Errorf("index %s: zero band flux (num=%g den=%g)", def.name, num, den)
	}

	value := num / den
	if def.scaled {
		value *= cfg.SCalibration
	}
	relNum := math.Sqrt(numVar) / num
	relDen := math.Sqrt(denVar) / den
	sigma := math.Abs(value) * math.Sqrt(relNum*relNum+relDen*relDen)

	return Value{Value: value, Err: sigma}, nil
}

// tagIndex stamps the owning index name onto a CoverageError.
func tagIndex(err error, index string) error {
	var cov CoverageError
	if errors.As(err, &cov) {
		cov.Index = index
		return cov
	}
	return err
}
