// Package units provides shared physical constants and conversions for
// velocity and wavelength quantities.
package units

import "math"

// SpeedOfLightKMS is the speed of light in km/s.
const SpeedOfLightKMS = 299792.458

// Velocity unit identifiers accepted by the CLI for printed output.
// Pipeline-internal velocities are always km/s.
const (
	KMS = "kms"
	MS  = "ms"
)

// ValidVelocityUnits contains all valid velocity unit values.
var ValidVelocityUnits = []string{KMS, MS}

// IsValidVelocityUnit checks if the given unit is in the list of valid units.
func IsValidVelocityUnit(unit string) bool {
	for _, validUnit := range ValidVelocityUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ConvertVelocity converts a velocity from km/s to the target units.
func ConvertVelocity(velocityKMS float64, targetUnits string) float64 {
	switch targetUnits {
	case MS:
		return velocityKMS * 1000
	case KMS:
		return velocityKMS
	default:
		return velocityKMS
	}
}

// VelocityLabel returns the display label for a velocity unit identifier.
func VelocityLabel(unit string) string {
	switch unit {
	case MS:
		return "m/s"
	default:
		return "km/s"
	}
}

// DopplerFactor returns the wavelength scale factor (1 + v/c) for a radial
// velocity in km/s. Dividing an observed wavelength by this factor moves it
// to the rest frame of a source receding at that velocity.
func DopplerFactor(rvKMS float64) float64 {
	return 1 + rvKMS/SpeedOfLightKMS
}

// VelocityWindowToWavelength converts a velocity half-width in km/s to the
// corresponding wavelength half-width in Å at the given central wavelength.
func VelocityWindowToWavelength(centerAngstrom, halfWidthKMS float64) float64 {
	return centerAngstrom * halfWidthKMS / SpeedOfLightKMS
}

// IsFiniteVelocity reports whether v is a usable velocity value
// (not NaN and not infinite).
func IsFiniteVelocity(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
