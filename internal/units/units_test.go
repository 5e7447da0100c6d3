package units

import (
	"math"
	"testing"
)

func TestDopplerFactor(t *testing.T) {
	tests := []struct {
		name     string
		rvKMS    float64
		expected float64
	}{
		{"zero velocity", 0, 1.0},
		{"receding 15 km/s", 15.0, 1 + 15.0/SpeedOfLightKMS},
		{"approaching 15 km/s", -15.0, 1 - 15.0/SpeedOfLightKMS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DopplerFactor(tt.rvKMS)
			if math.Abs(got-tt.expected) > 1e-15 {
				t.Errorf("DopplerFactor(%v) = %v, expected %v", tt.rvKMS, got, tt.expected)
			}
		})
	}
}

func TestDopplerFactorRoundTrip(t *testing.T) {
	// Shifting a wavelength to the rest frame and back must be the identity.
	wave := 5500.0
	rv := 37.25
	rest := wave / DopplerFactor(rv)
	back := rest * DopplerFactor(rv)
	if math.Abs(back-wave)/wave > 1e-12 {
		t.Errorf("round trip changed wavelength: %v -> %v", wave, back)
	}
}

func TestConvertVelocity(t *testing.T) {
	tests := []struct {
		name     string
		kms      float64
		units    string
		expected float64
	}{
		{"kms passthrough", 12.5, KMS, 12.5},
		{"kms to ms", 12.5, MS, 12500},
		{"unknown unit defaults to kms", 12.5, "furlongs", 12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertVelocity(tt.kms, tt.units); got != tt.expected {
				t.Errorf("ConvertVelocity(%v, %q) = %v, expected %v", tt.kms, tt.units, got, tt.expected)
			}
		})
	}
}

func TestVelocityWindowToWavelength(t *testing.T) {
	// 2 km/s at 6000 Å is about 0.04 Å.
	got := VelocityWindowToWavelength(6000, 2.0)
	want := 6000 * 2.0 / SpeedOfLightKMS
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("VelocityWindowToWavelength = %v, expected %v", got, want)
	}
}

func TestIsFiniteVelocity(t *testing.T) {
	if !IsFiniteVelocity(42.0) {
		t.Error("expected 42.0 to be finite")
	}
	if IsFiniteVelocity(math.NaN()) {
		t.Error("expected NaN to be non-finite")
	}
	if IsFiniteVelocity(math.Inf(1)) {
		t.Error("expected +Inf to be non-finite")
	}
}

func TestVelocityLabel(t *testing.T) {
	if got := VelocityLabel(KMS); got != "km/s" {
		t.Errorf("VelocityLabel(KMS) = %q, expected km/s", got)
	}
	if got := VelocityLabel(MS); got != "m/s" {
		t.Errorf("VelocityLabel(MS) = %q, expected m/s", got)
	}
}

func TestIsValidVelocityUnit(t *testing.T) {
	for _, u := range ValidVelocityUnits {
		if !IsValidVelocityUnit(u) {
			t.Errorf("expected %q to be valid", u)
		}
	}
	if IsValidVelocityUnit("mph") {
		t.Error("expected mph to be invalid")
	}
}
