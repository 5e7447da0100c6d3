package spectrum

import (
	"errors"
	"math"
	"testing"
)

func flatOrder(lo, hi, step, flux, errVal float64) Order {
	var o Order
	for w := lo; w <= hi+step/2; w += step {
		o.Wavelength = append(o.Wavelength, w)
		o.Flux = append(o.Flux, flux)
		o.Error = append(o.Error, errVal)
	}
	return o
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr bool
	}{
		{
			"valid order",
			Order{
				Wavelength: []float64{5000, 5001, 5002},
				Flux:       []float64{1, 1, 1},
				Error:      []float64{0.1, 0.1, 0.1},
			},
			false,
		},
		{
			"too few samples",
			Order{Wavelength: []float64{5000}, Flux: []float64{1}, Error: []float64{0.1}},
			true,
		},
		{
			"length mismatch",
			Order{
				Wavelength: []float64{5000, 5001},
				Flux:       []float64{1},
				Error:      []float64{0.1, 0.1},
			},
			true,
		},
		{
			"non-monotonic wavelengths",
			Order{
				Wavelength: []float64{5000, 5000, 5002},
				Flux:       []float64{1, 1, 1},
				Error:      []float64{0.1, 0.1, 0.1},
			},
			true,
		},
		{
			"negative error",
			Order{
				Wavelength: []float64{5000, 5001},
				Flux:       []float64{1, 1},
				Error:      []float64{0.1, -0.1},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShiftToRestFrameRoundTrip(t *testing.T) {
	orig := flatOrder(5000, 5010, 0.5, 1.0, 0.01)

	shifted, err := ShiftToRestFrame([]Order{orig}, 37.5)
	if err != nil {
		t.Fatalf("forward shift failed: %v", err)
	}
	back, err := ShiftToRestFrame(shifted, -37.5)
	if err != nil {
		t.Fatalf("inverse shift failed: %v", err)
	}

	// Shifting by RV then by -RV is the identity up to floating point.
	// The factors (1+v/c) and (1-v/c) do not cancel exactly, so compare
	// against a 1e-6 relative tolerance rather than bitwise.
	for i, w := range back[0].Wavelength {
		rel := math.Abs(w-orig.Wavelength[i]) / orig.Wavelength[i]
		if rel > 1e-6 {
			t.Fatalf("round trip wavelength %d: got %v, want %v (rel %g)",
				i, w, orig.Wavelength[i], rel)
		}
	}
}

func TestShiftToRestFrameDirection(t *testing.T) {
	orig := flatOrder(6000, 6002, 1.0, 1.0, 0.01)

	// A receding star (positive RV) is observed redshifted; the rest-frame
	// wavelengths must therefore be bluer than observed.
	shifted, err := ShiftToRestFrame([]Order{orig}, 25.0)
	if err != nil {
		t.Fatalf("shift failed: %v", err)
	}
	for i, w := range shifted[0].Wavelength {
		if w >= orig.Wavelength[i] {
			t.Fatalf("wavelength %d not blueshifted: %v >= %v", i, w, orig.Wavelength[i])
		}
	}

	// Flux and error arrays must be untouched.
	for i := range orig.Flux {
		if shifted[0].Flux[i] != orig.Flux[i] || shifted[0].Error[i] != orig.Error[i] {
			t.Fatal("flux or error modified by rest-frame shift")
		}
	}
}

func TestShiftToRestFrameInvalidRV(t *testing.T) {
	orders := []Order{flatOrder(5000, 5002, 1.0, 1.0, 0.01)}

	for _, rv := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := ShiftToRestFrame(orders, rv)
		var invalidRV InvalidRVError
		if !errors.As(err, &invalidRV) {
			t.Errorf("ShiftToRestFrame(rv=%v) error = %v, want InvalidRVError", rv, err)
		}
	}
}

func TestMergeDisjointOrdersPassthrough(t *testing.T) {
	blue := flatOrder(5000, 5005, 1.0, 3.25, 0.125)
	red := flatOrder(5100, 5105, 1.0, 7.5, 0.5)

	merged, dropped, err := Merge([]Order{blue, red})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(dropped) != 0 {
		t.Fatalf("expected no dropped samples, got %d", len(dropped))
	}
	if merged.Len() != len(blue.Wavelength)+len(red.Wavelength) {
		t.Fatalf("merged length = %d, want %d", merged.Len(),
			len(blue.Wavelength)+len(red.Wavelength))
	}

	// Non-overlap samples must pass through exactly, no weighting artifacts.
	for i := range merged.Wavelength {
		src := blue
		j := i
		if i >= len(blue.Wavelength) {
			src = red
			j = i - len(blue.Wavelength)
		}
		if merged.Wavelength[i] != src.Wavelength[j] ||
			merged.Flux[i] != src.Flux[j] ||
			merged.Error[i] != src.Error[j] {
			t.Fatalf("sample %d not passed through exactly: got (%v %v %v), want (%v %v %v)",
				i, merged.Wavelength[i], merged.Flux[i], merged.Error[i],
				src.Wavelength[j], src.Flux[j], src.Error[j])
		}
	}
}

func TestMergeInverseVarianceWeighting(t *testing.T) {
	a := flatOrder(5000, 5003, 1.0, 10.0, 1.0)
	b := flatOrder(5000, 5003, 1.0, 20.0, 2.0)

	merged, dropped, err := Merge([]Order{a, b})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(dropped) != 0 {
		t.Fatalf("expected no dropped samples, got %d", len(dropped))
	}
	if merged.Len() != len(a.Wavelength) {
		t.Fatalf("merged length = %d, want %d (duplicates combined)", merged.Len(), len(a.Wavelength))
	}

	// Closed-form inverse-variance mean: (10/1² + 20/2²) / (1/1² + 1/2²) = 12.
	wantFlux := (10.0/1.0 + 20.0/4.0) / (1.0/1.0 + 1.0/4.0)
	wantErr := 1 / math.Sqrt(1.0/1.0+1.0/4.0)
	for i := range merged.Wavelength {
		if math.Abs(merged.Flux[i]-wantFlux) > 1e-12 {
			t.Errorf("merged flux[%d] = %v, want inverse-variance mean %v", i, merged.Flux[i], wantFlux)
		}
		if math.Abs(merged.Error[i]-wantErr) > 1e-12 {
			t.Errorf("merged error[%d] = %v, want combined error %v", i, merged.Error[i], wantErr)
		}
	}
}

func TestMergeExcludesUnusableSamples(t *testing.T) {
	o := flatOrder(5000, 5004, 1.0, 10.0, 1.0)
	o.Error[2] = 0 // dead pixel: zero error carries no usable weight

	merged, dropped, err := Merge([]Order{o})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(dropped) != 1 {
		t.Fatalf("expected 1 dropped sample, got %d", len(dropped))
	}
	if dropped[0].Wavelength != 5002 {
		t.Errorf("dropped wavelength = %v, want 5002", dropped[0].Wavelength)
	}
	for _, w := range merged.Wavelength {
		if w == 5002 {
			t.Error("excluded sample still present in merged spectrum")
		}
	}
	if merged.Len() != 4 {
		t.Errorf("merged length = %d, want 4", merged.Len())
	}
}

func TestMergeSignalToNoise(t *testing.T) {
	o := flatOrder(5000, 5010, 1.0, 10.0, 2.0)

	merged, _, err := Merge([]Order{o})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if math.Abs(merged.SN-5.0) > 1e-12 {
		t.Errorf("SN = %v, want 5.0 (median flux / median error)", merged.SN)
	}
}

func TestMergeNoOrders(t *testing.T) {
	if _, _, err := Merge(nil); err == nil {
		t.Error("expected error for empty order set")
	}
}
