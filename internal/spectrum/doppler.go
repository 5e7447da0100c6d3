package spectrum

import (
	"github.com/stellar-data/activity.report/internal/units"
)

// ShiftToRestFrame returns a new set of orders with every wavelength divided
// by the Doppler factor (1 + rv/c), moving the spectrum into the star's rest
// frame. Flux and error sequences are shared with the input orders; only the
// wavelength axis moves.
//
// A non-finite rv fails with InvalidRVError.
func ShiftToRestFrame(orders []Order, rvKMS float64) ([]Order, error) {
	if !units.IsFiniteVelocity(rvKMS) {
		return nil, InvalidRVError{RV: rvKMS}
	}

	gamma := units.DopplerFactor(rvKMS)
	shifted := make([]Order, len(orders))
	for i, o := range orders {
		wave := make([]float64, len(o.Wavelength))
		for j, w := range o.Wavelength {
			wave[j] = w / gamma
		}
		shifted[i] = Order{
			Wavelength: wave,
			Flux:       o.Flux,
			Error:      o.Error,
		}
	}
	return shifted, nil
}
