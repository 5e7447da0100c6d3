package spectrum

import "fmt"

// InvalidRVError reports a non-finite radial velocity reaching the rest-frame
// shifter. This indicates a bug upstream in the peak fit and is fatal for the
// star being processed.
type InvalidRVError struct {
	RV float64
}

func (e InvalidRVError) Error() string {
	return fmt.Sprintf("invalid radial velocity %g km/s: value must be finite", e.RV)
}

// MergeDataError reports a single merged-grid wavelength sample that had to
// be excluded because every contributing order carried unusable data there
// (zero or non-finite errors, or non-finite flux). It is localized bad data,
// not fatal to the merge.
type MergeDataError struct {
	Wavelength float64
	Orders     int // number of orders that covered the sample
}

func (e MergeDataError) Error() string {
	return fmt.Sprintf("no usable data at %.4f Å (%d contributing orders)", e.Wavelength, e.Orders)
}
