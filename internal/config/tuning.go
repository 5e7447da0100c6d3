package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stellar-data/activity.report/internal/pipeline"
)

// TuningConfig is the JSON tuning file for a pipeline run. Every field is
// optional: fields omitted from the file keep the built-in defaults, so
// partial configs are safe. Pointer fields distinguish "not set" from a
// zero value.
type TuningConfig struct {
	// Mask selection
	Mask *string `json:"mask,omitempty"` // G2, K0, K5 or M2

	// Velocity grid params
	VelocityMinKMS  *float64 `json:"velocity_min_kms,omitempty"`
	VelocityMaxKMS  *float64 `json:"velocity_max_kms,omitempty"`
	VelocityStepKMS *float64 `json:"velocity_step_kms,omitempty"`
	WindowKMS       *float64 `json:"window_kms,omitempty"`

	// Peak fit params
	FitWindowKMS    *float64 `json:"fit_window_kms,omitempty"`
	MaxIterations   *int     `json:"max_iterations,omitempty"`
	MinValidSamples *int     `json:"min_valid_samples,omitempty"`

	// Bisector depth bands, each a [low, high] pair of normalized depths.
	BISLowDepth  []float64 `json:"bis_low_depth,omitempty"`
	BISHighDepth []float64 `json:"bis_high_depth,omitempty"`

	// Index params
	SCalibration *float64 `json:"s_calibration,omitempty"`

	// Batch params
	Workers *int `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are consistent. It only
// validates cross-field constraints the pipeline cannot check on a single
// value.
func (c *TuningConfig) Validate() error {
	if c.VelocityStepKMS != nil && *c.VelocityStepKMS <= 0 {
		return fmt.Errorf("velocity_step_kms must be positive, got %f", *c.VelocityStepKMS)
	}
	if c.WindowKMS != nil && *c.WindowKMS <= 0 {
		return fmt.Errorf("window_kms must be positive, got %f", *c.WindowKMS)
	}
	if c.VelocityMinKMS != nil && c.VelocityMaxKMS != nil && *c.VelocityMinKMS >= *c.VelocityMaxKMS {
		return fmt.Errorf("velocity_min_kms %f must be below velocity_max_kms %f",
			*c.VelocityMinKMS, *c.VelocityMaxKMS)
	}
	if err := validateDepthBand("bis_low_depth", c.BISLowDepth); err != nil {
		return err
	}
	if err := validateDepthBand("bis_high_depth", c.BISHighDepth); err != nil {
		return err
	}
	if c.SCalibration != nil && *c.SCalibration <= 0 {
		return fmt.Errorf("s_calibration must be positive, got %f", *c.SCalibration)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

func validateDepthBand(name string, band []float64) error {
	if band == nil {
		return nil
	}
	if len(band) != 2 {
		return fmt.Errorf("%s must be a [low, high] pair, got %d values", name, len(band))
	}
	lo, hi := band[0], band[1]
	if lo < 0 || hi > 1 || lo >= hi {
		return fmt.Errorf("%s must satisfy 0 <= low < high <= 1, got [%f, %f]", name, lo, hi)
	}
	return nil
}

// Apply overlays the set fields onto opts. Unset fields leave opts untouched.
func (c *TuningConfig) Apply(opts *pipeline.Options) {
	if c.Mask != nil {
		opts.MaskID = *c.Mask
	}
	if c.VelocityMinKMS != nil {
		opts.CCF.VelocityMinKMS = *c.VelocityMinKMS
	}
	if c.VelocityMaxKMS != nil {
		opts.CCF.VelocityMaxKMS = *c.VelocityMaxKMS
	}
	if c.VelocityStepKMS != nil {
		opts.CCF.VelocityStepKMS = *c.VelocityStepKMS
	}
	if c.WindowKMS != nil {
		opts.CCF.WindowKMS = *c.WindowKMS
	}
	if c.FitWindowKMS != nil {
		opts.Fit.WindowKMS = *c.FitWindowKMS
	}
	if c.MaxIterations != nil {
		opts.Fit.MaxIterations = *c.MaxIterations
	}
	if c.MinValidSamples != nil {
		opts.Fit.MinValidSamples = *c.MinValidSamples
	}
	if len(c.BISLowDepth) == 2 {
		opts.Fit.BISLowDepth = [2]float64{c.BISLowDepth[0], c.BISLowDepth[1]}
	}
	if len(c.BISHighDepth) == 2 {
		opts.Fit.BISHighDepth = [2]float64{c.BISHighDepth[0], c.BISHighDepth[1]}
	}
	if c.SCalibration != nil {
		opts.Indices.SCalibration = *c.SCalibration
	}
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}
