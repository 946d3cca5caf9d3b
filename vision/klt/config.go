// Package klt implements the Kanade-Lucas-Tomasi feature tracker, on a single image and over
// an image pyramid.
package klt

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	rutils "go.viam.com/klt/utils"
)

// Config contains the parameters of a KLT tracker.
type Config struct {
	// MaxIterations bounds the number of gauss-newton steps per track.
	MaxIterations int `json:"max_iterations"`
	// MaxPerPixelError is the largest mean absolute intensity difference a track may end with.
	MaxPerPixelError float64 `json:"max_per_pixel_error"`
	// MinDeterminant is compared against det(G) divided by the number of valid samples.
	MinDeterminant float64 `json:"min_determinant"`
	// MinPositionDelta stops the iteration once both components of a step are smaller.
	MinPositionDelta float64 `json:"min_position_delta"`
	// ForbiddenBorder is the width in pixels of the image border that is never sampled.
	ForbiddenBorder int `json:"forbidden_border"`
	// DriftTolerance is the largest displacement, as a fraction of the window width, a track
	// may move before it is reported as drifted. Values <= 0 disable the check.
	DriftTolerance float64 `json:"drift_tolerance"`
}

// DefaultConfig returns the default tracker parameters.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    15,
		MaxPerPixelError: 25,
		MinDeterminant:   0.001,
		MinPositionDelta: 0.01,
		ForbiddenBorder:  0,
		DriftTolerance:   1,
	}
}

// LoadConfig loads a Config from a json file. Fields missing from the file keep their default.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := rutils.DecodeJSONFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures all parts of the Config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	if cfg.MaxIterations < 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("max_iterations should be >= 1")))
	}
	if cfg.MaxPerPixelError <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("max_per_pixel_error should be > 0")))
	}
	if cfg.MinDeterminant <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("min_determinant should be > 0")))
	}
	if cfg.MinPositionDelta <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("min_position_delta should be > 0")))
	}
	if cfg.ForbiddenBorder < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("forbidden_border should be >= 0")))
	}
	return errs
}
