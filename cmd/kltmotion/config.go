package main

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/klt/vision/keypoints"
	"go.viam.com/klt/vision/odometry"
	"go.viam.com/klt/vision/tracking"
)

// trackConfig is the configuration file of the track command.
type trackConfig struct {
	Tracking tracking.ManagerConfig    `json:"tracking"`
	Detector keypoints.ShiTomasiConfig `json:"detector"`
	Motion   odometry.MotionConfig     `json:"motion"`
	// Levels is the number of pyramid levels; level i is 2^i times smaller than the frame.
	Levels int `json:"levels"`
	// Sigma is the standard deviation of the blur applied before each reduction; 0 disables it.
	Sigma float64 `json:"sigma"`
}

func defaultTrackConfig() trackConfig {
	return trackConfig{
		Tracking: tracking.DefaultManagerConfig(),
		Detector: keypoints.DefaultShiTomasiConfig(),
		Motion:   odometry.DefaultMotionConfig(),
		Levels:   3,
		Sigma:    1,
	}
}

// Validate ensures all parts of the trackConfig are valid.
func (cfg *trackConfig) Validate(path string) error {
	errs := multierr.Combine(
		cfg.Tracking.Validate(path),
		cfg.Detector.Validate(path),
		cfg.Motion.Validate(path),
	)
	if cfg.Levels < 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("levels should be >= 1")))
	}
	if cfg.Sigma < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("sigma should be >= 0")))
	}
	return errs
}

// scales returns the reduction ratio of every pyramid level.
func (cfg *trackConfig) scales() []int {
	scales := make([]int, cfg.Levels)
	for i := range scales {
		scales[i] = 1 << i
	}
	return scales
}
