// Package tracking maintains a population of KLT tracks across a sequence of frames: it
// tracks the active features, drops the ones that fail and spawns new ones when too few remain.
package tracking

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	rutils "go.viam.com/klt/utils"
	"go.viam.com/klt/vision/klt"
)

// ManagerConfig contains the parameters of a Manager.
type ManagerConfig struct {
	KLT klt.Config `json:"klt"`
	// TemplateRadius is the radius of the feature windows.
	TemplateRadius int `json:"template_radius"`
	// MinFeatures triggers spawning when fewer tracks are active after a frame.
	MinFeatures int `json:"min_features"`
	// MaxFeatures caps the number of active tracks.
	MaxFeatures int `json:"max_features"`
	// ExcludeRadius discards spawn candidates closer than this, in level 0 pixels, to an active track.
	ExcludeRadius int `json:"exclude_radius"`
	// ToleranceFB is the largest distance, in level 0 pixels, a track may end from its previous
	// position when tracked back into the previous frame. Negative values disable the check.
	ToleranceFB float64 `json:"tolerance_fb"`
	// UpdateDescription describes surviving tracks again on every frame instead of keeping the
	// description made when they spawned.
	UpdateDescription bool `json:"update_description"`
	// Parallel tracks features concurrently.
	Parallel bool `json:"parallel"`
}

// DefaultManagerConfig returns the default manager parameters.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		KLT:            klt.DefaultConfig(),
		TemplateRadius: 3,
		MinFeatures:    50,
		MaxFeatures:    200,
		ExcludeRadius:  5,
		ToleranceFB:    -1,
	}
}

// LoadManagerConfig loads a ManagerConfig from a json file on top of the defaults.
func LoadManagerConfig(path string) (*ManagerConfig, error) {
	cfg := DefaultManagerConfig()
	if err := rutils.DecodeJSONFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures all parts of the ManagerConfig are valid.
func (cfg *ManagerConfig) Validate(path string) error {
	errs := cfg.KLT.Validate(path)
	if cfg.TemplateRadius < 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("template_radius should be >= 1")))
	}
	if cfg.MinFeatures < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("min_features should be >= 0")))
	}
	if cfg.MaxFeatures < 1 || cfg.MaxFeatures < cfg.MinFeatures {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("max_features should be >= 1 and >= min_features")))
	}
	if cfg.ExcludeRadius < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("exclude_radius should be >= 0")))
	}
	return errs
}
