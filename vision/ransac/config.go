package ransac

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	rutils "go.viam.com/klt/utils"
)

// Config contains the parameters of a Ransac.
type Config struct {
	// MaxIterations is the number of random samples drawn.
	MaxIterations int `json:"max_iterations"`
	// NumInitialSample is the size of a random sample; 0 uses the minimum of the fitter.
	NumInitialSample int `json:"num_initial_sample"`
	// InitialModelThresh is the largest mean distance of the sample points to the model fitted
	// on them for the sample to be expanded into a match set.
	InitialModelThresh float64 `json:"initial_model_thresh"`
	// MatchSetThreshold is the largest distance of a point to the model to be a match.
	MatchSetThreshold float64 `json:"match_set_threshold"`
	// MinMatchSetSize is the smallest match set a model needs to be accepted; 0 uses the
	// sample size.
	MinMatchSetSize int `json:"min_match_set_size"`
	// ExitIterThreshold stops iterating once a match set is at least this large; <= 0 disables.
	ExitIterThreshold int `json:"exit_iter_threshold"`
	Seed              int64 `json:"seed"`
}

// DefaultConfig returns the default ransac parameters.
func DefaultConfig() Config {
	return Config{
		MaxIterations:      200,
		InitialModelThresh: 1,
		MatchSetThreshold:  1,
		Seed:               0xBEEF,
	}
}

// LoadConfig loads a Config from a json file on top of the defaults.
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
	if cfg.NumInitialSample < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("num_initial_sample should be >= 0")))
	}
	if cfg.InitialModelThresh <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("initial_model_thresh should be > 0")))
	}
	if cfg.MatchSetThreshold <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("match_set_threshold should be > 0")))
	}
	if cfg.MinMatchSetSize < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("min_match_set_size should be >= 0")))
	}
	return errs
}
