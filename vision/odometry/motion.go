package odometry

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/klt/logging"
	rutils "go.viam.com/klt/utils"
	"go.viam.com/klt/vision/ransac"
	"go.viam.com/klt/vision/tracking"
)

// ErrInsufficientInliers is returned when no motion is supported by enough pairs.
var ErrInsufficientInliers = errors.New("not enough inliers to estimate motion")

// Motion models known to EstimateMotion.
const (
	ModelTranslation = "translation"
	ModelAffine      = "affine"
	ModelHomography  = "homography"
)

var motionModels = []string{ModelTranslation, ModelAffine, ModelHomography}

// MotionConfig contains the parameters of the motion estimation between two frames.
type MotionConfig struct {
	Model  string        `json:"model"`
	Ransac ransac.Config `json:"ransac"`
}

// DefaultMotionConfig returns an affine model with inliers within a pixel.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		Model:  ModelAffine,
		Ransac: ransac.DefaultConfig(),
	}
}

// LoadMotionConfig loads a MotionConfig from a json file on top of the defaults.
func LoadMotionConfig(path string) (*MotionConfig, error) {
	cfg := DefaultMotionConfig()
	if err := rutils.DecodeJSONFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures all parts of the MotionConfig are valid.
func (cfg *MotionConfig) Validate(path string) error {
	errs := cfg.Ransac.Validate(path)
	if !lo.Contains(motionModels, cfg.Model) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("model %q should be one of %v", cfg.Model, motionModels)))
	}
	return errs
}

// Motion is the global motion between two frames.
type Motion struct {
	Model     string
	Transform Transform
	// Inliers are the pairs consistent with Transform and InlierIndices their indices in the
	// estimation input.
	Inliers       []tracking.AssociatedPair
	InlierIndices []int
	Iterations    int
	// residual transfer distances of the inliers
	MeanResidual   float64
	StdDevResidual float64
	MedianResidual float64
}

// InlierRatio returns the fraction of the n input pairs that are inliers.
func (m *Motion) InlierRatio(n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(len(m.Inliers)) / float64(n)
}

// EstimateMotion fits the configured motion model to pairs with RANSAC.
func EstimateMotion(pairs []tracking.AssociatedPair, cfg MotionConfig, logger logging.Logger) (*Motion, error) {
	if err := cfg.Validate("motion"); err != nil {
		return nil, err
	}
	var (
		motion *Motion
		err    error
	)
	switch cfg.Model {
	case ModelTranslation:
		motion, err = estimate[*Translation2D](TranslationFitter{}, pairs, cfg)
	case ModelAffine:
		motion, err = estimate[*Affine2D](AffineFitter{}, pairs, cfg)
	case ModelHomography:
		motion, err = estimate[*Homography2D](HomographyFitter{}, pairs, cfg)
	default:
		return nil, errors.Errorf("unknown motion model %q", cfg.Model)
	}
	if err != nil {
		if logger != nil {
			logger.Debugw("motion estimation failed", "model", cfg.Model, "pairs", len(pairs), "error", err)
		}
		return nil, err
	}
	if logger != nil {
		logger.Debugw("estimated motion",
			"model", motion.Transform.String(),
			"pairs", len(pairs),
			"inliers", len(motion.Inliers),
			"iterations", motion.Iterations,
			"median_residual", motion.MedianResidual,
		)
	}
	return motion, nil
}

func estimate[M Transform](
	fitter ransac.ModelFitter[M, tracking.AssociatedPair],
	pairs []tracking.AssociatedPair,
	cfg MotionConfig,
) (*Motion, error) {
	distance := &TransferDistance[M]{}
	r, err := ransac.New[M, tracking.AssociatedPair](fitter, distance, cfg.Ransac)
	if err != nil {
		return nil, err
	}
	if !r.Process(pairs) {
		return nil, errors.Wrapf(ErrInsufficientInliers, "%d pairs for a %s model", len(pairs), cfg.Model)
	}

	model := r.Model()
	distance.SetModel(model)
	inliers := append([]tracking.AssociatedPair(nil), r.MatchSet()...)
	residuals := lo.Map(inliers, func(pair tracking.AssociatedPair, _ int) float64 {
		return distance.ComputeDistance(pair)
	})
	mean, stdDev := stat.MeanStdDev(residuals, nil)
	median, err := stats.Median(residuals)
	if err != nil {
		return nil, errors.Wrap(err, "cannot summarize residuals")
	}
	return &Motion{
		Model:          cfg.Model,
		Transform:      model,
		Inliers:        inliers,
		InlierIndices:  append([]int(nil), r.MatchIndices()...),
		Iterations:     r.Iterations(),
		MeanResidual:   mean,
		StdDevResidual: stdDev,
		MedianResidual: median,
	}, nil
}
