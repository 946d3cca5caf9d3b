// Package ransac implements RANdom SAmple Consensus, a robust estimator that fits a model to
// data contaminated with outliers.
package ransac

import (
	"math"

	"github.com/pkg/errors"
)

// ModelFitter fits a model to a set of points. Models are expected to be pointers so they can
// be filled in place.
type ModelFitter[M, P any] interface {
	// NewModel allocates a model.
	NewModel() M
	// MinimumPoints is the smallest number of points a model is defined by.
	MinimumPoints() int
	// FitModel fits found to data, starting from initial when the fitter iterates. initial is
	// the zero M when there is no estimate. It returns false if no model could be fitted.
	FitModel(data []P, initial M, found M) bool
}

// DistanceFromModel computes how far a point is from a model.
type DistanceFromModel[M, P any] interface {
	SetModel(model M)
	ComputeDistance(point P) float64
}

// Ransac finds the model supported by the most points of a data set. It is not safe for
// concurrent use.
type Ransac[M, P any] struct {
	fitter   ModelFitter[M, P]
	distance DistanceFromModel[M, P]
	cfg      Config

	sampleSize   int
	minMatchSize int
	sampler      *sampler

	candidate M
	refined   M
	best      M

	sample       []P
	matchIndices []int
	bestIndices  []int
	matchSet     []P
	iterations   int
	err          float64
}

// New returns a Ransac fitting models with fitter and scoring them with distance.
func New[M, P any](fitter ModelFitter[M, P], distance DistanceFromModel[M, P], cfg Config) (*Ransac[M, P], error) {
	if fitter == nil || distance == nil {
		return nil, errors.New("a model fitter and a distance are required")
	}
	if err := cfg.Validate("ransac"); err != nil {
		return nil, err
	}
	sampleSize := cfg.NumInitialSample
	if sampleSize == 0 {
		sampleSize = fitter.MinimumPoints()
	}
	if sampleSize < fitter.MinimumPoints() {
		return nil, errors.Errorf("num_initial_sample %d is smaller than the %d points a model needs", sampleSize, fitter.MinimumPoints())
	}
	minMatchSize := cfg.MinMatchSetSize
	if minMatchSize == 0 {
		minMatchSize = sampleSize
	}
	return &Ransac[M, P]{
		fitter:       fitter,
		distance:     distance,
		cfg:          cfg,
		sampleSize:   sampleSize,
		minMatchSize: minMatchSize,
		sampler:      newSampler(cfg.Seed),
		candidate:    fitter.NewModel(),
		refined:      fitter.NewModel(),
		best:         fitter.NewModel(),
	}, nil
}

// SetMaxIterations changes the number of samples drawn by the next Process.
func (r *Ransac[M, P]) SetMaxIterations(n int) {
	r.cfg.MaxIterations = n
}

// SetSeed restarts the random stream from seed.
func (r *Ransac[M, P]) SetSeed(seed int64) {
	r.cfg.Seed = seed
	r.sampler = newSampler(seed)
}

// Process searches for the best model of data. It returns false when no sample led to a match
// set of at least the minimum size, in which case the match set is empty.
func (r *Ransac[M, P]) Process(data []P) bool {
	var zero M
	r.matchSet = r.matchSet[:0]
	r.bestIndices = r.bestIndices[:0]
	r.iterations = 0
	r.err = math.Inf(1)
	if len(data) < r.sampleSize {
		return false
	}

	found := false
	bestOutliers := math.MaxInt
	for iter := 0; iter < r.cfg.MaxIterations; iter++ {
		r.iterations = iter + 1

		r.sample = r.sample[:0]
		for _, idx := range r.sampler.draw(len(data), r.sampleSize) {
			r.sample = append(r.sample, data[idx])
		}
		if !r.fitter.FitModel(r.sample, zero, r.candidate) {
			continue
		}
		r.distance.SetModel(r.candidate)
		// NaN distances never pass
		if mean := meanDistance(r.distance, r.sample); !(mean <= r.cfg.InitialModelThresh) {
			continue
		}
		r.selectMatchSet(data)
		if len(r.matchIndices) < r.minMatchSize {
			continue
		}

		// refine on the whole match set and rescore
		r.matchSet = r.matchSet[:0]
		for _, idx := range r.matchIndices {
			r.matchSet = append(r.matchSet, data[idx])
		}
		refined := r.fitter.FitModel(r.matchSet, r.candidate, r.refined)
		if refined {
			r.distance.SetModel(r.refined)
			r.selectMatchSet(data)
			if len(r.matchIndices) < r.minMatchSize {
				continue
			}
		}

		outliers := len(data) - len(r.matchIndices)
		if outliers < bestOutliers {
			bestOutliers = outliers
			found = true
			// keep the winning model out of the scratch rotation
			if refined {
				r.best, r.refined = r.refined, r.best
			} else {
				r.best, r.candidate = r.candidate, r.best
			}
			r.bestIndices = append(r.bestIndices[:0], r.matchIndices...)
			if r.cfg.ExitIterThreshold > 0 && len(r.bestIndices) >= r.cfg.ExitIterThreshold {
				break
			}
		}
	}

	r.matchSet = r.matchSet[:0]
	if !found {
		return false
	}
	for _, idx := range r.bestIndices {
		r.matchSet = append(r.matchSet, data[idx])
	}
	r.distance.SetModel(r.best)
	r.err = meanDistance(r.distance, r.matchSet)
	return true
}

func (r *Ransac[M, P]) selectMatchSet(data []P) {
	r.matchIndices = r.matchIndices[:0]
	for i, p := range data {
		if r.distance.ComputeDistance(p) <= r.cfg.MatchSetThreshold {
			r.matchIndices = append(r.matchIndices, i)
		}
	}
}

func meanDistance[M, P any](distance DistanceFromModel[M, P], points []P) float64 {
	if len(points) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, p := range points {
		sum += distance.ComputeDistance(p)
	}
	return sum / float64(len(points))
}

// Model returns the best model found by the latest Process. It is overwritten by the next one.
func (r *Ransac[M, P]) Model() M {
	return r.best
}

// MatchSet returns the points supporting the best model.
func (r *Ransac[M, P]) MatchSet() []P {
	return r.matchSet
}

// MatchIndices returns the indices in the data set of the points supporting the best model.
func (r *Ransac[M, P]) MatchIndices() []int {
	return r.bestIndices
}

// Iterations returns how many samples the latest Process drew.
func (r *Ransac[M, P]) Iterations() int {
	return r.iterations
}

// Error returns the mean distance of the match set to the best model, +Inf after a failure.
func (r *Ransac[M, P]) Error() float64 {
	return r.err
}

// MinimumSize returns the number of points of a random sample.
func (r *Ransac[M, P]) MinimumSize() int {
	return r.sampleSize
}
