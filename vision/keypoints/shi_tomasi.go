package keypoints

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/klt/rimage"
	rutils "go.viam.com/klt/utils"
)

// Detector finds corners on an image given its derivatives. Corners closer than the detector's
// exclusion radius to any point of exclude are not reported.
type Detector[I, D rimage.Pixel] interface {
	Detect(img *rimage.Plane[I], derivX, derivY *rimage.Plane[D], exclude []image.Point) Corners
}

// ShiTomasiConfig contains the parameters of the Shi-Tomasi corner detector.
type ShiTomasiConfig struct {
	// WindowRadius is the radius of the window the gradient covariance is summed over.
	WindowRadius int `json:"window_radius"`
	// Weighted weighs the window with a gaussian instead of a box.
	Weighted bool `json:"weighted"`
	// NMSRadius is the radius of the non-maximum suppression neighborhood.
	NMSRadius int `json:"nms_radius"`
	// Threshold is the smallest intensity a corner can have.
	Threshold float64 `json:"threshold"`
	// MaxFeatures caps the number of returned corners; <= 0 means unbounded.
	MaxFeatures int `json:"max_features"`
	// ExcludeRadius is the distance around excluded points where corners are discarded.
	ExcludeRadius int `json:"exclude_radius"`
}

// DefaultShiTomasiConfig returns the default detector configuration.
func DefaultShiTomasiConfig() ShiTomasiConfig {
	return ShiTomasiConfig{
		WindowRadius:  2,
		NMSRadius:     2,
		Threshold:     1,
		MaxFeatures:   -1,
		ExcludeRadius: 3,
	}
}

// LoadShiTomasiConfig loads a ShiTomasiConfig from a json file on top of the defaults.
func LoadShiTomasiConfig(path string) (*ShiTomasiConfig, error) {
	cfg := DefaultShiTomasiConfig()
	if err := rutils.DecodeJSONFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures all parts of the ShiTomasiConfig are valid.
func (cfg *ShiTomasiConfig) Validate(path string) error {
	var errs error
	if cfg.WindowRadius < 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("window_radius should be >= 1")))
	}
	if cfg.NMSRadius < 1 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("nms_radius should be >= 1")))
	}
	if cfg.Threshold < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("threshold should be >= 0")))
	}
	if cfg.ExcludeRadius < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("exclude_radius should be >= 0")))
	}
	return errs
}

// ShiTomasi scores pixels by the smallest eigenvalue of their gradient covariance.
type ShiTomasi[I, D rimage.Pixel] struct {
	cfg     ShiTomasiConfig
	weights []float64
}

// NewShiTomasi returns a detector for the given configuration.
func NewShiTomasi[I, D rimage.Pixel](cfg ShiTomasiConfig) (*ShiTomasi[I, D], error) {
	if err := cfg.Validate("shi_tomasi"); err != nil {
		return nil, err
	}
	size := 2*cfg.WindowRadius + 1
	weights := make([]float64, size)
	gaus := rimage.GaussianFunction1D(float64(cfg.WindowRadius) / 2)
	for i := range weights {
		if cfg.Weighted {
			weights[i] = gaus(float64(i - cfg.WindowRadius))
		} else {
			weights[i] = 1
		}
	}
	return &ShiTomasi[I, D]{cfg: cfg, weights: weights}, nil
}

// Config returns the detector configuration.
func (st *ShiTomasi[I, D]) Config() ShiTomasiConfig {
	return st.cfg
}

// Intensity returns the corner intensity of every pixel. Pixels closer than the window radius to
// the border get zero.
func (st *ShiTomasi[I, D]) Intensity(derivX, derivY *rimage.Plane[D]) *rimage.Plane[float64] {
	w, h := derivX.Width(), derivX.Height()
	r := st.cfg.WindowRadius
	out := rimage.NewPlane[float64](w, h)
	for y := r; y < h-r; y++ {
		for x := r; x < w-r; x++ {
			var gxx, gyy, gxy float64
			for j := -r; j <= r; j++ {
				rowX := derivX.Row(y + j)
				rowY := derivY.Row(y + j)
				wy := st.weights[j+r]
				for i := -r; i <= r; i++ {
					weight := wy * st.weights[i+r]
					dx := float64(rowX[x+i])
					dy := float64(rowY[x+i])
					gxx += weight * dx * dx
					gyy += weight * dy * dy
					gxy += weight * dx * dy
				}
			}
			out.Set(x, y, minEigenvalue(gxx, gyy, gxy))
		}
	}
	return out
}

func minEigenvalue(gxx, gyy, gxy float64) float64 {
	mean := (gxx + gyy) / 2
	diff := (gxx - gyy) / 2
	return mean - math.Sqrt(diff*diff+gxy*gxy)
}

// Detect returns the local maxima of the corner intensity above the threshold, strongest first.
func (st *ShiTomasi[I, D]) Detect(img *rimage.Plane[I], derivX, derivY *rimage.Plane[D], exclude []image.Point) Corners {
	intensity := st.Intensity(derivX, derivY)
	w, h := intensity.Width(), intensity.Height()
	excludeSq := st.cfg.ExcludeRadius * st.cfg.ExcludeRadius

	candidates := Corners{}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := intensity.At(x, y)
			if v <= 0 || v < st.cfg.Threshold {
				continue
			}
			if !st.isLocalMax(intensity, x, y, v) {
				continue
			}
			if isExcluded(x, y, exclude, excludeSq) {
				continue
			}
			candidates = append(candidates, Corner{X: x, Y: y, Intensity: v})
		}
	}

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = -c.Intensity
	}
	order := make([]int, len(candidates))
	floats.Argsort(scores, order)

	n := len(candidates)
	if st.cfg.MaxFeatures > 0 && n > st.cfg.MaxFeatures {
		n = st.cfg.MaxFeatures
	}
	out := make(Corners, n)
	for i := range out {
		out[i] = candidates[order[i]]
	}
	return out
}

// isLocalMax keeps the first pixel in raster order of a plateau.
func (st *ShiTomasi[I, D]) isLocalMax(intensity *rimage.Plane[float64], x, y int, v float64) bool {
	r := st.cfg.NMSRadius
	for j := -r; j <= r; j++ {
		for i := -r; i <= r; i++ {
			nx, ny := x+i, y+j
			if (i == 0 && j == 0) || !intensity.In(nx, ny) {
				continue
			}
			other := intensity.At(nx, ny)
			before := j < 0 || (j == 0 && i < 0)
			if other > v || (before && other == v) {
				return false
			}
		}
	}
	return true
}

func isExcluded(x, y int, exclude []image.Point, radiusSq int) bool {
	for _, p := range exclude {
		dx, dy := p.X-x, p.Y-y
		if dx*dx+dy*dy <= radiusSq {
			return true
		}
	}
	return false
}
