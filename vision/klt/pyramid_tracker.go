package klt

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/klt/rimage"
	rutils "go.viam.com/klt/utils"
	"go.viam.com/klt/vision/pyramid"
)

// PyramidImages is an image pyramid along with the derivatives of each of its levels.
type PyramidImages[I, D rimage.Pixel] struct {
	Image  *pyramid.Pyramid[I]
	DerivX []*rimage.Plane[D]
	DerivY []*rimage.Plane[D]
}

// NewPyramidImages builds the derivative planes of every level of p with gradient.
func NewPyramidImages[I, D rimage.Pixel](p *pyramid.Pyramid[I], gradient rimage.GradientFunc[I, D]) (PyramidImages[I, D], error) {
	derivX, derivY, err := pyramid.GradientPyramid(p, gradient)
	if err != nil {
		return PyramidImages[I, D]{}, err
	}
	return PyramidImages[I, D]{Image: p, DerivX: derivX, DerivY: derivY}, nil
}

// NumLevels returns the number of pyramid levels.
func (images PyramidImages[I, D]) NumLevels() int {
	if images.Image == nil {
		return 0
	}
	return images.Image.NumLevels()
}

// Validate checks that the pyramid is valid and that every level has matching derivatives.
func (images PyramidImages[I, D]) Validate() error {
	if images.Image == nil {
		return errors.New("pyramid is required")
	}
	if err := images.Image.Validate(); err != nil {
		return err
	}
	n := images.Image.NumLevels()
	if len(images.DerivX) != n || len(images.DerivY) != n {
		return errors.Errorf("pyramid has %d levels but %d and %d derivative levels", n, len(images.DerivX), len(images.DerivY))
	}
	for i, level := range images.Image.Levels {
		dx, dy := images.DerivX[i], images.DerivY[i]
		if dx == nil || dy == nil || !dx.SameShape(level.Width(), level.Height()) || !dy.SameShape(level.Width(), level.Height()) {
			return errors.Wrapf(ErrShapeMismatch, "level %d", i)
		}
	}
	return nil
}

// PyramidFeature is a feature described on every level of a pyramid. X and Y are full
// resolution coordinates.
type PyramidFeature struct {
	X, Y   float64
	Radius int
	Levels []*Feature
	// Described tells whether the description of each level succeeded. Levels that were not
	// described are skipped when tracking.
	Described []bool
	// ID is an identifier owned by the caller.
	ID int64
}

// NewPyramidFeature allocates a feature for a pyramid with numLevels levels.
func NewPyramidFeature(numLevels, radius int) *PyramidFeature {
	pf := &PyramidFeature{
		Radius:    radius,
		Levels:    make([]*Feature, numLevels),
		Described: make([]bool, numLevels),
	}
	for i := range pf.Levels {
		pf.Levels[i] = NewFeature(radius)
	}
	return pf
}

// SetPosition moves the feature to full resolution coordinates (x, y).
func (pf *PyramidFeature) SetPosition(x, y float64) {
	pf.X = x
	pf.Y = y
}

// PyramidTracker tracks features coarse to fine over an image pyramid.
type PyramidTracker[I, D rimage.Pixel] struct {
	tracker *Tracker[I, D]
	images  PyramidImages[I, D]
}

// NewPyramidTracker returns a pyramid tracker that runs tracker on every level.
func NewPyramidTracker[I, D rimage.Pixel](tracker *Tracker[I, D]) *PyramidTracker[I, D] {
	return &PyramidTracker[I, D]{tracker: tracker}
}

// Clone returns a tracker with its own scratch state bound to the same images.
func (pt *PyramidTracker[I, D]) Clone() *PyramidTracker[I, D] {
	return &PyramidTracker[I, D]{
		tracker: &Tracker[I, D]{cfg: pt.tracker.cfg},
		images:  pt.images,
	}
}

// Tracker returns the single level tracker.
func (pt *PyramidTracker[I, D]) Tracker() *Tracker[I, D] {
	return pt.tracker
}

// Images returns the bound pyramid.
func (pt *PyramidTracker[I, D]) Images() PyramidImages[I, D] {
	return pt.images
}

// SetImage binds the pyramid features are described on or tracked to.
func (pt *PyramidTracker[I, D]) SetImage(images PyramidImages[I, D]) error {
	if err := images.Validate(); err != nil {
		return err
	}
	pt.images = images
	return nil
}

// NewFeature allocates a feature matching the bound pyramid.
func (pt *PyramidTracker[I, D]) NewFeature(radius int) *PyramidFeature {
	return NewPyramidFeature(pt.images.NumLevels(), radius)
}

func (pt *PyramidTracker[I, D]) setLevel(i int) {
	// shapes were checked when the pyramid was bound
	utils.UncheckedError(pt.tracker.SetImage(pt.images.Image.Level(i), pt.images.DerivX[i], pt.images.DerivY[i]))
}

func (pt *PyramidTracker[I, D]) numLevels(pf *PyramidFeature) int {
	return rutils.MinInt(pt.images.NumLevels(), len(pf.Levels))
}

// SetDescription describes pf on every level, finest first. It fails when the finest level
// cannot be described; coarser levels that fail are marked as not described.
func (pt *PyramidTracker[I, D]) SetDescription(pf *PyramidFeature) bool {
	n := pt.numLevels(pf)
	if n == 0 {
		return false
	}
	for i := 0; i < n; i++ {
		scale := pt.images.Image.Scale(i)
		f := pf.Levels[i]
		f.SetPosition(pf.X/scale, pf.Y/scale)

		pt.setLevel(i)
		pf.Described[i] = pt.tracker.SetDescription(f)
		if i == 0 && !pf.Described[i] {
			return false
		}
	}
	return true
}

// Track follows pf from its current position into the bound pyramid, coarsest level first.
// The estimate of every level that succeeds seeds the next finer one. FAILED and OUT_OF_BOUNDS
// stop immediately; LARGE_ERROR and DRIFTED on a coarse level keep the previous estimate. The
// result of the finest level is returned. pf only moves on Success.
func (pt *PyramidTracker[I, D]) Track(pf *PyramidFeature) TrackFault {
	n := pt.numLevels(pf)
	if n == 0 || !pf.Described[0] {
		return Failed
	}

	x, y := pf.X, pf.Y
	for i := n - 1; i >= 0; i-- {
		if !pf.Described[i] {
			continue
		}
		scale := pt.images.Image.Scale(i)
		f := pf.Levels[i]
		f.SetPosition(x/scale, y/scale)

		pt.setLevel(i)
		switch fault := pt.tracker.Track(f); fault {
		case Success:
			x, y = f.X*scale, f.Y*scale
		case Failed, OutOfBounds:
			return fault
		case LargeError, Drifted:
			if i == 0 {
				return fault
			}
		default:
			return fault
		}
	}
	pf.X, pf.Y = x, y
	return Success
}
