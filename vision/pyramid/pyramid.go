// Package pyramid contains multi resolution image pyramids. Level 0 is the finest level and
// every following level is at least as coarse as the one before it.
package pyramid

import (
	"github.com/pkg/errors"

	"go.viam.com/klt/rimage"
)

// ErrBadScales is returned when the scale factors of a pyramid are not valid.
var ErrBadScales = errors.New("pyramid scales must start at >= 1 and be non-decreasing")

// Pyramid holds the image at every level and the scale factor of each level relative to the
// full resolution image.
type Pyramid[T rimage.Pixel] struct {
	Levels []*rimage.Plane[T]
	Scales []float64
}

// New returns a validated pyramid made of the given levels.
func New[T rimage.Pixel](levels []*rimage.Plane[T], scales []float64) (*Pyramid[T], error) {
	p := &Pyramid[T]{Levels: levels, Scales: scales}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NumLevels returns the number of levels.
func (p *Pyramid[T]) NumLevels() int {
	return len(p.Levels)
}

// Level returns the image of level i.
func (p *Pyramid[T]) Level(i int) *rimage.Plane[T] {
	return p.Levels[i]
}

// Scale returns the scale factor of level i.
func (p *Pyramid[T]) Scale(i int) float64 {
	return p.Scales[i]
}

// Validate checks the shape invariants of the pyramid.
func (p *Pyramid[T]) Validate() error {
	if len(p.Levels) == 0 {
		return errors.New("pyramid needs at least one level")
	}
	if len(p.Levels) != len(p.Scales) {
		return errors.Errorf("pyramid has %d levels but %d scales", len(p.Levels), len(p.Scales))
	}
	for i, level := range p.Levels {
		if level == nil {
			return errors.Errorf("pyramid level %d is missing", i)
		}
	}
	if p.Scales[0] < 1 {
		return errors.Wrapf(ErrBadScales, "first scale is %v", p.Scales[0])
	}
	for i := 1; i < len(p.Scales); i++ {
		if p.Scales[i] < p.Scales[i-1] {
			return errors.Wrapf(ErrBadScales, "scale %d (%v) is finer than scale %d (%v)", i, p.Scales[i], i-1, p.Scales[i-1])
		}
	}
	return nil
}

// GradientPyramid computes the derivatives of every level of p.
func GradientPyramid[I, D rimage.Pixel](
	p *Pyramid[I],
	gradient rimage.GradientFunc[I, D],
) (derivX, derivY []*rimage.Plane[D], err error) {
	derivX = make([]*rimage.Plane[D], p.NumLevels())
	derivY = make([]*rimage.Plane[D], p.NumLevels())
	for i, level := range p.Levels {
		derivX[i] = rimage.NewPlane[D](level.Width(), level.Height())
		derivY[i] = rimage.NewPlane[D](level.Width(), level.Height())
		if err := gradient(level, derivX[i], derivY[i]); err != nil {
			return nil, nil, errors.Wrapf(err, "level %d", i)
		}
	}
	return derivX, derivY, nil
}
