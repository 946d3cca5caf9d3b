package pyramid

import (
	"github.com/pkg/errors"

	"go.viam.com/klt/rimage"
)

// DiscreteBuilder builds pyramids whose scale factors are integer multiples of each other.
type DiscreteBuilder[T rimage.Pixel] struct {
	scales []int
	sigma  float64

	// SaveOriginalReference makes level 0 alias the input image when its scale is 1.
	SaveOriginalReference bool
}

// NewDiscreteBuilder returns a builder for the given scales. Each level is made from the one
// before it by a gaussian blur of the given sigma, skipped when sigma <= 0, followed by box
// averaging over blocks of scales[i]/scales[i-1] pixels.
func NewDiscreteBuilder[T rimage.Pixel](scales []int, sigma float64) (*DiscreteBuilder[T], error) {
	if len(scales) == 0 {
		return nil, errors.New("pyramid needs at least one scale")
	}
	if scales[0] < 1 {
		return nil, errors.Wrapf(ErrBadScales, "first scale is %d", scales[0])
	}
	for i := 1; i < len(scales); i++ {
		if scales[i] < scales[i-1] || scales[i]%scales[i-1] != 0 {
			return nil, errors.Wrapf(ErrBadScales, "scale %d (%d) is not a multiple of scale %d (%d)", i, scales[i], i-1, scales[i-1])
		}
	}
	return &DiscreteBuilder[T]{scales: append([]int(nil), scales...), sigma: sigma}, nil
}

// Scales returns the integer scale factors of the levels.
func (b *DiscreteBuilder[T]) Scales() []int {
	return append([]int(nil), b.scales...)
}

// Build makes a pyramid from img. It fails when a level would be empty.
func (b *DiscreteBuilder[T]) Build(img *rimage.Plane[T]) (*Pyramid[T], error) {
	p := &Pyramid[T]{
		Levels: make([]*rimage.Plane[T], len(b.scales)),
		Scales: make([]float64, len(b.scales)),
	}
	prev := img
	prevScale := 1
	for i, scale := range b.scales {
		ratio := scale / prevScale
		var level *rimage.Plane[T]
		switch {
		case i == 0 && ratio == 1 && b.SaveOriginalReference:
			level = img
		case i == 0 && ratio == 1:
			level = img.Clone()
		default:
			src := prev
			if b.sigma > 0 {
				blurred, err := rimage.GaussianBlur(prev, b.sigma)
				if err != nil {
					return nil, errors.Wrapf(err, "level %d", i)
				}
				src = blurred
			}
			var err error
			level, err = BoxDownsample(src, ratio)
			if err != nil {
				return nil, errors.Wrapf(err, "level %d", i)
			}
		}
		p.Levels[i] = level
		p.Scales[i] = float64(scale)
		prev = level
		prevScale = scale
	}
	return p, nil
}

// BoxDownsample averages non overlapping ratio x ratio blocks of img. Trailing rows and columns
// that do not fill a block are dropped.
func BoxDownsample[T rimage.Pixel](img *rimage.Plane[T], ratio int) (*rimage.Plane[T], error) {
	if ratio < 1 {
		return nil, errors.Errorf("downsample ratio must be >= 1, got %d", ratio)
	}
	if ratio == 1 {
		return img.Clone(), nil
	}
	w, h := img.Width()/ratio, img.Height()/ratio
	if w == 0 || h == 0 {
		return nil, errors.Errorf("%dx%d image is too small to downsample by %d", img.Width(), img.Height(), ratio)
	}
	out := rimage.NewPlane[T](w, h)
	norm := 1. / float64(ratio*ratio)
	sums := make([]float64, w)
	for y := 0; y < h; y++ {
		for x := range sums {
			sums[x] = 0
		}
		for dy := 0; dy < ratio; dy++ {
			src := img.Row(y*ratio + dy)
			for x := range sums {
				for dx := 0; dx < ratio; dx++ {
					sums[x] += float64(src[x*ratio+dx])
				}
			}
		}
		dst := out.Row(y)
		for x, s := range sums {
			dst[x] = T(s * norm)
		}
	}
	return out, nil
}
