package klt

import "math"

// Feature is a square window described on a single image. X and Y are the sub-pixel
// coordinates of the window center in that image.
type Feature struct {
	X, Y   float64
	Radius int

	// Desc holds the intensities of the window in row major order; samples that fell outside
	// the usable image are NaN.
	Desc   []float64
	DerivX []float64
	DerivY []float64

	// gradient covariance of the description
	Gxx, Gyy, Gxy float64
}

// NewFeature allocates a feature with a (2*radius+1)^2 window.
func NewFeature(radius int) *Feature {
	width := 2*radius + 1
	length := width * width
	return &Feature{
		Radius: radius,
		Desc:   make([]float64, length),
		DerivX: make([]float64, length),
		DerivY: make([]float64, length),
	}
}

// Width returns the side of the window.
func (f *Feature) Width() int {
	return 2*f.Radius + 1
}

// Length returns the number of samples of the window.
func (f *Feature) Length() int {
	return f.Width() * f.Width()
}

// SetPosition moves the window center.
func (f *Feature) SetPosition(x, y float64) {
	f.X = x
	f.Y = y
}

// NumMissing returns how many samples of the description are missing.
func (f *Feature) NumMissing() int {
	n := 0
	for _, v := range f.Desc {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of f.
func (f *Feature) Clone() *Feature {
	out := *f
	out.Desc = append([]float64(nil), f.Desc...)
	out.DerivX = append([]float64(nil), f.DerivX...)
	out.DerivY = append([]float64(nil), f.DerivY...)
	return &out
}
