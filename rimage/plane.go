// Package rimage contains single band image planes and the pixel level operations the
// trackers run on them: interpolation, convolution and gradients.
package rimage

import (
	"image"
	"math"
	"unsafe"

	"github.com/pkg/errors"
)

// Pixel is the set of element types a Plane can hold.
type Pixel interface {
	~uint8 | ~uint16 | ~int16 | ~int32 | ~float32 | ~float64
}

// saturate returns a conversion from float64 to T. Integer types are clamped to their range
// and NaN becomes zero; float types convert directly.
func saturate[T Pixel]() func(float64) T {
	half := 0.5
	if T(half) != 0 {
		return func(v float64) T { return T(v) }
	}
	var z T
	z--
	var low, high float64
	if z > 0 {
		high = float64(z)
	} else {
		bits := 8 * float64(unsafe.Sizeof(z))
		low = -math.Pow(2, bits-1)
		high = math.Pow(2, bits-1) - 1
	}
	return func(v float64) T {
		switch {
		case math.IsNaN(v):
			return 0
		case v <= low:
			return T(low)
		case v >= high:
			return T(high)
		}
		return T(v)
	}
}

// Plane is a single band image. Coordinates are local to the plane: (0, 0) is always the top
// left pixel even when the plane is a view into a larger one.
type Plane[T Pixel] struct {
	width  int
	height int
	stride int
	data   []T
}

// NewPlane returns a zeroed plane of the given size.
func NewPlane[T Pixel](width, height int) *Plane[T] {
	return &Plane[T]{
		width:  width,
		height: height,
		stride: width,
		data:   make([]T, width*height),
	}
}

// NewPlaneFromData wraps row major data of the given size without copying it.
func NewPlaneFromData[T Pixel](width, height int, data []T) (*Plane[T], error) {
	if width < 0 || height < 0 {
		return nil, errors.Errorf("invalid plane size %dx%d", width, height)
	}
	if len(data) != width*height {
		return nil, errors.Errorf("plane of %dx%d needs %d elements but got %d", width, height, width*height, len(data))
	}
	return &Plane[T]{width: width, height: height, stride: width, data: data}, nil
}

func (p *Plane[T]) kxy(x, y int) int {
	return y*p.stride + x
}

// Width returns the number of columns.
func (p *Plane[T]) Width() int {
	return p.width
}

// Height returns the number of rows.
func (p *Plane[T]) Height() int {
	return p.height
}

// Stride returns the distance in elements between two rows.
func (p *Plane[T]) Stride() int {
	return p.stride
}

// Bounds returns the local bounds of the plane.
func (p *Plane[T]) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// In returns whether (x, y) is a pixel of the plane.
func (p *Plane[T]) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < p.width && y < p.height
}

// At returns the pixel at (x, y).
func (p *Plane[T]) At(x, y int) T {
	return p.data[p.kxy(x, y)]
}

// Set sets the pixel at (x, y).
func (p *Plane[T]) Set(x, y int, v T) {
	p.data[p.kxy(x, y)] = v
}

// Row returns the pixels of row y. The slice aliases the plane.
func (p *Plane[T]) Row(y int) []T {
	start := p.kxy(0, y)
	return p.data[start : start+p.width]
}

// SameShape returns whether both planes have the same width and height.
func (p *Plane[T]) SameShape(width, height int) bool {
	return p.width == width && p.height == height
}

// SubPlane returns a view of the rectangle r. The view shares pixels with p and its
// coordinates start at r.Min.
func (p *Plane[T]) SubPlane(r image.Rectangle) (*Plane[T], error) {
	if r.Empty() || !r.In(p.Bounds()) {
		return nil, errors.Errorf("sub plane %v is not inside %v", r, p.Bounds())
	}
	start := p.kxy(r.Min.X, r.Min.Y)
	end := p.kxy(r.Max.X-1, r.Max.Y-1) + 1
	return &Plane[T]{
		width:  r.Dx(),
		height: r.Dy(),
		stride: p.stride,
		data:   p.data[start:end],
	}, nil
}

// Clone returns a compact copy of the plane.
func (p *Plane[T]) Clone() *Plane[T] {
	out := NewPlane[T](p.width, p.height)
	for y := 0; y < p.height; y++ {
		copy(out.Row(y), p.Row(y))
	}
	return out
}

// Fill sets every pixel to v.
func (p *Plane[T]) Fill(v T) {
	for y := 0; y < p.height; y++ {
		row := p.Row(y)
		for x := range row {
			row[x] = v
		}
	}
}

// ConvertPlane copies p into a new plane of another pixel type. Values are truncated toward
// zero and clamped to the range of integer types.
func ConvertPlane[O, T Pixel](p *Plane[T]) *Plane[O] {
	out := NewPlane[O](p.width, p.height)
	convert := saturate[O]()
	for y := 0; y < p.height; y++ {
		src := p.Row(y)
		dst := out.Row(y)
		for x, v := range src {
			dst[x] = convert(float64(v))
		}
	}
	return out
}
